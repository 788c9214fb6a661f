package handler

import (
	"net/http"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
}

// New builds the read-only HTTP surface: health, leaderboard and raid
// status. All writes go through the bot.
func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "⚔️")
	})
	r.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Origins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			MaxAge:       60 * 60,
		})
		routesAPIv1.Use(cors)

		l := groupLeaderboard{cfg.Container}
		routesAPIv1.GET("/leaderboard", l.GetLeaderboard)
		routesAPIv1.GET("/leaderboard/user/:id", l.GetUserStats)

		rd := groupRaid{cfg.Container}
		routesAPIv1.GET("/raids/active", rd.GetActiveRaids)
		routesAPIv1.GET("/raid/:id", rd.GetRaid)
		routesAPIv1.GET("/raid/:id/stats", rd.GetRaidStats)
	}

	return r, nil
}
