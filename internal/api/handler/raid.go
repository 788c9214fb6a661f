package handler

import (
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"

	"raidbot/internal/services"
)

type groupRaid struct {
	container *do.Injector
}

func (gr *groupRaid) GetActiveRaids(c echo.Context) error {
	serviceRaid, err := do.Invoke[*services.ServiceRaid](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	raids, err := serviceRaid.ListActiveRaids(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, raids, nil)
}

func (gr *groupRaid) GetRaid(c echo.Context) error {
	serviceRaid, err := do.Invoke[*services.ServiceRaid](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	raid, err := serviceRaid.GetRaid(ctx, c.Param("id"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, raid, nil)
}

func (gr *groupRaid) GetRaidStats(c echo.Context) error {
	serviceRaid, err := do.Invoke[*services.ServiceRaid](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	raid, err := serviceRaid.GetRaid(ctx, c.Param("id"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	stats, err := serviceRaid.GetRaidStats(ctx, raid.ID)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, stats, nil)
}
