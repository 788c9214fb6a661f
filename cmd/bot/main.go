package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v3"

	"raidbot/internal/container"
	"raidbot/internal/services"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name: "raid-bot",
		Commands: []*cli.Command{
			commandBot(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandBot() *cli.Command {
	return &cli.Command{
		Name:   "server",
		Action: action,
	}
}

func action(c *cli.Context) error {
	vs, err := env.EnvsRequired(
		"BOT_TOKEN",
		"DB_DSN",
	)
	if err != nil {
		return err
	}

	pref := tele.Settings{
		Token:  vs["BOT_TOKEN"],
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return err
	}

	injector := container.New(vs, b)

	campaign, err := do.Invoke[*services.ServiceCampaign](injector)
	if err != nil {
		return err
	}
	lock, err := do.Invoke[*services.ServiceLock](injector)
	if err != nil {
		return err
	}

	registerCommands(b, injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := campaign.EnsureCompleted(ctx); err != nil {
		log.Println("resume raids:", err)
	}

	errWg, errCtx := errgroup.WithContext(ctx)

	errWg.Go(func() error {
		campaign.StartBroadcasts(errCtx)
		return nil
	})

	errWg.Go(func() error {
		lock.StartMonitor(errCtx)
		return nil
	})

	errWg.Go(func() error {
		log.Println("bot started")
		b.Start()
		return nil
	})

	errWg.Go(func() error {
		<-errCtx.Done()
		campaign.Stop()
		b.Stop()
		return nil
	})

	return errWg.Wait()
}
