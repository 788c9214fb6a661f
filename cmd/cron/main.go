package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
	tele "gopkg.in/telebot.v3"

	"raidbot/internal/container"
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
		Name: "cronjob",
		Commands: []*cli.Command{
			commandCronjob(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandCronjob() *cli.Command {
	return &cli.Command{
		Name: "cron",
		Action: func(c *cli.Context) error {
			injector, err := newCronContainer()
			if err != nil {
				return err
			}

			cronRunner := cron.New()

			campaignJob, err := NewCampaignJob(injector)
			if err != nil {
				return err
			}
			campaignJob.Start(cronRunner)

			leaderboardJob, err := NewLeaderboardJob(injector)
			if err != nil {
				return err
			}
			leaderboardJob.Start(cronRunner)

			log.Println("cron started")
			cronRunner.Run()
			return nil
		},
	}
}

func newCronContainer() (*do.Injector, error) {
	pref := tele.Settings{
		Token:  os.Getenv("BOT_TOKEN"),
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	vs := map[string]string{
		"BOT_TOKEN": os.Getenv("BOT_TOKEN"),
		"DB_DSN":    os.Getenv("DB_DSN"),
	}

	return container.New(vs, b), nil
}
