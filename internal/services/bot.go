package services

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v3"
)

// Bot wraps telebot as the outbound chat transport. Inbound command routing
// stays in cmd/bot; services only send and toggle permissions through this.
type Bot struct {
	bot *tele.Bot
}

func NewBot(token string) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	return &Bot{b}, nil
}

// NewBotFromTele shares an existing telebot instance, so the command router
// and the transport use one connection.
func NewBotFromTele(b *tele.Bot) *Bot {
	return &Bot{b}
}

func (bot *Bot) Tele() *tele.Bot {
	return bot.bot
}

func (bot *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := bot.bot.Send(&tele.Chat{ID: chatID}, text, &tele.SendOptions{
		ParseMode: tele.ModeHTML,
	})
	return err
}

// RestrictChat takes everyone's send permission away. Admins are exempt on
// the Telegram side.
func (bot *Bot) RestrictChat(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return bot.bot.SetGroupPermissions(&tele.Chat{ID: chatID}, tele.Rights{
		CanSendMessages: false,
		CanSendMedia:    false,
		CanSendOther:    false,
	})
}

func (bot *Bot) RestoreChat(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return bot.bot.SetGroupPermissions(&tele.Chat{ID: chatID}, tele.Rights{
		CanSendMessages: true,
		CanSendMedia:    true,
		CanSendOther:    true,
		CanAddPreviews:  true,
	})
}
