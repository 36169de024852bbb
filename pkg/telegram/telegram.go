package telegram

import (
	"context"
	"golang-quant/config"
	"golang-quant/pkg/logger"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Notifier pushes run reports to a configured chat. All sends go through a
// global limiter so bursts of scheduled runs stay under the Bot API quota.
type Notifier struct {
	cfg           *config.TelegramConfig
	log           *logger.Logger
	bot           *telebot.Bot
	globalLimiter *rate.Limiter
}

func NewNotifier(cfg *config.TelegramConfig, log *logger.Logger) (*Notifier, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.BotToken,
		Poller: nil, // outbound only
	})
	if err != nil {
		return nil, err
	}

	return &Notifier{
		cfg:           cfg,
		log:           log,
		bot:           bot,
		globalLimiter: rate.NewLimiter(rate.Limit(cfg.MaxGlobalRequestPerSecond), cfg.MaxGlobalRequestPerSecond),
	}, nil
}

// Send delivers a Markdown message to the configured chat.
func (n *Notifier) Send(ctx context.Context, message string) error {
	if err := n.globalLimiter.Wait(ctx); err != nil {
		n.log.ErrorContext(ctx, "Failed to wait for telegram rate limit", logger.ErrorField(err))
		return err
	}

	_, err := n.bot.Send(&telebot.Chat{ID: n.cfg.ChatID}, message, telebot.ModeMarkdown)
	if err != nil {
		n.log.ErrorContext(ctx, "Failed to send telegram message", logger.ErrorField(err))
	}
	return err
}
