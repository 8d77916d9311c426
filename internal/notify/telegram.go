package notify

import (
	"context"
	"fmt"
	"math"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Guliveer/watchpost/internal/models"
)

const (
	// queueSize bounds the number of alerts waiting for delivery.
	queueSize = 64

	// maxRetries is the number of retries after a failed send.
	maxRetries = 3

	// baseRetryDelay is the base delay for exponential backoff between retries.
	baseRetryDelay = 2 * time.Second
)

// botClient is the subset of *tgbotapi.BotAPI used for delivery.
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers alerts to a Telegram chat. Alerts are queued by Notify
// and sent by Run; when the queue is full new alerts are dropped.
type Telegram struct {
	bot        botClient
	chatID     int64
	logger     *zap.Logger
	queue      chan models.Alert
	retryDelay time.Duration
}

// NewTelegram authenticates against the Bot API and returns a notifier for chatID.
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return newTelegram(bot, chatID, logger), nil
}

func newTelegram(bot botClient, chatID int64, logger *zap.Logger) *Telegram {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{
		bot:        bot,
		chatID:     chatID,
		logger:     logger,
		queue:      make(chan models.Alert, queueSize),
		retryDelay: baseRetryDelay,
	}
}

// Notify enqueues an alert without blocking.
func (t *Telegram) Notify(alert models.Alert) {
	select {
	case t.queue <- alert:
	default:
		t.logger.Warn("Notification queue full, dropping alert",
			zap.String("message", alert.Message))
	}
}

// Run delivers queued alerts until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case alert := <-t.queue:
			t.send(ctx, alert)
		}
	}
}

// Drain delivers the alerts already queued and returns once the queue is
// empty or ctx is done. It is used when no Run worker is active.
func (t *Telegram) Drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if n := len(t.queue); n > 0 {
				t.logger.Warn("Undelivered notifications dropped", zap.Int("count", n))
			}
			return
		case alert := <-t.queue:
			t.send(ctx, alert)
		default:
			return
		}
	}
}

// send delivers one alert with exponential backoff.
func (t *Telegram) send(ctx context.Context, alert models.Alert) {
	msg := tgbotapi.NewMessage(t.chatID, FormatAlert(alert))

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * t.retryDelay
			t.logger.Debug("Retrying telegram send",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Warn("Telegram send failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		return
	}

	t.logger.Error("All retries exhausted, dropping notification",
		zap.String("message", alert.Message))
}
