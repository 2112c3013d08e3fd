package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

// telegramTextLimit is the Bot API limit for one message, in characters.
const telegramTextLimit = 4096

// TelegramConfig contains configuration for Telegram Bot API delivery.
type TelegramConfig struct {
	// Enabled indicates whether Telegram delivery is enabled
	Enabled bool

	// Token is the bot token. It is a secret and never logged.
	Token string

	// APIURL overrides the Bot API endpoint (tests, local Bot API servers)
	APIURL string

	// Timeout is the HTTP request timeout for Bot API calls
	Timeout time.Duration

	// DisablePreview suppresses link previews in delivered messages
	DisablePreview bool

	// MaxAttempts bounds the attempts per message chunk (default 2)
	MaxAttempts int

	// RetryBaseDelay is the linear back-off unit between attempts (default 2s)
	RetryBaseDelay time.Duration
}

// TelegramNotifier sends alert text to Telegram chats through a bot.
type TelegramNotifier struct {
	config      TelegramConfig
	bot         *tele.Bot
	rateLimiter *RateLimiter
}

// NewTelegramNotifier creates a TelegramNotifier. The bot is created offline,
// so no Bot API call happens until the first message.
func NewTelegramNotifier(config TelegramConfig) (*TelegramNotifier, error) {
	if strings.TrimSpace(config.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 2
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = 2 * time.Second
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   config.Token,
		URL:     config.APIURL,
		Client:  &http.Client{Timeout: config.Timeout},
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		config: config,
		bot:    bot,
		// Bot API allows about 30 messages per second across chats
		rateLimiter: NewRateLimiter(25, 25),
	}, nil
}

// SendText implements Notifier. recipientID is a numeric chat id. Text longer
// than the message limit is split into consecutive messages.
func (t *TelegramNotifier) SendText(ctx context.Context, recipientID, text string) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(recipientID), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: telegram chat id must be numeric", ErrInvalidRecipient)
	}

	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	chat := &tele.Chat{ID: chatID}
	opts := &tele.SendOptions{DisableWebPagePreview: t.config.DisablePreview}
	chunks := splitText(text, telegramTextLimit)
	policy := retryPolicy{maxAttempts: t.config.MaxAttempts, baseDelay: t.config.RetryBaseDelay}

	slog.Debug("sending telegram message",
		slog.String("request_id", requestID),
		slog.Int("chunks", len(chunks)))

	for i, chunk := range chunks {
		if err := t.rateLimiter.Allow(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		err := sendWithRetry(ctx, "telegram", policy, func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := t.bot.Send(chat, chunk, opts)
			return classifyTelegramError(err)
		})
		if err != nil {
			return fmt.Errorf("telegram chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// classifyTelegramError maps Bot API errors onto the shared typed errors.
func classifyTelegramError(err error) error {
	if err == nil {
		return nil
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return &RateLimitError{
			Message:    "Telegram rate limit exceeded",
			RetryAfter: time.Duration(flood.RetryAfter) * time.Second,
		}
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 500 {
			return &ServerError{StatusCode: apiErr.Code, Message: apiErr.Error()}
		}
		return &ClientError{StatusCode: apiErr.Code, Message: apiErr.Error()}
	}

	return err
}
