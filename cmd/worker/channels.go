package main

import (
	"log/slog"
	"time"

	"post-alert/internal/domain/entity"
	"post-alert/internal/infra/notifier"
	"post-alert/internal/observability/logging"
	"post-alert/internal/usecase/notify"
	envconfig "post-alert/pkg/config"
)

// buildChannels registers every notification channel. Channels whose
// credentials are missing or invalid are registered disabled, so deliveries
// to them fail per recipient instead of aborting startup.
func buildChannels(logger *slog.Logger, recipients []entity.Recipient) ([]notify.Channel, error) {
	telegram, err := notify.NewTelegramChannel(loadTelegramConfig(logger))
	if err != nil {
		return nil, err
	}

	channels := []notify.Channel{
		telegram,
		notify.NewDiscordChannel(loadDiscordConfig(logger)),
		notify.NewSlackChannel(loadSlackConfig(logger)),
		notify.NewLogChannel(notifier.NewLogNotifier(logger)),
	}

	byName := make(map[string]notify.Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
		logger.Info("notification channel registered",
			slog.String("channel", ch.Name()),
			slog.Bool("enabled", ch.IsEnabled()))
	}
	for _, r := range recipients {
		ch, ok := byName[r.Channel]
		switch {
		case !ok:
			logger.Warn("recipient uses an unknown channel",
				slog.String("channel", r.Channel),
				slog.String("recipient", logging.MaskSecret(r.ID)))
		case !ch.IsEnabled():
			logger.Warn("recipient uses a disabled channel",
				slog.String("channel", r.Channel),
				slog.String("recipient", logging.MaskSecret(r.ID)))
		}
	}
	return channels, nil
}

func loadTelegramConfig(logger *slog.Logger) notifier.TelegramConfig {
	token := envconfig.GetEnvString("TELEGRAM_BOT_TOKEN", "")
	enabled := envconfig.GetEnvBool("TELEGRAM_ENABLED", token != "")
	if !enabled {
		return notifier.TelegramConfig{Enabled: false}
	}
	if token == "" {
		logger.Warn("Telegram bot token is empty, disabling notifications")
		return notifier.TelegramConfig{Enabled: false}
	}
	return notifier.TelegramConfig{
		Enabled:        true,
		Token:          token,
		APIURL:         envconfig.GetEnvString("TELEGRAM_API_URL", ""),
		Timeout:        30 * time.Second,
		DisablePreview: envconfig.GetEnvBool("TELEGRAM_DISABLE_PREVIEW", false),
	}
}

func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	webhookURL := envconfig.GetEnvString("DISCORD_WEBHOOK_URL", "")
	if !envconfig.GetEnvBool("DISCORD_ENABLED", webhookURL != "") {
		return notifier.DiscordConfig{Enabled: false}
	}
	if webhookURL != "" {
		if err := notifier.ValidateDiscordWebhookURL(webhookURL); err != nil {
			logger.Warn("invalid Discord webhook URL, disabling notifications", slog.Any("error", err))
			return notifier.DiscordConfig{Enabled: false}
		}
	}
	return notifier.DiscordConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	webhookURL := envconfig.GetEnvString("SLACK_WEBHOOK_URL", "")
	if !envconfig.GetEnvBool("SLACK_ENABLED", webhookURL != "") {
		return notifier.SlackConfig{Enabled: false}
	}
	if webhookURL != "" {
		if err := notifier.ValidateSlackWebhookURL(webhookURL); err != nil {
			logger.Warn("invalid Slack webhook URL, disabling notifications", slog.Any("error", err))
			return notifier.SlackConfig{Enabled: false}
		}
	}
	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}
