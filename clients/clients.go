package clients

import (
	"tradewatch/clients/console"
	"tradewatch/clients/discord"
	"tradewatch/clients/logsource"
	"tradewatch/clients/notifier"
	"tradewatch/clients/telegram"
	"tradewatch/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	LogSource *logsource.LogSourceClient
	Discord   *discord.DiscordClient
	Telegram  *telegram.TelegramClient
	Console   *console.ConsoleClient
	Notifier  *notifier.MultiNotifier // Combined notifier for all configured channels
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	if logger == nil {
		logger = zap.NewNop()
	}

	discordClient := discord.NewDiscordClient(logger, cfg)
	telegramClient := telegram.NewTelegramClient(logger, cfg)

	c := &Clients{
		Logger:    logger,
		LogSource: logsource.NewLogSourceClient(logger, cfg),
		Discord:   discordClient,
		Telegram:  telegramClient,
		Notifier:  notifier.NewMultiNotifier(),
	}

	if cfg.Console.Enabled {
		c.Console = console.NewConsoleClient(logger, cfg)
		c.Notifier.Add(c.Console)
	}
	// Unconfigured chat clients stay constructed but are not fanned out to
	if discordClient.Enabled() {
		c.Notifier.Add(discordClient)
	}
	if telegramClient.Enabled() {
		c.Notifier.Add(telegramClient)
	}

	return c
}
