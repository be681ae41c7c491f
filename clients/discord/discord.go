package discord

import (
	"fmt"
	"strings"
	"time"
	"tradewatch/clients/notifier"
	"tradewatch/config"
	"tradewatch/internal/tradelog"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorBuy  = 0x2ECC71
	colorSell = 0xE74C3C
)

// DiscordClient posts new-trade notifications to a Discord channel.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
	isProd    bool
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.BetaChannelID
	if cfg.IsProd {
		channelID = cfg.Discord.ProdChannelID
	}

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord notifications disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	logger.Info("discord bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("channelID", channelID),
	)

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
		isProd:    cfg.IsProd,
	}
}

// Enabled reports whether a session exists to send through.
func (dc *DiscordClient) Enabled() bool {
	return dc.session != nil && dc.channelID != ""
}

// SendTradeNotification sends a rich embed for a new trade.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendTradeNotification(n notifier.TradeNotification) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping notification")
		return
	}

	embed := dc.buildTradeEmbed(n)

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord trade notification",
		zap.String("action", n.Side()),
		zap.String("time", n.Entry.Time),
	)
}

func (dc *DiscordClient) buildTradeEmbed(n notifier.TradeNotification) *discordgo.MessageEmbed {
	side := n.Side()

	color := colorBuy
	sideEmoji := "🟢"
	if side == tradelog.ActionSell {
		color = colorSell
		sideEmoji = "🔴"
	}

	e := n.Entry
	fields := []*discordgo.MessageEmbedField{
		{Name: "Side", Value: fmt.Sprintf("%s %s", sideEmoji, side), Inline: true},
		{Name: "Price", Value: e.Price.Display(), Inline: true},
		{Name: "Qty", Value: e.Qty.Display(), Inline: true},
		{Name: "P/L", Value: signed(e.PnL), Inline: true},
		{Name: "Unrealized", Value: signed(e.Unrealized), Inline: true},
		{Name: "Net Worth", Value: e.NetWorth.Display(), Inline: true},
	}

	ts := n.DetectedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s New %s trade", sideEmoji, side),
		Description: fmt.Sprintf("**%s**", nz(e.Time, "unknown time")),
		Color:       color,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("tradewatch * %s", ts.Format("2006-01-02 15:04:05 MST")),
		},
		Timestamp: ts.Format(time.RFC3339),
	}
}

// signed prefixes positive amounts with "+".
func signed(v tradelog.Value) string {
	s := v.Display()
	if f, ok := v.Float(); ok && f > 0 && s != "0.00" {
		return "+" + s
	}
	return s
}

func nz(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// Close closes the Discord session.
func (dc *DiscordClient) Close() error {
	if dc.session != nil {
		return dc.session.Close()
	}
	return nil
}
