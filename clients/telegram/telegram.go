package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"tradewatch/clients/notifier"
	"tradewatch/config"
	"tradewatch/internal/tradelog"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://api.telegram.org"

// TelegramClient sends new-trade notifications to a Telegram chat.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger   *zap.Logger
	apiBase  string
	botToken string
	chatID   string
	isProd   bool
	client   *http.Client
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	chatID := cfg.Telegram.BetaChatID
	if cfg.IsProd {
		chatID = cfg.Telegram.ProdChatID
	}

	token := cfg.Telegram.BotToken
	if token == "" {
		logger.Warn("TELEGRAM_BOT_KEY not set, Telegram notifications disabled")
		return &TelegramClient{
			logger:  logger,
			apiBase: defaultAPIBase,
			chatID:  chatID,
			isProd:  cfg.IsProd,
		}
	}

	logger.Info("telegram bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("chatID", chatID),
	)

	return &TelegramClient{
		logger:   logger,
		apiBase:  defaultAPIBase,
		botToken: token,
		chatID:   chatID,
		isProd:   cfg.IsProd,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether both a token and a chat are configured.
func (tc *TelegramClient) Enabled() bool {
	return tc.botToken != "" && tc.chatID != ""
}

// SendTradeNotification sends a Markdown message for a new trade.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendTradeNotification(n notifier.TradeNotification) {
	if !tc.Enabled() {
		tc.logger.Warn("telegram not configured, skipping notification")
		return
	}

	message := tc.buildTradeMessage(n)

	if err := tc.sendMessage(message); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Info("sent telegram trade notification",
		zap.String("action", n.Side()),
		zap.String("time", n.Entry.Time),
	)
}

func (tc *TelegramClient) buildTradeMessage(n notifier.TradeNotification) string {
	var sb strings.Builder

	side := n.Side()
	sideEmoji := "🟢"
	if side == tradelog.ActionSell {
		sideEmoji = "🔴"
	}

	e := n.Entry
	sb.WriteString(fmt.Sprintf("*%s New %s trade*\n\n", sideEmoji, side))
	sb.WriteString(fmt.Sprintf("*Time:* %s\n", escapeMarkdown(e.Time)))
	sb.WriteString(fmt.Sprintf("*Price:* %s\n", e.Price.Display()))
	sb.WriteString(fmt.Sprintf("*Qty:* %s\n", e.Qty.Display()))
	sb.WriteString(fmt.Sprintf("*P/L:* %s\n", e.PnL.Display()))
	sb.WriteString(fmt.Sprintf("*Unrealized:* %s\n", e.Unrealized.Display()))
	sb.WriteString(fmt.Sprintf("*Net Worth:* %s\n", e.NetWorth.Display()))

	ts := n.DetectedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	sb.WriteString(fmt.Sprintf("\n_tradewatch • %s_", ts.Format("2006-01-02 15:04:05 MST")))

	return sb.String()
}

func (tc *TelegramClient) sendMessage(text string) error {
	url := fmt.Sprintf("%s/bot%s/%s", tc.apiBase, tc.botToken, "sendMessage")

	payload := map[string]interface{}{
		"chat_id":    tc.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}

// escapeMarkdown escapes special characters for Telegram Markdown.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
