package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"tradewatch/clients/notifier"
	"tradewatch/config"

	"go.uber.org/zap"
)

const bell = "\a"

// ConsoleClient rings the terminal bell and prints a one-line banner per new trade.
// Implements notifier.Notifier interface.
type ConsoleClient struct {
	logger *zap.Logger
	bell   bool

	mu  sync.Mutex
	out io.Writer
}

func NewConsoleClient(logger *zap.Logger, cfg *config.Config) *ConsoleClient {
	return newConsoleClient(logger, cfg, os.Stdout)
}

func newConsoleClient(logger *zap.Logger, cfg *config.Config, out io.Writer) *ConsoleClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleClient{
		logger: logger,
		bell:   cfg.Console.Bell,
		out:    out,
	}
}

// SendTradeNotification implements notifier.Notifier interface.
func (cc *ConsoleClient) SendTradeNotification(n notifier.TradeNotification) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	prefix := ""
	if cc.bell {
		prefix = bell
	}
	if _, err := fmt.Fprintf(cc.out, "%s%s\n", prefix, Banner(n)); err != nil {
		cc.logger.Error("failed to write console notification", zap.Error(err))
	}
}

// Banner is the one-line text shown for a new trade.
func Banner(n notifier.TradeNotification) string {
	ts := n.DetectedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	e := n.Entry
	return fmt.Sprintf("[%s] New %s trade at %s  price=%s qty=%s P/L=%s",
		ts.Format("15:04:05"), n.Side(), e.Time, e.Price.Display(), e.Qty.Display(), e.PnL.Display())
}

// Close implements notifier.Notifier interface.
func (cc *ConsoleClient) Close() error {
	return nil
}
