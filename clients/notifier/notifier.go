package notifier

import (
	"strings"
	"time"
	"tradewatch/internal/tradelog"
)

// TradeNotification is raised once per newly appended BUY or SELL entry.
type TradeNotification struct {
	Entry      tradelog.Entry
	DetectedAt time.Time
}

// Side returns the normalized action (BUY or SELL).
func (n TradeNotification) Side() string {
	return strings.ToUpper(strings.TrimSpace(n.Entry.Action))
}

// Notifier is the interface for delivering new-trade notifications to a channel.
type Notifier interface {
	// SendTradeNotification delivers one notification. Failures are handled by the implementation.
	SendTradeNotification(n TradeNotification)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts notifications to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// Add registers another notifier. Not safe to call concurrently with SendTradeNotification.
func (m *MultiNotifier) Add(n Notifier) {
	if n != nil {
		m.notifiers = append(m.notifiers, n)
	}
}

// SendTradeNotification sends the notification to all registered notifiers.
func (m *MultiNotifier) SendTradeNotification(n TradeNotification) {
	for _, nt := range m.notifiers {
		nt.SendTradeNotification(n)
	}
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
