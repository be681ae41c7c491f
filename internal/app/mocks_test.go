package app

import (
	"context"
	"sync"
	"tradewatch/clients/notifier"
	"tradewatch/internal/tradelog"
)

type fetchResult struct {
	snapshot tradelog.Snapshot
	err      error
}

// MockFetcher returns scripted results in order, repeating the last one.
type MockFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
	block   chan struct{} // when set, Fetch waits on it or ctx
}

func NewMockFetcher(results ...fetchResult) *MockFetcher {
	return &MockFetcher{results: results}
}

func (m *MockFetcher) Fetch(ctx context.Context) (tradelog.Snapshot, error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.results) == 0 {
		return tradelog.Snapshot{}, nil
	}
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	r := m.results[idx]
	return r.snapshot, r.err
}

// Set replaces the scripted results.
func (m *MockFetcher) Set(results ...fetchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
	m.calls = 0
}

func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockNotifier records notifications.
type MockNotifier struct {
	mu            sync.Mutex
	notifications []notifier.TradeNotification
	closed        bool
}

func (m *MockNotifier) SendTradeNotification(n notifier.TradeNotification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
}

func (m *MockNotifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockNotifier) Notifications() []notifier.TradeNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notifier.TradeNotification(nil), m.notifications...)
}

func (m *MockNotifier) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func logEntry(time, action string, pnl float64) tradelog.Entry {
	return tradelog.Entry{
		Time:       time,
		Action:     action,
		Price:      tradelog.Num(100),
		Qty:        tradelog.Num(1),
		PnL:        tradelog.Num(pnl),
		Unrealized: tradelog.Num(0),
		NetWorth:   tradelog.Num(1000 + pnl),
	}
}

// sampleLog is the BUY then SELL log used across tests.
func sampleLog() tradelog.Snapshot {
	return tradelog.Snapshot{
		logEntry("2024-01-01 10:00:00", "BUY", 0),
		logEntry("2024-01-01 11:00:00", "SELL", 10),
	}
}
