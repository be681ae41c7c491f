package app

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
	clts "tradewatch/clients"
	"tradewatch/clients/notifier"
	"tradewatch/config"
	"tradewatch/internal/tradelog"

	"go.uber.org/zap"
)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

const notifyQueueSize = 64

type Runner struct {
	clients    *clts.Clients
	cfg        *config.Config
	fetcher    LogFetcher
	session    *Session
	reconciler *Reconciler
	poller     *Poller
	hub        *WSHub
	notifier   *notifier.MultiNotifier // shared client channels plus this runner's hub
	dashboard  *DashboardServer
	startTime  time.Time
	now        func() time.Time

	notifyCh chan notifier.TradeNotification
	notifyWG sync.WaitGroup

	statsMu sync.Mutex
	stats   pollStats
}

type pollStats struct {
	succeeded     int
	failed        int
	notifications int
	truncations   int
	lastError     string
	lastErrorAt   time.Time
	lastSuccessAt time.Time
}

// ServiceStats holds service statistics.
type ServiceStats struct {
	// Build info
	Build struct {
		Commit    string `json:"commit"`
		Time      string `json:"time,omitempty"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	// Service info
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`

	// Polling
	Polls struct {
		Endpoint      string `json:"endpoint"`
		Interval      string `json:"interval"`
		Succeeded     int    `json:"succeeded"`
		Failed        int    `json:"failed"`
		Truncations   int    `json:"truncations"`
		LastError     string `json:"last_error,omitempty"`
		LastErrorAt   string `json:"last_error_at,omitempty"`
		LastSuccessAt string `json:"last_success_at,omitempty"`
	} `json:"polls"`

	// Log state
	Log struct {
		State       State  `json:"state"`
		Entries     int    `json:"entries"`
		Dates       int    `json:"dates"`
		LastUpdated string `json:"last_updated,omitempty"`
	} `json:"log"`

	// Notification channels
	Notifications struct {
		Sent             int    `json:"sent"`
		Channels         int    `json:"channels"` // external channels, the ws hub excluded
		ConsoleEnabled   bool   `json:"console_enabled"`
		DiscordEnabled   bool   `json:"discord_enabled"`
		DiscordChannelID string `json:"discord_channel_id,omitempty"`
		TelegramEnabled  bool   `json:"telegram_enabled"`
		TelegramChatID   string `json:"telegram_chat_id,omitempty"`
		WSClients        int    `json:"ws_clients"`
	} `json:"notifications"`

	// Runtime stats
	Runtime struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"`
		NumGC      uint32 `json:"num_gc"`
		GoVersion  string `json:"go_version"`
		NumCPU     int    `json:"num_cpu"`
	} `json:"runtime"`
}

func NewRunner(clients *clts.Clients, cfg *config.Config) *Runner {
	return newRunner(clients, cfg, clients.LogSource)
}

func newRunner(clients *clts.Clients, cfg *config.Config, fetcher LogFetcher) *Runner {
	mode, err := tradelog.ParsePnlFilter(cfg.View.DefaultPnlFilter)
	if err != nil {
		clients.Logger.Warn("invalid default pnl filter, using ALL", zap.Error(err))
		mode = tradelog.PnlAll
	}

	r := &Runner{
		clients:    clients,
		cfg:        cfg,
		fetcher:    fetcher,
		session:    NewSession(clients.Logger, mode),
		reconciler: NewReconciler(),
		now:        time.Now,
		notifyCh:   make(chan notifier.TradeNotification, notifyQueueSize),
	}
	r.hub = NewWSHub(clients.Logger, r.session.View)
	r.notifier = notifier.NewMultiNotifier(clients.Notifier, r.hub)
	r.poller = NewPoller(
		clients.Logger,
		fetcher,
		PollerConfig{
			Interval:     cfg.Poller.Interval,
			FetchTimeout: cfg.LogSource.Timeout,
		},
		r.handleSnapshot,
		r.handleFailure,
	)
	return r
}

// Session exposes the monitoring state.
func (r *Runner) Session() *Session {
	return r.session
}

func (r *Runner) Run(ctx context.Context) error {
	r.startTime = r.now()
	logger := r.clients.Logger

	logger.Info("starting trade log monitor",
		zap.String("endpoint", r.cfg.LogSource.URL),
		zap.Duration("pollInterval", r.cfg.Poller.Interval),
		zap.Int("notifiers", r.clients.Notifier.Count()),
	)

	if err := r.poller.Start(ctx); err != nil {
		return err
	}

	r.notifyWG.Add(1)
	go r.dispatchNotifications()

	if r.cfg.Dashboard.Enabled {
		r.dashboard = NewDashboardServer(logger, r.cfg, r.session, r.hub, r.GetStats)
		r.dashboard.Start(r.cfg.Dashboard.Port)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	r.poller.Stop()
	r.poller.Wait()

	close(r.notifyCh)
	r.notifyWG.Wait()

	if r.dashboard != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.dashboard.Shutdown(shutdownCtx); err != nil {
			logger.Warn("dashboard shutdown failed", zap.Error(err))
		}
	}

	if err := r.notifier.Close(); err != nil {
		logger.Warn("failed to close notifiers", zap.Error(err))
	}
	return nil
}

// handleSnapshot runs serially on the poller's apply path.
func (r *Runner) handleSnapshot(s tradelog.Snapshot) {
	logger := r.clients.Logger
	now := r.now()

	res := r.reconciler.Reconcile(s)

	r.statsMu.Lock()
	r.stats.succeeded++
	r.stats.lastSuccessAt = now
	if res.Truncated {
		r.stats.truncations++
	}
	r.statsMu.Unlock()

	if res.Truncated {
		logger.Warn("trade log shrank, replacing held log",
			zap.Int("previous", res.PrevLen),
			zap.Int("current", len(res.Snapshot)),
		)
	}

	if res.Replayed {
		logger.Debug("log regrew to an already reported trade, skipping notification",
			zap.Int("entries", len(res.Snapshot)),
		)
	}

	for i, e := range res.Added() {
		if bad := e.Malformed(); len(bad) > 0 {
			logger.Debug("malformed numeric fields in log entry",
				zap.Int("index", res.PrevLen+i),
				zap.String("time", e.Time),
				zap.Strings("fields", bad),
			)
		}
	}

	r.session.Apply(res, now)

	if res.Changed() {
		logger.Info("trade log updated",
			zap.Int("entries", len(res.Snapshot)),
			zap.Int("previous", res.PrevLen),
		)
	}

	if res.NewTrade != nil {
		n := notifier.TradeNotification{Entry: *res.NewTrade, DetectedAt: now}
		select {
		case r.notifyCh <- n:
		default:
			logger.Warn("notification queue full, dropping trade notification",
				zap.String("time", n.Entry.Time),
			)
		}
	}

	r.hub.BroadcastView()
}

func (r *Runner) handleFailure(err error) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats.failed++
	r.stats.lastError = err.Error()
	r.stats.lastErrorAt = r.now()
}

// dispatchNotifications delivers notifications in detection order, off the poll path.
func (r *Runner) dispatchNotifications() {
	defer r.notifyWG.Done()
	for n := range r.notifyCh {
		r.clients.Logger.Info("new trade detected",
			zap.String("action", n.Side()),
			zap.String("time", n.Entry.Time),
			zap.String("pnl", n.Entry.PnL.Display()),
		)
		r.notifier.SendTradeNotification(n)

		r.statsMu.Lock()
		r.stats.notifications++
		r.statsMu.Unlock()
	}
}

// GetStats returns service statistics.
func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats

	// Build info
	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime
	stats.Build.GoVersion = runtime.Version()

	// Service info
	stats.StartTime = r.startTime.UTC().Format(time.RFC3339)
	uptime := r.now().Sub(r.startTime)
	stats.Uptime = uptime.Round(time.Second).String()
	stats.UptimeSec = int64(uptime.Seconds())

	r.statsMu.Lock()
	ps := r.stats
	r.statsMu.Unlock()

	stats.Polls.Endpoint = r.cfg.LogSource.URL
	stats.Polls.Interval = r.cfg.Poller.Interval.String()
	stats.Polls.Succeeded = ps.succeeded
	stats.Polls.Failed = ps.failed
	stats.Polls.Truncations = ps.truncations
	stats.Polls.LastError = ps.lastError
	stats.Polls.LastErrorAt = formatTime(ps.lastErrorAt)
	stats.Polls.LastSuccessAt = formatTime(ps.lastSuccessAt)

	view := r.session.View()
	stats.Log.State = view.State
	stats.Log.Entries = view.LogLength
	stats.Log.Dates = len(view.DistinctDates)
	if view.LastUpdated != nil {
		stats.Log.LastUpdated = formatTime(*view.LastUpdated)
	}

	stats.Notifications.Sent = ps.notifications
	stats.Notifications.Channels = r.clients.Notifier.Count()
	stats.Notifications.ConsoleEnabled = r.clients.Console != nil
	stats.Notifications.DiscordEnabled = r.clients.Discord != nil && r.clients.Discord.Enabled()
	if stats.Notifications.DiscordEnabled {
		if r.cfg.IsProd {
			stats.Notifications.DiscordChannelID = r.cfg.Discord.ProdChannelID
		} else {
			stats.Notifications.DiscordChannelID = r.cfg.Discord.BetaChannelID
		}
	}
	stats.Notifications.TelegramEnabled = r.clients.Telegram != nil && r.clients.Telegram.Enabled()
	if stats.Notifications.TelegramEnabled {
		if r.cfg.IsProd {
			stats.Notifications.TelegramChatID = r.cfg.Telegram.ProdChatID
		} else {
			stats.Notifications.TelegramChatID = r.cfg.Telegram.BetaChatID
		}
	}
	stats.Notifications.WSClients = r.hub.ClientCount()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = memStats.HeapAlloc
	stats.Runtime.NumGC = memStats.NumGC
	stats.Runtime.GoVersion = runtime.Version()
	stats.Runtime.NumCPU = runtime.NumCPU()

	return stats
}
