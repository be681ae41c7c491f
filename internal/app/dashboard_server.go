package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"tradewatch/config"
	"tradewatch/internal/tradelog"

	"go.uber.org/zap"
)

// DashboardServer serves the live view over HTTP and WebSocket.
type DashboardServer struct {
	logger  *zap.Logger
	session *Session
	hub     *WSHub
	cfg     *config.Config
	statsFn func() ServiceStats

	server *http.Server
}

// SelectionRequest changes the dashboard selection. Omitted fields are left as they are.
type SelectionRequest struct {
	Date      *string `json:"date,omitempty"`
	PnlFilter *string `json:"pnl_filter,omitempty"`
}

func NewDashboardServer(logger *zap.Logger, cfg *config.Config, session *Session, hub *WSHub, statsFn func() ServiceStats) *DashboardServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardServer{
		logger:  logger,
		session: session,
		hub:     hub,
		cfg:     cfg,
		statsFn: statsFn,
	}
}

// Handler builds the route table.
func (d *DashboardServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/view", d.handleView)
	mux.HandleFunc("/api/logs", d.handleLogs)
	mux.HandleFunc("/api/selection", d.handleSelection)
	mux.HandleFunc("/api/config", d.handleConfig)

	// JSON stats endpoint
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		if d.statsFn == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, d.statsFn())
	})

	if d.hub != nil {
		mux.HandleFunc("/ws", d.hub.ServeWS)
	}

	// HTML dashboard
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(dashboardHTML))
	})

	return mux
}

// Start listens on port in the background.
func (d *DashboardServer) Start(port int) {
	d.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	d.logger.Info("dashboard server listening", zap.Int("port", port))

	go func() {
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("dashboard server error", zap.Error(err))
		}
	}()
}

// Shutdown stops the server if it was started.
func (d *DashboardServer) Shutdown(ctx context.Context) error {
	if d.server == nil {
		return nil
	}
	return d.server.Shutdown(ctx)
}

func (d *DashboardServer) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, d.session.View())
}

// handleLogs returns the held log exactly in the bot's wire format.
func (d *DashboardServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, d.session.Entries())
}

func (d *DashboardServer) handleSelection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		v := d.session.View()
		writeJSON(w, http.StatusOK, map[string]any{
			"date":       v.SelectedDate,
			"pnl_filter": v.PnlFilter,
		})
	case http.MethodPost:
		d.updateSelection(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (d *DashboardServer) updateSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	// Validate both before applying either
	var mode tradelog.PnlFilter
	if req.PnlFilter != nil {
		m, err := tradelog.ParsePnlFilter(*req.PnlFilter)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_pnl_filter", err.Error())
			return
		}
		mode = m
	}

	if req.Date != nil {
		if err := d.session.SelectDate(*req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
	}
	if req.PnlFilter != nil {
		d.session.SelectPnlFilter(mode)
	}

	v := d.session.View()
	d.logger.Info("selection updated",
		zap.String("date", v.SelectedDate),
		zap.String("pnlFilter", string(v.PnlFilter)),
	)
	if d.hub != nil {
		d.hub.BroadcastView()
	}
	writeJSON(w, http.StatusOK, v)
}

// handleConfig returns the effective config. Secrets are excluded by their JSON tags.
func (d *DashboardServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if d.cfg == nil {
		http.NotFound(w, r)
		return
	}
	data, err := d.cfg.ToJSON()
	if err != nil {
		d.logger.Error("failed to encode config", zap.Error(err))
		http.Error(w, "Failed to encode config", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error":   code,
		"message": message,
	})
}
