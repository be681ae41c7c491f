package app

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
	"tradewatch/internal/tradelog"

	"go.uber.org/zap"
)

// State is the session's data state.
type State string

const (
	StateNoData  State = "NO_DATA"
	StateHasData State = "HAS_DATA"
)

// ErrUnknownDate is returned when selecting a date that has no entries.
var ErrUnknownDate = errors.New("no entries for date")

// View is everything the dashboard renders for the current selection.
type View struct {
	State         State              `json:"state"`
	Entries       tradelog.Snapshot  `json:"entries"`        // full held log
	ScopedEntries tradelog.Snapshot  `json:"scoped_entries"` // selected date and P/L filter applied
	SelectedDate  string             `json:"selected_date"`
	PnlFilter     tradelog.PnlFilter `json:"pnl_filter"`
	Summary       tradelog.Summary   `json:"summary"`
	DistinctDates []string           `json:"distinct_dates"`
	LogLength     int                `json:"log_length"`
	LastUpdated   *time.Time         `json:"last_updated,omitempty"`
}

// Session holds the process-wide monitoring state: the held log, the user's
// selection and when the log last changed. Safe for concurrent use.
type Session struct {
	logger *zap.Logger

	mu          sync.RWMutex
	state       State
	entries     tradelog.Snapshot
	dates       []string
	pinnedDate  string // empty follows the most recent date
	pnlFilter   tradelog.PnlFilter
	lastUpdated time.Time
}

func NewSession(logger *zap.Logger, pnlFilter tradelog.PnlFilter) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pnlFilter == "" {
		pnlFilter = tradelog.PnlAll
	}
	return &Session{
		logger:    logger,
		state:     StateNoData,
		entries:   tradelog.Snapshot{},
		dates:     []string{},
		pnlFilter: pnlFilter,
	}
}

// Apply stores a reconciled snapshot. The last-updated marker only moves when
// the log length changed.
func (s *Session) Apply(res ReconcileResult, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = res.Snapshot
	s.dates = tradelog.DistinctDates(res.Snapshot)

	if res.Changed() {
		s.lastUpdated = at
	}
	if len(res.Snapshot) > 0 && s.state == StateNoData {
		s.state = StateHasData
		s.logger.Info("trade log received", zap.Int("entries", len(res.Snapshot)))
	}

	if s.pinnedDate != "" && !slices.Contains(s.dates, s.pinnedDate) {
		s.logger.Warn("selected date no longer in log, following latest",
			zap.String("date", s.pinnedDate),
		)
		s.pinnedDate = ""
	}
}

// SelectDate pins the view to date. An empty date follows the most recent one.
func (s *Session) SelectDate(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if date != "" && !slices.Contains(s.dates, date) {
		return fmt.Errorf("%w: %s", ErrUnknownDate, date)
	}
	s.pinnedDate = date
	return nil
}

// SelectPnlFilter sets the P/L sign filter.
func (s *Session) SelectPnlFilter(mode tradelog.PnlFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pnlFilter = mode
}

// State returns NO_DATA until a non-empty log has been held.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Entries returns the full held log.
func (s *Session) Entries() tradelog.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// LastUpdated returns when the log length last changed, and false if it never has.
func (s *Session) LastUpdated() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated, !s.lastUpdated.IsZero()
}

// SelectedDate returns the pinned date, or the default date when none is pinned.
func (s *Session) SelectedDate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedDateLocked()
}

func (s *Session) selectedDateLocked() string {
	if s.pinnedDate != "" {
		return s.pinnedDate
	}
	return tradelog.DefaultDate(s.dates)
}

// View derives the dashboard view for the current selection.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	date := s.selectedDateLocked()
	v := View{
		State:         s.state,
		Entries:       slices.Clone(s.entries),
		ScopedEntries: tradelog.Scope(s.entries, date, s.pnlFilter),
		SelectedDate:  date,
		PnlFilter:     s.pnlFilter,
		Summary:       tradelog.Summarize(s.entries, date, s.pnlFilter),
		DistinctDates: slices.Clone(s.dates),
		LogLength:     len(s.entries),
	}
	if !s.lastUpdated.IsZero() {
		t := s.lastUpdated
		v.LastUpdated = &t
	}
	return v
}
