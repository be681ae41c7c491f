package app

import "tradewatch/internal/tradelog"

// ReconcileResult describes what changed between the held log and a new fetch.
type ReconcileResult struct {
	Snapshot  tradelog.Snapshot
	PrevLen   int
	NewTrade  *tradelog.Entry // set when the log grew and its last entry is a BUY or SELL
	Grew      bool
	Truncated bool // the log got shorter, which an append-only source should never do
	Replayed  bool // growth restored the trade already reported, so NewTrade is nil
}

// Changed reports whether the log length moved.
func (r ReconcileResult) Changed() bool {
	return r.Grew || r.Truncated
}

// Added returns the entries appended since the previous snapshot.
func (r ReconcileResult) Added() tradelog.Snapshot {
	if !r.Grew {
		return nil
	}
	return r.Snapshot[r.PrevLen:]
}

// entryIdentity pins a reported trade to its position in the log.
type entryIdentity struct {
	index  int
	time   string
	action string
}

func identityAt(s tradelog.Snapshot, i int) entryIdentity {
	return entryIdentity{index: i, time: s[i].Time, action: s[i].ActionClass()}
}

// Reconciler holds the last fetched log and detects appended trades by length.
// Equal-length snapshots are treated as unchanged even if their content differs.
// Not safe for concurrent use; the poller serializes calls.
type Reconciler struct {
	held         tradelog.Snapshot
	lastNotified *entryIdentity
}

func NewReconciler() *Reconciler {
	return &Reconciler{held: tradelog.Snapshot{}}
}

// Reconcile replaces the held log with next and reports at most one new trade.
func (r *Reconciler) Reconcile(next tradelog.Snapshot) ReconcileResult {
	if next == nil {
		next = tradelog.Snapshot{}
	}

	res := ReconcileResult{
		Snapshot: next,
		PrevLen:  len(r.held),
	}

	switch {
	case len(next) > len(r.held):
		res.Grew = true
		latest := next[len(next)-1]
		if !latest.IsTrade() {
			break
		}
		// A late, older response shrinks the log and the next fetch grows it
		// back to the same last entry.
		id := identityAt(next, len(next)-1)
		if r.lastNotified != nil && *r.lastNotified == id {
			res.Replayed = true
			break
		}
		r.lastNotified = &id
		res.NewTrade = &latest
	case len(next) < len(r.held):
		res.Truncated = true
	}

	r.held = next
	return res
}

// Held returns the current log.
func (r *Reconciler) Held() tradelog.Snapshot {
	return r.held
}
