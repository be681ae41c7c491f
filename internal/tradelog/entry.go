// Package tradelog models the trading bot's append-only event log and derives
// the aggregates the dashboard renders from it.
package tradelog

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Known actions. The bot may emit other labels; they are counted but never notified.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Value is a numeric log field kept as its raw JSON token so an entry
// re-encodes exactly as the bot sent it.
type Value struct {
	raw json.RawMessage
}

// Num builds a Value from a float.
func Num(f float64) Value {
	return Value{raw: json.RawMessage(strconv.FormatFloat(f, 'f', -1, 64))}
}

// RawValue builds a Value from a raw JSON token, e.g. `"12.5"` or `null`.
func RawValue(raw string) Value {
	return Value{raw: json.RawMessage(raw)}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if len(v.raw) == 0 {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	v.raw = append(v.raw[:0], b...)
	return nil
}

// Float parses the value. Numbers and numeric strings parse; null, missing,
// non-numeric and non-finite values report ok=false and return 0.
func (v Value) Float() (float64, bool) {
	raw := bytes.TrimSpace(v.raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	s := string(raw)
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(str)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// OrZero returns the parsed value, or 0 when it does not parse.
func (v Value) OrZero() float64 {
	f, _ := v.Float()
	return f
}

// Display renders the value with two decimals, or "n/a" when it does not parse.
func (v Value) Display() string {
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return FormatAmount(f)
}

// IsSet reports whether the field was present in the source JSON.
func (v Value) IsSet() bool {
	return len(v.raw) > 0
}

// String returns the raw token, or "" when the field was absent.
func (v Value) String() string {
	return string(v.raw)
}

// Entry is one trading event. Field names are the bot's wire format.
type Entry struct {
	Time       string `json:"Time"`
	Action     string `json:"Action"`
	Price      Value  `json:"Price"`
	Qty        Value  `json:"Qty"`
	PnL        Value  `json:"P/L"`
	Unrealized Value  `json:"Unrealized"`
	NetWorth   Value  `json:"Net Worth"`
}

// Date returns the date portion of Time ("2024-01-01" from "2024-01-01 10:00:00").
func (e Entry) Date() string {
	date, _, _ := strings.Cut(strings.TrimSpace(e.Time), " ")
	return date
}

// IsTrade reports whether the entry is a BUY or SELL.
func (e Entry) IsTrade() bool {
	a := normalizeAction(e.Action)
	return a == ActionBuy || a == ActionSell
}

// ActionClass is the lower-cased action used as a dashboard style key.
func (e Entry) ActionClass() string {
	return strings.ToLower(strings.TrimSpace(e.Action))
}

// Malformed lists the numeric fields that do not parse.
func (e Entry) Malformed() []string {
	var bad []string
	for _, f := range []struct {
		name string
		v    Value
	}{
		{"Price", e.Price},
		{"Qty", e.Qty},
		{"P/L", e.PnL},
		{"Unrealized", e.Unrealized},
		{"Net Worth", e.NetWorth},
	} {
		if _, ok := f.v.Float(); !ok {
			bad = append(bad, f.name)
		}
	}
	return bad
}

func normalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}

// Snapshot is the full log as of one fetch, in chronological order.
type Snapshot []Entry

// Last returns the newest entry.
func (s Snapshot) Last() (Entry, bool) {
	if len(s) == 0 {
		return Entry{}, false
	}
	return s[len(s)-1], true
}

// Decode parses a JSON array of entries.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s == nil {
		s = Snapshot{}
	}
	return s, nil
}
