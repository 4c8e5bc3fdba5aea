// Package series converts sparse, irregularly sampled per-account
// history points into dense gap-filled daily series for charting. Days
// without a sample reuse the most recent earlier value; days before an
// account's first sample read zero.
package series

import (
	"encoding/json"
	"sort"
	"time"

	"bridge-stats/internal/bridge"
)

const dayFormat = "2006-01-02"

// Range is the requested trailing chart window.
type Range string

const (
	RangeMonth   Range = "1m"
	RangeQuarter Range = "3m"
	RangeYear    Range = "1y"
)

// ParseRange validates a range parameter at the call boundary; unknown
// values fall back to one month.
func ParseRange(s string) Range {
	switch Range(s) {
	case RangeMonth, RangeQuarter, RangeYear:
		return Range(s)
	}
	return RangeMonth
}

// Bounds resolves the window to UTC day boundaries: 1m starts 30 days
// back at midnight, 3m and 1y start on the first of the month. The end
// is the last instant of today. Everything is pinned to UTC so
// accounts in different timezones land on the same calendar days.
func (r Range) Bounds(now time.Time) (start, end time.Time) {
	now = now.UTC()
	end = time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	switch r {
	case RangeQuarter:
		start = time.Date(now.Year(), now.Month()-3, 1, 0, 0, 0, 0, time.UTC)
	case RangeYear:
		start = time.Date(now.Year()-1, now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		d := now.AddDate(0, 0, -30)
		start = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	return start, end
}

// Days reports how many calendar days the resolved window spans,
// inclusive on both ends. This is the row count every normalized
// series is padded to.
func (r Range) Days(now time.Time) int {
	start, end := r.Bounds(now)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(endDay.Sub(start).Hours()/24) + 1
}

// Row is one calendar day with every known account's value present.
// It marshals flat: {"date":"2024-01-02","10001":123.4,...}.
type Row struct {
	Date   string
	Values map[string]float64
}

func (r Row) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Values)+1)
	m["date"] = r.Date
	for login, q := range r.Values {
		m[login] = q
	}
	return json.Marshal(m)
}

type accountState struct {
	login string
	byDay map[string]float64
	last  float64
	seen  bool
}

// Normalize produces one row per calendar day in the window, ascending,
// no gaps. Pure: now is injected and identical inputs give identical
// output. Accounts with no in-range history render all zeros.
func Normalize(accounts []bridge.AccountHistory, rng Range, now time.Time) []Row {
	start, end := rng.Bounds(now)

	states := make([]*accountState, 0, len(accounts))
	for _, a := range accounts {
		st := &accountState{login: a.Login, byDay: make(map[string]float64)}

		pts := make([]bridge.HistoryPoint, 0, len(a.History))
		for _, p := range a.History {
			d := p.Date.UTC()
			if d.Before(start) || d.After(end) {
				continue
			}
			pts = append(pts, p)
		}
		sort.Slice(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })

		// Last sample of a day wins when a day has several.
		for _, p := range pts {
			st.byDay[p.Date.UTC().Format(dayFormat)] = p.Quantity
		}
		states = append(states, st)
	}

	rows := make([]Row, 0, rng.Days(now))
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayFormat)
		row := Row{Date: key, Values: make(map[string]float64, len(states))}
		for _, st := range states {
			switch q, ok := st.byDay[key]; {
			case ok:
				st.last = q
				st.seen = true
				row.Values[st.login] = q
			case !st.seen:
				row.Values[st.login] = 0
			default:
				row.Values[st.login] = st.last
			}
		}
		rows = append(rows, row)
	}

	return padFront(rows, states, start, rng.Days(now))
}

// padFront prepends zero rows until the series reaches the expected day
// count, so every range renders a fixed-length series regardless of
// boundary rounding.
func padFront(rows []Row, states []*accountState, start time.Time, want int) []Row {
	deficit := want - len(rows)
	if deficit <= 0 {
		return rows
	}
	padded := make([]Row, 0, want)
	for i := deficit; i >= 1; i-- {
		day := start.AddDate(0, 0, -i)
		row := Row{Date: day.Format(dayFormat), Values: make(map[string]float64, len(states))}
		for _, st := range states {
			row.Values[st.login] = 0
		}
		padded = append(padded, row)
	}
	return append(padded, rows...)
}
