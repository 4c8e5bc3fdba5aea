// Package stats reduces realtime snapshots from the bridge backend into
// the derived view the API serves: aggregated per-platform balances, the
// open-position list, and closed positions reconstructed by pairing
// entry/exit deals that share a position identifier.
package stats

import (
	"time"

	"bridge-stats/internal/bridge"
)

// StatusClosed marks reconstructed closed positions.
const StatusClosed = "Closed"

// ClosedPosition is rebuilt from an ENTRY_IN/ENTRY_OUT deal pair. The
// open side contributes account, time, price and sizing fields; the
// close side contributes profit, close price and close time.
type ClosedPosition struct {
	AccountID    string  `json:"accountId"`
	BrokerTime   string  `json:"brokerTime"`
	OpenPrice    float64 `json:"openPrice"`
	Profit       float64 `json:"profit"`
	CurrentPrice float64 `json:"currentPrice"`
	Type         string  `json:"type"`
	Symbol       string  `json:"symbol"`
	Platform     string  `json:"platform"`
	Volume       float64 `json:"volume"`
	Magic        int64   `json:"magic"`
	PositionID   string  `json:"positionId"`
	ClosedTime   string  `json:"closedTime"`
	Status       string  `json:"status"`
}

// Balance holds balance sums per platform. Platforms other than mt4/mt5
// contribute nothing.
type Balance struct {
	MT4 float64 `json:"mt4"`
	MT5 float64 `json:"mt5"`
}

// View is the derived model for one snapshot. Open positions and
// account infos pass through unmodified.
type View struct {
	Balance            Balance              `json:"balance"`
	OpenPositions      []bridge.RawPosition `json:"openPositions"`
	ClosedPositions    []ClosedPosition     `json:"closedPositions"`
	AccountInformation []bridge.AccountInfo `json:"accountInformation"`
}

// Tracker receives reducer observations. Implemented by the metrics
// wrapper; kept as an interface so tests can feed snapshots without
// prometheus.
type Tracker interface {
	SnapshotReduced(closed, dropped int, took time.Duration)
}

// Reduce transforms one snapshot into a View. Pure: no state is kept
// between calls and the input is never mutated. Deal groups that do not
// form exactly one entry and one exit are dropped, not errors; an exit
// that has not arrived yet is a normal mid-stream state.
func Reduce(snap bridge.Snapshot) View {
	v, _ := reduce(snap)
	return v
}

// ReduceWithMetrics is Reduce plus duration and drop accounting.
func ReduceWithMetrics(snap bridge.Snapshot, t Tracker) View {
	start := time.Now()
	v, dropped := reduce(snap)
	if t != nil {
		t.SnapshotReduced(len(v.ClosedPositions), dropped, time.Since(start))
	}
	return v
}

func reduce(snap bridge.Snapshot) (View, int) {
	var bal Balance
	for _, a := range snap.AccountInfos {
		switch a.Platform {
		case bridge.PlatformMT4:
			bal.MT4 += a.Balance
		case bridge.PlatformMT5:
			bal.MT5 += a.Balance
		}
	}

	closed, dropped := pairDeals(snap.Deals)

	return View{
		Balance:            bal,
		OpenPositions:      snap.Positions,
		ClosedPositions:    closed,
		AccountInformation: snap.AccountInfos,
	}, dropped
}

// pairDeals groups the flat ledger by position identifier in one pass
// and synthesizes a ClosedPosition for every group holding exactly one
// ENTRY_IN and one ENTRY_OUT. Returns the list plus the number of
// groups that could not be paired.
func pairDeals(deals []bridge.RawDeal) ([]ClosedPosition, int) {
	groups := make(map[string][]bridge.RawDeal)
	var order []string
	for _, d := range deals {
		if d.PositionID == "" {
			continue
		}
		if _, seen := groups[d.PositionID]; !seen {
			order = append(order, d.PositionID)
		}
		groups[d.PositionID] = append(groups[d.PositionID], d)
	}

	closed := make([]ClosedPosition, 0, len(groups))
	dropped := 0
	for _, id := range order {
		g := groups[id]
		if len(g) != 2 {
			dropped++
			continue
		}
		var in, out *bridge.RawDeal
		for i := range g {
			switch g[i].EntryType {
			case bridge.EntryIn:
				in = &g[i]
			case bridge.EntryOut:
				out = &g[i]
			}
		}
		if in == nil || out == nil {
			dropped++
			continue
		}
		closed = append(closed, ClosedPosition{
			AccountID:    in.AccountID,
			BrokerTime:   in.BrokerTime,
			OpenPrice:    in.Price,
			Profit:       out.Profit,
			CurrentPrice: out.Price,
			Type:         in.Type,
			Symbol:       in.Symbol,
			Platform:     in.Platform,
			Volume:       in.Volume,
			Magic:        in.Magic,
			PositionID:   id,
			ClosedTime:   out.BrokerTime,
			Status:       StatusClosed,
		})
	}
	return closed, dropped
}
