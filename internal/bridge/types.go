package bridge

import "time"

// Entry types reported on ledger deals.
const (
	EntryIn  = "ENTRY_IN"
	EntryOut = "ENTRY_OUT"
)

// Supported platforms. Anything else is ignored during aggregation.
const (
	PlatformMT4 = "mt4"
	PlatformMT5 = "mt5"
)

// RawDeal is one ledger entry pushed by the backend. PositionID may be
// empty for deals the backend never matched to a position.
type RawDeal struct {
	PositionID string  `json:"positionId,omitempty"`
	EntryType  string  `json:"entryType"`
	AccountID  string  `json:"accountId"`
	BrokerTime string  `json:"brokerTime"`
	Price      float64 `json:"price"`
	Profit     float64 `json:"profit"`
	Type       string  `json:"type"`
	Symbol     string  `json:"symbol"`
	Platform   string  `json:"platform"`
	Volume     float64 `json:"volume"`
	Magic      int64   `json:"magic"`
}

// RawPosition is one currently open position, passed through to the
// stats view verbatim.
type RawPosition struct {
	PositionID string  `json:"positionId"`
	AccountID  string  `json:"accountId"`
	BrokerTime string  `json:"brokerTime"`
	Price      float64 `json:"price"`
	Type       string  `json:"type"`
	Symbol     string  `json:"symbol"`
	Platform   string  `json:"platform"`
	Volume     float64 `json:"volume"`
	Magic      int64   `json:"magic"`
}

// AccountInfo is one connected account's balance snapshot.
type AccountInfo struct {
	Platform string  `json:"platform"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// Snapshot is one full push of account/position/deal state. The backend
// recomputes and resends the whole thing, so each snapshot fully
// replaces the previous one.
type Snapshot struct {
	AccountInfos []AccountInfo `json:"accountInfos"`
	Positions    []RawPosition `json:"positions"`
	Deals        []RawDeal     `json:"deals"`
}

// HistoryPoint is one sample of an account metric over time.
type HistoryPoint struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// AccountHistory holds the sparse history points for one account login.
type AccountHistory struct {
	Login   string         `json:"login"`
	History []HistoryPoint `json:"history"`
}
