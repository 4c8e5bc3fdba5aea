package bridge

import (
	"encoding/json"
	"testing"
)

func TestParseSnapshotWithActualFormat(t *testing.T) {
	rawMessage := `{"ch":"stats","data":{
		"accountInfos":[{"platform":"mt5","balance":1000.5,"currency":"USD"}],
		"positions":[{"positionId":"P1","accountId":"acc-1","brokerTime":"2024-01-01T09:00:00Z","price":1.2,"type":"buy","symbol":"EURUSD","platform":"mt5","volume":0.1,"magic":7}],
		"deals":[{"positionId":"A","entryType":"ENTRY_IN","accountId":"acc-1","brokerTime":"2024-01-01T10:00:00Z","price":1.1,"type":"buy","symbol":"EURUSD","platform":"mt5","volume":0.5,"magic":100}]
	}}`

	var env envelope
	if err := json.Unmarshal([]byte(rawMessage), &env); err != nil {
		t.Fatalf("Failed to unmarshal test message: %v", err)
	}
	if env.Ch != "stats" {
		t.Fatalf("Expected channel stats, got %s", env.Ch)
	}

	snapshots := make(chan Snapshot, 1)
	if err := parseSnapshot(env.Data, snapshots); err != nil {
		t.Fatalf("parseSnapshot failed: %v", err)
	}

	select {
	case snap := <-snapshots:
		if len(snap.AccountInfos) != 1 {
			t.Fatalf("Expected 1 account info, got %d", len(snap.AccountInfos))
		}
		if snap.AccountInfos[0].Balance != 1000.5 {
			t.Errorf("Expected balance 1000.5, got %f", snap.AccountInfos[0].Balance)
		}
		if len(snap.Positions) != 1 || snap.Positions[0].PositionID != "P1" {
			t.Errorf("Expected open position P1, got %+v", snap.Positions)
		}
		if len(snap.Deals) != 1 {
			t.Fatalf("Expected 1 deal, got %d", len(snap.Deals))
		}
		if snap.Deals[0].EntryType != EntryIn {
			t.Errorf("Expected entry type %s, got %s", EntryIn, snap.Deals[0].EntryType)
		}
		if snap.Deals[0].Magic != 100 {
			t.Errorf("Expected magic 100, got %d", snap.Deals[0].Magic)
		}
	default:
		t.Fatal("No snapshot received")
	}
}

func TestParseSnapshotAbsentArraysTreatedAsEmpty(t *testing.T) {
	snapshots := make(chan Snapshot, 1)
	if err := parseSnapshot(json.RawMessage(`{}`), snapshots); err != nil {
		t.Fatalf("parseSnapshot failed: %v", err)
	}

	snap := <-snapshots
	if snap.AccountInfos == nil || snap.Positions == nil || snap.Deals == nil {
		t.Error("absent arrays must be normalized to empty slices")
	}
	if len(snap.AccountInfos) != 0 || len(snap.Positions) != 0 || len(snap.Deals) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestParseSnapshotInvalidPayload(t *testing.T) {
	snapshots := make(chan Snapshot, 1)

	if err := parseSnapshot(nil, snapshots); err == nil {
		t.Error("expected error for empty payload")
	}
	if err := parseSnapshot(json.RawMessage(`[1,2,3]`), snapshots); err == nil {
		t.Error("expected error for non-object payload")
	}
	if len(snapshots) != 0 {
		t.Error("invalid payloads must not emit snapshots")
	}
}

func TestParseSnapshotChannelFullDropsMessage(t *testing.T) {
	snapshots := make(chan Snapshot, 1)
	snapshots <- Snapshot{} // fill the channel

	if err := parseSnapshot(json.RawMessage(`{"deals":[]}`), snapshots); err != nil {
		t.Fatalf("full channel should drop, not error: %v", err)
	}
	if len(snapshots) != 1 {
		t.Errorf("expected dropped message, channel has %d", len(snapshots))
	}
}

func TestSignDeterministic(t *testing.T) {
	a := Sign("secret", "nonce", "key", "123")
	b := Sign("secret", "nonce", "key", "123")
	if a != b {
		t.Error("signature must be deterministic")
	}
	if a == Sign("other", "nonce", "key", "123") {
		t.Error("different secrets must produce different signatures")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256 length 64, got %d", len(a))
	}
}
