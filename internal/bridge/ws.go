package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type WS struct {
	url   string
	token string
}

func NewWS(u, token string) WS { return WS{u, token} }

// Stream keeps a realtime channel open and feeds parsed snapshots into
// the output channel until ctx is canceled. Connection drops trigger a
// reconnect with exponential backoff.
func (w WS) Stream(ctx context.Context, snapshots chan<- Snapshot, errors chan<- error, ping time.Duration) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := w.streamOnce(ctx, snapshots, errors, ping); err != nil {
				log.Warn().Err(err).Dur("backoff", backoff).Msg("realtime channel failed, reconnecting")
				select {
				case errors <- fmt.Errorf("ws reconnect: %w", err):
				default:
				}

				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return ctx.Err()
				}

				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = time.Second
		}
	}
}

func (w WS) streamOnce(ctx context.Context, snapshots chan<- Snapshot, errors chan<- error, ping time.Duration) error {
	log.Info().Str("url", w.url).Msg("establishing realtime channel")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer func() {
		conn.Close()
		log.Debug().Msg("realtime channel closed")
	}()

	conn.SetReadLimit(1024 * 1024) // snapshots carry the full deal ledger
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

	conn.SetCloseHandler(func(code int, text string) error {
		log.Warn().Int("code", code).Str("text", text).Msg("realtime channel closed by server")
		return fmt.Errorf("connection closed: %d %s", code, text)
	})

	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	sub := map[string]any{
		"op":    "subscribe",
		"token": w.token,
		"args":  []map[string]string{{"ch": "stats"}},
	}
	if err = conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	pingTicker := time.NewTicker(ping)
	defer pingTicker.Stop()

	if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
		return fmt.Errorf("initial ping failed: %w", err)
	}

	lastDataReceived := time.Now()
	healthCheckTicker := time.NewTicker(30 * time.Second)
	defer healthCheckTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				select {
				case errors <- fmt.Errorf("ping failed: %w", err):
				default:
				}
				return err
			}
		case <-healthCheckTicker.C:
			if time.Since(lastDataReceived) > 2*time.Minute {
				log.Warn().Time("last_data", lastDataReceived).Msg("no snapshots received, connection may be stale")
				return fmt.Errorf("connection appears stale - no data for %v", time.Since(lastDataReceived))
			}
		default:
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Info().Msg("realtime channel closed normally")
					return err
				}
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Error().Err(err).Msg("realtime channel closed unexpectedly")
				}
				return fmt.Errorf("read message failed: %w", err)
			}

			lastDataReceived = time.Now()

			var env envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				log.Debug().Err(err).Str("message", string(msg)).Msg("failed to parse message")
				continue
			}

			switch env.Op {
			case "subscribe":
				if env.Success {
					log.Info().Msg("subscribed to stats channel")
				} else {
					log.Warn().Str("message", string(msg)).Msg("subscription may have failed")
				}
				continue
			case "":
			default:
				log.Debug().Str("op", env.Op).Msg("ignoring control message")
				continue
			}

			switch env.Ch {
			case "stats":
				if err := parseSnapshot(env.Data, snapshots); err != nil {
					log.Debug().Err(err).Msg("failed to parse snapshot")
					select {
					case errors <- fmt.Errorf("parse snapshot: %w", err):
					default:
					}
				}
			default:
				if env.Ch != "" {
					log.Debug().Str("channel", env.Ch).Msg("received unknown channel message")
				}
			}
		}
	}
}

type envelope struct {
	Op      string          `json:"op,omitempty"`
	Success bool            `json:"success,omitempty"`
	Ch      string          `json:"ch,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func parseSnapshot(data json.RawMessage, out chan<- Snapshot) error {
	if len(data) == 0 {
		return fmt.Errorf("empty snapshot payload")
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("invalid snapshot format: %w", err)
	}

	// Absent arrays are treated as empty so downstream never sees nil.
	if snap.AccountInfos == nil {
		snap.AccountInfos = []AccountInfo{}
	}
	if snap.Positions == nil {
		snap.Positions = []RawPosition{}
	}
	if snap.Deals == nil {
		snap.Deals = []RawDeal{}
	}

	select {
	case out <- snap:
		log.Debug().
			Int("accounts", len(snap.AccountInfos)).
			Int("positions", len(snap.Positions)).
			Int("deals", len(snap.Deals)).
			Msg("snapshot received")
	default:
		log.Warn().Msg("snapshot channel full, dropping message")
	}

	return nil
}
