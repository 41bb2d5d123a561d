// Package relay forwards successful circuit results to auxiliary services.
// Every relay call is independent and best-effort: the orchestrator logs a
// failed post and carries on.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/zkparallel/internal/config"
	"github.com/specialistvlad/zkparallel/internal/prover"
	"github.com/specialistvlad/zkparallel/internal/task"
)

// Relay posts one result and returns the service's receipt.
type Relay interface {
	Name() string
	PostResult(ctx context.Context, res task.Result) (string, error)
	Close() error
}

// Payload is what every relay sends.
type Payload struct {
	CircuitID     string        `json:"circuit"`
	OK            bool          `json:"ok"`
	ElapsedMs     int64         `json:"elapsedMs"`
	PublicSignals []string      `json:"publicSignals,omitempty"`
	Proof         *prover.Proof `json:"proof,omitempty"`
	Timestamp     string        `json:"timestamp"`
}

// NewPayload builds the payload for res.
func NewPayload(res task.Result) Payload {
	return Payload{
		CircuitID:     res.CircuitID,
		OK:            res.OK,
		ElapsedMs:     res.ElapsedMs,
		PublicSignals: res.PublicSignals,
		Proof:         res.Proof,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
}

// New builds the relay a configuration block describes.
func New(cfg *config.Relay) (Relay, error) {
	switch cfg.Kind {
	case "socketio":
		return NewSocketIO(cfg.Name, cfg.URL, cfg.Event, cfg.AckEvent, cfg.Timeout, cfg.Insecure), nil
	case "http":
		return NewHTTP(cfg.Name, cfg.URL, cfg.Timeout), nil
	case "redis":
		return NewRedis(cfg.Name, cfg.Addr, cfg.Channel), nil
	default:
		return nil, fmt.Errorf("relay '%s': unknown kind '%s'", cfg.Name, cfg.Kind)
	}
}

// NewAll builds every configured relay. On error the relays built so far are
// closed.
func NewAll(cfgs []*config.Relay) ([]Relay, error) {
	out := make([]Relay, 0, len(cfgs))
	for _, cfg := range cfgs {
		r, err := New(cfg)
		if err != nil {
			for _, built := range out {
				_ = built.Close()
			}
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
