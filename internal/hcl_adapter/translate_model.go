// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/specialistvlad/zkparallel/internal/config"
	"github.com/specialistvlad/zkparallel/internal/ctxlog"
)

// translateSettings converts the HCL settings block into the agnostic model.
func (l *Loader) translateSettings(s *SettingsBlock) config.Settings {
	return config.Settings{
		ArtifactRoot: s.ArtifactRoot,
		ArtifactURL:  s.ArtifactURL,
		Concurrency:  s.Concurrency,
		Offload:      s.Offload,
		Mode:         s.Mode,
		CacheSizeMB:  s.CacheSizeMB,
	}
}

// translateChain converts the HCL chain block into the agnostic model.
func (l *Loader) translateChain(c *ChainBlock) (*config.Chain, error) {
	timeout, err := parseTimeout(c.Timeout, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}
	if c.BatchVerifier != "" && !common.IsHexAddress(c.BatchVerifier) {
		return nil, fmt.Errorf("chain: batch_verifier '%s' is not a hex address", c.BatchVerifier)
	}
	return &config.Chain{
		RPCURL:        c.RPCURL,
		Deployments:   c.Deployments,
		BatchVerifier: c.BatchVerifier,
		Timeout:       timeout,
	}, nil
}

// translateCircuit converts a circuit block into a descriptor, filling
// artifact locations that were not set from the path convention.
func (l *Loader) translateCircuit(ctx context.Context, c *CircuitBlock) (circuit.Descriptor, error) {
	logger := ctxlog.FromContext(ctx).With("circuit", c.ID)
	logger.Debug("Translating HCL circuit to internal config model.")

	locs := circuit.PathsFor(c.ID)
	if c.Program != "" {
		locs.Program = c.Program
	}
	if c.ProvingKey != "" {
		locs.ProvingKey = c.ProvingKey
	}
	if c.VerificationKey != "" {
		locs.VerificationKey = c.VerificationKey
	}
	if c.Input != "" {
		locs.Input = c.Input
	}

	if c.Verifier != "" && !common.IsHexAddress(c.Verifier) {
		return circuit.Descriptor{}, fmt.Errorf("circuit '%s': verifier '%s' is not a hex address", c.ID, c.Verifier)
	}

	desc := circuit.Descriptor{
		ID:              c.ID,
		Artifacts:       locs,
		Deps:            c.DependsOn,
		Next:            c.Next,
		Verifier:        c.Verifier,
		DefaultSelected: c.Selected,
	}

	if isExprDefined(ctx, c.Transform, "transform") {
		fn, err := compileTransform(c.ID, c.Transform)
		if err != nil {
			return circuit.Descriptor{}, err
		}
		desc.Transform = fn
		logger.Debug("Circuit transform compiled.")
	}
	return desc, nil
}

// translateRelay converts a relay block into the agnostic model and checks
// that the attributes its kind needs are present.
func (l *Loader) translateRelay(r *RelayBlock) (*config.Relay, error) {
	timeout, err := parseTimeout(r.Timeout, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("relay '%s': %w", r.Name, err)
	}

	switch r.Kind {
	case "socketio":
		if r.URL == "" || r.Event == "" {
			return nil, fmt.Errorf("relay '%s': socketio relays require url and event", r.Name)
		}
	case "http":
		if r.URL == "" {
			return nil, fmt.Errorf("relay '%s': http relays require url", r.Name)
		}
	case "redis":
		if r.Addr == "" || r.Channel == "" {
			return nil, fmt.Errorf("relay '%s': redis relays require addr and channel", r.Name)
		}
	default:
		return nil, fmt.Errorf("relay '%s': unknown kind '%s'", r.Name, r.Kind)
	}

	return &config.Relay{
		Kind:     r.Kind,
		Name:     r.Name,
		URL:      r.URL,
		Event:    r.Event,
		AckEvent: r.AckEvent,
		Addr:     r.Addr,
		Channel:  r.Channel,
		Timeout:  timeout,
		Insecure: r.Insecure,
	}, nil
}

func parseTimeout(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout '%s': %w", raw, err)
	}
	return d, nil
}
