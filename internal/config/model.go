package config

import (
	"fmt"
	"time"

	"github.com/specialistvlad/zkparallel/internal/circuit"
)

// Offload values select where proofs are computed.
const (
	OffloadNone      = "none"
	OffloadGoroutine = "goroutine"
	OffloadProcess   = "process"
)

// Model is the unified, format-agnostic representation of the entire
// application configuration.
type Model struct {
	Settings Settings
	Chain    *Chain
	// Circuits is empty when the configuration declares none; callers then
	// fall back to circuit.DefaultGraph.
	Circuits []circuit.Descriptor
	Relays   []*Relay
}

// Settings holds run-wide knobs. Zero values mean "use the default".
type Settings struct {
	ArtifactRoot string
	ArtifactURL  string
	Concurrency  int
	Offload      string
	Mode         string
	CacheSizeMB  int
}

// Chain configures the JSON-RPC endpoint and verifier addresses.
type Chain struct {
	RPCURL string
	// Deployments is a path to a JSON object mapping contract names to
	// addresses, as written by the deployment scripts.
	Deployments   string
	BatchVerifier string
	Timeout       time.Duration
}

// Relay is one auxiliary service that successful results are forwarded to.
type Relay struct {
	Kind string
	Name string

	URL      string
	Event    string
	AckEvent string
	Addr     string
	Channel  string
	Timeout  time.Duration
	Insecure bool
}

// Defaults fills unset settings.
func (s *Settings) Defaults() {
	if s.Concurrency <= 0 {
		s.Concurrency = 3
	}
	if s.Offload == "" {
		s.Offload = OffloadGoroutine
	}
	if s.Mode == "" {
		s.Mode = "local"
	}
	if s.ArtifactRoot == "" && s.ArtifactURL == "" {
		s.ArtifactRoot = "."
	}
}

// Validate checks settings that cannot be corrected by defaults.
func (s *Settings) Validate() error {
	switch s.Offload {
	case OffloadNone, OffloadGoroutine, OffloadProcess:
	default:
		return fmt.Errorf("invalid offload '%s': must be '%s', '%s' or '%s'", s.Offload, OffloadNone, OffloadGoroutine, OffloadProcess)
	}
	if s.ArtifactRoot != "" && s.ArtifactURL != "" {
		return fmt.Errorf("artifact_root and artifact_url are mutually exclusive")
	}
	if s.CacheSizeMB < 0 {
		return fmt.Errorf("cache_size_mb must not be negative")
	}
	return nil
}

// Graph builds the circuit graph declared by the model, or the built-in
// graph when none is declared.
func (m *Model) Graph() (*circuit.Graph, error) {
	if len(m.Circuits) == 0 {
		return circuit.DefaultGraph(), nil
	}
	return circuit.NewGraph(m.Circuits...)
}
