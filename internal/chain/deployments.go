package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Deployments maps contract names to addresses, as written by the deploy
// scripts. Per-circuit verifiers are keyed by circuit id or by the contract
// name "<id>Verifier"; the aggregator is stored under BatchVerifierKey.
type Deployments map[string]common.Address

// BatchVerifierKey names the aggregator in a deployments file.
const BatchVerifierKey = "BatchVerifier"

// LoadDeployments reads a JSON object of name -> hex address.
func LoadDeployments(path string) (Deployments, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployments: %w", err)
	}
	return ParseDeployments(raw)
}

// ParseDeployments decodes a deployments document.
func ParseDeployments(raw []byte) (Deployments, error) {
	var byName map[string]string
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("failed to parse deployments: %w", err)
	}
	out := make(Deployments, len(byName))
	for name, addr := range byName {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("deployment '%s' has invalid address '%s'", name, addr)
		}
		out[name] = common.HexToAddress(addr)
	}
	return out, nil
}

// VerifierSuffix is appended to a circuit id to form its contract name.
const VerifierSuffix = "Verifier"

// VerifierFor returns the verifier address of circuit id. The contract
// name "<id>Verifier" wins over a bare id key.
func (d Deployments) VerifierFor(id string) (common.Address, bool) {
	if addr, ok := d[id+VerifierSuffix]; ok {
		return addr, true
	}
	addr, ok := d[id]
	return addr, ok
}

// Names lists the deployment names in sorted order.
func (d Deployments) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
