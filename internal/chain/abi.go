package chain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	methodVerifyProof = "verifyProof"
	methodBatchVerify = "batchVerifyCalldata"
)

// verifierABIJSON is the interface of a generated Groth16 verifier with n
// public inputs.
const verifierABIJSON = `[{
	"type": "function",
	"name": "verifyProof",
	"stateMutability": "view",
	"inputs": [
		{"name": "a", "type": "uint256[2]"},
		{"name": "b", "type": "uint256[2][2]"},
		{"name": "c", "type": "uint256[2]"},
		{"name": "input", "type": "uint256[%d]"}
	],
	"outputs": [{"name": "", "type": "bool"}]
}]`

const batchABIJSON = `[{
	"type": "function",
	"name": "batchVerifyCalldata",
	"stateMutability": "view",
	"inputs": [
		{"name": "verifiers", "type": "address[]"},
		{"name": "calldatas", "type": "bytes[]"}
	],
	"outputs": [{"name": "", "type": "bool[]"}]
}]`

var (
	verifierABIs sync.Map // int -> abi.ABI
	batchABI     = mustParse(batchABIJSON)
)

// verifierABI returns the verifier interface for n public inputs.
func verifierABI(n int) (abi.ABI, error) {
	if cached, ok := verifierABIs.Load(n); ok {
		return cached.(abi.ABI), nil
	}
	if n < 1 {
		return abi.ABI{}, fmt.Errorf("verifier needs at least one public input, got %d", n)
	}
	parsed, err := abi.JSON(strings.NewReader(fmt.Sprintf(verifierABIJSON, n)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to build verifier ABI: %w", err)
	}
	verifierABIs.Store(n, parsed)
	return parsed, nil
}

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
