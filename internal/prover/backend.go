package prover

import (
	"context"
	"errors"
	"math/big"
)

// ErrMalformedInput is wrapped by errors caused by the input document rather
// than by the artifacts or the library.
var ErrMalformedInput = errors.New("malformed input document")

// Backend is a proving system.
type Backend interface {
	// FullProve computes a witness from input, proves it against program and
	// provingKey, and returns the proof together with its public signals as
	// decimal strings.
	FullProve(ctx context.Context, input, program, provingKey []byte) (*Proof, []string, error)
	// Verify reports whether proof is valid for publicSignals under the
	// verification key. An invalid proof is (false, nil); unreadable
	// artifacts are errors.
	Verify(verificationKey []byte, publicSignals []string, proof *Proof) (bool, error)
	// ExportCallData converts proof into the argument layout of a Solidity
	// verifyProof(a, b, c, input) function.
	ExportCallData(proof *Proof, publicSignals []string) (*CallData, error)
}

// Proof is a serialized proof. It is opaque outside the backend that made it.
type Proof struct {
	Scheme string `json:"scheme"`
	Curve  string `json:"curve"`
	Data   []byte `json:"data"`
}

// CallData holds the points of a Groth16 proof and its public inputs, in the
// order expected by generated Solidity verifiers.
type CallData struct {
	A     [2]*big.Int    `json:"a"`
	B     [2][2]*big.Int `json:"b"`
	C     [2]*big.Int    `json:"c"`
	Input []*big.Int     `json:"input"`
}
