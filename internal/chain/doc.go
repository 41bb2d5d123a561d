// Package chain talks to verifier contracts over JSON-RPC.
//
// Proofs are checked with read-only calls: verifyProof on a per-circuit
// Groth16 verifier, or batchVerifyCalldata on an aggregator that forwards
// pre-encoded verifyProof calldata to several verifiers and returns one
// boolean per entry.
package chain
