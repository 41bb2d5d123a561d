// Package prover adapts a zero-knowledge proving library to the three
// operations a circuit run needs: produce a proof with its public signals,
// check a proof against a verification key, and export the proof as
// arguments for an on-chain verifier.
package prover
