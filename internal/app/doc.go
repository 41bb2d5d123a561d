// Package app contains the core application logic. It wires configuration,
// artifact stores, the prover, the chain client, workers and relays into an
// orchestrator, and exposes it to the CLI and the HTTP API, decoupled from
// any specific entrypoint.
package app
