package circuit

// Locations holds the addresses of the artifacts a circuit needs. Each value
// is interpreted by the artifact store (a relative path for a file store, a
// path joined to the base URL for an HTTP store).
type Locations struct {
	Program         string `json:"program"`
	ProvingKey      string `json:"provingKey"`
	VerificationKey string `json:"verificationKey"`
	Input           string `json:"input"`
}

// Transform maps the public outputs of the predecessor `from` to named input
// fields of the circuit it is attached to. It must not have side effects.
type Transform func(from string, outputs []string) (map[string]any, error)

// Descriptor is the static description of a single circuit.
type Descriptor struct {
	ID        string
	Artifacts Locations
	// Deps lists the circuits that must complete before this one, in the
	// order their transforms are applied.
	Deps []string
	// Next lists the circuits that depend on this one. When nil it is derived
	// from the Deps of the other descriptors.
	Next      []string
	Transform Transform
	// Verifier is the hex address of the deployed on-chain verifier, if any.
	Verifier        string
	DefaultSelected bool
}

// Graph is an ordered registry of circuit descriptors keyed by id.
type Graph struct {
	order []string
	nodes map[string]*Descriptor
}
