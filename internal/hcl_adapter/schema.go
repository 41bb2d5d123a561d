package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Settings []*SettingsBlock `hcl:"settings,block"`
	Chain    []*ChainBlock    `hcl:"chain,block"`
	Circuits []*CircuitBlock  `hcl:"circuit,block"`
	Relays   []*RelayBlock    `hcl:"relay,block"`
	Remain   hcl.Body         `hcl:",remain"`
}

// SettingsBlock maps the `settings` block.
type SettingsBlock struct {
	ArtifactRoot string `hcl:"artifact_root,optional"`
	ArtifactURL  string `hcl:"artifact_url,optional"`
	Concurrency  int    `hcl:"concurrency,optional"`
	Offload      string `hcl:"offload,optional"`
	Mode         string `hcl:"mode,optional"`
	CacheSizeMB  int    `hcl:"cache_size_mb,optional"`
}

// ChainBlock maps the `chain` block.
type ChainBlock struct {
	RPCURL        string `hcl:"rpc_url"`
	Deployments   string `hcl:"deployments,optional"`
	BatchVerifier string `hcl:"batch_verifier,optional"`
	Timeout       string `hcl:"timeout,optional"`
}

// CircuitBlock maps a `circuit "<id>"` block.
type CircuitBlock struct {
	ID              string         `hcl:"id,label"`
	Program         string         `hcl:"program,optional"`
	ProvingKey      string         `hcl:"proving_key,optional"`
	VerificationKey string         `hcl:"verification_key,optional"`
	Input           string         `hcl:"input,optional"`
	DependsOn       []string       `hcl:"depends_on,optional"`
	Next            []string       `hcl:"next,optional"`
	Verifier        string         `hcl:"verifier,optional"`
	Selected        bool           `hcl:"selected,optional"`
	Transform       hcl.Expression `hcl:"transform,optional"`
}

// RelayBlock maps a `relay "<kind>" "<name>"` block.
type RelayBlock struct {
	Kind     string `hcl:"kind,label"`
	Name     string `hcl:"name,label"`
	URL      string `hcl:"url,optional"`
	Event    string `hcl:"event,optional"`
	AckEvent string `hcl:"ack_event,optional"`
	Addr     string `hcl:"addr,optional"`
	Channel  string `hcl:"channel,optional"`
	Timeout  string `hcl:"timeout,optional"`
	Insecure bool   `hcl:"insecure,optional"`
}
