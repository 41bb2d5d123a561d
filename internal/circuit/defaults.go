package circuit

import (
	"fmt"
	"math/big"
	"path"
)

// Default circuit ids of the reference pipeline.
const (
	Execution       = "execution"
	TransferVerify  = "transferVerify"
	MerkleUpdate    = "merkleUpdate"
	RootVerifier    = "rootVerifier"
	TransactionHash = "transactionHash"
	SignatureCheck  = "signatureCheck"
)

// PathsFor returns the conventional artifact locations for a circuit id.
func PathsFor(id string) Locations {
	return Locations{
		Program:         path.Join("zk", id, id+".r1cs"),
		ProvingKey:      path.Join("zk", id, id+".pk"),
		VerificationKey: path.Join("zk", id, id+".vk"),
		Input:           path.Join("inputs", id+".json"),
	}
}

// DefaultGraph returns the built-in six-circuit pipeline used when no
// circuit blocks are configured.
func DefaultGraph() *Graph {
	g, err := NewGraph(
		Descriptor{
			ID:              Execution,
			Artifacts:       PathsFor(Execution),
			DefaultSelected: true,
		},
		Descriptor{
			ID:              TransferVerify,
			Artifacts:       PathsFor(TransferVerify),
			Deps:            []string{Execution},
			Transform:       fromExecution,
			DefaultSelected: true,
		},
		Descriptor{
			ID:              MerkleUpdate,
			Artifacts:       PathsFor(MerkleUpdate),
			Deps:            []string{TransferVerify},
			Transform:       fromTransferVerify,
			DefaultSelected: true,
		},
		Descriptor{
			ID:        RootVerifier,
			Artifacts: PathsFor(RootVerifier),
			Deps:      []string{MerkleUpdate},
			Transform: fromMerkleUpdate,
		},
		Descriptor{
			ID:        TransactionHash,
			Artifacts: PathsFor(TransactionHash),
			Deps:      []string{TransferVerify},
			Transform: fromTransferVerify,
		},
		Descriptor{
			ID:        SignatureCheck,
			Artifacts: PathsFor(SignatureCheck),
			Deps:      []string{TransactionHash, RootVerifier},
			Transform: signedMessage,
		},
	)
	if err != nil {
		panic(fmt.Errorf("built-in circuit graph is invalid: %w", err))
	}
	return g
}

// output parses the i-th public signal as a decimal integer.
func output(outputs []string, i int) (*big.Int, error) {
	if i >= len(outputs) {
		return nil, fmt.Errorf("public output %d requested, predecessor produced %d", i, len(outputs))
	}
	v, ok := new(big.Int).SetString(outputs[i], 10)
	if !ok {
		return nil, fmt.Errorf("public output %d is not a decimal integer: %q", i, outputs[i])
	}
	return v, nil
}

func fromExecution(_ string, out []string) (map[string]any, error) {
	sender, err := output(out, 0)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"in_senderBefore":   sender.String(),
		"in_receiverBefore": "50",
		"in_amount":         "5",
	}, nil
}

func fromTransferVerify(_ string, out []string) (map[string]any, error) {
	leaf, err := output(out, 0)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"in_oldLeaf":      leaf.String(),
		"in_newLeaf":      new(big.Int).Add(leaf, big.NewInt(5)).String(),
		"in_pathElements": []any{"5", "32"},
		"in_pathIndices":  []any{"1", "0"},
		"in_sender":       "101",
		"in_receiver":     "202",
		"in_amount":       "5",
		"in_nonce":        "1",
	}, nil
}

func fromMerkleUpdate(_ string, out []string) (map[string]any, error) {
	oldRoot, err := output(out, 0)
	if err != nil {
		return nil, err
	}
	newRoot, err := output(out, 1)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"in_oldRoot": oldRoot.String(),
		"in_newRoot": newRoot.String(),
		"in_proof":   "5",
	}, nil
}

// signedMessage derives a signature over the predecessor's first output with
// the fixed test key 3.
func signedMessage(_ string, out []string) (map[string]any, error) {
	hash, err := output(out, 0)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"in_msgHash": hash.String(),
		"in_pubKey":  "3",
		"in_sig":     new(big.Int).Add(hash, big.NewInt(3)).String(),
	}, nil
}
