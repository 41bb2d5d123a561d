package task

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"

	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/specialistvlad/zkparallel/internal/prover"
)

type fakeStore struct {
	inputs  map[string]string
	missing map[string]bool
}

func (s *fakeStore) lookup(loc string) ([]byte, error) {
	if s.missing[loc] {
		return nil, errors.New("failed to fetch " + loc)
	}
	if v, ok := s.inputs[loc]; ok {
		return []byte(v), nil
	}
	return []byte(loc), nil
}

func (s *fakeStore) FetchInput(_ context.Context, l circuit.Locations) ([]byte, error) {
	return s.lookup(l.Input)
}
func (s *fakeStore) FetchProgram(_ context.Context, l circuit.Locations) ([]byte, error) {
	return s.lookup(l.Program)
}
func (s *fakeStore) FetchProvingKey(_ context.Context, l circuit.Locations) ([]byte, error) {
	return s.lookup(l.ProvingKey)
}
func (s *fakeStore) FetchVerificationKey(_ context.Context, l circuit.Locations) ([]byte, error) {
	return s.lookup(l.VerificationKey)
}

// fakeBackend echoes the input's "out" field as the single public signal and
// verifies unless the signal is "bad".
type fakeBackend struct {
	mu     sync.Mutex
	inputs []string
	panics bool
}

func (b *fakeBackend) FullProve(_ context.Context, input, _, _ []byte) (*prover.Proof, []string, error) {
	if b.panics {
		panic("boom")
	}
	b.mu.Lock()
	b.inputs = append(b.inputs, string(input))
	b.mu.Unlock()

	var doc map[string]any
	if err := json.Unmarshal(input, &doc); err != nil {
		return nil, nil, err
	}
	out, _ := doc["out"].(string)
	return &prover.Proof{Scheme: "fake", Data: []byte(out)}, []string{out}, nil
}

func (b *fakeBackend) Verify(_ []byte, signals []string, _ *prover.Proof) (bool, error) {
	return signals[0] != "bad", nil
}

func (b *fakeBackend) ExportCallData(_ *prover.Proof, signals []string) (*prover.CallData, error) {
	n, _ := new(big.Int).SetString(signals[0], 10)
	return &prover.CallData{Input: []*big.Int{n}}, nil
}

type fakeChain struct {
	answer bool
	err    error
	got    string
}

func (c *fakeChain) VerifyProof(_ context.Context, verifier string, _ *prover.CallData) (bool, error) {
	c.got = verifier
	return c.answer, c.err
}

type fakeEncoder struct{}

func (fakeEncoder) EncodeVerifyProof(cd *prover.CallData) ([]byte, error) {
	return cd.Input[0].Bytes(), nil
}
