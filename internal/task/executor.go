package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/zkparallel/internal/artifact"
	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/prover"
)

// ErrRejectedOnChain is returned when a verifier contract answers false.
var ErrRejectedOnChain = errors.New("on-chain verification returned false")

// OnChainVerifier submits calldata to a verifier contract.
type OnChainVerifier interface {
	VerifyProof(ctx context.Context, verifier string, cd *prover.CallData) (bool, error)
}

// CallDataEncoder ABI-encodes a verifyProof call.
type CallDataEncoder interface {
	EncodeVerifyProof(cd *prover.CallData) ([]byte, error)
}

// Executor runs a single task end to end.
type Executor struct {
	store   artifact.Store
	backend prover.Backend
	chain   OnChainVerifier
	encoder CallDataEncoder
}

// ExecutorOption configures optional stages.
type ExecutorOption func(*Executor)

// WithOnChain enables StageOnChain.
func WithOnChain(v OnChainVerifier) ExecutorOption {
	return func(e *Executor) { e.chain = v }
}

// WithCallDataEncoder enables StageCallData.
func WithCallDataEncoder(enc CallDataEncoder) ExecutorOption {
	return func(e *Executor) { e.encoder = enc }
}

// NewExecutor creates an executor reading artifacts from store and proving
// with backend.
func NewExecutor(store artifact.Store, backend prover.Backend, opts ...ExecutorOption) *Executor {
	e := &Executor{store: store, backend: backend}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ Runner = (*Executor)(nil)

// Run executes t and always returns a Result for t.CircuitID. Log lines are
// passed to emit as EventLog events; emit may be nil.
func (e *Executor) Run(ctx context.Context, t Task, emit func(Event)) (res Result) {
	start := time.Now()
	logger := ctxlog.FromContext(ctx).With("circuit", t.CircuitID)
	log := func(text string) {
		if emit != nil {
			emit(Event{Kind: EventLog, CircuitID: t.CircuitID, Text: text})
		}
	}

	res = Result{CircuitID: t.CircuitID}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Task panicked.", "panic", r)
			res = Result{CircuitID: t.CircuitID, Error: fmt.Sprintf("panic: %v", r)}
			log("Error: " + res.Error)
		}
		res.ElapsedMs = time.Since(start).Milliseconds()
	}()

	if err := e.run(ctx, t, &res, log); err != nil {
		logger.Debug("Task failed.", "error", err)
		res.OK = false
		res.Error = err.Error()
		log("Error: " + res.Error)
	}
	return res
}

func (e *Executor) run(ctx context.Context, t Task, res *Result, log func(string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := e.store.FetchInput(ctx, t.Artifacts)
	if err != nil {
		return err
	}
	input, err := MergeInput(raw, t.Input)
	if err != nil {
		return err
	}
	log("Loaded " + t.Artifacts.Input)

	program, err := e.store.FetchProgram(ctx, t.Artifacts)
	if err != nil {
		return err
	}
	pk, err := e.store.FetchProvingKey(ctx, t.Artifacts)
	if err != nil {
		return err
	}

	log(fmt.Sprintf("Proving %s...", t.CircuitID))
	proof, signals, err := e.backend.FullProve(ctx, input, program, pk)
	if err != nil {
		return err
	}
	res.Proof = proof
	res.PublicSignals = signals

	vk, err := e.store.FetchVerificationKey(ctx, t.Artifacts)
	if err != nil {
		return err
	}
	ok, err := e.backend.Verify(vk, signals, proof)
	if err != nil {
		return err
	}
	log(fmt.Sprintf("Verification result: %t", ok))
	if !ok {
		// A proof that does not verify is a result, not an error.
		return nil
	}

	switch t.Stage {
	case StageVerify:
	case StageOnChain:
		if err := e.submit(ctx, t, proof, signals, log); err != nil {
			return err
		}
	case StageCallData:
		if e.encoder == nil {
			return fmt.Errorf("calldata stage requested but no encoder is configured")
		}
		cd, err := e.backend.ExportCallData(proof, signals)
		if err != nil {
			return err
		}
		if res.CallData, err = e.encoder.EncodeVerifyProof(cd); err != nil {
			return err
		}
		log(fmt.Sprintf("Prepared calldata for %s (%d bytes)", t.CircuitID, len(res.CallData)))
	default:
		return fmt.Errorf("unknown stage '%s'", t.Stage)
	}

	res.OK = true
	log(fmt.Sprintf("%s verified successfully!", t.CircuitID))
	return nil
}

func (e *Executor) submit(ctx context.Context, t Task, proof *prover.Proof, signals []string, log func(string)) error {
	if e.chain == nil {
		return fmt.Errorf("on-chain stage requested but no chain client is configured")
	}
	if t.Verifier == "" {
		return fmt.Errorf("no verifier address for circuit '%s'", t.CircuitID)
	}
	cd, err := e.backend.ExportCallData(proof, signals)
	if err != nil {
		return err
	}
	log(fmt.Sprintf("Submitting %s to verifier %s", t.CircuitID, t.Verifier))
	ok, err := e.chain.VerifyProof(ctx, t.Verifier, cd)
	if err != nil {
		return fmt.Errorf("on-chain verification: %w", err)
	}
	log(fmt.Sprintf("On-chain result: %t", ok))
	if !ok {
		return ErrRejectedOnChain
	}
	return nil
}
