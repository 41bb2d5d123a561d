package prover

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/backend/witness"
	"github.com/specialistvlad/zkparallel/internal/ctxlog"
)

const (
	schemeGroth16 = "groth16"
	curveBN254    = "bn254"
)

// Groth16 proves over BN254 with gnark. Programs are serialized R1CS
// constraint systems; keys are gnark's binary encodings.
type Groth16 struct{}

// NewGroth16 creates the gnark backend.
func NewGroth16() *Groth16 {
	return &Groth16{}
}

var _ Backend = (*Groth16)(nil)

func (g *Groth16) FullProve(ctx context.Context, input, program, provingKey []byte) (*Proof, []string, error) {
	logger := ctxlog.FromContext(ctx)
	defer silenceGnark()()

	doc, err := parseDocument(input)
	if err != nil {
		return nil, nil, err
	}

	ccs := groth16.NewCS(ecc.BN254)
	if _, err := ccs.ReadFrom(bytes.NewReader(program)); err != nil {
		return nil, nil, fmt.Errorf("failed to read constraint system: %w", err)
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(bytes.NewReader(provingKey)); err != nil {
		return nil, nil, fmt.Errorf("failed to read proving key: %w", err)
	}

	public, err := doc.assignments(doc.Public)
	if err != nil {
		return nil, nil, err
	}
	secret, err := doc.assignments(doc.Secret)
	if err != nil {
		return nil, nil, err
	}
	// The constraint system counts the constant wire as public.
	wantPublic, wantSecret := ccs.GetNbPublicVariables()-1, ccs.GetNbSecretVariables()
	if len(public) != wantPublic || len(secret) != wantSecret {
		return nil, nil, fmt.Errorf("%w: circuit expects %d public and %d secret values, input has %d and %d",
			ErrMalformedInput, wantPublic, wantSecret, len(public), len(secret))
	}

	full, err := fillWitness(public, secret)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	logger.Debug("Proving.", "constraints", ccs.GetNbConstraints(), "public", wantPublic, "secret", wantSecret)
	proof, err := groth16.Prove(ccs, pk, full)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prove: %w", err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, nil, fmt.Errorf("failed to serialize proof: %w", err)
	}

	pubWitness, err := full.Public()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract public witness: %w", err)
	}
	signals, err := publicSignals(pubWitness)
	if err != nil {
		return nil, nil, err
	}

	return &Proof{Scheme: schemeGroth16, Curve: curveBN254, Data: buf.Bytes()}, signals, nil
}

func (g *Groth16) Verify(verificationKey []byte, signals []string, p *Proof) (bool, error) {
	defer silenceGnark()()

	proof, err := g.readProof(p)
	if err != nil {
		return false, err
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(verificationKey)); err != nil {
		return false, fmt.Errorf("failed to read verification key: %w", err)
	}
	pub, err := fillWitness(signals, nil)
	if err != nil {
		return false, err
	}
	if err := groth16.Verify(proof, vk, pub); err != nil {
		return false, nil
	}
	return true, nil
}

func (g *Groth16) ExportCallData(p *Proof, signals []string) (*CallData, error) {
	proof, err := g.readProof(p)
	if err != nil {
		return nil, err
	}
	bnProof, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type %T", proof)
	}

	cd := &CallData{
		A: [2]*big.Int{
			bnProof.Ar.X.BigInt(new(big.Int)),
			bnProof.Ar.Y.BigInt(new(big.Int)),
		},
		// Solidity verifiers take G2 coordinates with the imaginary part first.
		B: [2][2]*big.Int{
			{bnProof.Bs.X.A1.BigInt(new(big.Int)), bnProof.Bs.X.A0.BigInt(new(big.Int))},
			{bnProof.Bs.Y.A1.BigInt(new(big.Int)), bnProof.Bs.Y.A0.BigInt(new(big.Int))},
		},
		C: [2]*big.Int{
			bnProof.Krs.X.BigInt(new(big.Int)),
			bnProof.Krs.Y.BigInt(new(big.Int)),
		},
		Input: make([]*big.Int, len(signals)),
	}
	for i, s := range signals {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("public signal %d ('%s') is not a decimal integer", i, s)
		}
		cd.Input[i] = n
	}
	return cd, nil
}

func (g *Groth16) readProof(p *Proof) (groth16.Proof, error) {
	if p == nil {
		return nil, fmt.Errorf("no proof")
	}
	if p.Scheme != schemeGroth16 || p.Curve != curveBN254 {
		return nil, fmt.Errorf("unsupported proof %s/%s", p.Scheme, p.Curve)
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(p.Data)); err != nil {
		return nil, fmt.Errorf("failed to read proof: %w", err)
	}
	return proof, nil
}

func fillWitness(public, secret []string) (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("failed to create witness: %w", err)
	}
	values := make(chan any, len(public)+len(secret))
	for _, v := range public {
		values <- v
	}
	for _, v := range secret {
		values <- v
	}
	close(values)
	if err := w.Fill(len(public), len(secret), values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return w, nil
}

func publicSignals(w witness.Witness) ([]string, error) {
	vec, ok := w.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected witness vector type %T", w.Vector())
	}
	out := make([]string, len(vec))
	for i := range vec {
		out[i] = vec[i].String()
	}
	return out, nil
}
