package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cubicCircuit proves knowledge of X such that X**3 + X + 5 == Y.
type cubicCircuit struct {
	X frontend.Variable `gnark:"x"`
	Y frontend.Variable `gnark:",public"`
}

func (c *cubicCircuit) Define(api frontend.API) error {
	x3 := api.Mul(c.X, c.X, c.X)
	api.AssertIsEqual(c.Y, api.Add(x3, c.X, 5))
	return nil
}

type artifacts struct {
	program, pk, vk []byte
}

var (
	setupOnce sync.Once
	setupArts artifacts
	setupErr  error
)

// cubicArtifacts compiles and sets up the test circuit once per test binary.
func cubicArtifacts(t *testing.T) artifacts {
	t.Helper()
	setupOnce.Do(func() {
		ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &cubicCircuit{})
		if err != nil {
			setupErr = err
			return
		}
		pk, vk, err := groth16.Setup(ccs)
		if err != nil {
			setupErr = err
			return
		}
		var program, pkBuf, vkBuf bytes.Buffer
		if _, err := ccs.WriteTo(&program); err != nil {
			setupErr = err
			return
		}
		if _, err := pk.WriteTo(&pkBuf); err != nil {
			setupErr = err
			return
		}
		if _, err := vk.WriteTo(&vkBuf); err != nil {
			setupErr = err
			return
		}
		setupArts = artifacts{program: program.Bytes(), pk: pkBuf.Bytes(), vk: vkBuf.Bytes()}
	})
	require.NoError(t, setupErr)
	return setupArts
}

func cubicInput(x, y any) []byte {
	raw, _ := json.Marshal(map[string]any{
		"public": []string{"y"},
		"secret": []string{"x"},
		"x":      x,
		"y":      y,
	})
	return raw
}

func TestGroth16_ProveAndVerify(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	arts := cubicArtifacts(t)
	backend := NewGroth16()

	// --- Act ---
	proof, signals, err := backend.FullProve(context.Background(), cubicInput("3", 35), arts.program, arts.pk)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"35"}, signals)
	assert.Equal(t, "groth16", proof.Scheme)

	ok, err := backend.Verify(arts.vk, signals, proof)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = backend.Verify(arts.vk, []string{"36"}, proof)
	require.NoError(t, err)
	assert.False(t, ok, "a proof must not verify against other public signals")
}

func TestGroth16_UnsatisfiedWitnessFailsToProve(t *testing.T) {
	t.Parallel()

	arts := cubicArtifacts(t)

	_, _, err := NewGroth16().FullProve(context.Background(), cubicInput("3", "36"), arts.program, arts.pk)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to prove")
}

func TestGroth16_MalformedInputs(t *testing.T) {
	t.Parallel()

	arts := cubicArtifacts(t)
	testCases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"not json", `{`, "malformed input document"},
		{"missing value", `{"public":["y"],"secret":["x"],"y":"35"}`, "signal 'x' has no value"},
		{"wrong arity", `{"public":["y"],"secret":[],"y":"35"}`, "circuit expects 1 public and 1 secret values, input has 1 and 0"},
		{"names not strings", `{"public":[1]}`, "'public'[0] is not a string"},
		{"object value", `{"public":["y"],"secret":["x"],"x":{"a":1},"y":"35"}`, "unsupported value"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := NewGroth16().FullProve(context.Background(), []byte(tc.input), arts.program, arts.pk)

			require.ErrorIs(t, err, ErrMalformedInput)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestGroth16_CorruptArtifacts(t *testing.T) {
	t.Parallel()

	arts := cubicArtifacts(t)
	backend := NewGroth16()

	_, _, err := backend.FullProve(context.Background(), cubicInput("3", "35"), []byte("junk"), arts.pk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read constraint system")

	proof, signals, err := backend.FullProve(context.Background(), cubicInput("3", "35"), arts.program, arts.pk)
	require.NoError(t, err)

	_, err = backend.Verify([]byte("junk"), signals, proof)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read verification key")

	_, err = backend.Verify(arts.vk, signals, &Proof{Scheme: "plonk", Curve: "bn254"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported proof plonk/bn254")
}

func TestGroth16_ExportCallData(t *testing.T) {
	t.Parallel()

	arts := cubicArtifacts(t)
	backend := NewGroth16()
	proof, signals, err := backend.FullProve(context.Background(), cubicInput(3, 35), arts.program, arts.pk)
	require.NoError(t, err)

	cd, err := backend.ExportCallData(proof, signals)

	require.NoError(t, err)
	for _, v := range []any{cd.A[0], cd.A[1], cd.B[0][0], cd.B[0][1], cd.B[1][0], cd.B[1][1], cd.C[0], cd.C[1]} {
		assert.NotNil(t, v)
	}
	require.Len(t, cd.Input, 1)
	assert.Equal(t, "35", cd.Input[0].String())

	_, err = backend.ExportCallData(proof, []string{"0x23"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a decimal integer")
}

func TestSilenceGnark_Nests(t *testing.T) {
	restoreOuter := silenceGnark()
	restoreInner := silenceGnark()
	assert.Equal(t, 2, quietDepth)

	restoreInner()
	assert.Equal(t, 1, quietDepth)
	restoreOuter()
	assert.Equal(t, 0, quietDepth)
}
