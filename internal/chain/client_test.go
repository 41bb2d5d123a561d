package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/specialistvlad/zkparallel/internal/prover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRPC answers verifyProof with accept[to] and batchVerifyCalldata with
// batchAnswer.
type fakeRPC struct {
	mu          sync.Mutex
	accept      map[common.Address]bool
	batchAnswer []bool
	code        map[common.Address][]byte
	err         error
	calls       []ethereum.CallMsg
}

func (f *fakeRPC) ChainID(context.Context) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return big.NewInt(31337), nil
}

func (f *fakeRPC) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, msg)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if bytes.Equal(batchABI.Methods[methodBatchVerify].ID, msg.Data[:4]) {
		return batchABI.Methods[methodBatchVerify].Outputs.Pack(f.batchAnswer)
	}
	parsed, _ := verifierABI(1)
	return parsed.Methods[methodVerifyProof].Outputs.Pack(f.accept[*msg.To])
}

func (f *fakeRPC) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	if code, ok := f.code[account]; ok {
		return code, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func sampleCallData(inputs ...int64) *prover.CallData {
	cd := &prover.CallData{
		A: [2]*big.Int{big.NewInt(1), big.NewInt(2)},
		B: [2][2]*big.Int{{big.NewInt(3), big.NewInt(4)}, {big.NewInt(5), big.NewInt(6)}},
		C: [2]*big.Int{big.NewInt(7), big.NewInt(8)},
	}
	for _, in := range inputs {
		cd.Input = append(cd.Input, big.NewInt(in))
	}
	return cd
}

const (
	verifierA = "0x00000000000000000000000000000000000000a1"
	verifierB = "0x00000000000000000000000000000000000000b2"
	batchAddr = "0x00000000000000000000000000000000000000ff"
)

func TestEncodeVerifyProof_Layout(t *testing.T) {
	t.Parallel()

	// --- Act ---
	data, err := EncodeVerifyProof(sampleCallData(9, 10, 11))

	// --- Assert ---
	require.NoError(t, err)
	parsed, err := verifierABI(3)
	require.NoError(t, err)
	method := parsed.Methods[methodVerifyProof]
	assert.Equal(t, method.ID, data[:4])
	// a(2) + b(4) + c(2) + input(3) static words.
	assert.Len(t, data, 4+32*11)

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, [3]*big.Int{big.NewInt(9), big.NewInt(10), big.NewInt(11)}, args[3])
}

func TestEncodeVerifyProof_Errors(t *testing.T) {
	t.Parallel()

	_, err := EncodeVerifyProof(nil)
	assert.ErrorContains(t, err, "no calldata")

	_, err = EncodeVerifyProof(sampleCallData())
	assert.ErrorContains(t, err, "at least one public input")
}

func TestClient_VerifyProof(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rpc := &fakeRPC{accept: map[common.Address]bool{common.HexToAddress(verifierA): true}}
	client := NewClient(rpc, 0)
	ctx := context.Background()

	// --- Act ---
	okA, errA := client.VerifyProof(ctx, verifierA, sampleCallData(1))
	okB, errB := client.VerifyProof(ctx, verifierB, sampleCallData(1))

	// --- Assert ---
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.True(t, okA)
	assert.False(t, okB)
	require.Len(t, rpc.calls, 2)
	assert.Equal(t, common.HexToAddress(verifierA), *rpc.calls[0].To)

	_, err := client.VerifyProof(ctx, "nope", sampleCallData(1))
	assert.ErrorContains(t, err, "invalid verifier address 'nope'")
}

func TestClient_VerifyProof_RPCError(t *testing.T) {
	t.Parallel()

	client := NewClient(&fakeRPC{err: errors.New("connection refused")}, 0)

	_, err := client.VerifyProof(context.Background(), verifierA, sampleCallData(1))

	assert.ErrorContains(t, err, "verifyProof call failed: connection refused")
}

func TestClient_BatchVerify_PreservesOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rpc := &fakeRPC{batchAnswer: []bool{true, false, true}}
	client := NewClient(rpc, 0)
	calldatas := [][]byte{{0x01}, {0x02}, {0x03}}

	// --- Act ---
	oks, err := client.BatchVerify(context.Background(), batchAddr, []string{verifierA, verifierB, verifierA}, calldatas)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, oks)

	require.Len(t, rpc.calls, 1)
	args, err := batchABI.Methods[methodBatchVerify].Inputs.Unpack(rpc.calls[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, []common.Address{
		common.HexToAddress(verifierA), common.HexToAddress(verifierB), common.HexToAddress(verifierA),
	}, args[0])
	assert.Equal(t, calldatas, args[1])
}

func TestClient_BatchVerify_Validation(t *testing.T) {
	t.Parallel()

	client := NewClient(&fakeRPC{batchAnswer: []bool{true}}, 0)
	ctx := context.Background()

	_, err := client.BatchVerify(ctx, batchAddr, []string{verifierA}, nil)
	assert.ErrorContains(t, err, "batch has 1 verifiers but 0 calldatas")

	_, err = client.BatchVerify(ctx, "0x1", []string{verifierA}, [][]byte{{1}})
	assert.ErrorContains(t, err, "invalid batch verifier address")

	_, err = client.BatchVerify(ctx, batchAddr, []string{verifierA, verifierB}, [][]byte{{1}, {2}})
	assert.ErrorContains(t, err, "returned 1 results for 2 entries")
}

func TestClient_Ping(t *testing.T) {
	t.Parallel()

	id, err := NewClient(&fakeRPC{}, 0).Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(31337), id.Int64())

	_, err = NewClient(&fakeRPC{err: errors.New("dial tcp: refused")}, 0).Ping(context.Background())
	assert.ErrorContains(t, err, "chain unreachable: dial tcp: refused")
}

func TestClient_CheckDeployments(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	deployments, err := ParseDeployments([]byte(`{
		"execution": "` + verifierA + `",
		"transferVerify": "` + verifierB + `",
		"BatchVerifier": "` + batchAddr + `"
	}`))
	require.NoError(t, err)
	rpc := &fakeRPC{code: map[common.Address][]byte{
		common.HexToAddress(verifierA): make([]byte, 1200),
		common.HexToAddress(batchAddr): make([]byte, 800),
	}}

	// --- Act ---
	statuses, err := NewClient(rpc, 0).CheckDeployments(context.Background(), deployments, 2)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	assert.Equal(t, []string{"BatchVerifier", "execution", "transferVerify"},
		[]string{statuses[0].Name, statuses[1].Name, statuses[2].Name})
	assert.Equal(t, 800, statuses[0].CodeSize)
	assert.True(t, statuses[1].Deployed())
	assert.False(t, statuses[2].Deployed())
}

func TestParseDeployments_RejectsBadAddress(t *testing.T) {
	t.Parallel()

	_, err := ParseDeployments([]byte(`{"execution":"0x123"}`))
	assert.ErrorContains(t, err, "deployment 'execution' has invalid address '0x123'")

	_, err = ParseDeployments([]byte(`[]`))
	assert.ErrorContains(t, err, "failed to parse deployments")
}

func TestDeployments_VerifierFor(t *testing.T) {
	t.Parallel()

	// Arrange
	d, err := ParseDeployments([]byte(`{
		"executionVerifier": "0x00000000000000000000000000000000000000aa",
		"transferVerify": "0x00000000000000000000000000000000000000bb",
		"transferVerifyVerifier": "0x00000000000000000000000000000000000000cc",
		"BatchVerifier": "0x0000000000000000000000000000000000000bad"
	}`))
	require.NoError(t, err)

	// Act & Assert
	addr, ok := d.VerifierFor("execution")
	assert.True(t, ok)
	assert.Equal(t, common.HexToAddress("0xaa"), addr)

	addr, ok = d.VerifierFor("transferVerify")
	assert.True(t, ok)
	assert.Equal(t, common.HexToAddress("0xcc"), addr, "contract name wins over the bare id")

	_, ok = d.VerifierFor("rollup")
	assert.False(t, ok)
}
