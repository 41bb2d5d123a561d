package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/prover"
)

// Caller is the subset of a JSON-RPC client the package needs.
// *ethclient.Client satisfies it.
type Caller interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Client issues verifier calls.
type Client struct {
	rpc     Caller
	timeout time.Duration
	close   func()
}

// Dial connects to a JSON-RPC endpoint.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	rpc, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	c := NewClient(rpc, timeout)
	c.close = rpc.Close
	return c, nil
}

// NewClient wraps an existing caller. A non-positive timeout disables the
// per-call deadline.
func NewClient(rpc Caller, timeout time.Duration) *Client {
	return &Client{rpc: rpc, timeout: timeout}
}

// Close releases the connection if the client owns it.
func (c *Client) Close() {
	if c.close != nil {
		c.close()
	}
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Ping checks that the endpoint answers and returns its chain id.
func (c *Client) Ping(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	id, err := c.rpc.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain unreachable: %w", err)
	}
	return id, nil
}

// EncodeVerifyProof ABI-encodes a verifyProof call, selector included.
func (c *Client) EncodeVerifyProof(cd *prover.CallData) ([]byte, error) {
	return EncodeVerifyProof(cd)
}

// EncodeVerifyProof ABI-encodes a verifyProof call, selector included.
func EncodeVerifyProof(cd *prover.CallData) ([]byte, error) {
	if cd == nil {
		return nil, errors.New("no calldata")
	}
	parsed, err := verifierABI(len(cd.Input))
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack(methodVerifyProof, cd.A, cd.B, cd.C, cd.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode verifyProof: %w", err)
	}
	return data, nil
}

// VerifyProof calls verifyProof on the verifier at address.
func (c *Client) VerifyProof(ctx context.Context, address string, cd *prover.CallData) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, fmt.Errorf("invalid verifier address '%s'", address)
	}
	data, err := EncodeVerifyProof(cd)
	if err != nil {
		return false, err
	}
	to := common.HexToAddress(address)

	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	ctxlog.FromContext(ctx).Debug("Calling verifier.", "address", to.Hex(), "inputs", len(cd.Input))

	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("verifyProof call failed: %w", err)
	}
	parsed, _ := verifierABI(len(cd.Input))
	values, err := parsed.Unpack(methodVerifyProof, out)
	if err != nil {
		return false, fmt.Errorf("failed to decode verifyProof result: %w", err)
	}
	ok, isBool := values[0].(bool)
	if !isBool {
		return false, fmt.Errorf("verifyProof returned %T, expected bool", values[0])
	}
	return ok, nil
}

// BatchVerify submits verifiers and calldatas to the aggregator at batch in
// one call. The i-th boolean answers the i-th pair.
func (c *Client) BatchVerify(ctx context.Context, batch string, verifiers []string, calldatas [][]byte) ([]bool, error) {
	if len(verifiers) != len(calldatas) {
		return nil, fmt.Errorf("batch has %d verifiers but %d calldatas", len(verifiers), len(calldatas))
	}
	if !common.IsHexAddress(batch) {
		return nil, fmt.Errorf("invalid batch verifier address '%s'", batch)
	}
	addrs := make([]common.Address, len(verifiers))
	for i, v := range verifiers {
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("invalid verifier address '%s'", v)
		}
		addrs[i] = common.HexToAddress(v)
	}
	data, err := batchABI.Pack(methodBatchVerify, addrs, calldatas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batchVerifyCalldata: %w", err)
	}
	to := common.HexToAddress(batch)

	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	ctxlog.FromContext(ctx).Debug("Calling batch verifier.", "address", to.Hex(), "entries", len(addrs))

	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("batchVerifyCalldata call failed: %w", err)
	}
	values, err := batchABI.Unpack(methodBatchVerify, out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode batchVerifyCalldata result: %w", err)
	}
	oks, isBools := values[0].([]bool)
	if !isBools {
		return nil, fmt.Errorf("batchVerifyCalldata returned %T, expected []bool", values[0])
	}
	if len(oks) != len(addrs) {
		return nil, fmt.Errorf("batchVerifyCalldata returned %d results for %d entries", len(oks), len(addrs))
	}
	return oks, nil
}
