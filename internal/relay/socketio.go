package relay

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/task"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketIO emits each result as a socket.io event. When AckEvent is set it
// waits for that event and uses its first argument as the receipt.
type SocketIO struct {
	name     string
	url      string
	event    string
	ackEvent string
	timeout  time.Duration
	insecure bool
}

// NewSocketIO creates a socket.io relay.
func NewSocketIO(name, rawURL, event, ackEvent string, timeout time.Duration, insecure bool) *SocketIO {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SocketIO{name: name, url: rawURL, event: event, ackEvent: ackEvent, timeout: timeout, insecure: insecure}
}

func (s *SocketIO) Name() string { return s.name }

func (s *SocketIO) Close() error { return nil }

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	receipt string
	err     error
}

// PostResult connects, emits the payload and, if configured, waits for the
// acknowledgement event. Each call uses its own connection.
func (s *SocketIO) PostResult(ctx context.Context, res task.Result) (string, error) {
	logger := ctxlog.FromContext(ctx).With("relay", s.name, "url", s.url, "event", s.event)
	logger.Debug("Relay started")
	defer logger.Debug("Relay finished")

	var isConnected atomic.Bool
	done := make(chan opResult, 1)
	finish := func(r opResult) {
		select {
		case done <- r:
		default:
		}
	}
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	parsedURL, err := url.Parse(s.url)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if s.insecure {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	payload := NewPayload(res)

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Debug("Successfully connected", "sid", io.Id())
		io.Emit(s.event, payload)
		if s.ackEvent == "" {
			finish(opResult{receipt: "emitted"})
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			} else {
				err = fmt.Errorf("connection failed: %v", errs[0])
			}
		}
		finish(opResult{err: err})
	})

	if s.ackEvent != "" {
		io.On(types.EventName(s.ackEvent), func(data ...any) {
			receipt := "acknowledged"
			if len(data) > 0 {
				receipt = fmt.Sprint(data[0])
			}
			finish(opResult{receipt: receipt})
		})
	}

	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return "", fmt.Errorf("timed out after connecting while waiting for event '%s'", s.ackEvent)
		}
		return "", errors.New("timed out while waiting for initial connection")
	case r := <-done:
		return r.receipt, r.err
	}
}
