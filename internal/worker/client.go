package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/zkparallel/internal/task"
)

// Client is the caller's end of one worker. Runs on a client are serialized.
type Client struct {
	name string

	mu     sync.Mutex
	enc    *json.Encoder
	w      io.Closer
	stale  []string
	broken error

	responses chan Response
	readErr   error
	quit      chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	shutdown  func() error
}

// newClient starts reading responses from r. shutdown is called once after
// w has been closed.
func newClient(name string, w io.WriteCloser, r io.Reader, shutdown func() error) *Client {
	c := &Client{
		name:      name,
		enc:       json.NewEncoder(w),
		w:         w,
		responses: make(chan Response, 64),
		quit:      make(chan struct{}),
		shutdown:  shutdown,
	}
	go c.readLoop(r)
	return c
}

// Name identifies the worker in logs.
func (c *Client) Name() string { return c.name }

func (c *Client) readLoop(r io.Reader) {
	defer close(c.responses)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			c.readErr = fmt.Errorf("malformed response: %w", err)
			return
		}
		select {
		case c.responses <- resp:
		case <-c.quit:
			// Keep draining so the worker is never blocked on a write.
		}
	}
	c.readErr = scanner.Err()
	if c.readErr == nil {
		c.readErr = io.EOF
	}
}

var _ task.Runner = (*Client)(nil)

// Run sends t to the worker and relays its log lines to emit until the
// result for t arrives. A canceled context abandons the wait; the late
// result is discarded by the next Run.
func (c *Client) Run(ctx context.Context, t task.Task, emit func(task.Event)) task.Result {
	start := time.Now()
	fail := func(err error) task.Result {
		res := task.Failed(t.CircuitID, err.Error())
		res.ElapsedMs = time.Since(start).Milliseconds()
		if emit != nil {
			emit(task.Event{Kind: task.EventLog, CircuitID: t.CircuitID, Text: "Error: " + res.Error})
		}
		return res
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fail(fmt.Errorf("worker %s unavailable: closed", c.name))
	}
	if c.broken != nil {
		return fail(fmt.Errorf("worker %s unavailable: %w", c.name, c.broken))
	}
	if err := c.enc.Encode(Request{Kind: KindRun, Task: t}); err != nil {
		c.broken = err
		return fail(fmt.Errorf("worker %s unavailable: %w", c.name, err))
	}

	for {
		select {
		case <-ctx.Done():
			c.stale = append(c.stale, t.CircuitID)
			return fail(ctx.Err())
		case resp, ok := <-c.responses:
			if !ok {
				c.broken = fmt.Errorf("worker exited: %w", c.readErr)
				return fail(c.broken)
			}
			if len(c.stale) > 0 && resp.CircuitID == c.stale[0] {
				if resp.Kind == KindResult {
					c.stale = c.stale[1:]
				}
				continue
			}
			if resp.CircuitID != t.CircuitID {
				perr := &ProtocolError{Want: t.CircuitID, Got: resp}
				c.broken = perr
				return fail(perr)
			}
			switch resp.Kind {
			case KindLog:
				if emit != nil {
					emit(task.Event{Kind: task.EventLog, CircuitID: t.CircuitID, Text: resp.Text})
				}
			case KindResult:
				if resp.Result == nil {
					perr := &ProtocolError{Want: t.CircuitID, Got: resp}
					c.broken = perr
					return fail(perr)
				}
				res := *resp.Result
				res.CircuitID = t.CircuitID
				return res
			default:
				perr := &ProtocolError{Want: t.CircuitID, Got: resp}
				c.broken = perr
				return fail(perr)
			}
		}
	}
}

// Healthy reports whether the worker can take more tasks.
func (c *Client) Healthy() bool {
	if c.closed.Load() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broken == nil
}

// Close stops the worker and waits for it to exit.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.quit)
		err := c.w.Close()
		if c.shutdown != nil {
			err = errors.Join(err, c.shutdown())
		}
		c.closeErr = err
	})
	return c.closeErr
}
