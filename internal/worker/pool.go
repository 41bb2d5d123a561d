package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/zkparallel/internal/ctxlog"
	"github.com/specialistvlad/zkparallel/internal/task"
)

// Factory starts one worker.
type Factory func(ctx context.Context, name string) (*Client, error)

// Pool keeps started workers across runs so each run does not pay the
// start-up cost again. Workers are handed out one per scheduler slot.
type Pool struct {
	factory Factory

	mu      sync.Mutex
	idle    []*Client
	started int
	closed  bool
}

// NewPool creates an empty pool.
func NewPool(factory Factory) *Pool {
	return &Pool{factory: factory}
}

// Acquire hands out n workers, starting new ones when too few are idle. The
// returned release function gives them back; broken workers are closed
// instead of being kept. On error no workers are held.
func (p *Pool) Acquire(ctx context.Context, n int) ([]task.Runner, func(), error) {
	logger := ctxlog.FromContext(ctx)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, nil, errors.New("worker pool is closed")
	}
	var taken []*Client
	for len(taken) < n && len(p.idle) > 0 {
		last := len(p.idle) - 1
		c := p.idle[last]
		p.idle = p.idle[:last]
		if c.Healthy() {
			taken = append(taken, c)
		} else {
			_ = c.Close()
		}
	}
	p.mu.Unlock()

	for len(taken) < n {
		p.mu.Lock()
		p.started++
		name := fmt.Sprintf("worker-%d", p.started)
		p.mu.Unlock()

		c, err := p.factory(ctx, name)
		if err != nil {
			p.put(taken)
			return nil, nil, fmt.Errorf("failed to start %s: %w", name, err)
		}
		logger.Debug("Started worker.", "worker", name)
		taken = append(taken, c)
	}

	runners := make([]task.Runner, len(taken))
	for i, c := range taken {
		runners[i] = c
	}
	var once sync.Once
	return runners, func() { once.Do(func() { p.put(taken) }) }, nil
}

func (p *Pool) put(clients []*Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range clients {
		if p.closed || !c.Healthy() {
			_ = c.Close()
			continue
		}
		p.idle = append(p.idle, c)
	}
}

// Idle reports how many workers are waiting for work.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close stops every idle worker. Workers still held are stopped when
// released.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	var errs []error
	for _, c := range p.idle {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.idle = nil
	return errors.Join(errs...)
}
