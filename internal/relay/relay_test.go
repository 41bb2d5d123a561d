package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/zkparallel/internal/config"
	"github.com/specialistvlad/zkparallel/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okResult() task.Result {
	return task.Result{CircuitID: "age", OK: true, ElapsedMs: 42, PublicSignals: []string{"1", "18"}}
}

func TestNew_Kinds(t *testing.T) {
	t.Parallel()

	// Arrange
	cfgs := []*config.Relay{
		{Kind: "socketio", Name: "avail", URL: "http://localhost:1", Event: "proof"},
		{Kind: "http", Name: "store", URL: "http://localhost:1/api/proofs"},
		{Kind: "redis", Name: "bus", Addr: "localhost:1", Channel: "proofs"},
	}

	// Act
	relays, err := NewAll(cfgs)

	// Assert
	require.NoError(t, err)
	require.Len(t, relays, 3)
	assert.IsType(t, &SocketIO{}, relays[0])
	assert.IsType(t, &HTTP{}, relays[1])
	assert.IsType(t, &Redis{}, relays[2])
	for _, r := range relays {
		assert.NoError(t, r.Close())
	}
}

func TestNew_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := NewAll([]*config.Relay{{Kind: "carrier-pigeon", Name: "coo"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind 'carrier-pigeon'")
}

func TestHTTP_PostResult(t *testing.T) {
	t.Parallel()

	// Arrange
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Proof stored"}`))
	}))
	defer srv.Close()
	h := NewHTTP("store", srv.URL, time.Second)
	defer h.Close()

	// Act
	receipt, err := h.PostResult(context.Background(), okResult())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Proof stored", receipt)
	assert.Equal(t, "age", got.CircuitID)
	assert.True(t, got.OK)
	assert.Equal(t, []string{"1", "18"}, got.PublicSignals)
	assert.NotEmpty(t, got.Timestamp)
}

func TestHTTP_PostResult_PlainBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("stored\n"))
	}))
	defer srv.Close()

	receipt, err := NewHTTP("store", srv.URL, time.Second).PostResult(context.Background(), okResult())

	require.NoError(t, err)
	assert.Equal(t, "stored", receipt)
}

func TestHTTP_PostResult_BadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTP("store", srv.URL, time.Second).PostResult(context.Background(), okResult())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

type fakePublisher struct {
	channel string
	message []byte
	n       int64
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(f.n)
	}
	return cmd
}

func (f *fakePublisher) Close() error { return nil }

func TestRedis_PostResult(t *testing.T) {
	t.Parallel()

	// Arrange
	pub := &fakePublisher{n: 2}
	r := &Redis{name: "bus", channel: "proofs", client: pub}

	// Act
	receipt, err := r.PostResult(context.Background(), okResult())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "published to 2 subscribers", receipt)
	assert.Equal(t, "proofs", pub.channel)
	var p Payload
	require.NoError(t, json.Unmarshal(pub.message, &p))
	assert.Equal(t, "age", p.CircuitID)
}

func TestRedis_PostResult_Error(t *testing.T) {
	t.Parallel()

	r := &Redis{name: "bus", channel: "proofs", client: &fakePublisher{err: errors.New("connection refused")}}

	_, err := r.PostResult(context.Background(), okResult())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish to 'proofs'")
}

func TestSocketIO_Unreachable(t *testing.T) {
	t.Parallel()

	// Arrange: grab a free port and close it again so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	s := NewSocketIO("avail", "http://"+addr, "proof", "proof_ack", 500*time.Millisecond, false)

	// Act
	start := time.Now()
	_, err = s.PostResult(context.Background(), okResult())

	// Assert
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
