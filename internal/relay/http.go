package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/specialistvlad/zkparallel/internal/task"
)

// HTTP posts each result as JSON, for example to the proof store API.
type HTTP struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTP creates an HTTP relay.
func NewHTTP(name, url string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTP{
		name: name,
		url:  url,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (h *HTTP) Name() string { return h.name }

func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func (h *HTTP) PostResult(ctx context.Context, res task.Result) (string, error) {
	body, err := json.Marshal(NewPayload(res))
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	var ack struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(reply, &ack) == nil && ack.Message != "" {
		return ack.Message, nil
	}
	return strings.TrimSpace(string(reply)), nil
}
