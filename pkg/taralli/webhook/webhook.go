// Package webhook dispatches committed selections to a home-automation
// backend over HTTPS. It plugs into the engine as its OnCommit sink;
// delivery failures are logged and retried once, never surfaced back
// into navigation.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	// Add CA certificates to the default trust store; appliance images
	// ship without one.
	_ "github.com/BrandonKowalski/certifiable"

	"github.com/BrandonKowalski/taralli/pkg/taralli"
	"github.com/BrandonKowalski/taralli/pkg/taralli/internal"
)

// Commit is the JSON payload posted for each committed selection.
type Commit struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Depth int      `json:"depth"`
	Path  []string `json:"path"`
	Index int      `json:"index"`
}

// Sink posts commit events to a webhook URL.
type Sink struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client, e.g. for tests.
func WithClient(c *http.Client) Option {
	return func(s *Sink) { s.client = c }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.log = l }
}

// NewSink creates a webhook sink for the given URL.
func NewSink(url string, opts ...Option) *Sink {
	s := &Sink{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    internal.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnCommit is the engine callback. Dispatch happens on a separate
// goroutine so a slow backend never stalls the tick loop.
func (s *Sink) OnCommit(item taralli.Item, depth int, path []taralli.Item, index int) {
	ids := make([]string, len(path))
	for i, p := range path {
		ids[i] = p.ID
	}
	commit := Commit{
		ID:    item.ID,
		Name:  item.Name,
		Depth: depth,
		Path:  ids,
		Index: index,
	}
	go s.dispatch(commit)
}

func (s *Sink) dispatch(commit Commit) {
	body, err := json.Marshal(commit)
	if err != nil {
		s.log.Error("webhook marshal failed", "error", err)
		return
	}

	if err := s.post(body); err != nil {
		s.log.Warn("webhook dispatch failed, retrying", "error", err)
		time.Sleep(time.Second)
		if err := s.post(body); err != nil {
			s.log.Error("webhook dispatch failed", "item", commit.ID, "error", err)
			return
		}
	}
	s.log.Debug("webhook dispatched", "item", commit.ID)
}

func (s *Sink) post(body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}
