// Package wsfeed implements a [lyrics.Source] backed by a live lyrics feed
// reachable over WebSocket, for deployments filtering an unpredictable live
// stream where the current track (and its lyrics) changes at runtime.
package wsfeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/glyphoxa/internal/resilience"
	"github.com/MrWong99/glyphoxa/pkg/provider/lyrics"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Source queries a WebSocket lyrics feed on each Lookup, wrapped in a
// circuit breaker so a flaky feed degrades to "no lyrics" (alignment simply
// stays disabled) instead of stalling the ASR worker.
type Source struct {
	url     string
	breaker *resilience.CircuitBreaker

	mu   sync.Mutex
	conn *websocket.Conn
}

type lookupRequest struct {
	Key string `json:"key"`
}

type lookupResponse struct {
	Lines []string `json:"lines"`
}

// New returns a Source querying the feed at url. The connection is opened
// lazily on the first Lookup call.
func New(url string) *Source {
	return &Source{
		url: url,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:         "lyrics-wsfeed",
			MaxFailures:  3,
			ResetTimeout: 15 * time.Second,
		}),
	}
}

// Lookup requests lines for key over the feed connection, dialing (or
// redialing after a prior failure) as needed.
func (s *Source) Lookup(ctx context.Context, key string) ([]lyrics.Line, error) {
	var resp lookupResponse
	err := s.breaker.Execute(func() error {
		conn, err := s.connection(ctx)
		if err != nil {
			return err
		}
		if err := wsjson.Write(ctx, conn, lookupRequest{Key: key}); err != nil {
			s.reset()
			return fmt.Errorf("wsfeed: write request: %w", err)
		}
		if err := wsjson.Read(ctx, conn, &resp); err != nil {
			s.reset()
			return fmt.Errorf("wsfeed: read response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lines := make([]lyrics.Line, len(resp.Lines))
	for i, l := range resp.Lines {
		lines[i] = lyrics.Line{Text: l}
	}
	return lines, nil
}

// connection returns the current connection, dialing one if none is open.
func (s *Source) connection(ctx context.Context) (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsfeed: dial: %w", err)
	}
	s.conn = conn
	return conn, nil
}

// reset drops the current connection so the next Lookup redials.
func (s *Source) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close(websocket.StatusInternalError, "resetting after error")
		s.conn = nil
	}
}

// Close releases the underlying connection, if any.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close(websocket.StatusNormalClosure, "closing")
	s.conn = nil
	return err
}
