package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// StatsSummary is the slice of the server stats payload the sync client
// cares about.
type StatsSummary struct {
	TotalXP          int `json:"totalXP"`
	Level            int `json:"level"`
	Streak           int `json:"streak"`
	ModulesCompleted int `json:"modulesCompleted"`
}

// CompletionResponse is the server's combined answer to a completion sync.
type CompletionResponse struct {
	Success         bool           `json:"success"`
	Progress        ProgressRecord `json:"progress"`
	Stats           StatsSummary   `json:"stats"`
	IsNewCompletion bool           `json:"isNewCompletion"`
}

// CompletionRequest is the body of POST /api/progress/:moduleId.
type CompletionRequest struct {
	Completed bool `json:"completed"`
	Score     int  `json:"score"`
	TimeSpent int  `json:"timeSpent"`
	XPEarned  int  `json:"xpEarned"`
}

// Syncer pushes optimistic completions to the server and reconciles the
// local cache with the authoritative response. At most one sync per module
// is in flight; a new submission cancels the previous one.
type Syncer struct {
	baseURL string
	token   string
	http    *http.Client
	cache   *Cache
	policy  RetryPolicy

	mu       sync.Mutex
	inflight map[int]*syncHandle
}

type syncHandle struct {
	cancel context.CancelFunc
}

func NewSyncer(baseURL, token string, cache *Cache, policy RetryPolicy) *Syncer {
	return &Syncer{
		baseURL:  baseURL,
		token:    token,
		http:     &http.Client{Timeout: 30 * time.Second},
		cache:    cache,
		policy:   policy,
		inflight: make(map[int]*syncHandle),
	}
}

// begin registers a sync for a module, canceling any prior in-flight one.
func (s *Syncer) begin(ctx context.Context, moduleID int) (context.Context, *syncHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.inflight[moduleID]; ok {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	handle := &syncHandle{cancel: cancel}
	s.inflight[moduleID] = handle
	return ctx, handle
}

// finish releases a sync's registration without touching a newer sync that
// may have superseded it.
func (s *Syncer) finish(moduleID int, handle *syncHandle) {
	s.mu.Lock()
	if s.inflight[moduleID] == handle {
		delete(s.inflight, moduleID)
	}
	s.mu.Unlock()
	handle.cancel()
}

// Cancel aborts the in-flight sync for a module, if any. The abort is a
// neutral outcome: no rollback, no retry.
func (s *Syncer) Cancel(moduleID int) {
	s.mu.Lock()
	handle, ok := s.inflight[moduleID]
	if ok {
		delete(s.inflight, moduleID)
	}
	s.mu.Unlock()
	if ok {
		handle.cancel()
	}
}

// SyncCompletion optimistically marks the module complete, then pushes the
// completion to the server. On success the server record is merged in; on
// terminal failure the optimistic mark is rolled back; on cancellation the
// cache is left untouched (the superseding call owns the state now).
func (s *Syncer) SyncCompletion(ctx context.Context, moduleID int, req CompletionRequest) (*CompletionResponse, error) {
	snap := s.cache.OptimisticComplete(moduleID, req.Score)

	ctx, handle := s.begin(ctx, moduleID)
	defer s.finish(moduleID, handle)

	var resp *CompletionResponse
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = s.postCompletion(ctx, moduleID, req)
		return err
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Neutral: drop the outcome without touching the cache
			return nil, err
		}
		s.cache.Restore(snap)
		return nil, err
	}

	s.cache.ApplyServer(resp.Progress)
	return resp, nil
}

func (s *Syncer) postCompletion(ctx context.Context, moduleID int, req CompletionRequest) (*CompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/progress/%d", s.baseURL, moduleID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	httpResp, err := s.http.Do(httpReq)
	if err != nil {
		// Unwrap url.Error so context cancellation stays recognizable
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, &HTTPError{Status: httpResp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	var resp CompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}
