package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/config"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/pkg/logger"
)

// The grader is an opaque external service: we only consume the pass/fail
// judgment and the score. Its internals (model choice, prompt design) are
// not our concern.

var (
	ErrGraderUnavailable = errors.New("grading service unavailable")
	ErrGraderMalformed   = errors.New("grading service returned malformed output")
)

type GradeRequest struct {
	ModuleID int    `json:"moduleId"`
	Exercise string `json:"exercise"`
	Answer   string `json:"answer"`
	Context  string `json:"context,omitempty"`
}

type GradeFeedback struct {
	Text   string `json:"text"`
	Passed bool   `json:"passed"`
}

type GradeResult struct {
	Score    int             `json:"score"`
	Passed   bool            `json:"passed"`
	Feedback []GradeFeedback `json:"feedback"`
	Message  string          `json:"message"`
}

var graderClient = &http.Client{Timeout: 30 * time.Second}

// GradeAnswer submits a free-text answer to the external grading service.
// Failures are classified so callers can keep storage errors and grader
// errors apart; no local completion credit may be awarded on either.
func GradeAnswer(ctx context.Context, req GradeRequest) (*GradeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, config.AppConfig.GraderURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key := config.AppConfig.GraderAPIKey; key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := graderClient.Do(httpReq)
	if err != nil {
		logger.Error().Err(err).Int("module_id", req.ModuleID).Msg("Grader request failed")
		return nil, fmt.Errorf("%w: %v", ErrGraderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn().Int("status", resp.StatusCode).Int("module_id", req.ModuleID).Msg("Grader returned non-OK status")
		return nil, fmt.Errorf("%w: status %d", ErrGraderUnavailable, resp.StatusCode)
	}

	var result GradeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraderMalformed, err)
	}

	if result.Score < 0 || result.Score > 100 {
		return nil, fmt.Errorf("%w: score %d out of range", ErrGraderMalformed, result.Score)
	}
	if result.Feedback == nil {
		result.Feedback = []GradeFeedback{}
	}

	return &result, nil
}
