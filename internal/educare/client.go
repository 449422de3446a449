// Package educare wraps the Educare child-development API for TitiNauta.
//
// All operations are request/response JSON over HTTPS with a hard per-call
// timeout. Transport errors, non-2xx statuses and malformed payloads are
// returned as ordinary errors so the orchestrator can degrade to a safe
// fallback reply; this client never panics and performs no retries.
package educare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/educareplus/titinauta/internal/models"
)

// DefaultRequestTimeout is the hard per-call timeout for every API operation.
const DefaultRequestTimeout = 10 * time.Second

// AnswerSource tags answers submitted through this engine.
const AnswerSource = "whatsapp"

// Opts holds configuration options for the Educare API client.
type Opts struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Option defines a configuration option for the Educare API client.
type Option func(*Opts)

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithAPIKey sets the static API key attached to every outbound call.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithTimeout overrides the per-call timeout (tests use short values).
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client is the HTTP client for the Educare API.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a new Educare API client, applying any provided options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Educare NewClient options set", "baseURL_set", cfg.BaseURL != "", "apiKey_set", cfg.APIKey != "")

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("educare API base URL not set")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("educare API key not set")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
	}, nil
}

// UserLookup is the result of a phone-number user search.
// A missing user is not an error; Found is false.
type UserLookup struct {
	Found  bool   `json:"found"`
	UserID string `json:"user_id,omitempty"`
}

// AnswerMetadata is the tracing payload attached to answer submissions.
// The session ID is the phone number; duplicate submissions are allowed and
// recorded as separate answers.
type AnswerMetadata struct {
	Source    string `json:"source"`
	SessionID string `json:"session_id"`
}

// envelope is the common {success, message, data} wrapper of the Educare API.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SearchUserByPhone looks up an Educare account by phone number.
// A user that does not exist yields Found=false with a nil error.
func (c *Client) SearchUserByPhone(ctx context.Context, phone string) (UserLookup, error) {
	slog.Debug("Educare SearchUserByPhone invoked", "phone", phone)
	endpoint := fmt.Sprintf("%s/users/search?phone=%s&api_key=%s", c.baseURL, url.QueryEscape(phone), url.QueryEscape(c.apiKey))

	var payload struct {
		User *struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	found, err := c.getJSON(ctx, "search_user", phone, endpoint, false, &payload)
	if err != nil {
		return UserLookup{}, err
	}
	if !found || payload.User == nil || payload.User.ID == "" {
		slog.Debug("Educare SearchUserByPhone: no account", "phone", phone)
		return UserLookup{Found: false}, nil
	}
	slog.Debug("Educare SearchUserByPhone: account found", "phone", phone, "userID", payload.User.ID)
	return UserLookup{Found: true, UserID: payload.User.ID}, nil
}

// GetActiveChild resolves the active child for a phone number.
// Returns nil when the account has no active child.
func (c *Client) GetActiveChild(ctx context.Context, phone string) (*models.ChildContext, error) {
	slog.Debug("Educare GetActiveChild invoked", "phone", phone)
	endpoint := fmt.Sprintf("%s/users/by-phone/%s/active-child", c.baseURL, url.PathEscape(phone))

	var payload struct {
		ActiveChild *struct {
			ChildID   string `json:"child_id"`
			ChildName string `json:"child_name"`
			AgeMonths int    `json:"age_months"`
		} `json:"active_child"`
	}
	found, err := c.getJSON(ctx, "get_active_child", phone, endpoint, true, &payload)
	if err != nil {
		return nil, err
	}
	if !found || payload.ActiveChild == nil || payload.ActiveChild.ChildID == "" {
		slog.Debug("Educare GetActiveChild: no active child", "phone", phone)
		return nil, nil
	}
	return &models.ChildContext{
		ChildID:   payload.ActiveChild.ChildID,
		ChildName: payload.ActiveChild.ChildName,
		AgeMonths: payload.ActiveChild.AgeMonths,
	}, nil
}

// GetNextQuestion fetches the next unanswered assessment question for a child.
// Returns nil when every question has been answered.
func (c *Client) GetNextQuestion(ctx context.Context, childID string) (*models.Question, error) {
	slog.Debug("Educare GetNextQuestion invoked", "childID", childID)
	endpoint := fmt.Sprintf("%s/children/%s/unanswered-questions?api_key=%s&limit=1",
		c.baseURL, url.PathEscape(childID), url.QueryEscape(c.apiKey))

	var payload struct {
		Questions []struct {
			QuestionID     string            `json:"question_id"`
			QuestionSource string            `json:"question_source"`
			QuestionText   string            `json:"question_text"`
			Feedback       map[string]string `json:"feedback"`
		} `json:"questions"`
	}
	found, err := c.getJSON(ctx, "get_next_question", childID, endpoint, false, &payload)
	if err != nil {
		return nil, err
	}
	if !found || len(payload.Questions) == 0 {
		slog.Debug("Educare GetNextQuestion: no questions remain", "childID", childID)
		return nil, nil
	}

	q := payload.Questions[0]
	source := models.QuestionSource(q.QuestionSource)
	if source != models.QuestionSourceV2 {
		source = models.QuestionSourceLegacy
	}
	feedback := make(map[int]string, len(q.Feedback))
	for key, text := range q.Feedback {
		value, convErr := strconv.Atoi(key)
		if convErr != nil || value < models.AnswerNever || value > models.AnswerAlways {
			slog.Warn("Educare GetNextQuestion: ignoring feedback with bad key", "childID", childID, "key", key)
			continue
		}
		feedback[value] = text
	}
	return &models.Question{
		Ref:      models.QuestionRef{Source: source, ID: q.QuestionID},
		Text:     q.QuestionText,
		Feedback: feedback,
	}, nil
}

// SaveAnswer submits an ordinal answer for a question. Submissions carry a
// source tag and the phone number as a correlation ID; they are not idempotent.
func (c *Client) SaveAnswer(ctx context.Context, childID string, ref models.QuestionRef, answerValue int, answerText string, meta AnswerMetadata) error {
	slog.Debug("Educare SaveAnswer invoked", "childID", childID, "question", ref.String(), "answer", answerValue)
	if answerValue < models.AnswerNever || answerValue > models.AnswerAlways {
		return models.ErrInvalidAnswer
	}
	endpoint := fmt.Sprintf("%s/children/%s/save-answer", c.baseURL, url.PathEscape(childID))

	body, err := json.Marshal(map[string]interface{}{
		"question_id":     ref.ID,
		"question_source": string(ref.Source),
		"answer":          answerValue,
		"answer_text":     answerText,
		"metadata":        meta,
	})
	if err != nil {
		return fmt.Errorf("educare save_answer: failed to marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("educare save_answer: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	env, err := c.do(req, "save_answer", childID)
	if err != nil {
		return err
	}
	if !env.Success {
		slog.Error("Educare SaveAnswer rejected", "childID", childID, "question", ref.String(), "message", env.Message)
		return fmt.Errorf("educare save_answer rejected: %s", env.Message)
	}
	slog.Info("Educare SaveAnswer succeeded", "childID", childID, "question", ref.String(), "answer", answerValue)
	return nil
}

// GetProgress fetches the child's assessment progress.
func (c *Client) GetProgress(ctx context.Context, childID string) (*models.Progress, error) {
	slog.Debug("Educare GetProgress invoked", "childID", childID)
	endpoint := fmt.Sprintf("%s/children/%s/progress?api_key=%s", c.baseURL, url.PathEscape(childID), url.QueryEscape(c.apiKey))

	var payload struct {
		Progress *struct {
			ProgressPercentage float64 `json:"progress_percentage"`
			UnansweredCount    int     `json:"unanswered_count"`
		} `json:"progress"`
	}
	found, err := c.getJSON(ctx, "get_progress", childID, endpoint, false, &payload)
	if err != nil {
		return nil, err
	}
	if !found || payload.Progress == nil {
		return nil, fmt.Errorf("educare get_progress: response missing progress payload")
	}
	return &models.Progress{
		Percentage:      payload.Progress.ProgressPercentage,
		UnansweredCount: payload.Progress.UnansweredCount,
	}, nil
}

// getJSON performs a GET against the API and decodes the envelope data into out.
// The returned bool reports whether the API flagged success; a false return with
// nil error is a valid "not found" branch, not a transport failure.
func (c *Client) getJSON(ctx context.Context, operation, subject, endpoint string, headerAuth bool, out interface{}) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("educare %s: failed to create request: %w", operation, err)
	}
	if headerAuth {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	env, err := c.do(req, operation, subject)
	if err != nil {
		return false, err
	}
	if !env.Success {
		return false, nil
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			slog.Error("Educare response data malformed", "operation", operation, "subject", subject, "error", err)
			return false, fmt.Errorf("educare %s: malformed response data: %w", operation, err)
		}
	}
	return true, nil
}

// do executes the request and decodes the standard response envelope.
func (c *Client) do(req *http.Request, operation, subject string) (*envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Educare request failed", "operation", operation, "subject", subject, "error", err)
		return nil, fmt.Errorf("educare %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Educare response read failed", "operation", operation, "subject", subject, "error", err)
		return nil, fmt.Errorf("educare %s response read failed: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("Educare non-success status", "operation", operation, "subject", subject, "status", resp.StatusCode)
		return nil, fmt.Errorf("educare %s returned status %d", operation, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		slog.Error("Educare response malformed", "operation", operation, "subject", subject, "error", err)
		return nil, fmt.Errorf("educare %s returned malformed JSON: %w", operation, err)
	}
	return &env, nil
}
