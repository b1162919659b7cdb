package proctor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/examportal/backend/internal/model"
)

// HTTPStore talks to the portal API over HTTP. It implements Store and
// understands the portal's response envelope, translating the completed
// and conflict error codes into ErrConflict.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore creates a store against the given portal base URL
// (e.g. "https://portal.example.com/api/v1").
func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (h *HTTPStore) ValidateAccess(ctx context.Context, req model.AccessRequest) (*model.AccessResponse, error) {
	var resp model.AccessResponse
	if err := h.post(ctx, "/exams/access", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *HTTPStore) UpsertAttempt(ctx context.Context, examID string, req model.AttemptUpsertRequest) (*model.AttemptUpsertResult, error) {
	var result model.AttemptUpsertResult
	if err := h.post(ctx, "/exams/"+examID+"/answers", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *HTTPStore) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("portal request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope (status %d): %w", httpResp.StatusCode, err)
	}

	if env.Error != nil {
		switch env.Error.Code {
		case "ATTEMPT_COMPLETED", "CONFLICT":
			return fmt.Errorf("%s: %w", env.Error.Message, ErrConflict)
		}
		return &PortalError{Code: env.Error.Code, Message: env.Error.Message}
	}
	if httpResp.StatusCode >= 400 {
		return fmt.Errorf("portal returned status %d", httpResp.StatusCode)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
