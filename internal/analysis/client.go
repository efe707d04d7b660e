package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the external analysis collaborator over HTTP. One POST per
// analysis, no retry.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// IsConfigured reports whether an endpoint was set.
func (c *Client) IsConfigured() bool {
	return c.endpoint != ""
}

type analyzeRequest struct {
	Records []Tuple `json:"records"`
}

// Analyze posts the reduced tuples and validates the response shape. A
// response missing any of the three fields is a hard failure even when the
// body is valid JSON.
func (c *Client) Analyze(ctx context.Context, tuples []Tuple) (Result, error) {
	if !c.IsConfigured() {
		return Result{}, fmt.Errorf("analysis endpoint not configured")
	}

	body, err := json.Marshal(analyzeRequest{Records: tuples})
	if err != nil {
		return Result{}, fmt.Errorf("encode analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call analysis collaborator: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read analysis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("analysis collaborator returned %d", resp.StatusCode)
	}

	return parseResult(payload)
}

func parseResult(payload []byte) (Result, error) {
	var raw struct {
		Summary         *string   `json:"summary"`
		CriticalDelays  *[]string `json:"criticalDelays"`
		Recommendations *[]string `json:"recommendations"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Result{}, fmt.Errorf("decode analysis response: %w", err)
	}
	if raw.Summary == nil || raw.CriticalDelays == nil || raw.Recommendations == nil {
		return Result{}, fmt.Errorf("analysis response missing required fields")
	}
	return Result{
		Summary:         *raw.Summary,
		CriticalDelays:  *raw.CriticalDelays,
		Recommendations: *raw.Recommendations,
	}, nil
}
