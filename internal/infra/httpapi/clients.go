// Package httpapi implements the JSON contracts of the experiment backends:
// task assignment, query rewrite, search, submission, and the audit log.
// Payloads are validated at this boundary; a response that does not match its
// schema surfaces as domain.ErrMalformedResponse instead of propagating
// missing fields into the core.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"archui-experiment-service/internal/domain"
)

// TaskClient posts {MtrNo} to the task-assignment endpoint.
type TaskClient struct {
	url    string
	client *http.Client
}

func NewTaskClient(url string, client *http.Client) *TaskClient {
	return &TaskClient{url: url, client: client}
}

func (c *TaskClient) FetchAssignment(ctx context.Context, mtrNo string) (domain.TaskAssignment, error) {
	var assignment domain.TaskAssignment
	if err := postJSON(ctx, c.client, c.url, map[string]string{"MtrNo": mtrNo}, &assignment); err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("fetch tasks: %w", domain.ErrMalformedResponse)
	}
	return assignment, nil
}

// RewriteClient posts {prompt} to the language-model rewrite endpoint. A
// response without an answer is an error; the pipeline must not fall back to
// the raw query silently.
type RewriteClient struct {
	url    string
	client *http.Client
}

func NewRewriteClient(url string, client *http.Client) *RewriteClient {
	return &RewriteClient{url: url, client: client}
}

func (c *RewriteClient) Rewrite(ctx context.Context, prompt string) (string, error) {
	var resp struct {
		Answer *string `json:"answer"`
	}
	if err := postJSON(ctx, c.client, c.url, map[string]string{"prompt": prompt}, &resp); err != nil {
		return "", fmt.Errorf("rewrite: %w", err)
	}
	if resp.Answer == nil || *resp.Answer == "" {
		return "", fmt.Errorf("rewrite: missing answer: %w", domain.ErrMalformedResponse)
	}
	return *resp.Answer, nil
}

// SearchClient dispatches retrieval requests to the search backend.
type SearchClient struct {
	url    string
	client *http.Client
}

func NewSearchClient(url string, client *http.Client) *SearchClient {
	return &SearchClient{url: url, client: client}
}

func (c *SearchClient) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	var resp struct {
		Result  string                `json:"result"`
		Payload []domain.SearchResult `json:"payload"`
	}
	if err := postJSON(ctx, c.client, c.url, req, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if resp.Result != "done" {
		return nil, fmt.Errorf("search backend returned %q", resp.Result)
	}
	return resp.Payload, nil
}

// SubmissionClient posts completed rating payloads to the submission endpoint.
type SubmissionClient struct {
	url    string
	client *http.Client
}

func NewSubmissionClient(url string, client *http.Client) *SubmissionClient {
	return &SubmissionClient{url: url, client: client}
}

func (c *SubmissionClient) SubmitRatings(ctx context.Context, record domain.SubmissionRecord) error {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := postJSON(ctx, c.client, c.url, record, &resp); err != nil {
		return fmt.Errorf("submit ratings: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("submit ratings: backend rejected submission")
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
