package flink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/streamhub/flink-manager/internal/platform/logger"
)

// Client is the remote engine boundary. Every call is attempt-once; retries
// and circuit breaking are the caller's problem, not this layer's.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (jobID string, err error)
	Stop(ctx context.Context, jobID string, req StopRequest) error
	JobStatus(ctx context.Context, jobID string) (string, error)
	Ping(ctx context.Context) error
}

type SubmitRequest struct {
	JarLocation   string            `json:"jarLocation"`
	EntryClass    string            `json:"entryClass"`
	Parallelism   int               `json:"parallelism"`
	ProgramArgs   []string          `json:"programArgs,omitempty"`
	SavepointPath string            `json:"savepointPath,omitempty"`
	Configuration map[string]string `json:"flinkConfiguration,omitempty"`
}

type StopRequest struct {
	Savepoint       bool   `json:"savepoint"`
	TargetDirectory string `json:"targetDirectory,omitempty"`
}

type restClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func NewRESTClient(baseURL string, log *logger.Logger) Client {
	return &restClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log.With("client", "FlinkClient"),
	}
}

func (c *restClient) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	var resp struct {
		JobID string `json:"jobid"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("flink returned empty job id")
	}
	return resp.JobID, nil
}

func (c *restClient) Stop(ctx context.Context, jobID string, req StopRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/jobs/"+jobID+"/stop", req, nil)
}

func (c *restClient) JobStatus(ctx context.Context, jobID string) (string, error) {
	var resp struct {
		State string `json:"state"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID+"/status", nil, &resp); err != nil {
		return "", err
	}
	return resp.State, nil
}

func (c *restClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/overview", nil, nil)
}

func (c *restClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request for %s: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("flink request %s %s: %w", method, path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return fmt.Errorf("flink request %s %s: status %d: %s", method, path, httpResp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response for %s: %w", path, err)
	}
	return nil
}
