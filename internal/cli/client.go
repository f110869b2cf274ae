package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/me/mlfq/pkg/model"
)

// Client is an HTTP client for the mlfqd process manager API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a process manager API client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
		Logger:     logger,
	}
}

// apiResponse is the parsed envelope.
type apiResponse struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

// do performs an HTTP request and returns the parsed envelope.
func (c *Client) do(method, path string, body any) (*apiResponse, error) {
	url := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		c.Logger.Debug("HTTP request body", "body", string(data))
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.Logger.Debug("HTTP request", "method", method, "url", url)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.Logger.Debug("HTTP response", "status", resp.StatusCode, "body", string(respBody))

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w\nbody: %s", resp.StatusCode, err, string(respBody))
	}

	if apiResp.Status == "error" && apiResp.Error != nil {
		return &apiResp, apiResp.Error
	}

	return &apiResp, nil
}

// Get performs a GET request.
func (c *Client) Get(path string) (*apiResponse, error) {
	return c.do("GET", path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(path string, body any) (*apiResponse, error) {
	return c.do("POST", path, body)
}

// Put performs a PUT request.
func (c *Client) Put(path string, body any) (*apiResponse, error) {
	return c.do("PUT", path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(path string) (*apiResponse, error) {
	return c.do("DELETE", path, nil)
}

// decode unmarshals the envelope's data into v.
func (r *apiResponse) decode(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Processes lists the process table.
func (c *Client) Processes() ([]model.ProcessInfo, error) {
	resp, err := c.Get("/api/v1/processes")
	if err != nil {
		return nil, err
	}
	var procs []model.ProcessInfo
	return procs, resp.decode(&procs)
}

// Kill terminates pid.
func (c *Client) Kill(pid int) error {
	_, err := c.Delete(fmt.Sprintf("/api/v1/processes/%d", pid))
	return err
}

// Execute starts the program at path with stackPages stack pages.
func (c *Client) Execute(path string, stackPages int) (*model.ProcessInfo, error) {
	resp, err := c.Post("/api/v1/processes", model.ExecRequest{Path: path, StackPages: stackPages})
	if err != nil {
		return nil, err
	}
	var info model.ProcessInfo
	return &info, resp.decode(&info)
}

// SetMemoryLimit caps pid at limit bytes; 0 removes the cap.
func (c *Client) SetMemoryLimit(pid int, limit int64) error {
	_, err := c.Put(fmt.Sprintf("/api/v1/processes/%d/memlimit", pid), model.MemLimitRequest{Limit: limit})
	return err
}

// SetPriority sets the tier-2 priority of pid.
func (c *Client) SetPriority(pid, priority int) error {
	_, err := c.Put(fmt.Sprintf("/api/v1/processes/%d/priority", pid), model.PriorityRequest{Priority: priority})
	return err
}
