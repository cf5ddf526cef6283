package serviceadapter

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/types"
)

const maxResponseBytes = 1 << 20

// httpFactory constructs Client values sharing one *http.Client and
// timeout/TLS policy.
type httpFactory struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewFactory builds a Factory whose Clients share a single underlying
// *http.Client. skipTLSVerify exists only because worker VMs are commonly
// provisioned with a self-signed certificate before a real one is issued.
func NewFactory(timeout time.Duration, skipTLSVerify bool) Factory {
	transport := &http.Transport{}
	if skipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- worker-local self-signed certs, opt-in
	}
	return &httpFactory{
		httpClient: &http.Client{Transport: transport},
		timeout:    timeout,
	}
}

func (f *httpFactory) For(baseURL, username, password string) Service {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: f.httpClient,
		timeout:    f.timeout,
	}
}

// Client is the net/http-based Service implementation for one worker.
type Client struct {
	baseURL  string
	username string
	password string

	httpClient *http.Client
	timeout    time.Duration

	mu    sync.Mutex
	token string
}

func (c *Client) Authenticate(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{"username": c.username, "password": c.password})
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/auth/login", body, false)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, "authenticate")
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte, authed bool) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, ctlerrors.Wrap(ctlerrors.CodeIntegrationOther, "build service request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx := req.Context(); ctx.Err() != nil {
			return nil, ctlerrors.Wrap(ctlerrors.CodeIntegrationTimeout, "service request timed out", err)
		}
		return nil, ctlerrors.Wrap(ctlerrors.CodeIntegrationConnect, "service request failed", err)
	}
	return resp, nil
}

// get issues an authenticated GET, retrying exactly once after a fresh
// Authenticate call if the first attempt returns 401 (spec §4.3: "one
// automatic re-auth on token expiry").
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
		req, err = c.newRequest(ctx, http.MethodGet, path, nil, true)
		if err != nil {
			return nil, err
		}
		return c.do(req)
	}
	return resp, nil
}

func (c *Client) GetSystemInformation(ctx context.Context) (types.ServiceSystemInformation, error) {
	resp, err := c.get(ctx, "/api/v1/system_information")
	if err != nil {
		return types.ServiceSystemInformation{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.ServiceSystemInformation{}, statusError(resp, "get_system_information")
	}

	var raw map[string]any
	if err := decodeJSON(resp, &raw); err != nil {
		return types.ServiceSystemInformation{}, err
	}
	info := types.ServiceSystemInformation{Raw: raw}
	if v, ok := raw["version"].(string); ok {
		info.Version = v
	}
	if v, ok := raw["ready"].(bool); ok {
		info.Ready = v
	}
	return info, nil
}

func (c *Client) GetSystemHealth(ctx context.Context) (types.ServiceSystemHealth, error) {
	resp, err := c.get(ctx, "/api/v1/system_health")
	if err != nil {
		return types.ServiceSystemHealth{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.ServiceSystemHealth{}, statusError(resp, "get_system_health")
	}

	var raw map[string]any
	if err := decodeJSON(resp, &raw); err != nil {
		return types.ServiceSystemHealth{}, err
	}
	health := types.ServiceSystemHealth{Raw: raw}
	if v, ok := raw["valid"].(bool); ok {
		health.Valid = v
	}
	return health, nil
}

func (c *Client) GetSystemStats(ctx context.Context) (types.ServiceSystemStats, error) {
	resp, err := c.get(ctx, "/api/v1/system_stats")
	if err != nil {
		return types.ServiceSystemStats{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.ServiceSystemStats{}, statusError(resp, "get_system_stats")
	}

	var raw map[string]any
	if err := decodeJSON(resp, &raw); err != nil {
		return types.ServiceSystemStats{}, err
	}
	stats := types.ServiceSystemStats{Raw: raw}
	if v, ok := raw["running_node_count"].(float64); ok {
		stats.RunningNodes = int(v)
	}
	return stats, nil
}

// GetLicensing treats a 404 as "this Service build has no licensing
// endpoint" rather than an error (spec §4.3's decision table).
func (c *Client) GetLicensing(ctx context.Context) (*types.ServiceLicensing, error) {
	resp, err := c.get(ctx, "/api/v1/licensing")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "get_licensing")
	}

	var raw map[string]any
	if err := decodeJSON(resp, &raw); err != nil {
		return nil, err
	}
	return &types.ServiceLicensing{Raw: raw}, nil
}

func (c *Client) ListLabs(ctx context.Context) ([]types.ServiceLab, error) {
	resp, err := c.get(ctx, "/api/v1/labs")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "list_labs")
	}

	var labs []types.ServiceLab
	if err := decodeJSON(resp, &labs); err != nil {
		return nil, err
	}
	return labs, nil
}

func (c *Client) DeleteLab(ctx context.Context, labID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/v1/labs/"+labID, nil, true)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
		req, err = c.newRequest(ctx, http.MethodDelete, "/api/v1/labs/"+labID, nil, true)
		if err != nil {
			return err
		}
		if resp, err = c.do(req); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Already gone on the Service side; treated as a successful delete.
		return nil
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp, "delete_lab")
	}
	return nil
}

func decodeJSON(resp *http.Response, v any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ctlerrors.Wrap(ctlerrors.CodeIntegrationProtocol, "read service response", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return ctlerrors.Wrap(ctlerrors.CodeIntegrationProtocol, "decode service response", err)
	}
	return nil
}

func statusError(resp *http.Response, op string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	msg := fmt.Sprintf("%s: unexpected status %s", op, resp.Status)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ctlerrors.New(ctlerrors.CodeIntegrationAuth, msg).WithDetail("body", string(body))
	case http.StatusForbidden:
		return ctlerrors.New(ctlerrors.CodeIntegrationPermissionDenied, msg).WithDetail("body", string(body))
	case http.StatusNotFound:
		return ctlerrors.New(ctlerrors.CodeIntegrationNotFound, msg).WithDetail("body", string(body))
	case http.StatusTooManyRequests:
		return ctlerrors.New(ctlerrors.CodeIntegrationThrottled, msg).WithDetail("body", string(body))
	default:
		return ctlerrors.New(ctlerrors.CodeIntegrationOther, msg).WithDetail("body", string(body))
	}
}
