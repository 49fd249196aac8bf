// ABOUTME: HTTP client for the remote data API
// ABOUTME: JSON over HTTPS with bearer-token auth from an oauth2 static token source
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/harperreed/hailtrack/models"
	"golang.org/x/oauth2"
)

const (
	leadsPath     = "/api/leads"
	followUpsPath = "/api/followups"
	zonesPath     = "/api/hail-zones"
	healthPath    = "/api/health"

	// DefaultTimeout bounds a single remote call.
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 4096
)

// Client implements API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for baseURL. An empty token sends unauthenticated requests.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// HealthURL is the endpoint the connectivity probe polls.
func (c *Client) HealthURL() string {
	return c.baseURL + healthPath
}

// HTTPClient exposes the authenticated client for the connectivity probe.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

type createResponse struct {
	ID string `json:"id"`
}

func (c *Client) CreateLead(ctx context.Context, lead *models.LeadPayload) (string, error) {
	var resp createResponse
	if err := c.do(ctx, http.MethodPost, leadsPath, lead, &resp); err != nil {
		return "", fmt.Errorf("failed to create lead: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("failed to create lead: response had no id")
	}
	return resp.ID, nil
}

func (c *Client) CreateFollowUp(ctx context.Context, followUp *models.FollowUpPayload) (string, error) {
	var resp createResponse
	if err := c.do(ctx, http.MethodPost, followUpsPath, followUp, &resp); err != nil {
		return "", fmt.Errorf("failed to create follow-up: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("failed to create follow-up: response had no id")
	}
	return resp.ID, nil
}

func (c *Client) ListLeads(ctx context.Context) ([]models.Lead, error) {
	var leads []models.Lead
	if err := c.do(ctx, http.MethodGet, leadsPath, nil, &leads); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

func (c *Client) HailZones(ctx context.Context) ([]models.HailDamageZone, error) {
	var zones []models.HailDamageZone
	if err := c.do(ctx, http.MethodGet, zonesPath, nil, &zones); err != nil {
		return nil, fmt.Errorf("failed to list hail zones: %w", err)
	}
	return zones, nil
}

// Health returns nil when the API answers its health endpoint with 2xx.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, healthPath, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(msg)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage pulls {"error": "..."} out of a response body, falling back to the raw text.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
