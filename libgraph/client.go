// Package libgraph is a Microsoft Graph API client for calendar events
// and online-meeting attendance, authorized by a single bearer token
// acquired elsewhere.
package libgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// GraphAPIBaseURL is the base URL for Microsoft Graph API
const GraphAPIBaseURL = "https://graph.microsoft.com/v1.0"

// Client is a Microsoft Graph API client
type Client struct {
	httpClient *http.Client
	baseURL    string
	timezone   string
	log        *logrus.Entry
}

// NewClient creates a new Microsoft Graph client. The timezone is sent
// as a Prefer header hint so the API returns event times in that zone.
func NewClient(ctx context.Context, accessToken, timezone string) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
	return &Client{
		httpClient: oauth2.NewClient(ctx, source),
		baseURL:    GraphAPIBaseURL,
		timezone:   timezone,
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
}

// get performs a GET request against an absolute URL and returns the
// status code and body. Non-2xx statuses are not errors here; callers
// decide whether a bad page is fatal or recovered.
func (c *Client) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.timezone != "" {
		req.Header.Set("Prefer", fmt.Sprintf("outlook.timezone=%q", c.timezone))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// GetMe retrieves the current user's profile. Used by the status command
// to confirm a token is usable.
func (c *Client) GetMe(ctx context.Context) (map[string]interface{}, error) {
	status, body, err := c.get(ctx, c.baseURL+"/me")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", status, string(body))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return result, nil
}
