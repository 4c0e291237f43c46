// Package directory is an HTTP client for the user service's public
// profile endpoint.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sociogram/chat-service/internal/apperr"
	"github.com/sociogram/chat-service/internal/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) PublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error) {
	url := fmt.Sprintf("%s/api/v1/users/%s/public", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, apperr.Unavailable(fmt.Errorf("user directory returned %d", resp.StatusCode))
	}

	var p models.PublicProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return &p, nil
}
