package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ceiba/internal/domain"
)

const viewerQuery = "query { viewer { login }}"

// Client resolves GitHub tokens to the login of their owner through the
// GraphQL API.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client for the GraphQL endpoint, usually
// https://api.github.com/graphql.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

var _ domain.IdentityProvider = (*Client)(nil)

type viewerReply struct {
	Data struct {
		Viewer struct {
			Login string `json:"login"`
		} `json:"viewer"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Username returns the login owning token. Rejected or malformed tokens yield
// domain.ErrUnauthorized.
func (c *Client) Username(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("empty token: %w", domain.ErrUnauthorized)
	}

	body, err := json.Marshal(map[string]string{"query": viewerQuery})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("github viewer query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("github replied %d: %w", resp.StatusCode, domain.ErrUnauthorized)
	}

	var reply viewerReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("decode github reply: %w", err)
	}
	if len(reply.Errors) > 0 {
		return "", fmt.Errorf("github: %s: %w", reply.Errors[0].Message, domain.ErrUnauthorized)
	}
	if reply.Data.Viewer.Login == "" {
		return "", fmt.Errorf("github reply without login: %w", domain.ErrUnauthorized)
	}
	return reply.Data.Viewer.Login, nil
}
