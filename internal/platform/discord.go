package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultAPIBase = "https://discord.com/api/v10"

	// Discord JSON error codes we need to tell 404s apart
	codeUnknownGuild = 10004
	codeUnknownUser  = 10013
	codeUnknownBan   = 10026

	banListPageSize = 1000
)

// DiscordClient talks to the Discord REST API with a bot token
type DiscordClient struct {
	token   string
	apiBase string
	http    *http.Client
}

func NewDiscordClient(token, apiBase string) *DiscordClient {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &DiscordClient{
		token:   token,
		apiBase: apiBase,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ExecuteBan bans userID in guildID with an audit-log reason
func (c *DiscordClient) ExecuteBan(ctx context.Context, guildID, userID, reason string) error {
	endpoint := fmt.Sprintf("%s/guilds/%s/bans/%s", c.apiBase, guildID, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build ban request: %w", err)
	}
	if reason != "" {
		req.Header.Set("X-Audit-Log-Reason", url.PathEscape(reason))
	}
	return c.do(req, nil)
}

// ExecuteUnban removes the ban for userID in guildID
func (c *DiscordClient) ExecuteUnban(ctx context.Context, guildID, userID string) error {
	endpoint := fmt.Sprintf("%s/guilds/%s/bans/%s", c.apiBase, guildID, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build unban request: %w", err)
	}
	return c.do(req, nil)
}

// FetchBanList returns every banned user id in the guild, following Discord's
// keyset pagination
func (c *DiscordClient) FetchBanList(ctx context.Context, guildID string) ([]string, error) {
	userIDs := []string{}
	after := ""
	for {
		endpoint := fmt.Sprintf("%s/guilds/%s/bans?limit=%d", c.apiBase, guildID, banListPageSize)
		if after != "" {
			endpoint += "&after=" + after
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build ban list request: %w", err)
		}

		var page []struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
		}
		if err := c.do(req, &page); err != nil {
			return nil, err
		}

		for _, entry := range page {
			userIDs = append(userIDs, entry.User.ID)
		}
		if len(page) < banListPageSize {
			return userIDs, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// do executes a request and maps Discord's responses onto the engine's error
// taxonomy. out, when non-nil, receives the decoded JSON body.
func (c *DiscordClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return &TransientError{Err: fmt.Errorf("failed to decode response: %w", err)}
			}
		}
		return nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfter: retryAfter(resp)}

	case resp.StatusCode == http.StatusForbidden:
		return ErrPermissionDenied

	case resp.StatusCode == http.StatusNotFound:
		var body struct {
			Code int `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		switch body.Code {
		case codeUnknownUser, codeUnknownBan:
			return ErrUserNotFound
		case codeUnknownGuild:
			return ErrGuildNotFound
		}
		// No recognizable code. A 404 on an unban almost always means the
		// ban is already gone, not that the guild is.
		if req.Method == http.MethodDelete {
			return ErrUserNotFound
		}
		return ErrGuildNotFound

	case resp.StatusCode >= 500:
		return &TransientError{Err: fmt.Errorf("discord returned %d", resp.StatusCode)}

	default:
		return &TransientError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

func retryAfter(resp *http.Response) time.Duration {
	var body struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.RetryAfter > 0 {
		return time.Duration(body.RetryAfter * float64(time.Second))
	}
	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.ParseFloat(header, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return time.Second
}
