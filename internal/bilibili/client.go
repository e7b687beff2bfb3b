// Package bilibili is the upstream follow-list API client. The response
// envelope is decoded once at this boundary into a show list, a privacy
// error, or a typed API error; nothing downstream re-inspects upstream
// status codes.
package bilibili

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	appLog "bilical/internal/log"
)

const (
	defaultBaseURL = "https://api.bilibili.com"
	followListPath = "/x/space/bangumi/follow/list"

	// codePrivate is returned when the user hides their follow list.
	codePrivate = 53013

	pageSize = 30
	maxPages = 50
)

// ErrPrivate reports that the subscriber's follow list is not public.
var ErrPrivate = errors.New("bilibili: follow list is private")

// APIError is a non-zero upstream status code other than the privacy case.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bilibili: api error %d: %s", e.Code, e.Message)
}

// Client talks to the bilibili space API. It is instance-scoped; construct
// one and inject it where needed.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type followListResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		List  []Show `json:"list"`
		Total int    `json:"total"`
	} `json:"data"`
}

// FollowList fetches the full anime-follow list for a subscriber, paging
// until the reported total is covered.
func (c *Client) FollowList(ctx context.Context, vmid string) ([]Show, error) {
	shows := make([]Show, 0, pageSize)

	for page := 1; page <= maxPages; page++ {
		resp, err := c.fetchPage(ctx, vmid, page)
		if err != nil {
			return nil, err
		}
		shows = append(shows, resp.Data.List...)
		if len(resp.Data.List) == 0 || len(shows) >= resp.Data.Total {
			break
		}
	}

	appLog.Info("follow list fetched", "vmid", vmid, "show_count", len(shows))
	return shows, nil
}

func (c *Client) fetchPage(ctx context.Context, vmid string, page int) (*followListResponse, error) {
	q := url.Values{}
	q.Set("type", "1")
	q.Set("vmid", vmid)
	q.Set("ps", strconv.Itoa(pageSize))
	q.Set("pn", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+followListPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	// The API rejects requests without a browser-like UA.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://space.bilibili.com/"+vmid)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bilibili: follow list request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bilibili: follow list status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out followListResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("bilibili: decode follow list: %w", err)
	}

	switch {
	case out.Code == 0:
		return &out, nil
	case out.Code == codePrivate:
		return nil, ErrPrivate
	default:
		return nil, &APIError{Code: out.Code, Message: out.Message}
	}
}

// FilterAiring keeps shows that are ongoing and carry any broadcast
// information. This is the upstream "currently airing" predicate; the
// calendar builder still re-derives finished-ness per event for its
// recurrence decision.
func FilterAiring(shows []Show) []Show {
	out := make([]Show, 0, len(shows))
	for _, s := range shows {
		if s.Finished() {
			continue
		}
		if !s.HasBroadcastInfo() {
			continue
		}
		out = append(out, s)
	}
	return out
}
