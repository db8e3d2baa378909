package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	rd "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	rediskey "course_commerce/pkg/redis"
)

// CourseRunDetail is the catalog's view of one course run.
type CourseRunDetail struct {
	// Course is the parent course key the run belongs to.
	Course string `json:"course"`
}

// CourseDetail is the catalog's view of a parent course.
type CourseDetail struct {
	CourseRunKeys []string `json:"course_run_keys"`
}

// Client talks to the course catalog (discovery) service. Responses
// are cached in redis because the backfill job re-reads the same
// parent courses across runs; cache failures degrade to HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	rdb        *rd.Client
	cacheTTL   time.Duration
	log        *zerolog.Logger
}

// New builds a catalog client. rdb may be nil to disable caching.
func New(baseURL string, timeout time.Duration, rdb *rd.Client, cacheTTL time.Duration, log *zerolog.Logger) *Client {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		rdb:        rdb,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

// CourseRunDetail fetches one course run, mainly for its parent key.
func (c *Client) CourseRunDetail(ctx context.Context, courseRunID string) (*CourseRunDetail, error) {
	var out CourseRunDetail
	key := rediskey.CourseRunDetailKey(courseRunID)
	path := fmt.Sprintf("%s/course_runs/%s/", c.baseURL, url.PathEscape(courseRunID))
	if err := c.getJSON(ctx, key, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CourseDetail fetches a parent course and its run keys.
func (c *Client) CourseDetail(ctx context.Context, courseKey string) (*CourseDetail, error) {
	var out CourseDetail
	key := rediskey.CourseDetailKey(courseKey)
	path := fmt.Sprintf("%s/courses/%s/", c.baseURL, url.PathEscape(courseKey))
	if err := c.getJSON(ctx, key, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON serves from the redis cache when possible, otherwise does
// the HTTP round trip and caches the raw body.
func (c *Client) getJSON(ctx context.Context, cacheKey, rawURL string, out any) error {
	if c.rdb != nil {
		cached, err := c.rdb.Get(ctx, cacheKey).Bytes()
		if err == nil {
			if jsonErr := json.Unmarshal(cached, out); jsonErr == nil {
				return nil
			}
			// Unreadable cache entry: fall through and refetch.
		} else if err != rd.Nil {
			c.log.Warn().Err(err).Str("key", cacheKey).Msg("catalog cache read failed")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog request %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read catalog response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, cacheKey, body, c.cacheTTL).Err(); err != nil {
			c.log.Warn().Err(err).Str("key", cacheKey).Msg("catalog cache write failed")
		}
	}
	return nil
}
