// Package kakao wraps the Kakao Local category search API behind a
// rate-limited, retrying client.
package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/imsight/visitlog/internal/resilience"
)

const (
	defaultBaseURL = "https://dapi.kakao.com"
	searchPath     = "/v2/local/search/category.json"

	// Kakao returns at most 15 documents per page; one distance-sorted page
	// is enough to derive the nearest match and a bounded count.
	pageSize = 15
)

// Client performs Kakao Local API operations.
type Client interface {
	// SearchCategory searches places of one category around a coordinate,
	// sorted by distance ascending.
	SearchCategory(ctx context.Context, code CategoryCode, lng, lat float64, radiusMeters int) (*CategorySearchResponse, error)
}

// CategorySearchResponse is the response from the category search endpoint.
type CategorySearchResponse struct {
	Meta      Meta       `json:"meta"`
	Documents []Document `json:"documents"`
}

// Meta holds paging information for a search response.
type Meta struct {
	TotalCount    int  `json:"total_count"`
	PageableCount int  `json:"pageable_count"`
	IsEnd         bool `json:"is_end"`
}

// Document is a single place in a search response. Kakao returns coordinates
// and distance as strings.
type Document struct {
	ID                string `json:"id"`
	PlaceName         string `json:"place_name"`
	CategoryName      string `json:"category_name"`
	CategoryGroupCode string `json:"category_group_code"`
	Phone             string `json:"phone"`
	AddressName       string `json:"address_name"`
	RoadAddressName   string `json:"road_address_name"`
	X                 string `json:"x"`
	Y                 string `json:"y"`
	PlaceURL          string `json:"place_url"`
	Distance          string `json:"distance"`
}

// DistanceMeters parses the document's distance from the search center.
func (d Document) DistanceMeters() (int, error) {
	m, err := strconv.Atoi(d.Distance)
	if err != nil {
		return 0, eris.Wrapf(err, "kakao: parse distance %q", d.Distance)
	}
	return m, nil
}

// Nearest returns the closest document, relying on distance-sorted responses.
func (r *CategorySearchResponse) Nearest() (Document, bool) {
	if len(r.Documents) == 0 {
		return Document{}, false
	}
	return r.Documents[0], true
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the token bucket refill rate and burst size.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithAcquireTimeout bounds how long a caller waits for a rate limit permit
// before failing with ErrRateLimited.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.acquireTimeout = d
	}
}

// WithRetryConfig overrides the retry behavior for transient failures.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey         string
	baseURL        string
	http           *http.Client
	limiter        *rate.Limiter
	acquireTimeout time.Duration
	retry          resilience.RetryConfig
}

// NewClient creates a Kakao Local API client. Defaults: 10 requests per
// second with a burst of 10, 5s permit wait, 5s connect and response
// timeouts, and up to 3 retries with exponential backoff from 1s for
// transient failures.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("kakao", "search_category")

	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
		limiter:        rate.NewLimiter(10, 10),
		acquireTimeout: 5 * time.Second,
		retry:          retry,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchCategory(ctx context.Context, code CategoryCode, lng, lat float64, radiusMeters int) (*CategorySearchResponse, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*CategorySearchResponse, error) {
		return c.search(ctx, code, lng, lat, radiusMeters)
	})
	if err != nil {
		return nil, classify(err)
	}
	return resp, nil
}

// acquire blocks for a token bucket permit, up to the acquire timeout.
func (c *httpClient) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.acquireTimeout)
	defer cancel()

	if err := c.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "kakao: acquire permit")
		}
		return eris.Wrap(ErrRateLimited, "kakao: no permit within wait window")
	}
	return nil
}

func (c *httpClient) search(ctx context.Context, code CategoryCode, lng, lat float64, radiusMeters int) (*CategorySearchResponse, error) {
	q := url.Values{}
	q.Set("category_group_code", string(code))
	q.Set("x", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("y", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(radiusMeters))
	q.Set("page", "1")
	q.Set("size", strconv.Itoa(pageSize))
	q.Set("sort", "distance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "kakao: create request")
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "kakao: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "kakao: read response")
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, resilience.NewTransientError(
			fmt.Errorf("kakao: server error %d: %s", resp.StatusCode, body), resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, eris.Wrapf(ErrBadRequest, "status %d: %s", resp.StatusCode, body)
	}

	var result CategorySearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "kakao: unmarshal response")
	}
	return &result, nil
}

// classify maps a terminal transport failure onto the exported error kinds.
func classify(err error) error {
	switch {
	case eris.Is(err, ErrBadRequest) || eris.Is(err, ErrRateLimited):
		return err
	case isTimeout(err):
		return eris.Wrap(ErrTimeout, err.Error())
	case resilience.IsTransient(err):
		return eris.Wrap(ErrServerError, err.Error())
	default:
		return err
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
