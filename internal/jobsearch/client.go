package jobsearch

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/skillsync/skillsync/internal/skills"
)

const (
	apiURL          = "https://findwork.dev"
	searchPath      = "/api/jobs/"
	userAgent       = "skillsync/jobsearch (+https://github.com/skillsync/skillsync)"
	contentType     = "application/json"
	contentEncoding = "gzip"

	defaultTimeout = 15 * time.Second
	defaultRate    = 1.0
	defaultBurst   = 5
	maxPagesLimit  = 10

	opSearch    = "search"
	opRateLimit = "rate limit"
)

// Options tunes the provider client. Zero values select defaults.
type Options struct {
	APIURL        string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	// MaxPages is how many pages one search may read by following the
	// provider's next link. Zero reads only the requested page.
	MaxPages      int
}

// Client talks to the findwork.dev job search API.
type Client struct {
	token     string
	logger    *zap.Logger
	limiter   *rate.Limiter
	extractor *skills.Extractor
	maxPages  int
	now       func() time.Time

	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, token string, extractor *skills.Extractor, opts Options) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.APIURL == "" {
		opts.APIURL = apiURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = userAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = defaultRate
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	if opts.MaxPages > maxPagesLimit {
		opts.MaxPages = maxPagesLimit
	}

	return &Client{
		token:     token,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		extractor: extractor,
		maxPages:  opts.MaxPages,
		now:       time.Now,
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
		UserAgent: opts.UserAgent,
		APIURL:    opts.APIURL,
	}
}

// envelope holds the response metadata. It is only logged and used for
// pagination, so fields that do not decode are treated as absent.
type envelope struct {
	Count int    `json:"count"`
	Next  string `json:"next"`
}

type searchResponse struct {
	envelope
	Results []any
}

// Search fetches listings for params. It follows the provider's next link for
// up to MaxPages pages; a failure after the first page ends pagination and
// keeps the listings already read. Records that cannot be used are skipped and
// counted in Batch.Skipped.
func (c *Client) Search(ctx context.Context, params SearchParams) (*Batch, error) {
	fetchedAt := c.now().UTC()
	batch := &Batch{
		Key:       params.CacheKey(),
		Params:    params,
		Items:     []*Listing{},
		FetchedAt: fetchedAt,
		Tier:      TierLive,
	}

	pageURL := c.APIURL + searchPath + "?" + buildParams(params).Encode()
	position := 0
	for page := 1; ; page++ {
		response, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			c.logger.Warn("stopping pagination", zap.Int("page", page), zap.Error(err))
			break
		}

		c.logger.Debug("got response from job provider",
			zap.Int("page", page),
			zap.Int("count", response.Count),
			zap.Int("results", len(response.Results)),
			zap.Bool("has_next", response.Next != ""),
		)

		for _, raw := range response.Results {
			listing, err := c.decodeListing(position, raw, fetchedAt)
			position++
			if err != nil {
				batch.Skipped++
				c.logger.Warn("skipping malformed job record", zap.Error(err))
				continue
			}
			batch.Items = append(batch.Items, listing)
		}

		if page >= c.maxPages || response.Next == "" {
			break
		}
		next, ok := c.nextURL(response.Next)
		if !ok {
			c.logger.Warn("ignoring next page link outside the provider", zap.String("next", response.Next))
			break
		}
		pageURL = next
	}

	return batch, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*searchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Op: opRateLimit, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &ProviderError{Op: opSearch, Err: err}
	}
	req = c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return nil, &ProviderError{Op: opSearch, Err: err}
	}
	defer resp.Body.Close()

	return c.parseSearchResponse(resp)
}

// nextURL resolves a next page link against the API URL. Links to another
// host are refused so the token never leaves the provider.
func (c *Client) nextURL(next string) (string, bool) {
	base, err := url.Parse(c.APIURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Host != base.Host {
		return "", false
	}
	return resolved.String(), true
}

func (c *Client) parseSearchResponse(resp *http.Response) (*searchResponse, error) {
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var err error
		if len(snippet) > 0 {
			err = errors.New(string(snippet))
		}
		return nil, &ProviderError{Op: opSearch, StatusCode: resp.StatusCode, Err: err}
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &ProviderError{Op: opSearch, Err: fmt.Errorf("opening gzip body: %w", err)}
		}
		defer gz.Close()
		body = gz
	}

	var raw map[string]any
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, &ProviderError{Op: opSearch, Err: fmt.Errorf("decoding response: %w", err)}
	}

	results, ok := raw["results"].([]any)
	if !ok {
		return nil, &ProviderError{Op: opSearch, Err: errors.New("response has no results array")}
	}

	response := &searchResponse{Results: results}
	delete(raw, "results")
	if err := weakDecode(raw, &response.envelope); err != nil {
		c.logger.Debug("dropping undecodable response metadata", zap.Error(err))
	}

	return response, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}
