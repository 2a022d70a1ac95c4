// Package certifications looks up courses for skills on Coursera.
package certifications

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skillsync/skillsync/internal/utils"
)

const (
	baseURL   = "https://www.coursera.org"
	userAgent = "Mozilla/5.0 (compatible; skillsync/1.0)"

	MaxSkills      = 10
	PerSkill       = 3
	defaultWorkers = 4
	defaultTimeout = 10 * time.Second
)

// Certification is a course that teaches a skill.
type Certification struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Skill string `json:"skill"`
}

// Client scrapes course search results.
type Client struct {
	logger  *zap.Logger
	workers int

	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
}

func New(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		logger:     logger,
		workers:    defaultWorkers,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		BaseURL:    baseURL,
		UserAgent:  userAgent,
	}
}

// Lookup searches up to MaxSkills skills concurrently and keeps up to
// PerSkill courses for each. Results follow the skill order and repeated
// titles are kept once. A skill whose search fails is logged and skipped.
func (c *Client) Lookup(ctx context.Context, skills []string) ([]Certification, error) {
	skills = utils.CleanStrings(skills, MaxSkills)
	if len(skills) == 0 {
		return []Certification{}, nil
	}

	perSkill := make([][]Certification, len(skills))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, skill := range skills {
		g.Go(func() error {
			found, err := c.search(gctx, skill)
			if err != nil {
				c.logger.Warn("certification search failed", zap.String("skill", skill), zap.Error(err))
				return nil
			}
			if len(found) > PerSkill {
				found = found[:PerSkill]
			}
			perSkill[i] = found
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := make([]Certification, 0, len(skills)*PerSkill)
	for _, found := range perSkill {
		for _, cert := range found {
			if _, ok := seen[cert.Name]; ok {
				continue
			}
			seen[cert.Name] = struct{}{}
			out = append(out, cert)
		}
	}

	return out, nil
}

// ParseSkills splits a comma separated skill list.
func ParseSkills(raw string) []string {
	return utils.CleanStrings(strings.Split(raw, ","), MaxSkills)
}

func (c *Client) search(ctx context.Context, skill string) ([]Certification, error) {
	q := url.Values{}
	q.Set("query", skill)
	q.Set("sortBy", "BEST_MATCH")
	searchURL := strings.TrimRight(c.BaseURL, "/") + "/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	c.logger.Debug("make request", zap.String("url", searchURL))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing search page: %w", err)
	}

	return c.extract(doc, skill), nil
}

// extract reads course links, preferring the card title anchors and falling
// back to any link into the course catalogue.
func (c *Client) extract(doc *goquery.Document, skill string) []Certification {
	links := doc.Find(`a[class*="CommonCard-titleLink"]`)
	if links.Length() == 0 {
		links = doc.Find(`a[href*="/learn/"]`)
	}

	var out []Certification
	links.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		title := linkTitle(a)
		if title == "" {
			return
		}
		out = append(out, Certification{
			Name:  title,
			URL:   c.absolute(href),
			Skill: skill,
		})
	})
	return out
}

func linkTitle(a *goquery.Selection) string {
	if h3 := strings.TrimSpace(a.Find("h3").First().Text()); h3 != "" {
		return h3
	}
	if label, ok := a.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label)
	}
	return strings.Join(strings.Fields(a.Text()), " ")
}

func (c *Client) absolute(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return c.BaseURL + href
	}
	return base.ResolveReference(ref).String()
}
