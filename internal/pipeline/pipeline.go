// Package pipeline runs one match request end to end: extract skills, fetch
// listings, filter, score and recommend.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/ai"
	"github.com/skillsync/skillsync/internal/certifications"
	"github.com/skillsync/skillsync/internal/filtering"
	"github.com/skillsync/skillsync/internal/jobsearch"
	"github.com/skillsync/skillsync/internal/matching"
	"github.com/skillsync/skillsync/internal/orchestrator"
	"github.com/skillsync/skillsync/internal/recommend"
	"github.com/skillsync/skillsync/internal/skills"
	"github.com/skillsync/skillsync/internal/utils"
)

// MaxDefaultKeywords caps the skills used as search keywords when a request has none.
const MaxDefaultKeywords = 5

// Source tells where the listings of a result came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

// Searcher resolves listing searches.
type Searcher interface {
	Search(ctx context.Context, params jobsearch.SearchParams) (*jobsearch.Batch, error)
}

// CertificationLookup finds courses for skills.
type CertificationLookup interface {
	Lookup(ctx context.Context, skills []string) ([]certifications.Certification, error)
}

type Request struct {
	ResumeText string   `json:"resume_text"`
	Keywords   []string `json:"keywords"`
	Location   string   `json:"location"`
	Page       int      `json:"page"`
}

type Result struct {
	Skills          skills.SkillSet                `json:"skills"`
	Params          jobsearch.SearchParams         `json:"params"`
	Matches         []matching.Result              `json:"matches"`
	Recommendations []recommend.Recommendation     `json:"recommendations"`
	Certifications  []certifications.Certification `json:"certifications,omitempty"`
	Source          Source                         `json:"source"`
	Degraded        bool                           `json:"degraded"`
	Skipped         int                            `json:"skipped"`

	Batch *jobsearch.Batch `json:"-"`
}

// Options configures the optional stages.
type Options struct {
	Filters         filtering.Config
	DisabledFilters []string
	TopN            int
	// LiveCertifications looks up courses for recommended skills.
	LiveCertifications bool
}

type Pipeline struct {
	extractor  *skills.Extractor
	searcher   Searcher
	scorer     *matching.Scorer
	aggregator *recommend.Aggregator
	suggester  ai.SkillSuggester
	certs      CertificationLookup
	opts       Options
	logger     *zap.Logger
}

func New(extractor *skills.Extractor, searcher Searcher, scorer *matching.Scorer, aggregator *recommend.Aggregator, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		extractor:  extractor,
		searcher:   searcher,
		scorer:     scorer,
		aggregator: aggregator,
		opts:       opts,
		logger:     logger,
	}
}

// WithSuggester enables AI assisted skill extraction.
func (p *Pipeline) WithSuggester(s ai.SkillSuggester) *Pipeline {
	p.suggester = s
	return p
}

// WithCertifications sets the live certification lookup.
func (p *Pipeline) WithCertifications(c CertificationLookup) *Pipeline {
	p.certs = c
	return p
}

// Skills extracts the skill set of a résumé.
func (p *Pipeline) Skills(ctx context.Context, text string) skills.SkillSet {
	found := p.extractor.Extract(text)
	if p.suggester == nil || strings.TrimSpace(text) == "" {
		return found
	}
	return ai.Enrich(ctx, p.logger, p.suggester, p.extractor.Lexicon(), text, found)
}

// Run executes a match request. An unavailable provider yields a degraded
// result without matches rather than an error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	have := p.Skills(ctx, req.ResumeText)

	params := jobsearch.SearchParams{
		Keywords: req.Keywords,
		Location: req.Location,
		Page:     req.Page,
	}
	if len(utils.CleanStrings(params.Keywords, 0)) == 0 {
		params.Keywords = defaultKeywords(p.extractor.Lexicon(), have)
	}

	res := &Result{
		Skills:          have,
		Params:          params,
		Matches:         []matching.Result{},
		Recommendations: []recommend.Recommendation{},
		Source:          SourceNone,
	}

	if len(params.Keywords) == 0 {
		p.logger.Info("no keywords and no skills found, skipping search")
		return res, nil
	}

	batch, err := p.searcher.Search(ctx, params)
	if err != nil {
		if errors.Is(err, orchestrator.ErrProviderUnavailable) {
			p.logger.Warn("job provider unavailable, returning degraded result", zap.Error(err))
			res.Degraded = true
			return res, nil
		}
		return nil, fmt.Errorf("searching listings: %w", err)
	}

	res.Params = batch.Params
	res.Skipped = batch.Skipped
	res.Source = sourceOf(batch)
	res.Degraded = res.Source == SourceFallback

	filters := filtering.Default()
	for _, name := range p.opts.DisabledFilters {
		filtering.DisableByName(filters, name, "disabled in config")
	}
	batch, err = filtering.Run(ctx, &p.opts.Filters, filtering.Deps{Logger: p.logger}, filters, batch)
	if err != nil {
		return nil, fmt.Errorf("filtering listings: %w", err)
	}
	res.Batch = batch

	res.Matches = p.scorer.Rank(have, batch.Items)
	res.Recommendations = p.aggregator.Recommend(res.Matches, have, p.opts.TopN)

	if p.opts.LiveCertifications && p.certs != nil && len(res.Recommendations) > 0 {
		certs, err := p.certs.Lookup(ctx, recommend.Names(res.Recommendations))
		if err != nil {
			p.logger.Warn("certification lookup failed", zap.Error(err))
		} else {
			res.Certifications = certs
		}
	}

	p.logger.Info("match request completed",
		zap.Int("skills", have.Len()),
		zap.Int("listings", batch.Len()),
		zap.Int("matches", len(res.Matches)),
		zap.String("source", string(res.Source)),
	)

	return res, nil
}

func sourceOf(b *jobsearch.Batch) Source {
	switch {
	case b.Tier == jobsearch.TierFallback:
		return SourceFallback
	case b.FromCache:
		return SourceCache
	default:
		return SourceLive
	}
}

// defaultKeywords names the first skills in id order.
func defaultKeywords(lex *skills.Lexicon, have skills.SkillSet) []string {
	ids := have.Sorted()
	if len(ids) > MaxDefaultKeywords {
		ids = ids[:MaxDefaultKeywords]
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, lex.Name(id))
	}
	return out
}
