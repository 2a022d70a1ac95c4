package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/ai/gemini"
	"github.com/skillsync/skillsync/internal/cache"
	"github.com/skillsync/skillsync/internal/certifications"
	"github.com/skillsync/skillsync/internal/config"
	"github.com/skillsync/skillsync/internal/jobsearch"
	"github.com/skillsync/skillsync/internal/matching"
	"github.com/skillsync/skillsync/internal/orchestrator"
	"github.com/skillsync/skillsync/internal/pipeline"
	"github.com/skillsync/skillsync/internal/recommend"
	"github.com/skillsync/skillsync/internal/resume"
	"github.com/skillsync/skillsync/internal/secrets"
	"github.com/skillsync/skillsync/internal/skills"
)

// components holds everything a command may need, built from the config.
type components struct {
	lexicon   *skills.Lexicon
	extractor *skills.Extractor
	cache     *cache.Cache
	pipeline  *pipeline.Pipeline
	certs     *certifications.Client
	resumes   *resume.Loader

	closers []func() error
}

func (c *components) Close() {
	for _, fn := range c.closers {
		_ = fn()
	}
}

// newExtractor loads the lexicon only, for commands that never search.
func newExtractor(cfg *config.Config) (*skills.Lexicon, *skills.Extractor, error) {
	lex, err := skills.Load(cfg.Lexicon)
	if err != nil {
		return nil, nil, fmt.Errorf("loading lexicon: %w", err)
	}
	return lex, skills.NewExtractor(lex), nil
}

func newComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	lex, extractor, err := newExtractor(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("lexicon loaded", zap.Int("terms", lex.Len()))

	c := &components{
		lexicon:   lex,
		extractor: extractor,
		certs:     certifications.New(logger.Named("certifications")),
		resumes:   resume.New(cfg.S3, logger.Named("resume")),
	}

	store, err := newStore(ctx, cfg, c)
	if err != nil {
		return nil, err
	}
	c.cache = cache.New(store, cfg.Cache.TTLs(), logger.Named("cache"))

	token, err := secrets.Load(withName(cfg.Provider.Token, "findwork api key"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%w (set FINDWORK_API_KEY or provider.token in the config)", err)
	}

	provider := jobsearch.New(logger.Named("jobsearch"), token, extractor, jobsearch.Options{
		APIURL:        cfg.Provider.URL,
		UserAgent:     cfg.Provider.UserAgent,
		Timeout:       cfg.Provider.Timeout,
		RatePerSecond: cfg.Provider.RatePerSecond,
		Burst:         cfg.Provider.Burst,
		MaxPages:      cfg.Provider.MaxPages,
	})

	orch := orchestrator.New(c.cache, provider, orchestrator.Options{
		FetchTimeout:    cfg.Provider.FetchTimeout,
		DefaultLocation: cfg.DefaultLocation,
	}, logger.Named("orchestrator"))

	scorer, err := matching.NewScorer(cfg.Scoring.Weights(), cfg.Scoring.MinScore)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.pipeline = pipeline.New(extractor, orch, scorer,
		recommend.New(lex, cfg.Recommend.TopN, cfg.Recommend.MaxSkills),
		pipeline.Options{
			Filters:            cfg.Filters,
			DisabledFilters:    cfg.DisabledFilters,
			TopN:               cfg.Recommend.TopN,
			LiveCertifications: cfg.Recommend.LiveCertifications,
		},
		logger.Named("pipeline"),
	).WithCertifications(c.certs)

	if cfg.AI.Enabled {
		suggester, err := newSuggester(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn("skipping ai skill suggestions", zap.Error(err))
		} else {
			c.pipeline.WithSuggester(suggester)
		}
	}

	return c, nil
}

func newStore(ctx context.Context, cfg *config.Config, c *components) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		return cache.NewRedisStore(client), nil
	default:
		return cache.NewMemoryStore(cfg.Cache.Shards), nil
	}
}

func newSuggester(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*gemini.Suggester, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(withName(cfg.Gemini.APIKey, "gemini api key"))
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY or ai.gemini.api-key in the config)", err)
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewSuggester(generator, cfg.Gemini.MaxLogLength, logger), nil
}

func withName(src secrets.Source, name string) secrets.Source {
	src.Name = name
	return src
}
