// Package ai holds the optional model-backed helpers. Models only propose;
// the skill lexicon decides what counts as a skill.
package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/skills"
)

// SkillSuggester proposes skill surface forms found in free text.
type SkillSuggester interface {
	SuggestSkills(ctx context.Context, text string) ([]string, error)
}

// Resolver maps a surface form to a canonical skill id.
type Resolver interface {
	Lookup(surface string) (string, bool)
}

// Resolve keeps only the suggestions the resolver recognises.
func Resolve(r Resolver, suggestions []string) skills.SkillSet {
	ids := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		if id, ok := r.Lookup(s); ok {
			ids = append(ids, id)
		}
	}
	return skills.NewSkillSet(ids...)
}

// Enrich merges suggested skills into base. A nil suggester or a failed
// suggestion leaves base untouched.
func Enrich(ctx context.Context, logger *zap.Logger, s SkillSuggester, r Resolver, text string, base skills.SkillSet) skills.SkillSet {
	if s == nil || r == nil {
		return base
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	suggestions, err := s.SuggestSkills(ctx, text)
	if err != nil {
		logger.Warn("ai skill suggestion failed, using extracted skills only", zap.Error(err))
		return base
	}

	resolved := Resolve(r, suggestions)
	logger.Debug("ai skill suggestions resolved",
		zap.Int("suggested", len(suggestions)),
		zap.Int("resolved", resolved.Len()),
		zap.Int("added", resolved.Difference(base).Len()),
	)
	return base.Union(resolved)
}
