package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/skillsync/skillsync/internal/skills"
)

type stubSuggester struct {
	out []string
	err error
}

func (s stubSuggester) SuggestSkills(context.Context, string) ([]string, error) {
	return s.out, s.err
}

func TestResolveDropsUnknownSuggestions(t *testing.T) {
	t.Parallel()

	lex, err := skills.Default()
	require.NoError(t, err)

	got := Resolve(lex, []string{"Golang", "k8s", "underwater basket weaving", ""})
	assert.Equal(t, []string{"go", "kubernetes"}, got.Sorted())
}

func TestEnrichMergesSuggestions(t *testing.T) {
	t.Parallel()

	lex, err := skills.Default()
	require.NoError(t, err)

	base := skills.NewSkillSet("python")
	got := Enrich(context.Background(), nil, stubSuggester{out: []string{"PostgreSQL", "telepathy"}}, lex, "cv", base)
	assert.Equal(t, []string{"postgresql", "python"}, got.Sorted())
}

func TestEnrichFallsBackOnError(t *testing.T) {
	t.Parallel()

	lex, err := skills.Default()
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	base := skills.NewSkillSet("python")
	got := Enrich(context.Background(), zap.New(core), stubSuggester{err: errors.New("quota")}, lex, "cv", base)

	assert.True(t, got.Equal(base))
	assert.Equal(t, 1, logs.Len())
}

func TestEnrichWithoutSuggester(t *testing.T) {
	t.Parallel()

	base := skills.NewSkillSet("sql")
	assert.True(t, Enrich(context.Background(), nil, nil, nil, "cv", base).Equal(base))
}
