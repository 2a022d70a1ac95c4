package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/logger"
	"github.com/skillsync/skillsync/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

//go:embed prompt.md
var systemPrompt string

const (
	defaultMaxLogLength = 200
	maxResumeRunes      = 20000
)

// Suggester asks Gemini for the skills mentioned in a résumé.
type Suggester struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewSuggester(generator contentGenerator, maxLogLength int, log *zap.Logger) *Suggester {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Suggester{
		generator: generator,
		logger:    log.With(logger.AIFields("gemini", generator.Model())...),
		maxLogLen: maxLogLength,
	}
}

// SuggestSkills returns the raw skill phrases the model found in text.
func (s *Suggester) SuggestSkills(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(text) > maxResumeRunes {
		text = string([]rune(text)[:maxResumeRunes])
	}

	message := "Résumé:\n" + text

	s.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", utils.TruncateForLog(message, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	return parseSkills(raw)
}

// parseSkills accepts {"skills": [...]} or a bare array.
func parseSkills(raw string) ([]string, error) {
	cleaned := extractJSON(raw)

	var items []any
	if strings.HasPrefix(cleaned, "[") {
		if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
			return nil, fmt.Errorf("parse gemini response: %w", err)
		}
	} else {
		var data map[string]any
		if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
			return nil, fmt.Errorf("parse gemini response: %w", err)
		}
		list, ok := data["skills"].([]any)
		if !ok {
			return nil, fmt.Errorf("parse gemini response: missing skills list")
		}
		items = list
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		// {"name": "Go"} shaped entries
		if name, ok := val["name"].(string); ok {
			return strings.TrimSpace(name)
		}
		return ""
	default:
		return ""
	}
}
