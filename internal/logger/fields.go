package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldRequestID is the structured log field key for the inbound request id.
	FieldRequestID = "request_id"
	// FieldCacheKey is the structured log field key for a listing cache key.
	FieldCacheKey = "cache_key"
	// FieldCacheTier is the structured log field key for a cache tier.
	FieldCacheTier = "cache_tier"
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"

	cacheKeyLogLength = 12
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// RequestFields returns the fields identifying one inbound request.
func RequestFields(requestID string) []zap.Field {
	return StringFields(StringField{Key: FieldRequestID, Value: requestID})
}

// CacheFields describes a cache entry. Keys are shortened, the full hash adds
// nothing to a log line.
func CacheFields(key, tier string) []zap.Field {
	if len(key) > cacheKeyLogLength {
		key = key[:cacheKeyLogLength]
	}
	return StringFields(
		StringField{Key: FieldCacheKey, Value: key},
		StringField{Key: FieldCacheTier, Value: tier},
	)
}

// AIFields returns the fields describing the AI provider and model.
func AIFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}
