package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when no source yields a value.
var ErrNotConfigured = errors.New("secret is not configured")

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string `mapstructure:"-"`
	// Value is an inline secret value provided via configuration or flags.
	Value string `mapstructure:"value"`
	// Env names an environment variable holding the secret.
	Env string `mapstructure:"env"`
	// File points to a file containing the secret value.
	File string `mapstructure:"file"`
}

// IsZero reports whether no source is set at all.
func (s Source) IsZero() bool {
	return strings.TrimSpace(s.Value) == "" && strings.TrimSpace(s.Env) == "" && strings.TrimSpace(s.File) == ""
}

// Load returns the resolved secret value from the provided source. File takes
// precedence over Env, and Env over Value. The returned secret is always trimmed.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		secret := strings.TrimSpace(os.Getenv(env))
		if secret == "" {
			return "", fmt.Errorf("%s env %q: %w", name, env, ErrNotConfigured)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}

	return secret, nil
}
