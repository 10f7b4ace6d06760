package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// Origin tells where a displayed value came from.
type Origin string

const (
	OriginDefault Origin = "default"
	OriginFile    Origin = "file"
	OriginEnv     Origin = "env"
)

// KeyInfo describes a config key for `config show`.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
	Origin Origin
}

// choices restricts keys that only accept a fixed set of values.
var choices = map[string][]string{
	"llm.provider":       {ProviderOllama, ProviderOpenAI},
	"embedding.provider": {ProviderOllama, ProviderOpenAI},
	"retrieval.backend":  {BackendMemory, BackendSQLite},
	"log.level":          {"debug", "info", "warn", "error"},
}

// ShowAll returns every non-secret key with its effective value in cfg.
func ShowAll(cfg Config) []KeyInfo {
	return showAllWith(newPlatformBackend(), cfg)
}

func showAllWith(b ConfigBackend, cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		origin := OriginDefault
		if _, ok, _ := b.GetString(s.key); ok {
			origin = OriginFile
		}
		if s.env != "" && os.Getenv(s.env) != "" {
			origin = OriginEnv
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
			Origin: origin,
		})
	}
	return result
}

// SetKey validates value for key and writes it to the config file.
func SetKey(key, value string) error {
	return setKeyWith(newPlatformBackend(), key, value)
}

func setKeyWith(b ConfigBackend, key, value string) error {
	s, err := lookupKey(key)
	if err != nil {
		return err
	}
	v, err := parseValue(s.typ, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if allowed, ok := choices[key]; ok {
		v = strings.ToLower(v.(string))
		if !slices.Contains(allowed, v.(string)) {
			return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
		}
	}
	if i, ok := v.(int); ok {
		if i < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
		return b.SetInt(key, i)
	}
	return b.SetString(key, fmt.Sprintf("%v", v))
}

// UnsetKey removes key from the config file so its default applies again.
func UnsetKey(key string) error {
	return unsetKeyWith(newPlatformBackend(), key)
}

func unsetKeyWith(b ConfigBackend, key string) error {
	if _, err := lookupKey(key); err != nil {
		return err
	}
	return b.Delete(key)
}

func lookupKey(key string) (keySpec, error) {
	for _, s := range specs {
		if s.key != key {
			continue
		}
		if s.secret {
			return keySpec{}, fmt.Errorf("cannot set secret %q via config; use environment variable %s", key, s.env)
		}
		return s, nil
	}
	return keySpec{}, fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(ValidKeys(), ", "))
}

// ValidKeys returns the non-secret config key names.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
