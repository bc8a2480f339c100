// Package config loads and validates the YAML file that drives a batch
// stripping run.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	stripperrors "github.com/aledsdavies/stripcomments/internal/errors"
)

// Config is the parsed, validated shape of a driver run.
type Config struct {
	SchemaVersion string               `yaml:"schemaVersion"`
	InputRoot     string               `yaml:"inputRoot"`
	OutputRoot    string               `yaml:"outputRoot"`
	MaxParallel   int                  `yaml:"maxParallel"`
	Include       []string             `yaml:"include"`
	Exclude       []string             `yaml:"exclude"`
	ValidationBundle ValidationBundleConfig `yaml:"validationBundle"`
}

// ValidationBundleConfig controls whether and how review bundles are written.
type ValidationBundleConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxGroupKB int  `yaml:"maxGroupKB"`
}

const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schemaVersion", "inputRoot", "outputRoot"],
  "properties": {
    "schemaVersion": { "type": "string", "format": "semver" },
    "inputRoot": { "type": "string", "minLength": 1 },
    "outputRoot": { "type": "string", "minLength": 1 },
    "maxParallel": { "type": "integer", "minimum": 1 },
    "include": { "type": "array", "items": { "type": "string" } },
    "exclude": { "type": "array", "items": { "type": "string" } },
    "validationBundle": {
      "type": "object",
      "properties": {
        "enabled": { "type": "boolean" },
        "maxGroupKB": { "type": "integer", "minimum": 1 }
      }
    }
  }
}`

var compiledSchema *jsonschema.Schema

// compile lazily compiles the config schema once, extending the compiler's
// format validators with a custom semver checker.
func compile() (*jsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	if compiler.Formats == nil {
		compiler.Formats = make(map[string]func(interface{}) bool)
	}
	compiler.Formats["semver"] = func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true
		}
		if !strings.HasPrefix(s, "v") {
			s = "v" + s
		}
		return semver.IsValid(s)
	}

	if err := compiler.AddResource("config://stripcomments.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("config://stripcomments.json")
	if err != nil {
		return nil, err
	}
	compiledSchema = schema
	return schema, nil
}

// Load reads, schema-validates, and decodes the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, stripperrors.Wrap(stripperrors.ErrConfigRead, "failed to read config", err).WithContext("path", path)
	}
	return Parse(data)
}

// Parse validates and decodes YAML config bytes directly, split out from
// Load so callers holding config in memory (tests, embedded configs)
// don't need a file on disk.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, stripperrors.Wrap(stripperrors.ErrConfigInvalid, "invalid YAML", err)
	}

	if err := validate(raw); err != nil {
		return Config{}, stripperrors.Wrap(stripperrors.ErrConfigInvalid, "config failed schema validation", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, stripperrors.Wrap(stripperrors.ErrConfigInvalid, "failed to decode config", err)
	}
	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		MaxParallel: 0, // driver substitutes runtime.NumCPU() when zero
		Include:     []string{"*.swift"},
		ValidationBundle: ValidationBundleConfig{
			MaxGroupKB: 200,
		},
	}
}

func validate(raw map[string]any) error {
	schema, err := compile()
	if err != nil {
		return err
	}

	// Round-trip through encoding/json so the validator sees the value
	// shapes a JSON decode produces (float64 numbers, []any,
	// map[string]any) instead of yaml.v3's Go-native scalar types.
	normalized, err := normalize(raw)
	if err != nil {
		return err
	}
	return schema.Validate(normalized)
}

func normalize(raw map[string]any) (any, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ValidateReader validates a config document read from r without decoding
// it into a Config, used by `stripcomments validate-config`.
func ValidateReader(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	_, err = Parse(data)
	return err
}
