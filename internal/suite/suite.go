// Package suite loads the ordered prompt lists that a benchmark run executes.
package suite

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xeipuuv/gojsonschema"
)

// Built-in suite names accepted by Default.
const (
	ModeSingle  = "single"
	ModeCompare = "compare"
)

// ErrNoTests is returned when a suite contains no test cases.
var ErrNoTests = errors.New("suite contains no tests")

//go:embed defaults/*.json
var defaultsFS embed.FS

// TestCase is one prompt in a suite. Label defaults to Category.
type TestCase struct {
	Label    string `json:"label,omitempty" toml:"label"`
	Category string `json:"category" toml:"category"`
	Prompt   string `json:"prompt" toml:"prompt"`
}

// Suite is an ordered list of test cases. Order is report row order.
type Suite struct {
	Name  string     `json:"name,omitempty" toml:"name"`
	Tests []TestCase `json:"tests" toml:"tests"`
}

// Validate reports configuration problems that must stop a run before any call is made.
func (s Suite) Validate() error {
	if len(s.Tests) == 0 {
		return ErrNoTests
	}
	for i, tc := range s.Tests {
		if strings.TrimSpace(tc.Prompt) == "" {
			return fmt.Errorf("test %d (%s): prompt is empty", i, tc.Category)
		}
		if strings.TrimSpace(tc.Category) == "" {
			return fmt.Errorf("test %d: category is empty", i)
		}
	}
	return nil
}

// Load reads a suite from a .json or .toml file.
func Load(path string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("read suite %s: %w", path, err)
	}

	var s Suite
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		s, err = decodeTOML(data)
	case ".json", "":
		s, err = decodeJSON(data)
	default:
		return Suite{}, fmt.Errorf("suite %s: unsupported file extension %q", path, filepath.Ext(path))
	}
	if err != nil {
		return Suite{}, fmt.Errorf("suite %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Default returns one of the built-in suites.
func Default(mode string) (Suite, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case ModeSingle, ModeCompare:
	default:
		return Suite{}, fmt.Errorf("unknown built-in suite %q", mode)
	}
	data, err := defaultsFS.ReadFile("defaults/" + mode + ".json")
	if err != nil {
		return Suite{}, err
	}
	s, err := decodeJSON(data)
	if err != nil {
		return Suite{}, fmt.Errorf("built-in suite %s: %w", mode, err)
	}
	return s, nil
}

// Resolve loads path when set and falls back to the built-in suite for mode otherwise.
func Resolve(path, mode string) (Suite, error) {
	if strings.TrimSpace(path) == "" {
		return Default(mode)
	}
	return Load(path)
}

func decodeJSON(data []byte) (Suite, error) {
	if err := validateDocument(gojsonschema.NewBytesLoader(data)); err != nil {
		return Suite{}, err
	}
	var s Suite
	if err := json.Unmarshal(data, &s); err != nil {
		return Suite{}, fmt.Errorf("decode json: %w", err)
	}
	return finish(s)
}

func decodeTOML(data []byte) (Suite, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return Suite{}, fmt.Errorf("decode toml: %w", err)
	}
	if err := validateDocument(gojsonschema.NewGoLoader(doc)); err != nil {
		return Suite{}, err
	}
	var s Suite
	if _, err := toml.Decode(string(data), &s); err != nil {
		return Suite{}, fmt.Errorf("decode toml: %w", err)
	}
	return finish(s)
}

func finish(s Suite) (Suite, error) {
	for i := range s.Tests {
		s.Tests[i].Category = strings.TrimSpace(s.Tests[i].Category)
		s.Tests[i].Label = strings.TrimSpace(s.Tests[i].Label)
		if s.Tests[i].Label == "" {
			s.Tests[i].Label = s.Tests[i].Category
		}
	}
	if err := s.Validate(); err != nil {
		return Suite{}, err
	}
	return s, nil
}

func validateDocument(doc gojsonschema.JSONLoader) error {
	schema, err := defaultsFS.ReadFile("defaults/schema.json")
	if err != nil {
		return err
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), doc)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("suite failed validation: %s", strings.Join(details, "; "))
}
