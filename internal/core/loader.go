package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxPlanSize bounds plan documents read from disk or requests.
const MaxPlanSize = 1 << 20

// DecodePlan parses a plan document. format is "json" or "yaml"
// ("yml" is accepted); unknown fields are rejected in both.
func DecodePlan(data []byte, format string) (Plan, error) {
	var p Plan

	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Plan{}, fmt.Errorf("%w: decode json: %v", ErrInvalidPlan, err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Plan{}, fmt.Errorf("%w: decode yaml: %v", ErrInvalidPlan, err)
		}
	default:
		return Plan{}, fmt.Errorf("%w: unsupported plan format %q", ErrInvalidPlan, format)
	}

	return p, nil
}

// LoadPlanFile reads and validates a single plan file. The format follows
// the file extension. A plan without a name takes the file's base name.
func LoadPlanFile(path string) (Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return Plan{}, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()

	data, err := ReadDocument(f, MaxPlanSize)
	if err != nil {
		return Plan{}, fmt.Errorf("%s: %w", path, err)
	}

	ext := filepath.Ext(path)
	p, err := DecodePlan(data, ext)
	if err != nil {
		return Plan{}, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), ext)
	}

	if err := p.Validate(); err != nil {
		return Plan{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadPlanDir loads every *.yaml, *.yml and *.json plan in dir, sorted by
// file name. It stops at the first invalid file.
func LoadPlanDir(dir string) ([]Plan, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob plans: %w", err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	plans := make([]Plan, 0, len(paths))
	for _, path := range paths {
		p, err := LoadPlanFile(path)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// RegisterDir loads and registers every plan in dir.
// Returns the number of plans registered.
func RegisterDir(dir string) (int, error) {
	plans, err := LoadPlanDir(dir)
	if err != nil {
		return 0, err
	}
	for i, p := range plans {
		if err := Register(p); err != nil {
			return i, err
		}
	}
	return len(plans), nil
}
