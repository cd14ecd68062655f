package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/schemamap/internal/mapping"
)

var (
	// ErrInvalidPlan is returned when a plan cannot be compiled.
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrUnknownPlan is returned when no plan is registered under a name.
	ErrUnknownPlan = errors.New("unknown plan")
)

// problemSep separates the problems listed in a Compile error.
const problemSep = "\n  - "

// Compile turns a plan into a mapping. All problems found are reported
// together, each prefixed with the path of the offending step.
func Compile(p Plan) (mapping.Mapping, error) {
	var problems []string
	m := compileSteps(p.Steps, "steps", &problems)
	if strings.TrimSpace(p.Name) == "" {
		problems = append([]string{"name is required"}, problems...)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w %q:%s%s", ErrInvalidPlan, p.Name, problemSep, strings.Join(problems, problemSep))
	}
	return m, nil
}

// Problems returns the problems listed in an error from Compile, each
// prefixed with its step path. Returns nil for any other error.
func Problems(err error) []string {
	if !errors.Is(err, ErrInvalidPlan) {
		return nil
	}
	_, list, ok := strings.Cut(err.Error(), problemSep)
	if !ok {
		return nil
	}
	return strings.Split(list, problemSep)
}

// Validate reports whether a plan compiles.
func (p Plan) Validate() error {
	_, err := Compile(p)
	return err
}

func compileSteps(steps []Step, path string, problems *[]string) mapping.Mapping {
	ms := make([]mapping.Mapping, 0, len(steps))
	for i, step := range steps {
		if m := compileStep(step, fmt.Sprintf("%s[%d]", path, i), problems); m != nil {
			ms = append(ms, m)
		}
	}
	return mapping.Sequence(ms...)
}

func compileStep(s Step, path string, problems *[]string) mapping.Mapping {
	fail := func(format string, args ...any) mapping.Mapping {
		*problems = append(*problems, path+": "+fmt.Sprintf(format, args...))
		return nil
	}

	if n := s.kinds(); n != 1 {
		return fail("step must set exactly one operation, found %d", n)
	}

	switch {
	case s.Rename != nil:
		r := s.Rename
		if r.From == "" || r.To == "" {
			return fail("rename needs from and to")
		}
		return mapping.Rename(r.From, r.To)

	case s.Combine != nil:
		c := s.Combine
		if len(c.Columns) != 2 {
			return fail("combine needs exactly two columns, got %d", len(c.Columns))
		}
		if c.Into == "" {
			return fail("combine needs into")
		}
		f, err := LookupCombiner(c.With, c.Separator)
		if err != nil {
			return fail("%v", err)
		}
		return mapping.Combine(c.Columns[0], c.Columns[1], c.Into, f)

	case s.Relocate != nil:
		r := s.Relocate
		if r.Column == "" {
			return fail("relocate needs column")
		}
		if r.To < 0 {
			return fail("relocate position must be non-negative, got %d", r.To)
		}
		return mapping.Relocate(r.Column, r.To)

	case s.Delete != nil:
		if s.Delete.Column == "" {
			return fail("delete needs column")
		}
		return mapping.Delete(s.Delete.Column)

	case s.Transform != nil:
		t := s.Transform
		if t.Column == "" {
			return fail("transform needs column")
		}
		f, ok := LookupNormalizer(t.With)
		if !ok {
			return fail("unknown normalizer %q (known: %s)", t.With, strings.Join(NormalizerNames(), ", "))
		}
		return mapping.Transform(t.Column, f)

	case s.Protect != nil:
		p := s.Protect
		if len(p.Columns) == 0 {
			return fail("protect needs at least one column")
		}
		inner := compileSteps(p.Steps, path+".protect.steps", problems)
		return mapping.Protect(p.Columns, inner)

	default:
		alts := make([]mapping.Mapping, len(s.FirstOf))
		for i, steps := range s.FirstOf {
			alts[i] = compileSteps(steps, fmt.Sprintf("%s.first_of[%d]", path, i), problems)
		}
		return mapping.FirstOf(alts...)
	}
}

// kinds counts the operations set on a step.
func (s Step) kinds() int {
	n := 0
	for _, set := range []bool{
		s.Rename != nil,
		s.Combine != nil,
		s.Relocate != nil,
		s.Delete != nil,
		s.Transform != nil,
		s.Protect != nil,
		len(s.FirstOf) > 0,
	} {
		if set {
			n++
		}
	}
	return n
}
