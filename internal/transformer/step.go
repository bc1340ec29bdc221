package transformer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/whit3rabbit/luamixer/internal/lua"
)

// Step is one obfuscation pass. Apply receives the current chunk and the
// shared context and returns the transformed chunk; it must preserve the
// program's observable behavior. RunsAfter names steps that must precede this
// one whenever both are configured; the pipeline rejects violating orders
// before any step executes.
type Step interface {
	Name() string
	RunsAfter() []string
	Apply(chunk *lua.Chunk, ctx *Context) (*lua.Chunk, error)
}

// InvariantError reports a broken step precondition. It is an internal
// defect, not a user input problem: the pipeline aborts without output.
type InvariantError struct {
	Step string
	Pos  lua.Pos
	Msg  string
}

func (e *InvariantError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("step %s: invariant violated at line %d:%d: %s", e.Step, e.Pos.Line, e.Pos.Column, e.Msg)
	}
	return fmt.Sprintf("step %s: invariant violated: %s", e.Step, e.Msg)
}

type stepFactory func(opts map[string]any) (Step, error)

var stepFactories = map[string]stepFactory{
	"WrapInFunction":        newWrapInFunction,
	"ConstantArray":         newConstantArray,
	"EncryptStrings":        newEncryptStrings,
	"NumbersToExpressions":  newNumbersToExpressions,
	"ControlFlowFlattening": newControlFlowFlattening,
	"Vmify":                 newVmify,
	"AntiTamper":            newAntiTamper,
}

// NewStep instantiates a step by config name. Unknown names are an error,
// never silently ignored.
func NewStep(name string, opts map[string]any) (Step, error) {
	factory, ok := stepFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown step %q (known steps: %v)", name, KnownSteps())
	}
	step, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", name, err)
	}
	return step, nil
}

// KnownSteps lists every registered step name, sorted.
func KnownSteps() []string {
	names := make([]string, 0, len(stepFactories))
	for name := range stepFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option readers. Config files hand options through as loosely typed maps;
// these normalize the numeric types yaml and viper produce. Lookup is
// case-insensitive because viper lowercases every key it loads from a file.

func optLookup(opts map[string]any, key string) (any, bool) {
	if v, ok := opts[key]; ok {
		return v, true
	}
	for k, v := range opts {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func optInt(opts map[string]any, key string, def int) (int, error) {
	raw, ok := optLookup(opts, key)
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("option %s: want an integer, got %v", key, v)
		}
		return int(v), nil
	}
	return 0, fmt.Errorf("option %s: want an integer, got %T", key, raw)
}

func optBool(opts map[string]any, key string, def bool) (bool, error) {
	raw, ok := optLookup(opts, key)
	if !ok {
		return def, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("option %s: want a boolean, got %T", key, raw)
	}
	return v, nil
}
