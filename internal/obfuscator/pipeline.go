// Package obfuscator runs the full pipeline: parse, apply the configured
// steps in order, rename locals, print.
package obfuscator

import (
	"fmt"
	"time"

	"github.com/whit3rabbit/luamixer/internal/config"
	"github.com/whit3rabbit/luamixer/internal/lua"
	"github.com/whit3rabbit/luamixer/internal/scrambler"
	"github.com/whit3rabbit/luamixer/internal/transformer"
)

// Pipeline is a validated, ready-to-run obfuscation configuration. Validation
// happens entirely in NewPipeline, so a constructed pipeline never fails on
// configuration problems, only on bad input source.
type Pipeline struct {
	cfg     *config.Config
	dialect lua.Dialect
	style   scrambler.Style
	steps   []transformer.Step

	lastMapping []scrambler.MappingEntry
	lastSeed    int64
}

// NewPipeline validates cfg and builds the step list. Unknown step names,
// duplicate steps, invalid option values and orderings that violate a step's
// RunsAfter constraint all come back as *config.ConfigError.
func NewPipeline(cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	dialect, err := lua.ParseDialect(cfg.LuaVersion)
	if err != nil {
		return nil, &config.ConfigError{Field: "lua_version", Msg: err.Error()}
	}
	style, err := scrambler.ParseStyle(cfg.NameGenerator)
	if err != nil {
		return nil, &config.ConfigError{Field: "name_generator", Msg: err.Error()}
	}
	if cfg.VarNamePrefix != "" && !lua.IsValidIdent(cfg.VarNamePrefix, dialect) {
		return nil, &config.ConfigError{
			Field: "var_name_prefix",
			Msg:   fmt.Sprintf("%q is not a valid identifier", cfg.VarNamePrefix),
		}
	}

	steps := make([]transformer.Step, 0, len(cfg.Steps))
	position := make(map[string]int, len(cfg.Steps))
	for i, sc := range cfg.Steps {
		if prev, dup := position[sc.Name]; dup {
			return nil, &config.ConfigError{
				Field: "steps",
				Msg:   fmt.Sprintf("step %s listed twice (positions %d and %d)", sc.Name, prev+1, i+1),
			}
		}
		step, err := transformer.NewStep(sc.Name, sc.Options)
		if err != nil {
			return nil, &config.ConfigError{Field: "steps", Msg: err.Error()}
		}
		position[sc.Name] = i
		steps = append(steps, step)
	}

	// Ordering constraints bind only when both steps are configured; a step
	// whose prerequisite is absent simply runs without it.
	for i, step := range steps {
		for _, dep := range step.RunsAfter() {
			if j, present := position[dep]; present && j > i {
				return nil, &config.ConfigError{
					Field: "steps",
					Msg:   fmt.Sprintf("step %s must run after %s", step.Name(), dep),
				}
			}
		}
	}

	return &Pipeline{cfg: cfg, dialect: dialect, style: style, steps: steps}, nil
}

// Obfuscate runs the pipeline over one source file's contents.
func (p *Pipeline) Obfuscate(source string) (string, error) {
	seed := p.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	p.lastSeed = seed
	p.debugf("Debug: Seed for this run: %d\n", seed)

	chunk, err := lua.ParseSource(source, p.dialect)
	if err != nil {
		return "", err
	}

	ctx := transformer.NewContext(p.dialect, seed, chunk.NextDeclID)
	if p.cfg.DebugMode {
		ctx.Logf = func(format string, args ...any) {
			p.debugf("Debug: "+format+"\n", args...)
		}
	}

	for _, step := range p.steps {
		start := time.Now()
		chunk, err = step.Apply(chunk, ctx)
		if err != nil {
			return "", fmt.Errorf("applying step %s: %w", step.Name(), err)
		}
		chunk.NextDeclID = ctx.NextDeclID()
		p.debugf("Debug: Step %s took %s\n", step.Name(), time.Since(start).Round(time.Microsecond))
	}

	scr, err := scrambler.New(p.style, p.cfg.VarNamePrefix, seed, p.dialect)
	if err != nil {
		return "", err
	}
	(&renamer{scr: scr}).Rename(chunk)
	p.lastMapping = scr.Mapping()

	mode := lua.Compact
	if p.cfg.PrettyPrint {
		mode = lua.Pretty
	}
	out := lua.PrintChunk(chunk, mode)
	if len(source) > 0 {
		p.debugf("Debug: Output is %d bytes, %d%% of the input\n",
			len(out), len(out)*100/len(source))
	}
	return out, nil
}

// Mapping returns the original-to-generated name pairs of the last run.
func (p *Pipeline) Mapping() []scrambler.MappingEntry { return p.lastMapping }

// Seed returns the seed the last run actually used. When the configured seed
// is 0 this is the clock-derived value, which reproduces the run if fed back.
func (p *Pipeline) Seed() int64 { return p.lastSeed }

func (p *Pipeline) debugf(format string, args ...any) {
	if p.cfg.DebugMode && !p.cfg.Silent {
		config.PrintInfo(format, args...)
	}
}
