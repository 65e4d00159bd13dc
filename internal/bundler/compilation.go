package bundler

// A Compilation runs the passes over a fixed set of chunks in a fixed order.
// Every pass mutates trees in place, so the order is enforced here instead of
// being left to the caller. Any failure aborts the compilation and a new one
// has to be created from fresh trees.

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/chunkpass/chunkpass/internal/config"
	"github.com/chunkpass/chunkpass/internal/constants"
	"github.com/chunkpass/chunkpass/internal/esm"
	"github.com/chunkpass/chunkpass/internal/graph"
	"github.com/chunkpass/chunkpass/internal/helpers"
	"github.com/chunkpass/chunkpass/internal/inspect"
	"github.com/chunkpass/chunkpass/internal/js_ast"
	"github.com/chunkpass/chunkpass/internal/js_printer"
	"github.com/chunkpass/chunkpass/internal/logger"
	"github.com/chunkpass/chunkpass/internal/requires"
	"github.com/chunkpass/chunkpass/internal/runtime"
)

var (
	ErrPassOrder = errors.New("pass run out of order")
	ErrAborted   = errors.New("compilation was aborted by an earlier error")
	ErrInternal  = errors.New("internal error")
)

type Stage uint8

const (
	StageNew Stage = iota
	StageInspected
	StageLowered
	StageHoisted
	StageRewritten
	StageClassified
	StageCleaned
	stageAborted
)

func (s Stage) String() string {
	switch s {
	case StageNew:
		return "new"
	case StageInspected:
		return "inspected"
	case StageLowered:
		return "lowered"
	case StageHoisted:
		return "hoisted"
	case StageRewritten:
		return "rewritten"
	case StageClassified:
		return "classified"
	case StageCleaned:
		return "cleaned"
	case stageAborted:
		return "aborted"
	default:
		panic("Internal error")
	}
}

type Compilation struct {
	options *config.Options
	log     logger.Log
	zlog    zerolog.Logger
	timer   *helpers.Timer

	chunks []*graph.Chunk
	graph  *graph.DependencyGraph
	units  []*graph.CompilationUnit

	stage   Stage
	changes js_ast.ChangeSet

	infos          []inspect.Info
	hoisted        constants.Result
	rewriter       *requires.Rewriter
	classifier     *requires.Classifier
	classification requires.Classification
}

// The chunks must already contain their units. "timer" may be nil.
func NewCompilation(options *config.Options, log logger.Log, zlog zerolog.Logger, timer *helpers.Timer, chunks []*graph.Chunk) *Compilation {
	c := &Compilation{
		options: options,
		log:     log,
		zlog:    zlog,
		timer:   timer,
		chunks:  chunks,
	}
	for _, chunk := range chunks {
		c.units = append(c.units, chunk.Units...)
	}
	return c
}

func (c *Compilation) Stage() Stage {
	return c.stage
}

func (c *Compilation) Units() []*graph.CompilationUnit {
	return c.units
}

// Every scope changed by any pass so far
func (c *Compilation) Changes() *js_ast.ChangeSet {
	return &c.changes
}

func (c *Compilation) Infos() []inspect.Info {
	return c.infos
}

func (c *Compilation) Hoisted() constants.Result {
	return c.hoisted
}

func (c *Compilation) Classification() requires.Classification {
	return c.classification
}

// Checks that the compilation is at one of "from" and moves it to "to"
func (c *Compilation) advance(name string, to Stage, from ...Stage) error {
	if c.stage == stageAborted {
		return ErrAborted
	}
	for _, stage := range from {
		if c.stage == stage {
			c.stage = to
			return nil
		}
	}
	return fmt.Errorf("%w: cannot run %s when the compilation is %s", ErrPassOrder, name, c.stage)
}

func (c *Compilation) abort(err error) error {
	c.stage = stageAborted
	c.zlog.Error().Err(err).Msg("compilation aborted")
	return err
}

// Lists the dependencies of every unit. This is optional and only allowed
// before lowering since lowering removes the import statements.
func (c *Compilation) Inspect() error {
	return c.guard(c.inspect)
}

func (c *Compilation) inspect() error {
	if err := c.advance("inspect", StageInspected, StageNew); err != nil {
		return err
	}
	c.timer.Begin("Inspect")
	defer c.timer.End("Inspect")

	infos, err := inspect.InspectAll(c.units, c.options.Inspect.Parallelism)
	if err != nil {
		c.addErrors(err)
		return c.abort(err)
	}
	c.infos = infos
	c.zlog.Debug().Int("units", len(infos)).Msg("inspected units")
	return nil
}

func (c *Compilation) LowerModules() error {
	return c.guard(c.lowerModules)
}

func (c *Compilation) lowerModules() error {
	if err := c.advance("module lowering", StageLowered, StageNew, StageInspected); err != nil {
		return err
	}
	if !c.options.Modules.Enabled {
		return nil
	}
	c.timer.Begin("Lower modules")
	defer c.timer.End("Lower modules")

	var errs *multierror.Error
	lowered := 0
	for _, unit := range c.units {
		result, err := esm.Lower(&unit.Source, unit.Tree)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if result.Changed {
			lowered++
			unit.Imports = result.Imports
			unit.Exports = result.Exports
			c.changes.Merge(&result.Changes)
			c.zlog.Debug().
				Str("unit", unit.Path()).
				Int("imports", len(result.Imports)).
				Int("exports", len(result.Exports)).
				Msg("lowered module")
		}
		c.warnAboutReservedNames(unit)
	}
	if err := errs.ErrorOrNil(); err != nil {
		c.addErrors(err)
		return c.abort(err)
	}
	c.zlog.Info().Int("units", len(c.units)).Int("lowered", lowered).Msg("lowered modules")
	return nil
}

// Units that declare one of the runtime helper names at the top level
// shadow the helper for the rest of the chunk
func (c *Compilation) warnAboutReservedNames(unit *graph.CompilationUnit) {
	stmts := unit.Tree.Children()
	if len(stmts) == 1 && stmts[0].Kind == js_ast.SModuleBody {
		stmts = stmts[0].Children()
	}
	for _, stmt := range stmts {
		for _, name := range js_ast.DeclaredNames(stmt) {
			if runtime.IsReserved(name) {
				c.log.AddWarning(&unit.Source, stmt.Loc,
					fmt.Sprintf("The top-level declaration of %q hides the runtime helper with the same name", name))
			}
		}
	}
}

// Builds the chunk graph and moves shared constants into the chunks that
// need them. Chunk membership is fixed from here on.
func (c *Compilation) HoistConstants() error {
	return c.guard(c.hoistConstants)
}

func (c *Compilation) hoistConstants() error {
	if err := c.advance("constant hoisting", StageHoisted, StageLowered); err != nil {
		return err
	}
	c.timer.Begin("Hoist constants")
	defer c.timer.End("Hoist constants")

	g, err := graph.NewDependencyGraph(c.chunks)
	if err != nil {
		c.log.AddError(nil, logger.Loc{}, err.Error())
		return c.abort(err)
	}
	c.graph = g

	if !c.options.Constants.Enabled {
		return nil
	}
	result, err := constants.NewHoister(c.options.Constants, g).Run()
	if err != nil {
		c.log.AddError(nil, logger.Loc{}, err.Error())
		return c.abort(err)
	}
	c.hoisted = result
	c.changes.Merge(&result.Changes)
	c.zlog.Info().
		Int("constants", len(result.Declarations)).
		Int("replaced", result.Replaced).
		Msg("hoisted constants")
	return nil
}

// Resolves "require()" and "import()" targets. Any optimization of the trees
// belongs between this and ClassifyRequires.
func (c *Compilation) RewriteRequires(table requires.Table) error {
	return c.guard(func() error { return c.rewriteRequires(table) })
}

func (c *Compilation) rewriteRequires(table requires.Table) error {
	if err := c.advance("require rewriting", StageRewritten, StageHoisted); err != nil {
		return err
	}
	c.rewriter = requires.NewRewriter(c.options.Requires, table)
	if !c.options.Requires.Enabled {
		return nil
	}
	c.timer.Begin("Rewrite requires")
	defer c.timer.End("Rewrite requires")

	for _, unit := range c.units {
		result := c.rewriter.Rewrite(unit.Path(), unit.Tree)
		c.changes.Merge(&result.Changes)
		for _, specifier := range result.Unresolved {
			c.zlog.Debug().Str("unit", unit.Path()).Str("specifier", specifier).Msg("unresolved require")
		}
	}
	c.zlog.Info().Int("sites", len(c.rewriter.Sites())).Msg("rewrote requires")
	return nil
}

func (c *Compilation) ClassifyRequires() error {
	return c.guard(c.classifyRequires)
}

func (c *Compilation) classifyRequires() error {
	if err := c.advance("require classification", StageClassified, StageRewritten); err != nil {
		return err
	}
	c.classifier = requires.NewClassifier(c.options.Requires.ClassifyNames)
	if !c.options.Requires.Enabled {
		return nil
	}
	c.timer.Begin("Classify requires")
	defer c.timer.End("Classify requires")

	c.classifier.AddSites(c.rewriter.Sites())
	for _, unit := range c.units {
		c.classifier.AddTree(unit.Tree)
	}
	c.classification = c.classifier.Classify()
	c.zlog.Info().
		Int("dead", len(c.classification.Dead)).
		Int("alive", len(c.classification.Alive)).
		Msg("classified requires")
	return nil
}

func (c *Compilation) RemoveDeadRequires() error {
	return c.guard(c.removeDeadRequires)
}

func (c *Compilation) removeDeadRequires() error {
	if err := c.advance("dead require removal", StageCleaned, StageClassified); err != nil {
		return err
	}
	if !c.options.Requires.Enabled || !c.options.Requires.RemoveDead {
		return nil
	}
	changes := c.classifier.RemoveDeadRequires(c.classification.Dead)
	c.changes.Merge(&changes)
	c.zlog.Debug().Int("scopes", changes.Len()).Msg("removed dead requires")
	return nil
}

// Runs every pass in order. Callers that need to optimize the trees between
// rewriting and classification call the passes one at a time instead.
func (c *Compilation) Run(table requires.Table) error {
	steps := []func() error{
		c.Inspect,
		c.LowerModules,
		c.HoistConstants,
		func() error { return c.RewriteRequires(table) },
		c.ClassifyRequires,
		c.RemoveDeadRequires,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	c.timer.Log(c.zlog)
	return nil
}

// Every pass runs through this. It turns a panic inside the pass into an
// error with the stack attached. The trees may be half rewritten at that
// point, so the compilation is aborted.
func (c *Compilation) guard(step func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = c.abort(fmt.Errorf("%w: %v", ErrInternal, r))
			c.log.AddErrorWithNotes(nil, logger.Loc{}, fmt.Sprintf("panic: %v", r),
				[]logger.MsgData{{Text: helpers.PrettyPrintedStack()}})
		}
	}()
	return step()
}

func (c *Compilation) addErrors(err error) {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		c.addError(err)
		return
	}
	for _, err := range merr.Errors {
		c.addError(err)
	}
}

func (c *Compilation) addError(err error) {
	var dynamicErr *esm.DynamicImportError
	if errors.As(err, &dynamicErr) {
		c.log.AddMsg(logger.Msg{Kind: logger.Error, Text: "This file uses import() with unsupported arguments and cannot be processed", Location: dynamicErr.Location})
		return
	}
	c.log.AddError(nil, logger.Loc{}, err.Error())
}

type OutputUnit struct {
	Path        string
	Code        string
	Fingerprint string

	// The unit contains a scope some pass changed
	Changed bool
}

type OutputChunk struct {
	ID          string
	Units       []OutputUnit
	Fingerprint string
}

// Prints every chunk in chunk order. The runtime helpers are printed before
// the first chunk when "includeRuntime" is set.
func (c *Compilation) Output(includeRuntime bool) []OutputChunk {
	c.timer.Begin("Print")
	defer c.timer.End("Print")

	out := make([]OutputChunk, 0, len(c.chunks))
	for i, chunk := range c.chunks {
		result := OutputChunk{ID: chunk.ID}
		var parts []string
		if i == 0 && includeRuntime {
			parts = append(parts, helpers.Fingerprint(runtime.Code))
			result.Units = append(result.Units, OutputUnit{
				Path:        "<runtime>",
				Code:        runtime.Code,
				Fingerprint: helpers.Fingerprint(runtime.Code),
			})
		}
		for _, unit := range chunk.Units {
			code := js_printer.Print(unit.Tree, js_printer.Options{})
			fingerprint := helpers.Fingerprint(code)
			parts = append(parts, fingerprint)
			result.Units = append(result.Units, OutputUnit{
				Path:        unit.Path(),
				Code:        code,
				Fingerprint: fingerprint,
				Changed:     c.changes.Touches(unit.Tree),
			})
		}
		result.Fingerprint = helpers.CombineFingerprints(parts)
		out = append(out, result)
	}
	return out
}

// Lists the require ids still present in each unit, keyed by unit path
func (c *Compilation) Survivors() map[string][]string {
	survivors := make(map[string][]string, len(c.units))
	for _, unit := range c.units {
		if ids := requires.FindSurvivors(unit.Tree); len(ids) > 0 {
			survivors[unit.Path()] = ids
		}
	}
	return survivors
}
