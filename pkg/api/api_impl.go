package api

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/chunkpass/chunkpass/internal/bundler"
	"github.com/chunkpass/chunkpass/internal/config"
	"github.com/chunkpass/chunkpass/internal/graph"
	"github.com/chunkpass/chunkpass/internal/helpers"
	"github.com/chunkpass/chunkpass/internal/js_ast"
	"github.com/chunkpass/chunkpass/internal/logger"
	"github.com/chunkpass/chunkpass/internal/logging"
	"github.com/chunkpass/chunkpass/internal/requires"
)

func validateColor(value StderrColor) logger.StderrColor {
	switch value {
	case ColorIfTerminal:
		return logger.ColorIfTerminal
	case ColorNever:
		return logger.ColorNever
	case ColorAlways:
		return logger.ColorAlways
	default:
		panic("Invalid color")
	}
}

func validateLogLevel(value LogLevel) logger.LogLevel {
	switch value {
	case LogLevelInfo:
		return logger.LevelInfo
	case LogLevelWarning:
		return logger.LevelWarning
	case LogLevelError:
		return logger.LevelError
	case LogLevelSilent:
		return logger.LevelSilent
	default:
		panic("Invalid log level")
	}
}

var flagNames = map[string]js_ast.Flags{
	"true":             js_ast.FlagTrue,
	"shorthand":        js_ast.FlagShorthand,
	"getter":           js_ast.FlagGetter,
	"method":           js_ast.FlagMethod,
	"resolved-require": js_ast.FlagResolvedRequire,
}

var localNames = map[string]js_ast.LocalKind{
	"":      js_ast.LocalVar,
	"var":   js_ast.LocalVar,
	"let":   js_ast.LocalLet,
	"const": js_ast.LocalConst,
}

// Converts a tree from the manifest into the form the passes work on.
// "path" names the node in error messages.
func validateTree(n Node, path string) (*js_ast.Node, error) {
	kind, ok := js_ast.KindFromString(n.Kind)
	if !ok {
		return nil, fmt.Errorf("%s: unknown node kind %q", path, n.Kind)
	}
	local, ok := localNames[n.Local]
	if !ok {
		return nil, fmt.Errorf("%s: unknown declaration kind %q", path, n.Local)
	}

	node := js_ast.NewNode(kind)
	node.Text = n.Text
	node.Alias = n.Alias
	node.Number = n.Number
	node.Local = local
	node.Loc = logger.Loc{Start: n.Start}
	for _, name := range n.Flags {
		flag, ok := flagNames[name]
		if !ok {
			return nil, fmt.Errorf("%s: unknown flag %q", path, name)
		}
		node.Flags |= flag
	}

	for i, child := range n.Children {
		childNode, err := validateTree(child, fmt.Sprintf("%s.children[%d]", path, i))
		if err != nil {
			return nil, err
		}
		node.AppendChild(childNode)
	}
	if err := js_ast.CheckShape(node); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return node, nil
}

func validateResolutions(resolutions map[string]map[string]Resolution) (requires.Table, error) {
	table := requires.Table{}
	for _, unit := range helpers.SortedKeys(keySet(resolutions)) {
		specs := resolutions[unit]
		for _, specifier := range helpers.SortedKeys(keySet(specs)) {
			r := specs[specifier]
			set := 0
			var resolution requires.Resolution
			if r.String != "" {
				set++
				resolution = requires.String(r.String)
			}
			if r.Number != nil {
				set++
				resolution = requires.Number(*r.Number)
			}
			if r.Qualified != "" {
				set++
				resolution = requires.Qualified(r.Qualified)
			}
			if set != 1 {
				return nil, fmt.Errorf("resolution of %q in %q must set exactly one of string, number or qualified", specifier, unit)
			}
			table.Add(unit, specifier, resolution)
		}
	}
	return table, nil
}

func keySet[T any](m map[string]T) map[string]bool {
	set := make(map[string]bool, len(m))
	for key := range m {
		set[key] = true
	}
	return set
}

func validateManifest(manifest Manifest) ([]*graph.Chunk, error) {
	chunks := make([]*graph.Chunk, 0, len(manifest.Chunks))
	seen := make(map[string]bool)
	for _, c := range manifest.Chunks {
		chunk := &graph.Chunk{ID: c.ID, Deps: c.Deps}
		for _, u := range c.Units {
			if u.Path == "" {
				return nil, fmt.Errorf("chunk %q has a unit without a path", c.ID)
			}
			if seen[u.Path] {
				return nil, fmt.Errorf("unit %q appears more than once", u.Path)
			}
			seen[u.Path] = true

			tree, err := validateTree(u.Tree, u.Path)
			if err != nil {
				return nil, err
			}
			if tree.Kind != js_ast.SScript {
				return nil, fmt.Errorf("%s: the tree must be an SScript node, not %s", u.Path, tree.Kind)
			}
			source := logger.Source{
				Index:      uint32(len(seen) - 1),
				KeyPath:    u.Path,
				PrettyPath: u.Path,
				Contents:   u.Contents,
			}
			chunk.AddUnit(graph.NewCompilationUnit(source, tree))
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func loadConfig(options CompileOptions) (*config.Options, error) {
	if options.ConfigFile != "" {
		return config.Load(options.ConfigFile)
	}
	if options.ConfigDir != "" {
		opts, _, err := config.Find(options.ConfigDir)
		return opts, err
	}
	return config.DefaultOptions(), nil
}

type setup struct {
	log     logger.Log
	zlog    zerolog.Logger
	options *config.Options
	chunks  []*graph.Chunk
	table   requires.Table
}

// Returns false if anything is wrong with the options or the manifest. The
// problem has been added to the log in that case.
func prepare(manifest Manifest, options CompileOptions) (setup, bool) {
	s := setup{
		log: logger.NewStderrLog(logger.OutputOptions{
			IncludeSource: true,
			ErrorLimit:    options.ErrorLimit,
			Color:         validateColor(options.Color),
			LogLevel:      validateLogLevel(options.LogLevel),
		}),
		zlog: zerolog.Nop(),
	}

	opts, err := loadConfig(options)
	if err != nil {
		s.log.AddMsg(logger.Msg{Kind: logger.Error, Text: err.Error()})
		return s, false
	}
	s.options = opts

	if options.LogLevel != LogLevelSilent {
		zlog, err := logging.New(opts.Log, os.Stderr)
		if err != nil {
			s.log.AddMsg(logger.Msg{Kind: logger.Error, Text: err.Error()})
			return s, false
		}
		s.zlog = zlog
	}

	if s.chunks, err = validateManifest(manifest); err != nil {
		s.log.AddMsg(logger.Msg{Kind: logger.Error, Text: err.Error()})
		return s, false
	}
	if s.table, err = validateResolutions(manifest.Resolutions); err != nil {
		s.log.AddMsg(logger.Msg{Kind: logger.Error, Text: err.Error()})
		return s, false
	}
	return s, true
}

func messagesOfKind(kind logger.MsgKind, msgs []logger.Msg) []Message {
	var filtered []Message
	for _, msg := range msgs {
		if msg.Kind == kind {
			var location *Location
			if loc := msg.Location; loc != nil {
				location = &Location{
					File:     loc.File,
					Line:     loc.Line,
					Column:   loc.Column,
					Length:   loc.Length,
					LineText: loc.LineText,
				}
			}
			filtered = append(filtered, Message{Text: msg.Text, Location: location})
		}
	}
	return filtered
}

func compileImpl(manifest Manifest, options CompileOptions) CompileResult {
	s, ok := prepare(manifest, options)
	if !ok {
		msgs := s.log.Done()
		return CompileResult{
			Errors:   messagesOfKind(logger.Error, msgs),
			Warnings: messagesOfKind(logger.Warning, msgs),
		}
	}

	var timer *helpers.Timer
	if options.Timing {
		timer = &helpers.Timer{}
	}
	c := bundler.NewCompilation(s.options, s.log, s.zlog, timer, s.chunks)
	err := c.Run(s.table)

	var result CompileResult
	if err == nil {
		result = compileResult(c, options)
	} else if !s.log.HasErrors() {
		s.log.AddMsg(logger.Msg{Kind: logger.Error, Text: err.Error()})
	}

	msgs := s.log.Done()
	result.Errors = messagesOfKind(logger.Error, msgs)
	result.Warnings = messagesOfKind(logger.Warning, msgs)
	return result
}

func compileResult(c *bundler.Compilation, options CompileOptions) CompileResult {
	var result CompileResult
	for _, chunk := range c.Output(options.IncludeRuntime) {
		out := OutputChunk{ID: chunk.ID, Fingerprint: chunk.Fingerprint}
		for _, unit := range chunk.Units {
			out.Units = append(out.Units, OutputUnit{
				Path:        unit.Path,
				Code:        unit.Code,
				Fingerprint: unit.Fingerprint,
				Changed:     unit.Changed,
			})
		}
		result.Chunks = append(result.Chunks, out)
	}
	for _, decl := range c.Hoisted().Declarations {
		result.Constants = append(result.Constants, Constant{
			Key:    decl.Key,
			Chunk:  decl.Chunk,
			Unit:   decl.Unit,
			UsedIn: decl.UsedIn,
		})
	}
	classification := c.Classification()
	result.DeadRequires = classification.Dead
	result.AliveRequires = classification.Alive
	result.Survivors = c.Survivors()
	result.ChangedScopes = c.Changes().Len()
	return result
}

func inspectImpl(manifest Manifest, options CompileOptions) InspectResult {
	s, ok := prepare(manifest, options)
	var result InspectResult
	if ok {
		c := bundler.NewCompilation(s.options, s.log, s.zlog, nil, s.chunks)
		if err := c.Inspect(); err == nil {
			for _, info := range c.Infos() {
				unit := UnitInfo{
					Path:              info.Path,
					Requires:          info.Requires,
					Imports:           info.Imports,
					DynamicImports:    info.DynamicImports,
					ESM:               info.ESM,
					UsesGlobalBuffer:  info.UsesGlobalBuffer,
					UsesGlobalProcess: info.UsesGlobalProcess,
				}
				for _, loc := range info.InvalidRequires {
					unit.InvalidRequires = append(unit.InvalidRequires, Location{
						File:     loc.File,
						Line:     loc.Line,
						Column:   loc.Column,
						LineText: loc.LineText,
					})
				}
				result.Units = append(result.Units, unit)
			}
		}
	}

	msgs := s.log.Done()
	result.Errors = messagesOfKind(logger.Error, msgs)
	result.Warnings = messagesOfKind(logger.Warning, msgs)
	return result
}
