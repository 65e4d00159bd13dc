package ast

// This file contains the per-unit import and export bookkeeping shared by the
// passes. Records are collected while a unit is lowered or inspected and are
// only meaningful for that one unit.

import (
	"sort"

	"github.com/chunkpass/chunkpass/internal/logger"
)

type ImportKind uint8

const (
	// An ES6 import statement
	ImportStmt ImportKind = iota

	// An "export ... from" or "export * from" statement
	ImportReExport

	// A call to "require()"
	ImportRequire

	// An "import()" expression with a string argument
	ImportDynamic
)

func (kind ImportKind) String() string {
	switch kind {
	case ImportStmt:
		return "import-statement"
	case ImportReExport:
		return "re-export"
	case ImportRequire:
		return "require-call"
	case ImportDynamic:
		return "dynamic-import"
	default:
		panic("Internal error")
	}
}

func (kind ImportKind) IsStatic() bool {
	return kind == ImportStmt || kind == ImportReExport
}

type ImportRecordFlags uint8

const (
	// The import contains syntax like "* as ns"
	ContainsImportStar ImportRecordFlags = 1 << iota

	// The import contains an import for the alias "default", either via the
	// "import x from" or "import {default as x} from" syntax
	ContainsDefaultAlias

	// This was originally written as a bare "import 'file'" statement
	WasOriginallyBareImport

	// This "export * from 'path'" statement is evaluated at run-time by
	// calling the "require.exportCopy()" helper function
	CallsRunTimeReExportFn
)

func (flags ImportRecordFlags) Has(flag ImportRecordFlags) bool {
	return (flags & flag) != 0
}

type ImportRecord struct {
	Specifier string
	Range     logger.Range

	// The name the module object is bound to, such as "require$react"
	Alias string

	// The name the default-unwrapped module is bound to, or "" if the unit
	// never imports "default" from this specifier
	DefaultAlias string

	Flags ImportRecordFlags
	Kind  ImportKind
}

// Maps one exported name to the expression that reads its current value.
// "Local" is a qualified name such as "x" or "require$m.x".
type ExportRecord struct {
	Local    string
	Exported string
	Loc      logger.Loc
}

// Exports are defined in code point order of their exported name so output
// doesn't depend on the order of the export statements
func SortExports(exports []ExportRecord) {
	sort.SliceStable(exports, func(i int, j int) bool {
		return exports[i].Exported < exports[j].Exported
	})
}
