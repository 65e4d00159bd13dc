package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationOrNil(t *testing.T) {
	assert.Nil(t, LocationOrNil(nil, Range{}))

	source := &Source{PrettyPath: "a.js", Contents: "var a;\nrequire(x);\n"}
	loc := LocationOrNil(source, Range{Loc: Loc{Start: 15}, Len: 1})
	require.NotNil(t, loc)
	assert.Equal(t, MsgLocation{File: "a.js", Line: 2, Column: 8, Length: 1, LineText: "require(x);"}, *loc)

	loc = LocationOrNil(&Source{PrettyPath: "b.js"}, Range{Loc: Loc{Start: 3}})
	assert.Equal(t, MsgLocation{File: "b.js", Line: 1, Column: 3}, *loc)
}

func TestWriterLog(t *testing.T) {
	sb := &strings.Builder{}
	log := NewWriterLog(sb, OutputOptions{IncludeSource: true, LogLevel: LevelInfo})
	source := &Source{PrettyPath: "a.js", Contents: "import(x);\n"}

	log.AddWarning(source, Loc{Start: 7}, "dynamic")
	assert.False(t, log.HasErrors())
	log.AddErrorWithNotes(nil, Loc{}, "broken", []MsgData{{Text: "more detail"}})
	assert.True(t, log.HasErrors())
	msgs := log.Done()
	require.Len(t, msgs, 2)

	assert.Equal(t, "a.js:1:7: warning: dynamic\nimport(x);\n       ^\n"+
		"error: broken\nnote: more detail\n"+
		"1 warning and 1 error\n", sb.String())
}

func TestWriterLogLevel(t *testing.T) {
	sb := &strings.Builder{}
	log := NewWriterLog(sb, OutputOptions{LogLevel: LevelError})
	log.AddWarning(nil, Loc{}, "hidden")
	log.AddError(nil, Loc{}, "shown")
	log.Done()
	assert.Equal(t, "error: shown\n", sb.String())
}

func TestErrorLimit(t *testing.T) {
	sb := &strings.Builder{}
	log := NewWriterLog(sb, OutputOptions{ErrorLimit: 1, LogLevel: LevelInfo})
	log.AddError(nil, Loc{}, "first")
	log.AddError(nil, Loc{}, "second")
	assert.Len(t, log.Done(), 2)
	assert.Equal(t, "error: first\n1 error reached (disable error limit with --error-limit=0)\n", sb.String())
}

func TestDeferLogSortsMessages(t *testing.T) {
	log := NewDeferLog()
	b := &Source{PrettyPath: "b.js"}
	a := &Source{PrettyPath: "a.js"}
	log.AddError(b, Loc{Start: 1}, "b")
	log.AddWarning(a, Loc{Start: 5}, "a later")
	log.AddError(a, Loc{Start: 2}, "a")
	log.AddError(nil, Loc{}, "global")

	var texts []string
	for _, msg := range log.Done() {
		texts = append(texts, msg.Text)
	}
	assert.Equal(t, []string{"global", "a", "a later", "b"}, texts)
}

func TestMarkerIsClipped(t *testing.T) {
	line, indent, marker := markerForLocation(MsgLocation{LineText: "a\tb", Column: 1, Length: 10}, 80)
	assert.Equal(t, "a  b", line)
	assert.Equal(t, " ", indent)
	assert.Equal(t, "~~~", marker)
}
