package logger

// Diagnostics are formatted like clang's error output: the file, line and
// column, the message, then the offending source line with a marker under
// the range that caused the message. Passes never print directly. They add
// messages to a Log and the caller decides whether to print them now, later,
// or never.

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Done      func() []Msg
}

type LogLevel int8

const (
	LevelNone LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelSilent
)

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
	Info
)

func (kind MsgKind) String() string {
	switch kind {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		panic("Internal error")
	}
}

type Msg struct {
	Kind     MsgKind
	Text     string
	Location *MsgLocation
	Notes    []MsgData
}

type MsgData struct {
	Text     string
	Location *MsgLocation
}

type MsgLocation struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Loc struct {
	// This is the 0-based index of this location from the start of the file, in bytes
	Start int32
}

type Range struct {
	Loc Loc
	Len int32
}

// Source is one compilation unit as the outer build sees it. The contents
// are optional: trees handed to the passes may come from a cache without the
// original text, in which case messages carry a file name but no source line.
type Source struct {
	Index uint32

	// Stable identifier of the unit, for example "shadow/cljs/constants/app.js"
	// or "node_modules/react/index.js". Constant placement looks at the prefix
	// of this path to find a chunk's constants unit.
	KeyPath string

	// Path shown to the user in messages.
	PrettyPath string

	Contents string
}

// This type is just so we can use Go's native sort function
type msgsArray []Msg

func (a msgsArray) Len() int          { return len(a) }
func (a msgsArray) Swap(i int, j int) { a[i], a[j] = a[j], a[i] }

func (a msgsArray) Less(i int, j int) bool {
	li := a[i].Location
	lj := a[j].Location

	if (li == nil) != (lj == nil) {
		return li == nil
	}
	if li != nil {
		if li.File != lj.File {
			return li.File < lj.File
		}
		if li.Line != lj.Line {
			return li.Line < lj.Line
		}
		if li.Column != lj.Column {
			return li.Column < lj.Column
		}
	}
	if a[i].Kind != a[j].Kind {
		return a[i].Kind < a[j].Kind
	}
	return a[i].Text < a[j].Text
}

type TerminalInfo struct {
	IsTTY           bool
	UseColorEscapes bool
	Width           int
	Height          int
}

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type OutputOptions struct {
	IncludeSource bool
	ErrorLimit    int
	Color         StderrColor
	LogLevel      LogLevel
}

func NewStderrLog(options OutputOptions) Log {
	terminalInfo := GetTerminalInfo(os.Stderr)
	switch options.Color {
	case ColorNever:
		terminalInfo.UseColorEscapes = false
	case ColorAlways:
		terminalInfo.UseColorEscapes = SupportsColorEscapes
	}
	return newStreamLog(options, terminalInfo, func(text string) {
		writeStringWithColor(os.Stderr, text)
	})
}

// NewWriterLog is like NewStderrLog but never uses color. Tests use it to
// check the rendered form of messages.
func NewWriterLog(w io.Writer, options OutputOptions) Log {
	return newStreamLog(options, TerminalInfo{}, func(text string) {
		io.WriteString(w, text)
	})
}

func newStreamLog(options OutputOptions, terminalInfo TerminalInfo, write func(string)) Log {
	var mutex sync.Mutex
	var msgs msgsArray
	errors := 0
	warnings := 0
	errorLimitWasHit := false

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			msgs = append(msgs, msg)

			// Be silent if we're past the limit so we don't flood the terminal
			if errorLimitWasHit {
				return
			}

			switch msg.Kind {
			case Error:
				errors++
				if options.LogLevel <= LevelError {
					write(msg.String(options, terminalInfo))
				}
			case Warning:
				warnings++
				if options.LogLevel <= LevelWarning {
					write(msg.String(options, terminalInfo))
				}
			case Info:
				if options.LogLevel <= LevelInfo {
					write(msg.String(options, terminalInfo))
				}
			}

			if options.ErrorLimit != 0 && errors >= options.ErrorLimit {
				errorLimitWasHit = true
				if options.LogLevel <= LevelError {
					write(fmt.Sprintf("%s reached (disable error limit with --error-limit=0)\n",
						errorAndWarningSummary(errors, warnings)))
				}
			}
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return errors > 0
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			if !errorLimitWasHit && options.LogLevel <= LevelInfo && (warnings != 0 || errors != 0) {
				write(fmt.Sprintf("%s\n", errorAndWarningSummary(errors, warnings)))
			}
			sort.Stable(msgs)
			return msgs
		},
	}
}

func NewDeferLog() Log {
	var msgs msgsArray
	var mutex sync.Mutex
	var hasErrors bool

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			if msg.Kind == Error {
				hasErrors = true
			}
			msgs = append(msgs, msg)
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return hasErrors
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			sort.Stable(msgs)
			return msgs
		},
	}
}

func plural(prefix string, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, prefix)
	}
	return fmt.Sprintf("%d %ss", count, prefix)
}

func errorAndWarningSummary(errors int, warnings int) string {
	switch {
	case errors == 0:
		return plural("warning", warnings)
	case warnings == 0:
		return plural("error", errors)
	default:
		return fmt.Sprintf("%s and %s", plural("warning", warnings), plural("error", errors))
	}
}

const colorReset = "\033[0m"
const colorRed = "\033[31m"
const colorGreen = "\033[32m"
const colorBlue = "\033[34m"
const colorMagenta = "\033[35m"
const colorBold = "\033[1m"
const colorResetBold = "\033[0;1m"

func (msg Msg) String(options OutputOptions, terminalInfo TerminalInfo) string {
	kindColor := colorRed
	switch msg.Kind {
	case Warning:
		kindColor = colorMagenta
	case Info:
		kindColor = colorBlue
	}

	sb := strings.Builder{}
	sb.WriteString(renderLine(msg.Kind.String(), kindColor, msg.Text, msg.Location, options, terminalInfo))
	for _, note := range msg.Notes {
		sb.WriteString(renderLine("note", colorBold, note.Text, note.Location, options, terminalInfo))
	}
	return sb.String()
}

func renderLine(kind string, kindColor string, text string, loc *MsgLocation, options OutputOptions, terminalInfo TerminalInfo) string {
	colors := terminalInfo.UseColorEscapes

	if loc == nil {
		if colors {
			return fmt.Sprintf("%s%s%s: %s%s%s\n", colorBold, kindColor, kind, colorResetBold, text, colorReset)
		}
		return fmt.Sprintf("%s: %s\n", kind, text)
	}

	if !options.IncludeSource || loc.LineText == "" {
		if colors {
			return fmt.Sprintf("%s%s:%d:%d: %s%s: %s%s%s\n",
				colorBold, loc.File, loc.Line, loc.Column,
				kindColor, kind,
				colorResetBold, text, colorReset)
		}
		return fmt.Sprintf("%s:%d:%d: %s: %s\n", loc.File, loc.Line, loc.Column, kind, text)
	}

	lineText, indent, marker := markerForLocation(*loc, terminalInfo.Width)
	if colors {
		return fmt.Sprintf("%s%s:%d:%d: %s%s: %s%s%s\n%s\n%s%s%s%s\n",
			colorBold, loc.File, loc.Line, loc.Column,
			kindColor, kind,
			colorResetBold, text, colorReset,
			lineText,
			colorGreen, indent, marker, colorReset)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s\n%s\n%s%s\n",
		loc.File, loc.Line, loc.Column, kind, text, lineText, indent, marker)
}

// Only the first line of the line text is shown, clipped to the terminal
// width around the marker.
func markerForLocation(loc MsgLocation, width int) (lineText string, indent string, marker string) {
	lineText = loc.LineText
	if i := strings.IndexAny(lineText, "\r\n"); i != -1 {
		lineText = lineText[:i]
	}
	lineText = strings.ReplaceAll(lineText, "\t", "  ")

	column := loc.Column
	if column < 0 {
		column = 0
	}
	if column > len(lineText) {
		column = len(lineText)
	}
	length := loc.Length
	if length < 1 {
		length = 1
	}
	if column+length > len(lineText) && column < len(lineText) {
		length = len(lineText) - column
	}

	if width < 1 {
		width = 80
	}
	if len(lineText) > width {
		start := column - width/5
		if start < 0 {
			start = 0
		}
		if start > len(lineText)-width {
			start = len(lineText) - width
		}
		lineText = lineText[start : start+width]
		column -= start
		if column+length > len(lineText) {
			length = len(lineText) - column
		}
		if length < 1 {
			length = 1
		}
	}

	indent = strings.Repeat(" ", column)
	marker = "^"
	if length > 1 {
		marker = strings.Repeat("~", length)
	}
	return
}

func computeLineAndColumn(contents string, offset int) (lineCount int, columnCount int, lineStart int, lineEnd int) {
	var prevCodePoint rune
	if offset > len(contents) {
		offset = len(contents)
	}

	for i, codePoint := range contents[:offset] {
		switch codePoint {
		case '\n':
			lineStart = i + 1
			if prevCodePoint != '\r' {
				lineCount++
			}
		case '\r':
			lineStart = i + 1
			lineCount++
		case '\u2028', '\u2029':
			lineStart = i + 3 // These take three bytes to encode in UTF-8
			lineCount++
		}
		prevCodePoint = codePoint
	}

	lineEnd = len(contents)
	if i := strings.IndexAny(contents[offset:], "\r\n\u2028\u2029"); i != -1 {
		lineEnd = offset + i
	}

	columnCount = offset - lineStart
	return
}

func LocationOrNil(source *Source, r Range) *MsgLocation {
	if source == nil {
		return nil
	}

	if source.Contents == "" {
		return &MsgLocation{File: source.PrettyPath, Line: 1, Column: int(r.Loc.Start)}
	}

	lineCount, columnCount, lineStart, lineEnd := computeLineAndColumn(source.Contents, int(r.Loc.Start))
	return &MsgLocation{
		File:     source.PrettyPath,
		Line:     lineCount + 1,
		Column:   columnCount,
		Length:   int(r.Len),
		LineText: source.Contents[lineStart:lineEnd],
	}
}

func (log Log) AddError(source *Source, loc Loc, text string) {
	log.AddMsg(Msg{
		Kind:     Error,
		Text:     text,
		Location: LocationOrNil(source, Range{Loc: loc}),
	})
}

func (log Log) AddWarning(source *Source, loc Loc, text string) {
	log.AddMsg(Msg{
		Kind:     Warning,
		Text:     text,
		Location: LocationOrNil(source, Range{Loc: loc}),
	})
}

func (log Log) AddErrorWithNotes(source *Source, loc Loc, text string, notes []MsgData) {
	log.AddMsg(Msg{
		Kind:     Error,
		Text:     text,
		Location: LocationOrNil(source, Range{Loc: loc}),
		Notes:    notes,
	})
}
