package api

type Location struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Message struct {
	Text     string
	Location *Location
}

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type LogLevel uint8

const (
	LogLevelSilent LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

////////////////////////////////////////////////////////////////////////////////
// Input

// A parsed tree in a form that can be written by hand or produced by another
// tool. "Kind" is a node kind name such as "ECall" or "SLocal".
type Node struct {
	Kind     string   `yaml:"kind" json:"kind"`
	Text     string   `yaml:"text,omitempty" json:"text,omitempty"`
	Alias    string   `yaml:"alias,omitempty" json:"alias,omitempty"`
	Number   float64  `yaml:"number,omitempty" json:"number,omitempty"`
	Local    string   `yaml:"local,omitempty" json:"local,omitempty"`
	Flags    []string `yaml:"flags,omitempty" json:"flags,omitempty"`
	Start    int32    `yaml:"start,omitempty" json:"start,omitempty"`
	Children []Node   `yaml:"children,omitempty" json:"children,omitempty"`
}

type Unit struct {
	Path string `yaml:"path" json:"path"`

	// The original source text. It is only used to show the offending line
	// in error messages.
	Contents string `yaml:"contents,omitempty" json:"contents,omitempty"`

	// Must be an "SScript" node
	Tree Node `yaml:"tree" json:"tree"`
}

type Chunk struct {
	ID    string   `yaml:"id" json:"id"`
	Deps  []string `yaml:"deps,omitempty" json:"deps,omitempty"`
	Units []Unit   `yaml:"units" json:"units"`
}

// Exactly one of the fields is set
type Resolution struct {
	String    string   `yaml:"string,omitempty" json:"string,omitempty"`
	Number    *float64 `yaml:"number,omitempty" json:"number,omitempty"`
	Qualified string   `yaml:"qualified,omitempty" json:"qualified,omitempty"`
}

type Manifest struct {
	Chunks []Chunk `yaml:"chunks" json:"chunks"`

	// Unit path to specifier to resolution
	Resolutions map[string]map[string]Resolution `yaml:"resolutions,omitempty" json:"resolutions,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// Compile API

type CompileOptions struct {
	Color      StderrColor
	ErrorLimit int
	LogLevel   LogLevel

	// A TOML, YAML or JSON config file. When empty, "ConfigDir" is searched
	// for a "chunkpass.*" file and the defaults are used if there is none.
	ConfigFile string
	ConfigDir  string

	// Print the runtime helpers before the first chunk
	IncludeRuntime bool

	// Log the time each pass took
	Timing bool
}

type CompileResult struct {
	Errors   []Message
	Warnings []Message

	Chunks    []OutputChunk
	Constants []Constant

	// Require ids that no remaining code needs, and ids that are still used
	DeadRequires  []string
	AliveRequires []string

	// Require ids still present in each unit after all passes
	Survivors map[string][]string

	// Number of distinct scopes changed by the passes
	ChangedScopes int
}

type OutputChunk struct {
	ID          string
	Fingerprint string
	Units       []OutputUnit
}

type OutputUnit struct {
	Path        string
	Code        string
	Fingerprint string
	Changed     bool
}

type Constant struct {
	Key    string
	Chunk  string
	Unit   string
	UsedIn []string
}

func Compile(manifest Manifest, options CompileOptions) CompileResult {
	return compileImpl(manifest, options)
}

////////////////////////////////////////////////////////////////////////////////
// Inspect API

type InspectResult struct {
	Errors   []Message
	Warnings []Message

	Units []UnitInfo
}

type UnitInfo struct {
	Path              string
	Requires          []string
	Imports           []string
	DynamicImports    []string
	InvalidRequires   []Location
	ESM               bool
	UsesGlobalBuffer  bool
	UsesGlobalProcess bool
}

func Inspect(manifest Manifest, options CompileOptions) InspectResult {
	return inspectImpl(manifest, options)
}
