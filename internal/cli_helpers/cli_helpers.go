// This package contains internal CLI-related code that must be shared with
// other internal code outside of the CLI package.

package cli_helpers

import (
	"fmt"

	"github.com/chunkpass/chunkpass/pkg/api"
)

type ErrorWithNote struct {
	Text string
	Note string
}

func MakeErrorWithNote(text string, note string) *ErrorWithNote {
	return &ErrorWithNote{
		Text: text,
		Note: note,
	}
}

func (e *ErrorWithNote) Error() string {
	if e.Note == "" {
		return e.Text
	}
	return e.Text + " (" + e.Note + ")"
}

func ParseColor(text string) (api.StderrColor, *ErrorWithNote) {
	switch text {
	case "auto":
		return api.ColorIfTerminal, nil
	case "always":
		return api.ColorAlways, nil
	case "never":
		return api.ColorNever, nil
	default:
		return api.ColorIfTerminal, MakeErrorWithNote(
			fmt.Sprintf("Invalid color value: %q", text),
			"Valid values are \"auto\", \"always\", or \"never\".",
		)
	}
}

func ParseLogLevel(text string) (api.LogLevel, *ErrorWithNote) {
	switch text {
	case "silent":
		return api.LogLevelSilent, nil
	case "info":
		return api.LogLevelInfo, nil
	case "warning":
		return api.LogLevelWarning, nil
	case "error":
		return api.LogLevelError, nil
	default:
		return api.LogLevelSilent, MakeErrorWithNote(
			fmt.Sprintf("Invalid log level value: %q", text),
			"Valid values are \"silent\", \"info\", \"warning\", or \"error\".",
		)
	}
}
