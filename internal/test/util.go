package test

import (
	"os"
	"testing"

	"github.com/chunkpass/chunkpass/internal/logger"
)

func AssertEqual(t *testing.T, observed interface{}, expected interface{}) {
	t.Helper()
	if observed != expected {
		t.Fatalf("%s != %s", observed, expected)
	}
}

// Prints a line-by-line diff on failure, which is much easier to read than
// two long strings when comparing printed code
func AssertEqualWithDiff(t *testing.T, observed string, expected string) {
	t.Helper()
	if observed != expected {
		useColor := logger.GetTerminalInfo(os.Stdout).UseColorEscapes
		t.Fatal("\n" + Diff(expected, observed, useColor))
	}
}

func SourceForTest(path string, contents string) logger.Source {
	return logger.Source{
		KeyPath:    path,
		PrettyPath: path,
		Contents:   contents,
	}
}
