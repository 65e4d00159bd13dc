package helpers

import "strings"

// Escapes the characters that are legal in a symbol name but not in a
// JavaScript identifier. A dash becomes an underscore, so callers that need
// "a-b" and "a_b" to stay distinct must escape dashes first.
var symbolMunger = strings.NewReplacer(
	"-", "_",
	":", "_COLON_",
	"+", "_PLUS_",
	">", "_GT_",
	"<", "_LT_",
	"=", "_EQ_",
	"~", "_TILDE_",
	"!", "_BANG_",
	"@", "_CIRCA_",
	"#", "_SHARP_",
	"'", "_SINGLEQUOTE_",
	"\"", "_DOUBLEQUOTE_",
	"%", "_PERCENT_",
	"^", "_CARET_",
	"&", "_AMPERSAND_",
	"*", "_STAR_",
	"|", "_BAR_",
	"{", "_LBRACE_",
	"}", "_RBRACE_",
	"[", "_LBRACK_",
	"]", "_RBRACK_",
	"/", "_SLASH_",
	"\\", "_BSLASH_",
	"?", "_QMARK_",
)

func MungeSymbol(name string) string {
	return symbolMunger.Replace(name)
}

// Munges a name and also escapes dots, which would otherwise turn the result
// into a property access
func MungeWithDots(name string) string {
	return strings.ReplaceAll(MungeSymbol(name), ".", "_DOT_")
}
