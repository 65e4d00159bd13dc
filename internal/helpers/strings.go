package helpers

import (
	"fmt"
	"sort"
	"strings"
)

func StringArrayToQuotedCommaSeparatedString(a []string) string {
	sb := strings.Builder{}
	for i, str := range a {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%q", str))
	}
	return sb.String()
}

// Returns the keys of a set in ascending order
func SortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
