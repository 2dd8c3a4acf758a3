package warehouse

import (
	"fmt"
	"regexp"
	"strings"
)

var unquotedIdentifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// ValidIdentifier reports whether s can be interpolated into an administrative statement as a
// single identifier. Unquoted identifiers follow Snowflake's unquoted syntax; quoted identifiers
// must be wrapped in double quotes with every inner quote doubled.
func ValidIdentifier(s string) bool {
	if unquotedIdentifierRe.MatchString(s) {
		return true
	}
	if len(s) < 3 || !strings.HasPrefix(s, `"`) || !strings.HasSuffix(s, `"`) {
		return false
	}
	inner := s[1 : len(s)-1]
	return !strings.Contains(strings.ReplaceAll(inner, `""`, ""), `"`)
}

type identifier struct {
	field string
	value string
}

// checkIdentifiers validates the non-empty identifiers in order.
func checkIdentifiers(op string, idents ...identifier) error {
	for _, id := range idents {
		if id.value == "" {
			continue
		}
		if !ValidIdentifier(id.value) {
			return NewError(ErrorKindInvalidInput, op, fmt.Errorf("invalid identifier for %s: %q", id.field, id.value))
		}
	}
	return nil
}
