package heuristics

import (
	"context"
	"fmt"
	"regexp"
	"unicode"

	"github.com/cruxstack/disposable-email-checker-go/internal/types"
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// FormatCheck requires a user@host.tld shape and a local part in which digits
// make up at most half of the characters.
type FormatCheck struct{}

func (c *FormatCheck) Name() string {
	return NameFormat
}

func (c *FormatCheck) Run(ctx context.Context, addr types.Address) types.CheckResult {
	if !emailPattern.MatchString(addr.Raw) {
		return fail(NameFormat, "Invalid email format", nil)
	}

	digits, total := 0, 0
	for _, r := range addr.Local {
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}

	if 2*digits > total {
		return fail(NameFormat, fmt.Sprintf("Local part is numeric heavy (%d of %d characters are digits)", digits, total), nil)
	}

	return pass(NameFormat, "Valid format and non-numeric local part")
}
