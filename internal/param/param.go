// Package param provides the small conversion and validation helpers applied
// to notification input before display: line-break normalization for body
// text and closed-set checks for enumerated flags.
package param

import (
	"fmt"
	"regexp"
	"strings"
)

// Converter rewrites a raw parameter value into its canonical form.
type Converter interface {
	Convert(value string) (string, error)
}

// Validator checks a named parameter value and reports why it is unusable.
type Validator interface {
	Validate(name, value string) error
}

// LineBreaks normalizes line-break markup in body text. Literal `\n`
// sequences and `<br>` tags (with optional spaces and a self-closing slash)
// become CR LF pairs. Everything else passes through untouched.
type LineBreaks struct{}

var lineBreakPattern = regexp.MustCompile(`\\n|<br */?>`)

// Convert replaces every line-break marker with "\r\n".
func (LineBreaks) Convert(value string) (string, error) {
	return lineBreakPattern.ReplaceAllString(value, "\r\n"), nil
}

// None accepts every value, including the empty string. It is the default
// validator for free-form parameters such as titles and bodies.
type None struct{}

// Validate always succeeds.
func (None) Validate(name, value string) error {
	return nil
}

// OneOf accepts only values from a fixed, case-insensitive set.
type OneOf struct {
	Allowed []string
}

// Validate reports an error naming the parameter and the allowed set when
// the value is not a member. An empty value is accepted so that callers can
// apply their own defaults.
func (v OneOf) Validate(name, value string) error {
	if value == "" {
		return nil
	}
	for _, a := range v.Allowed {
		if strings.EqualFold(a, value) {
			return nil
		}
	}
	return fmt.Errorf("invalid value %q for %s (expected one of: %s)",
		value, name, strings.Join(v.Allowed, ", "))
}
