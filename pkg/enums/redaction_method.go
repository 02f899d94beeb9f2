package enums

import "fmt"

// RedactionMethod describes how confirmed PII regions are obscured.
type RedactionMethod string

const (
	RedactionMethodBlack RedactionMethod = "black"
	RedactionMethodBlur  RedactionMethod = "blur"
)

var validRedactionMethods = []RedactionMethod{
	RedactionMethodBlack,
	RedactionMethodBlur,
}

// IsValid reports whether the value matches the canonical redaction method enum.
func (r RedactionMethod) IsValid() bool {
	for _, candidate := range validRedactionMethods {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRedactionMethod converts the raw string to RedactionMethod.
func ParseRedactionMethod(value string) (RedactionMethod, error) {
	for _, candidate := range validRedactionMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid redaction method %q", value)
}
