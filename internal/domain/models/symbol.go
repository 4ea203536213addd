package models

import (
	"fmt"
	"strings"
)

// Symbol is a normalized instrument identifier (trimmed, upper-case, non-empty).
type Symbol string

// NormalizeSymbol trims and upper-cases raw input.
func NormalizeSymbol(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: symbol must be a non-empty string", ErrValidation)
	}
	return Symbol(s), nil
}

func (s Symbol) String() string { return string(s) }

// NormalizeSymbols normalizes and de-duplicates a list, keeping first-seen order.
func NormalizeSymbols(raw []string) ([]Symbol, error) {
	out := make([]Symbol, 0, len(raw))
	seen := make(map[Symbol]struct{}, len(raw))
	for _, r := range raw {
		s, err := NormalizeSymbol(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", ErrValidation)
	}
	return out, nil
}
