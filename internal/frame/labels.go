package frame

import (
	"errors"
	"fmt"
)

// Labels is a one-to-one mapping from source series codes to display names.
type Labels struct {
	codes []string
	names []string
}

// NewLabels pairs codes with names positionally. Both sides must be the
// same length, non-empty and free of duplicates, so the mapping is a
// bijection over exactly the given codes.
func NewLabels(codes, names []string) (Labels, error) {
	if len(codes) == 0 {
		return Labels{}, errors.New("labels: no series codes")
	}
	if len(codes) != len(names) {
		return Labels{}, fmt.Errorf("labels: %d codes but %d names", len(codes), len(names))
	}
	if err := checkNames(codes); err != nil {
		return Labels{}, fmt.Errorf("labels: codes: %w", err)
	}
	if err := checkNames(names); err != nil {
		return Labels{}, fmt.Errorf("labels: names: %w", err)
	}
	l := Labels{
		codes: make([]string, len(codes)),
		names: make([]string, len(names)),
	}
	copy(l.codes, codes)
	copy(l.names, names)
	return l, nil
}

// Codes returns the series codes in order.
func (l Labels) Codes() []string { return append([]string(nil), l.codes...) }

// Names returns the display names in order.
func (l Labels) Names() []string { return append([]string(nil), l.names...) }

// Len returns the number of pairs.
func (l Labels) Len() int { return len(l.codes) }

// Map returns the code to name mapping, suitable for Table.Rename.
func (l Labels) Map() map[string]string {
	m := make(map[string]string, len(l.codes))
	for i, code := range l.codes {
		m[code] = l.names[i]
	}
	return m
}

// Label returns the display name for code.
func (l Labels) Label(code string) (string, bool) {
	for i, c := range l.codes {
		if c == code {
			return l.names[i], true
		}
	}
	return "", false
}
