package scanner

import (
	"fmt"
	"strings"
)

// MatchMode is a set of match predicates. Active predicates are combined with
// logical OR: an element matches when any of them holds.
type MatchMode uint8

const (
	// ModeContains is a case-sensitive substring test on the element's own text.
	ModeContains MatchMode = 1 << iota
	// ModeExact requires the element's own text to equal the search text.
	ModeExact
	// ModeCaseInsensitive is a case-folded substring test on own text.
	ModeCaseInsensitive
	// ModeAttribute tests every attribute value for a case-sensitive substring.
	ModeAttribute
)

// DefaultMode is used when no mode is selected.
const DefaultMode = ModeContains

var modeNames = []struct {
	mode MatchMode
	name string
}{
	{ModeExact, "exact"},
	{ModeContains, "contains"},
	{ModeCaseInsensitive, "case-insensitive"},
	{ModeAttribute, "attribute"},
}

var modeAliases = map[string]MatchMode{
	"exact":            ModeExact,
	"contains":         ModeContains,
	"case-insensitive": ModeCaseInsensitive,
	"icase":            ModeCaseInsensitive,
	"ignore-case":      ModeCaseInsensitive,
	"attribute":        ModeAttribute,
	"attr":             ModeAttribute,
}

// Has reports whether every flag in f is set.
func (m MatchMode) Has(f MatchMode) bool {
	return f != 0 && m&f == f
}

func (m MatchMode) String() string {
	var names []string
	for _, mn := range modeNames {
		if m&mn.mode != 0 {
			names = append(names, mn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// MarshalText implements encoding.TextMarshaler.
func (m MatchMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts the
// "+"-joined form produced by String.
func (m *MatchMode) UnmarshalText(text []byte) error {
	parsed, err := ParseModes(strings.Split(string(text), "+"))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseModes turns mode names into a MatchMode. Names may also be comma
// separated within one entry. An empty list yields DefaultMode.
func ParseModes(names []string) (MatchMode, error) {
	var m MatchMode
	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			mode, ok := modeAliases[name]
			if !ok {
				return 0, fmt.Errorf("%w: unknown match mode %q", ErrInvalidInput, name)
			}
			m |= mode
		}
	}
	if m == 0 {
		return DefaultMode, nil
	}
	return m, nil
}
