package source

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Behavior is a capability tag declared by an entity source.
type Behavior string

// The closed set of behaviors understood by this module.
const (
	BehaviorSelect     Behavior = "select"
	BehaviorNode       Behavior = "node"
	BehaviorInsert     Behavior = "insert"
	BehaviorUpdate     Behavior = "update"
	BehaviorDelete     Behavior = "delete"
	BehaviorList       Behavior = "list"
	BehaviorConnection Behavior = "connection"
	BehaviorJWT        Behavior = "jwt"
)

// ErrUnknownBehavior is returned by ParseBehaviors for a tag outside the enumeration.
var ErrUnknownBehavior = errors.New("unknown behavior")

var knownBehaviors = map[Behavior]struct{}{
	BehaviorSelect:     {},
	BehaviorNode:       {},
	BehaviorInsert:     {},
	BehaviorUpdate:     {},
	BehaviorDelete:     {},
	BehaviorList:       {},
	BehaviorConnection: {},
	BehaviorJWT:        {},
}

// IsValid reports whether b belongs to the enumeration.
func (b Behavior) IsValid() bool {
	_, ok := knownBehaviors[b]
	return ok
}

// BehaviorSet records which behaviors a source enables. A behavior mapped to
// false was explicitly disabled ("-update") and is treated as absent.
type BehaviorSet map[Behavior]bool

// NewBehaviorSet creates a set with the given behaviors enabled.
func NewBehaviorSet(behaviors ...Behavior) BehaviorSet {
	s := make(BehaviorSet, len(behaviors))
	for _, b := range behaviors {
		s[b] = true
	}
	return s
}

// ParseBehaviors parses a whitespace separated behavior string. A leading "+"
// enables a behavior and a leading "-" disables it; later entries win.
func ParseBehaviors(spec string) (BehaviorSet, error) {
	s := make(BehaviorSet)
	for _, field := range strings.Fields(spec) {
		enabled := true
		switch field[0] {
		case '-':
			enabled = false
			field = field[1:]
		case '+':
			field = field[1:]
		}
		b := Behavior(field)
		if !b.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBehavior, field)
		}
		s[b] = enabled
	}
	return s, nil
}

// Has reports whether b is enabled. Nil sets have no behaviors.
func (s BehaviorSet) Has(b Behavior) bool {
	return s[b]
}

// HasAll reports whether every behavior in bs is enabled.
func (s BehaviorSet) HasAll(bs ...Behavior) bool {
	for _, b := range bs {
		if !s.Has(b) {
			return false
		}
	}
	return true
}

// Enabled returns the enabled behaviors sorted by name.
func (s BehaviorSet) Enabled() []string {
	out := make([]string, 0, len(s))
	for b, on := range s {
		if on {
			out = append(out, string(b))
		}
	}
	sort.Strings(out)
	return out
}

// String renders the set in the form accepted by ParseBehaviors.
func (s BehaviorSet) String() string {
	keys := make([]string, 0, len(s))
	for b := range s {
		keys = append(keys, string(b))
	}
	sort.Strings(keys)
	for i, k := range keys {
		if !s[Behavior(k)] {
			keys[i] = "-" + k
		}
	}
	return strings.Join(keys, " ")
}
