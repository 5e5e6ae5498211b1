package resolver

import "fmt"

type prefixState int

const (
	prefixUnset prefixState = iota
	prefixExplicit
	prefixResolved
)

// DefaultPrefix is used when neither the project spec nor its manifest names
// a component library.
const DefaultPrefix = "pkg"

// Prefix is the package prefix of a project. It starts either Unset or
// Explicit; loading turns Unset into Resolved, so a loaded project always has
// a value.
type Prefix struct {
	state prefixState
	value string
}

func ExplicitPrefix(value string) Prefix {
	return Prefix{state: prefixExplicit, value: value}
}

func resolvedPrefix(value string) Prefix {
	return Prefix{state: prefixResolved, value: value}
}

// Value returns the prefix and whether it is known yet.
func (p Prefix) Value() (string, bool) {
	if p.state == prefixUnset {
		return "", false
	}
	return p.value, true
}

func (p Prefix) IsExplicit() bool {
	return p.state == prefixExplicit
}

func (p Prefix) String() string {
	switch p.state {
	case prefixExplicit:
		return fmt.Sprintf("explicit(%s)", p.value)
	case prefixResolved:
		return fmt.Sprintf("resolved(%s)", p.value)
	default:
		return "unset"
	}
}
