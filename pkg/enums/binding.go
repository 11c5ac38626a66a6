package enums

import "fmt"

// Binding is the physical binding style of a print product.
type Binding string

const (
	BindingCase         Binding = "case"
	BindingPUR          Binding = "pur"
	BindingSaddleStitch Binding = "saddle_stitch"
	BindingWire         Binding = "wire"
)

var validBindings = []Binding{
	BindingCase,
	BindingPUR,
	BindingSaddleStitch,
	BindingWire,
}

// String implements fmt.Stringer.
func (b Binding) String() string {
	return string(b)
}

// IsValid reports whether the value is a known Binding.
func (b Binding) IsValid() bool {
	for _, candidate := range validBindings {
		if candidate == b {
			return true
		}
	}
	return false
}

// MinInteriorPages is the fewest interior pages the binding can hold.
func (b Binding) MinInteriorPages() int {
	if b == BindingCase {
		return 24
	}
	return 8
}

// ParseBinding converts raw input into a Binding.
func ParseBinding(value string) (Binding, error) {
	for _, candidate := range validBindings {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid binding %q", value)
}
