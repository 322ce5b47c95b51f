package policy

// ChoiceKind tells how an optional parameter was given.
type ChoiceKind int

const (
	Unset ChoiceKind = iota
	AutoDetect
	Explicit
)

func (k ChoiceKind) String() string {
	switch k {
	case AutoDetect:
		return "auto"
	case Explicit:
		return "explicit"
	default:
		return "unset"
	}
}

// Choice is a parameter that is either unset, to be detected from the
// image and output file, or given explicitly.
type Choice[T any] struct {
	kind  ChoiceKind
	value T
}

func Auto[T any]() Choice[T] {
	return Choice[T]{kind: AutoDetect}
}

func Value[T any](v T) Choice[T] {
	return Choice[T]{kind: Explicit, value: v}
}

func (c Choice[T]) Kind() ChoiceKind {
	return c.kind
}

func (c Choice[T]) IsSet() bool {
	return c.kind != Unset
}

// Get returns the explicit value.
func (c Choice[T]) Get() (T, bool) {
	return c.value, c.kind == Explicit
}
