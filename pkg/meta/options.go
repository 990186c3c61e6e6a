package meta

// How a callable or accessor returns its result.
type ResultPolicy uint8

const (
	// AsCopy returns a copy of the result, copying the referent of reference
	// results.
	AsCopy ResultPolicy = iota
	// AsPointer returns reference results and member accesses as pointers.
	AsPointer
	// AsReferenceWrapper returns reference results and member accesses as
	// reference values.
	AsReferenceWrapper
	// DiscardReturn drops the result.
	DiscardReturn
)

func (p ResultPolicy) String() string {
	switch p {
	case AsPointer:
		return "as_pointer"
	case AsReferenceWrapper:
		return "as_reference_wrapper"
	case DiscardReturn:
		return "discard_return"
	default:
		return "as_copy"
	}
}

type options struct {
	policy   ResultPolicy
	names    []string
	noexcept bool
	readonly bool
}

// Option for a registered callable, member, or variable.
type Option func(*options)

func WithPolicy(policy ResultPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// Arguments names the arguments of a callable, in order.
func Arguments(names ...string) Option {
	return func(o *options) {
		o.names = names
	}
}

func Noexcept() Option {
	return func(o *options) {
		o.noexcept = true
	}
}

// Readonly registers a member or variable that cannot be set.
func Readonly() Option {
	return func(o *options) {
		o.readonly = true
	}
}

func newOptions(opts []Option) options {
	out := options{}
	for _, it := range opts {
		it(&out)
	}
	return out
}

// Argument of a registered callable.
type Argument struct {
	Position int
	Name     string
	Type     AnyType
}

func (o options) arguments(sig *signature) []Argument {
	out := make([]Argument, len(sig.params))
	for i, it := range sig.params {
		out[i] = Argument{Position: i, Type: AnyType{typeHandle{it.data}}}
		if i < len(o.names) {
			out[i].Name = o.names[i]
		}
	}
	return out
}
