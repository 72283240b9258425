package command

import (
	"strings"

	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// --------------------------------------------------------------------------
// Descriptor
// --------------------------------------------------------------------------

// Descriptor is the ordered argument list of one command invocation.
// Element 0 is the command name, the remaining elements are the arguments in the
// documented order of the command. A descriptor built by Build or Custom is never empty.
type Descriptor []value.Value

// Name returns the upper-cased command name
func (d Descriptor) Name() string {
	if len(d) == 0 {
		return ""
	}
	return strings.ToUpper(d[0].Raw())
}

// Args returns the arguments without the command name
func (d Descriptor) Args() []value.Value {
	if len(d) == 0 {
		return nil
	}
	return d[1:]
}

// Size returns the number of payload bytes of all elements
func (d Descriptor) Size() int {
	n := 0
	for _, v := range d {
		n += v.Len()
	}
	return n
}

// String returns a display form like `SET "k" "v"`
func (d Descriptor) String() string {
	var sb strings.Builder
	for i, v := range d {
		if i == 0 {
			sb.WriteString(v.String())
			continue
		}
		sb.WriteString(" \"")
		sb.WriteString(v.String())
		sb.WriteString("\"")
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// Builder
// --------------------------------------------------------------------------

// Build creates the descriptor of a catalog command and validates its shape.
// It fails with an ArgumentError for unknown commands, a wrong number of arguments,
// empty keys and incomplete field/value pairs.
//
// Build is pure and may be called concurrently.
func Build(name string, args ...value.Value) (Descriptor, error) {
	spec, ok := Lookup(name)
	if !ok {
		if name == "" {
			return nil, common.NewArgumentError("empty command name")
		}
		return nil, common.NewArgumentError("unknown command '%s'", name)
	}

	n := len(args) + 1
	if !spec.CheckArity(n) {
		return nil, common.NewArgumentError("wrong number of arguments for '%s' command", spec.Name)
	}

	var err error
	spec.keyPositions(n, func(i int) {
		if err == nil && args[i-1].IsEmpty() {
			err = common.NewArgumentError("empty key at position %d for '%s' command", i, spec.Name)
		}
	})
	if err != nil {
		return nil, err
	}

	if spec.PairsFrom > 0 && (n-spec.PairsFrom)%2 != 0 {
		return nil, common.NewArgumentError("wrong number of arguments for '%s' command, expected field/value pairs", spec.Name)
	}

	desc := make(Descriptor, n)
	desc[0] = value.FromString(spec.Name)
	copy(desc[1:], args)
	return desc, nil
}

// MustBuild is like Build but panics on invalid shapes. Intended for static commands in tests.
func MustBuild(name string, args ...value.Value) Descriptor {
	desc, err := Build(name, args...)
	if err != nil {
		panic(err)
	}
	return desc
}

// Custom creates a descriptor for a command that is not part of the catalog.
// Only the presence of a command name is checked, the execution core validates the rest.
func Custom(args ...value.Value) (Descriptor, error) {
	if len(args) == 0 || args[0].IsEmpty() {
		return nil, common.NewArgumentError("empty command name")
	}
	desc := make(Descriptor, len(args))
	copy(desc, args)
	return desc, nil
}
