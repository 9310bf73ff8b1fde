package dataset

import "fmt"

// Kind is the storage type of a column.
type Kind int

const (
	Float Kind = iota
	Int
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Int:
		return "int"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Schema describes the structure of a dataset.
type Schema struct {
	Names []string
	Kinds []Kind
}

// Equal reports whether two schemas have the same columns in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.Names) != len(o.Names) || len(s.Kinds) != len(o.Kinds) {
		return false
	}
	for i := range s.Names {
		if s.Names[i] != o.Names[i] || s.Kinds[i] != o.Kinds[i] {
			return false
		}
	}
	return true
}
