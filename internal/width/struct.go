package width

// Member is one named field of a struct.
type Member struct {
	Name  string
	Width Descriptor
}

// Struct is a named composite type. It is never modified after it is
// built.
type Struct struct {
	Namespace string
	Name      string
	Members   []Member
}

// NewStruct builds a struct type with members in declaration order.
func NewStruct(namespace, name string, members ...Member) *Struct {
	return &Struct{Namespace: namespace, Name: name, Members: append([]Member(nil), members...)}
}

// QualifiedName returns "ns.name" for global structs and "name" otherwise.
func (s *Struct) QualifiedName() string {
	if s == nil {
		return "?"
	}
	if s.Namespace == "" {
		return s.Name
	}
	return s.Namespace + "." + s.Name
}

// Member looks up a member by name.
func (s *Struct) Member(name string) (Descriptor, bool) {
	if s == nil {
		return Descriptor{}, false
	}
	for _, m := range s.Members {
		if m.Name == name {
			return m.Width, true
		}
	}
	return Descriptor{}, false
}

// Bits is the sum of the member widths.
func (s *Struct) Bits() (int, bool) {
	if s == nil {
		return 0, false
	}
	total := 0
	for _, m := range s.Members {
		b, ok := m.Width.Bits()
		if !ok {
			return 0, false
		}
		total += b
	}
	return total, true
}

// Equal compares two struct types by name and member shape.
func (s *Struct) Equal(o *Struct) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	if s.QualifiedName() != o.QualifiedName() || len(s.Members) != len(o.Members) {
		return false
	}
	for i, m := range s.Members {
		if m.Name != o.Members[i].Name || !m.Width.Equal(o.Members[i].Width) {
			return false
		}
	}
	return true
}
