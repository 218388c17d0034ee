package checker

import (
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/lucid-width/internal/decls"
	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

// KindLookup classifies names declared in the module being checked.
type KindLookup interface {
	KindOf(name string) decls.Kind
}

// WidthMap maps dotted signal names of one module to their widths.
// Registers and state machines live under ".d" and ".q", inouts under
// ".enable", ".read" and ".write", and instance ports under "inst.port".
type WidthMap struct {
	entries   map[string]width.Descriptor
	instances map[string]width.Descriptor
	kinds     KindLookup
}

// NewWidthMap returns an empty map. kinds may be nil, in which case Resolve
// only finds exact names.
func NewWidthMap(kinds KindLookup) *WidthMap {
	return &WidthMap{
		entries:   make(map[string]width.Descriptor),
		instances: make(map[string]width.Descriptor),
		kinds:     kinds,
	}
}

// Put records the width of name, replacing any earlier entry.
func (m *WidthMap) Put(name string, w width.Descriptor) {
	m.entries[name] = w
}

// PutIfAbsent records the width of name unless it already has one.
func (m *WidthMap) PutIfAbsent(name string, w width.Descriptor) {
	if _, ok := m.entries[name]; !ok {
		m.entries[name] = w
	}
}

// PutInstance records the array multiplicity of a module instance.
func (m *WidthMap) PutInstance(name string, w width.Descriptor) {
	m.instances[name] = w
}

// Lookup returns the width stored under exactly name.
func (m *WidthMap) Lookup(name string) (width.Descriptor, bool) {
	w, ok := m.entries[name]
	return w, ok
}

// Resolve looks name up and, when it is not stored directly, retargets it
// to the entry that stands for the whole declaration: ".enable" for an
// inout, ".d" for a register or state machine and the instance width for a
// module instance.
func (m *WidthMap) Resolve(name string) (width.Descriptor, bool) {
	if w, ok := m.entries[name]; ok {
		return w, true
	}
	if m.kinds == nil {
		return width.Descriptor{}, false
	}
	switch m.kinds.KindOf(name) {
	case decls.KindInout:
		return m.Lookup(name + ".enable")
	case decls.KindDff, decls.KindFsm:
		return m.Lookup(name + ".d")
	case decls.KindInstance:
		w, ok := m.instances[name]
		return w, ok
	}
	return width.Descriptor{}, false
}

// Prefix finds the dotted prefix of names that names a map entry. The
// first name alone wins, then the shortest longer prefix; failing both, the
// first name is resolved through Resolve. It returns how many names the
// match covers and its width.
func (m *WidthMap) Prefix(names []string) (int, width.Descriptor, bool) {
	if len(names) == 0 {
		return 0, width.Descriptor{}, false
	}
	if w, ok := m.Lookup(names[0]); ok {
		return 1, w, true
	}
	for i := 2; i <= len(names); i++ {
		if w, ok := m.Lookup(strings.Join(names[:i], ".")); ok {
			return i, w, true
		}
	}
	if w, ok := m.Resolve(names[0]); ok {
		return 1, w, true
	}
	return 0, width.Descriptor{}, false
}

// Names returns every stored name in sorted order.
func (m *WidthMap) Names() []string {
	out := make([]string, 0, len(m.entries))
	for n := range m.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Len is the number of stored names.
func (m *WidthMap) Len() int { return len(m.entries) }
