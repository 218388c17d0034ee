// Package width models the shape of a Lucid signal: nested array extents,
// struct types and dimensions still waiting on parameter values.
//
// A Descriptor is an immutable value. Every operation that narrows,
// widens or retypes a descriptor returns a new one, so a descriptor stored
// in a width map can be handed to any number of readers.
package width

import (
	"errors"
	"fmt"
	"strings"
)

// FrameKind identifies what a single frame of a descriptor holds.
type FrameKind int

const (
	// FrameArray holds one or more array extents, outermost first.
	FrameArray FrameKind = iota
	// FrameStruct holds a reference to a struct type.
	FrameStruct
	// FrameText holds one dimension that still has to be resolved
	// against parameter values.
	FrameText
)

func (k FrameKind) String() string {
	switch k {
	case FrameArray:
		return "array"
	case FrameStruct:
		return "struct"
	case FrameText:
		return "text"
	}
	return "unknown"
}

// Frame is one nesting level of a descriptor.
type Frame struct {
	Kind   FrameKind
	Dims   []int
	Struct *Struct
	Text   string
}

// ErrNotSimpleArray is returned by AssertSimpleArray.
var ErrNotSimpleArray = errors.New("width is not a simple array")

// Descriptor is the shape of a signal or expression. The zero value has no
// frames and a depth of zero.
//
// Frames are kept normalised: array frames are never empty and two array
// frames are never adjacent.
type Descriptor struct {
	frames []Frame
}

// Scalar returns a one-dimensional descriptor of n bits.
func Scalar(n int) Descriptor {
	return Dims(n)
}

// Dims returns a simple array descriptor with the given extents.
func Dims(dims ...int) Descriptor {
	if len(dims) == 0 {
		return Descriptor{}
	}
	return Descriptor{frames: []Frame{{Kind: FrameArray, Dims: append([]int(nil), dims...)}}}
}

// OfStruct returns a descriptor holding a single struct frame.
func OfStruct(s *Struct) Descriptor {
	return Descriptor{frames: []Frame{{Kind: FrameStruct, Struct: s}}}
}

// OfText returns a descriptor holding one unresolved dimension.
func OfText(text string) Descriptor {
	return Descriptor{frames: []Frame{{Kind: FrameText, Text: text}}}
}

// Chain joins descriptors outermost first.
func Chain(parts ...Descriptor) Descriptor {
	var out Descriptor
	for _, p := range parts {
		for _, f := range p.frames {
			out.frames = appendFrame(out.frames, f)
		}
	}
	return out
}

func appendFrame(frames []Frame, f Frame) []Frame {
	if f.Kind == FrameArray {
		if len(f.Dims) == 0 {
			return frames
		}
		if n := len(frames); n > 0 && frames[n-1].Kind == FrameArray {
			merged := make([]int, 0, len(frames[n-1].Dims)+len(f.Dims))
			merged = append(merged, frames[n-1].Dims...)
			merged = append(merged, f.Dims...)
			out := append(frames[:n-1:n-1], Frame{Kind: FrameArray, Dims: merged})
			return out
		}
		f.Dims = append([]int(nil), f.Dims...)
	}
	return append(frames, f)
}

// Frames returns a copy of the frames, outermost first.
func (d Descriptor) Frames() []Frame {
	out := make([]Frame, len(d.frames))
	for i, f := range d.frames {
		out[i] = f
		out[i].Dims = append([]int(nil), f.Dims...)
	}
	return out
}

// IsZero reports whether d has no frames at all.
func (d Descriptor) IsZero() bool { return len(d.frames) == 0 }

// Depth counts dimensions: each array extent, struct frame and text frame
// counts as one.
func (d Descriptor) Depth() int {
	n := 0
	for _, f := range d.frames {
		if f.Kind == FrameArray {
			n += len(f.Dims)
		} else {
			n++
		}
	}
	return n
}

// IsArray reports whether the outermost frame holds array extents.
func (d Descriptor) IsArray() bool {
	return len(d.frames) > 0 && d.frames[0].Kind == FrameArray
}

// IsStruct reports whether the outermost frame is a struct.
func (d Descriptor) IsStruct() bool {
	return len(d.frames) > 0 && d.frames[0].Kind == FrameStruct
}

// IsText reports whether the outermost frame is unresolved text.
func (d Descriptor) IsText() bool {
	return len(d.frames) > 0 && d.frames[0].Kind == FrameText
}

// IsSimpleArray reports whether d is made only of integer extents.
func (d Descriptor) IsSimpleArray() bool {
	return len(d.frames) == 1 && d.frames[0].Kind == FrameArray
}

// IsFixed reports whether no frame is waiting on parameter values.
func (d Descriptor) IsFixed() bool {
	for _, f := range d.frames {
		if f.Kind == FrameText {
			return false
		}
	}
	return true
}

// Dims returns the extents of the outermost frame, or nil when it is not an
// array frame.
func (d Descriptor) Dims() []int {
	if !d.IsArray() {
		return nil
	}
	return append([]int(nil), d.frames[0].Dims...)
}

// Outer returns the outermost extent, or 0 when d does not start with an
// array frame.
func (d Descriptor) Outer() int {
	if !d.IsArray() {
		return 0
	}
	return d.frames[0].Dims[0]
}

// Struct returns the struct of the outermost frame.
func (d Descriptor) Struct() *Struct {
	if !d.IsStruct() {
		return nil
	}
	return d.frames[0].Struct
}

// Text returns the unresolved text of the outermost frame.
func (d Descriptor) Text() string {
	if !d.IsText() {
		return ""
	}
	return d.frames[0].Text
}

// Next drops the outermost frame and returns what it nests.
func (d Descriptor) Next() Descriptor {
	if len(d.frames) <= 1 {
		return Descriptor{}
	}
	return Descriptor{frames: d.Frames()[1:]}
}

// HasNext reports whether a frame is nested inside the outermost one.
func (d Descriptor) HasNext() bool { return len(d.frames) > 1 }

// DropOuter removes the outermost array extent. Removing the last extent of
// an array frame exposes the frame it nests.
func (d Descriptor) DropOuter() Descriptor {
	if !d.IsArray() {
		return d
	}
	frames := d.Frames()
	frames[0].Dims = frames[0].Dims[1:]
	return Chain(Descriptor{frames: frames})
}

// WithOuter replaces the outermost array extent with n.
func (d Descriptor) WithOuter(n int) Descriptor {
	if !d.IsArray() {
		return d
	}
	frames := d.Frames()
	frames[0].Dims[0] = n
	return Descriptor{frames: frames}
}

// Prepend adds array extents outside of d.
func (d Descriptor) Prepend(dims ...int) Descriptor {
	return Chain(Dims(dims...), d)
}

// Equal compares frame by frame. Struct frames compare their members
// recursively.
func (d Descriptor) Equal(o Descriptor) bool {
	if len(d.frames) != len(o.frames) {
		return false
	}
	for i, f := range d.frames {
		g := o.frames[i]
		if f.Kind != g.Kind {
			return false
		}
		switch f.Kind {
		case FrameArray:
			if len(f.Dims) != len(g.Dims) {
				return false
			}
			for j := range f.Dims {
				if f.Dims[j] != g.Dims[j] {
					return false
				}
			}
		case FrameStruct:
			if !f.Struct.Equal(g.Struct) {
				return false
			}
		case FrameText:
			if f.Text != g.Text {
				return false
			}
		}
	}
	return true
}

// Bits returns the total number of bits d occupies. It fails when d still
// has unresolved text.
func (d Descriptor) Bits() (int, bool) {
	total := 1
	for i := len(d.frames) - 1; i >= 0; i-- {
		f := d.frames[i]
		switch f.Kind {
		case FrameArray:
			for _, n := range f.Dims {
				total *= n
			}
		case FrameStruct:
			b, ok := f.Struct.Bits()
			if !ok {
				return 0, false
			}
			total *= b
		case FrameText:
			return 0, false
		}
	}
	if len(d.frames) == 0 {
		return 0, true
	}
	return total, true
}

// Flatten collapses d into a single dimension holding all of its bits.
// Unresolved descriptors are returned unchanged.
func (d Descriptor) Flatten() Descriptor {
	n, ok := d.Bits()
	if !ok || d.IsZero() {
		return d
	}
	return Scalar(n)
}

// AssertSimpleArray fails when d is not made only of integer extents.
func (d Descriptor) AssertSimpleArray() error {
	if !d.IsSimpleArray() {
		return fmt.Errorf("%w: %s", ErrNotSimpleArray, d)
	}
	return nil
}

func (d Descriptor) String() string {
	if len(d.frames) == 0 {
		return "[]"
	}
	var sb strings.Builder
	for _, f := range d.frames {
		switch f.Kind {
		case FrameArray:
			for _, n := range f.Dims {
				fmt.Fprintf(&sb, "[%d]", n)
			}
		case FrameStruct:
			sb.WriteString("<" + f.Struct.QualifiedName() + ">")
		case FrameText:
			sb.WriteString("[" + f.Text + "]")
		}
	}
	return sb.String()
}

// MarshalText renders the descriptor the way diagnostics print it.
func (d Descriptor) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
