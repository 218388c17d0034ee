package facts

import "strconv"

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

// Empty reports whether the snapshots were identical.
func (d Delta) Empty() bool {
	return d.Added.Len() == 0 && d.Removed.Len() == 0
}

// Len is the total number of rows over all relations.
func (t Tables) Len() int {
	return len(t.Files) + len(t.Modules) + len(t.Ports) + len(t.Widths) +
		len(t.Instances) + len(t.Decorations) + len(t.Diagnostics)
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Files = diffRows(from.Files, to.Files, func(r FileRow) string {
		return r.Path + "|" + r.Hash + "|" + intKey(r.Modules)
	})
	out.Modules = diffRows(from.Modules, to.Modules, func(r ModuleRow) string {
		return r.Name + "|" + r.File + "|" + intKey(r.Line) + "|" + intKey(r.Params) + "|" + intKey(r.Ports)
	})
	out.Ports = diffRows(from.Ports, to.Ports, func(r PortRow) string {
		return r.Module + "|" + r.Name + "|" + r.Direction + "|" + r.Width + "|" + r.File + "|" + intKey(r.Line)
	})
	out.Widths = diffRows(from.Widths, to.Widths, func(r WidthRow) string {
		return r.Module + "|" + r.Name + "|" + r.Width
	})
	out.Instances = diffRows(from.Instances, to.Instances, func(r InstanceRow) string {
		return r.Module + "|" + r.Name + "|" + r.Target + "|" + r.Width + "|" + r.File + "|" + intKey(r.Line)
	})
	out.Decorations = diffRows(from.Decorations, to.Decorations, decorationKey)
	out.Diagnostics = diffRows(from.Diagnostics, to.Diagnostics, func(r DiagnosticRow) string {
		return r.Module + "|" + r.Code + "|" + r.Severity + "|" + r.Message + "|" + r.File + "|" + intKey(r.Line) + "|" + intKey(r.Col)
	})

	return out
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]bool, len(from))
	for _, row := range from {
		fromSet[key(row)] = true
	}
	diff := []T{}
	for _, row := range to {
		if !fromSet[key(row)] {
			diff = append(diff, row)
		}
	}
	return diff
}

func intKey(v int) string {
	return strconv.Itoa(v)
}
