package facts

// FilterTablesByFiles returns a new Tables object containing only rows whose file
// or path is present in the provided file set.
func FilterTablesByFiles(tables Tables, files map[string]bool) Tables {
	if len(files) == 0 {
		return emptyTables()
	}
	out := emptyTables()
	out.Files = filterRows(tables.Files, func(r FileRow) bool { return files[r.Path] })
	out.Modules = filterRows(tables.Modules, func(r ModuleRow) bool { return files[r.File] })
	out.Ports = filterRows(tables.Ports, func(r PortRow) bool { return files[r.File] })
	out.Instances = filterRows(tables.Instances, func(r InstanceRow) bool { return files[r.File] })
	out.Decorations = filterRows(tables.Decorations, func(r DecorationRow) bool { return files[r.File] })
	out.Diagnostics = filterRows(tables.Diagnostics, func(r DiagnosticRow) bool { return files[r.File] })

	// Width Map rows carry no file; keep those of modules declared in the set.
	mods := make(map[string]bool)
	for _, m := range out.Modules {
		mods[m.Name] = true
	}
	out.Widths = filterRows(tables.Widths, func(r WidthRow) bool { return mods[r.Module] })
	return out
}

// FilterTablesByModules keeps only rows that belong to the named modules.
func FilterTablesByModules(tables Tables, modules map[string]bool) Tables {
	if len(modules) == 0 {
		return emptyTables()
	}
	out := emptyTables()
	keepFile := make(map[string]bool)
	out.Modules = filterRows(tables.Modules, func(r ModuleRow) bool {
		if modules[r.Name] {
			keepFile[r.File] = true
			return true
		}
		return false
	})
	out.Files = filterRows(tables.Files, func(r FileRow) bool { return keepFile[r.Path] })
	out.Ports = filterRows(tables.Ports, func(r PortRow) bool { return modules[r.Module] })
	out.Widths = filterRows(tables.Widths, func(r WidthRow) bool { return modules[r.Module] })
	out.Instances = filterRows(tables.Instances, func(r InstanceRow) bool { return modules[r.Module] })
	out.Decorations = filterRows(tables.Decorations, func(r DecorationRow) bool { return modules[r.Module] })
	out.Diagnostics = filterRows(tables.Diagnostics, func(r DiagnosticRow) bool { return modules[r.Module] })
	return out
}

// FilterDeltaByFiles applies FilterTablesByFiles to both sides of a delta.
func FilterDeltaByFiles(delta Delta, files map[string]bool) Delta {
	return Delta{
		Added:   FilterTablesByFiles(delta.Added, files),
		Removed: FilterTablesByFiles(delta.Removed, files),
	}
}

func filterRows[T any](rows []T, keep func(T) bool) []T {
	out := []T{}
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
