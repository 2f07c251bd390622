package primitive

// RegisterBuiltins adds every built-in primitive to r, including the
// workspace primitives save_tool and save_file (which fail unless the Env
// carries a Genome). Callers add MCP/plugin-sourced primitives on top,
// since those depend on per-agent configuration.
func RegisterBuiltins(r *Registry) error {
	builtins := []Primitive{
		ReadFile{},
		WriteFile{},
		EditFile{},
		ApplyPatch{},
		Exec{},
		Grep{},
		Glob{},
		Fetch{},
		SaveTool{},
		SaveFile{},
	}
	for _, p := range builtins {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}
