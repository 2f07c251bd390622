package primitive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ApplyPatch implements apply_patch: parses a V4A-style patch and applies
// Add/Delete/Update File operations, including optional file moves.
type ApplyPatch struct{}

func (ApplyPatch) Name() string        { return "apply_patch" }
func (ApplyPatch) Description() string { return "Apply a V4A-format patch to one or more files." }

type applyPatchArgs struct {
	Patch string `json:"patch" jsonschema:"required,description=V4A-format patch text"`
}

func (ApplyPatch) Schema() map[string]any { return schemaFor(applyPatchArgs{}) }

func (ApplyPatch) Execute(_ context.Context, args map[string]any, env Env) (Result, error) {
	patch, _ := args["patch"].(string)
	if patch == "" {
		return failf("patch is required"), nil
	}

	ops, err := parseV4APatch(patch)
	if err != nil {
		return fail(err), nil
	}

	var applied []string
	for _, op := range ops {
		if denied, allowed := env.CheckWrite(op.Path); !allowed {
			return denied, nil
		}
		if op.MoveTo != "" {
			if denied, allowed := env.CheckWrite(op.MoveTo); !allowed {
				return denied, nil
			}
		}
		if err := applyOp(op); err != nil {
			return failf("%s %s: %v", op.Kind, op.Path, err), nil
		}
		applied = append(applied, fmt.Sprintf("%s %s", op.Kind, op.Path))
	}

	return ok(fmt.Sprintf("Applied %d operation(s):\n%s", len(applied), strings.Join(applied, "\n"))), nil
}

type patchKind string

const (
	opAddFile    patchKind = "Add File"
	opDeleteFile patchKind = "Delete File"
	opUpdateFile patchKind = "Update File"
)

type hunk struct {
	context []string // leading context lines (no prefix)
	removed []string // lines prefixed '-'
	added   []string // lines prefixed '+'
	trailing []string // trailing context lines
}

type patchOp struct {
	Kind    patchKind
	Path    string
	MoveTo  string
	AddLines []string // for Add File
	Hunks   []hunk    // for Update File
}

// parseV4APatch parses the format documented in the external-interfaces
// section: a "*** Begin Patch" / "*** End Patch" envelope containing one or
// more Add/Delete/Update File sections.
func parseV4APatch(patch string) ([]patchOp, error) {
	lines := strings.Split(patch, "\n")

	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) || strings.TrimSpace(lines[i]) != "*** Begin Patch" {
		return nil, fmt.Errorf("patch must start with '*** Begin Patch'")
	}
	i++

	var ops []patchOp
	for i < len(lines) {
		line := lines[i]
		switch {
		case strings.TrimSpace(line) == "*** End Patch":
			return ops, nil
		case strings.HasPrefix(line, "*** Add File: "):
			path := strings.TrimPrefix(line, "*** Add File: ")
			i++
			var content []string
			for i < len(lines) && strings.HasPrefix(lines[i], "+") {
				content = append(content, strings.TrimPrefix(lines[i], "+"))
				i++
			}
			ops = append(ops, patchOp{Kind: opAddFile, Path: path, AddLines: content})
		case strings.HasPrefix(line, "*** Delete File: "):
			path := strings.TrimPrefix(line, "*** Delete File: ")
			ops = append(ops, patchOp{Kind: opDeleteFile, Path: path})
			i++
		case strings.HasPrefix(line, "*** Update File: "):
			path := strings.TrimPrefix(line, "*** Update File: ")
			i++
			op := patchOp{Kind: opUpdateFile, Path: path}
			if i < len(lines) && strings.HasPrefix(lines[i], "*** Move to: ") {
				op.MoveTo = strings.TrimPrefix(lines[i], "*** Move to: ")
				i++
			}
			hunks, next := parseUpdateHunks(lines, i)
			op.Hunks = hunks
			i = next
			ops = append(ops, op)
		case strings.TrimSpace(line) == "":
			i++
		default:
			return nil, fmt.Errorf("unexpected patch line %q", line)
		}
	}
	return nil, fmt.Errorf("patch missing '*** End Patch'")
}

func parseUpdateHunks(lines []string, i int) ([]hunk, int) {
	var hunks []hunk
	for i < len(lines) && strings.HasPrefix(lines[i], "@@") {
		i++
		var h hunk
		for i < len(lines) {
			l := lines[i]
			switch {
			case strings.HasPrefix(l, "*** ") || strings.HasPrefix(l, "@@"):
				hunks = append(hunks, h)
				return hunks, i
			case strings.HasPrefix(l, "-"):
				h.removed = append(h.removed, strings.TrimPrefix(l, "-"))
				i++
			case strings.HasPrefix(l, "+"):
				h.added = append(h.added, strings.TrimPrefix(l, "+"))
				i++
			case strings.HasPrefix(l, " "):
				ctxLine := strings.TrimPrefix(l, " ")
				if len(h.removed) == 0 && len(h.added) == 0 {
					h.context = append(h.context, ctxLine)
				} else {
					h.trailing = append(h.trailing, ctxLine)
				}
				i++
			default:
				hunks = append(hunks, h)
				return hunks, i
			}
		}
		hunks = append(hunks, h)
	}
	return hunks, i
}

func applyOp(op patchOp) error {
	switch op.Kind {
	case opAddFile:
		if err := os.MkdirAll(filepath.Dir(op.Path), 0o755); err != nil {
			return err
		}
		return os.WriteFile(op.Path, []byte(strings.Join(op.AddLines, "\n")), 0o644)

	case opDeleteFile:
		return os.Remove(op.Path)

	case opUpdateFile:
		data, err := os.ReadFile(op.Path)
		if err != nil {
			return err
		}
		content := string(data)
		for _, h := range op.Hunks {
			content, err = applyHunk(content, h)
			if err != nil {
				return err
			}
		}
		target := op.Path
		if op.MoveTo != "" {
			if err := os.MkdirAll(filepath.Dir(op.MoveTo), 0o755); err != nil {
				return err
			}
			if err := os.Remove(op.Path); err != nil {
				return err
			}
			target = op.MoveTo
		}
		return os.WriteFile(target, []byte(content), 0o644)
	}
	return fmt.Errorf("unknown patch operation %q", op.Kind)
}

// applyHunk locates the hunk's context+removed lines in content (matching
// with trailing whitespace stripped) and splices in the added lines.
func applyHunk(content string, h hunk) (string, error) {
	lines := strings.Split(content, "\n")
	needle := append(append([]string{}, h.context...), h.removed...)
	needle = append(needle, h.trailing...)

	idx := findContext(lines, needle)
	if idx < 0 {
		return "", fmt.Errorf("could not locate hunk context")
	}

	replacement := append(append([]string{}, h.context...), h.added...)
	replacement = append(replacement, h.trailing...)

	out := make([]string, 0, len(lines))
	out = append(out, lines[:idx]...)
	out = append(out, replacement...)
	out = append(out, lines[idx+len(needle):]...)
	return strings.Join(out, "\n"), nil
}

// findContext finds needle within haystack, comparing with trailing
// whitespace stripped on both sides.
func findContext(haystack, needle []string) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, want := range needle {
			if rtrim(haystack[i+j]) != rtrim(want) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func rtrim(s string) string {
	return strings.TrimRight(s, " \t\r")
}
