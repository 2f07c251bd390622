package primitive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadFile implements read_file: line-numbered content with a 1-based
// offset, falling back to rich extraction for known document formats.
type ReadFile struct{}

func (ReadFile) Name() string        { return "read_file" }
func (ReadFile) Description() string { return "Read a file's contents, optionally by line range." }

func (ReadFile) Schema() map[string]any {
	return schemaFor(readFileArgs{})
}

type readFileArgs struct {
	Path   string `json:"path" jsonschema:"required,description=File path to read"`
	Offset int    `json:"offset,omitempty" jsonschema:"description=1-based starting line"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to return"`
}

func (ReadFile) Execute(_ context.Context, args map[string]any, env Env) (Result, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return failf("path is required"), nil
	}
	if denied, allowed := env.CheckRead(path); !allowed {
		return denied, nil
	}

	if text, handled, err := extractRichDocument(path); handled {
		if err != nil {
			return fail(err), nil
		}
		return ok(text), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(err), nil
	}

	offset := intArg(args, "offset", 1)
	if offset < 1 {
		offset = 1
	}
	limit := intArg(args, "limit", 0)

	lines := strings.Split(string(data), "\n")
	var out strings.Builder
	count := 0
	for i := offset - 1; i < len(lines); i++ {
		if limit > 0 && count >= limit {
			break
		}
		fmt.Fprintf(&out, "%6d\t%s\n", i+1, lines[i])
		count++
	}
	return ok(out.String()), nil
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// WriteFile implements write_file: creates parent directories and writes
// content, returning a byte-count summary.
type WriteFile struct{}

func (WriteFile) Name() string        { return "write_file" }
func (WriteFile) Description() string { return "Write content to a file, creating parent directories." }

type writeFileArgs struct {
	Path    string `json:"path" jsonschema:"required,description=File path to write"`
	Content string `json:"content" jsonschema:"required,description=Content to write"`
}

func (WriteFile) Schema() map[string]any { return schemaFor(writeFileArgs{}) }

func (WriteFile) Execute(_ context.Context, args map[string]any, env Env) (Result, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	if path == "" {
		return failf("path is required"), nil
	}
	if denied, allowed := env.CheckWrite(path); !allowed {
		return denied, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fail(err), nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fail(err), nil
	}
	return ok(fmt.Sprintf("Wrote %d bytes", len(content))), nil
}

// EditFile implements edit_file: exact-text replacement, failing on no
// match or, without replace_all, on an ambiguous (multi-)match.
type EditFile struct{}

func (EditFile) Name() string        { return "edit_file" }
func (EditFile) Description() string { return "Replace an exact text match within a file." }

type editFileArgs struct {
	Path        string `json:"path" jsonschema:"required"`
	OldString   string `json:"old_string" jsonschema:"required"`
	NewString   string `json:"new_string" jsonschema:"required"`
	ReplaceAll  bool   `json:"replace_all,omitempty"`
}

func (EditFile) Schema() map[string]any { return schemaFor(editFileArgs{}) }

func (EditFile) Execute(_ context.Context, args map[string]any, env Env) (Result, error) {
	path, _ := args["path"].(string)
	oldString, _ := args["old_string"].(string)
	newString, _ := args["new_string"].(string)
	replaceAll, _ := args["replace_all"].(bool)

	if path == "" || oldString == "" {
		return failf("path and old_string are required"), nil
	}
	if denied, allowed := env.CheckWrite(path); !allowed {
		return denied, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(err), nil
	}
	content := string(data)

	count := strings.Count(content, oldString)
	if count == 0 {
		return failf("old_string not found in %s", path), nil
	}
	if count > 1 && !replaceAll {
		return failf("Ambiguous match: old_string appears %d times in %s; pass replace_all=true or add more context", count, path), nil
	}

	var updated string
	if replaceAll {
		updated = strings.ReplaceAll(content, oldString, newString)
	} else {
		updated = strings.Replace(content, oldString, newString, 1)
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fail(err), nil
	}
	return ok(fmt.Sprintf("Replaced %d occurrence(s) in %s", count, path)), nil
}
