package primitive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Grep implements grep: a regex search over a file tree. An empty match set
// is a successful, empty result rather than a failure.
type Grep struct{}

func (Grep) Name() string        { return "grep" }
func (Grep) Description() string { return "Search file contents with a regular expression." }

type grepArgs struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Regular expression to search for"`
	Path    string `json:"path,omitempty" jsonschema:"description=Root path to search (default .)"`
	Glob    string `json:"glob,omitempty" jsonschema:"description=Glob filter applied to file names"`
}

func (Grep) Schema() map[string]any { return schemaFor(grepArgs{}) }

func (Grep) Execute(_ context.Context, args map[string]any, env Env) (Result, error) {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return failf("pattern is required"), nil
	}
	root, _ := args["path"].(string)
	if root == "" {
		root = "."
	}
	globFilter, _ := args["glob"].(string)

	if denied, allowed := env.CheckRead(root); !allowed {
		return denied, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return failf("invalid pattern: %v", err), nil
	}

	var out strings.Builder
	matches := 0
	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || info.IsDir() {
			return nil
		}
		if globFilter != "" {
			if match, _ := filepath.Match(globFilter, info.Name()); !match {
				return nil
			}
		}
		if !matchesAny(env.AllowedReadPaths, path) {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				fmt.Fprintf(&out, "%s:%d:%s\n", path, i+1, line)
				matches++
			}
		}
		return nil
	})
	if err != nil {
		return fail(err), nil
	}

	return ok(out.String()), nil
}

// Glob implements glob: path matching returned newest-modified-first.
type Glob struct{}

func (Glob) Name() string        { return "glob" }
func (Glob) Description() string { return "List paths matching a glob pattern, newest first." }

type globArgs struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Glob pattern to match"`
}

func (Glob) Schema() map[string]any { return schemaFor(globArgs{}) }

type globMatch struct {
	path    string
	modTime int64
}

func (Glob) Execute(_ context.Context, args map[string]any, env Env) (Result, error) {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return failf("pattern is required"), nil
	}

	paths, err := filepath.Glob(pattern)
	if err != nil {
		return failf("invalid pattern: %v", err), nil
	}

	matches := make([]globMatch, 0, len(paths))
	for _, p := range paths {
		if !matchesAny(env.AllowedReadPaths, p) {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		matches = append(matches, globMatch{path: p, modTime: info.ModTime().UnixNano()})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].modTime > matches[j].modTime })

	var out strings.Builder
	for _, m := range matches {
		out.WriteString(m.path)
		out.WriteByte('\n')
	}
	return ok(out.String()), nil
}
