package primitive

import (
	"context"

	"github.com/prime-radiant-inc/sprout/pkg/genome"
)

// SaveTool implements save_tool: persists a script as a reusable tool in the
// invoking agent's Genome-backed workspace. Only meaningful when env.Genome
// is set; absent Genome support it fails rather than silently no-opping.
type SaveTool struct{}

func (SaveTool) Name() string        { return "save_tool" }
func (SaveTool) Description() string { return "Save a script as a reusable tool in the agent workspace." }

type saveToolArgs struct {
	Name        string `json:"name" jsonschema:"required,description=Tool name"`
	Description string `json:"description,omitempty" jsonschema:"description=What the tool does"`
	Interpreter string `json:"interpreter" jsonschema:"required,description=Interpreter, e.g. python3 or sh"`
	Script      string `json:"script" jsonschema:"required,description=Script body"`
}

func (SaveTool) Schema() map[string]any { return schemaFor(saveToolArgs{}) }

func (SaveTool) Execute(_ context.Context, args map[string]any, env Env) (Result, error) {
	if env.Genome == nil {
		return failf("save_tool requires workspace access"), nil
	}
	name, _ := args["name"].(string)
	description, _ := args["description"].(string)
	interpreter, _ := args["interpreter"].(string)
	script, _ := args["script"].(string)
	if name == "" || interpreter == "" || script == "" {
		return failf("name, interpreter and script are required"), nil
	}

	tool := genome.AgentTool{
		Name:        name,
		Description: description,
		Interpreter: interpreter,
		Script:      script,
	}
	if err := env.Genome.SaveAgentTool(env.AgentName, tool); err != nil {
		return fail(err), nil
	}
	return ok("Saved tool " + name), nil
}

// SaveFile implements save_file: persists a file into the invoking agent's
// Genome-backed workspace, independent of path constraints applied to
// write_file since workspace files live under the Genome directory.
type SaveFile struct{}

func (SaveFile) Name() string        { return "save_file" }
func (SaveFile) Description() string { return "Save a file into the agent workspace." }

type saveFileArgs struct {
	Name    string `json:"name" jsonschema:"required,description=File name"`
	Content string `json:"content" jsonschema:"required,description=File content"`
}

func (SaveFile) Schema() map[string]any { return schemaFor(saveFileArgs{}) }

func (SaveFile) Execute(_ context.Context, args map[string]any, env Env) (Result, error) {
	if env.Genome == nil {
		return failf("save_file requires workspace access"), nil
	}
	name, _ := args["name"].(string)
	content, _ := args["content"].(string)
	if name == "" {
		return failf("name is required"), nil
	}
	if err := env.Genome.SaveAgentFile(env.AgentName, name, []byte(content)); err != nil {
		return fail(err), nil
	}
	return ok("Saved file " + name), nil
}
