package primitive

import (
	"context"
	"fmt"
	"net/rpc"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"
)

// pluginHandshake authenticates the out-of-process primitive plugins this
// process will launch; both sides must agree on these values.
var pluginHandshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "SPROUT_PRIMITIVE_PLUGIN",
	MagicCookieValue: "sprout_primitive_plugin_v1",
}

// PrimitiveRPC is the net/rpc interface a primitive plugin binary exposes.
type PrimitiveRPC interface {
	Describe() (PluginDescriptor, error)
	Execute(args PluginExecuteArgs) (Result, error)
}

// PluginDescriptor is what a plugin binary reports about itself on connect.
type PluginDescriptor struct {
	Name        string
	Description string
	Schema      map[string]any
}

// PluginExecuteArgs is the net/rpc payload for an Execute call.
type PluginExecuteArgs struct {
	Args map[string]any
}

// primitivePlugin implements hashicorp/go-plugin's Plugin interface for the
// net/rpc transport, wiring PrimitiveRPC over a gob-encoded connection.
type primitivePlugin struct{ Impl PrimitiveRPC }

func (p *primitivePlugin) Server(*goplugin.MuxBroker) (any, error) {
	return &primitiveRPCServer{impl: p.Impl}, nil
}

func (p *primitivePlugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (any, error) {
	return &primitiveRPCClient{client: c}, nil
}

type primitiveRPCServer struct{ impl PrimitiveRPC }

func (s *primitiveRPCServer) Describe(_ any, resp *PluginDescriptor) error {
	d, err := s.impl.Describe()
	*resp = d
	return err
}

func (s *primitiveRPCServer) Execute(args PluginExecuteArgs, resp *Result) error {
	r, err := s.impl.Execute(args)
	*resp = r
	return err
}

type primitiveRPCClient struct{ client *rpc.Client }

func (c *primitiveRPCClient) Describe() (PluginDescriptor, error) {
	var resp PluginDescriptor
	err := c.client.Call("Plugin.Describe", new(any), &resp)
	return resp, err
}

func (c *primitiveRPCClient) Execute(args PluginExecuteArgs) (Result, error) {
	var resp Result
	err := c.client.Call("Plugin.Execute", args, &resp)
	return resp, err
}

// PluginConfig identifies an out-of-process primitive plugin binary.
type PluginConfig struct {
	Name string
	Path string
	Args []string
}

// PluginSource loads a primitive from an out-of-process plugin binary over
// hashicorp/go-plugin's net/rpc transport.
type PluginSource struct {
	cfg    PluginConfig
	client *goplugin.Client
}

// NewPluginSource launches the plugin binary and returns a Primitive backed
// by it.
func NewPluginSource(cfg PluginConfig) (*PluginSource, Primitive, error) {
	logger := hclog.New(&hclog.LoggerOptions{Name: "sprout-plugin", Level: hclog.Warn})

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig: pluginHandshake,
		Plugins: map[string]goplugin.Plugin{
			"primitive": &primitivePlugin{},
		},
		Cmd:              exec.Command(cfg.Path, cfg.Args...),
		Logger:           logger,
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("plugin %s: rpc client: %w", cfg.Name, err)
	}

	raw, err := rpcClient.Dispense("primitive")
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("plugin %s: dispense: %w", cfg.Name, err)
	}

	impl, ok := raw.(PrimitiveRPC)
	if !ok {
		client.Kill()
		return nil, nil, fmt.Errorf("plugin %s: does not implement PrimitiveRPC", cfg.Name)
	}

	descriptor, err := impl.Describe()
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("plugin %s: describe: %w", cfg.Name, err)
	}

	src := &PluginSource{cfg: cfg, client: client}
	return src, &pluginPrimitive{source: src, impl: impl, descriptor: descriptor}, nil
}

// Close terminates the plugin subprocess.
func (s *PluginSource) Close() {
	if s.client != nil {
		s.client.Kill()
	}
}

// pluginPrimitive adapts a dispensed plugin to the Primitive contract.
type pluginPrimitive struct {
	source     *PluginSource
	impl       PrimitiveRPC
	descriptor PluginDescriptor
}

func (p *pluginPrimitive) Name() string          { return p.descriptor.Name }
func (p *pluginPrimitive) Description() string   { return p.descriptor.Description }
func (p *pluginPrimitive) Schema() map[string]any { return p.descriptor.Schema }

func (p *pluginPrimitive) Execute(_ context.Context, args map[string]any, _ Env) (Result, error) {
	result, err := p.impl.Execute(PluginExecuteArgs{Args: args})
	if err != nil {
		return fail(fmt.Errorf("plugin %s: execute: %w", p.descriptor.Name, err)), nil
	}
	return result, nil
}
