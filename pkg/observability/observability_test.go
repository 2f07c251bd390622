package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_EmptyExporterDisablesTracingAndMetrics(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestNewProvider_UnknownExporterErrors(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Exporter: "datadog"})
	assert.Error(t, err)
}

func TestNilProvider_HelpersAreSafeNoOps(t *testing.T) {
	var p *Provider

	ctx, end := p.StartEventSpan(context.Background(), "perceive", "root", 0)
	assert.NotNil(t, ctx)
	assert.NotPanics(t, end)

	ctx, end = p.StartTurnSpan(context.Background(), "root", 1)
	assert.NotNil(t, ctx)
	assert.NotPanics(t, end)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_StdoutExporterBuildsUsableProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Exporter: "stdout", ServiceName: "sprout-test"})
	require.NoError(t, err)
	require.NotNil(t, p)
	defer func() { _ = p.Shutdown(context.Background()) }()

	ctx, end := p.StartEventSpan(context.Background(), "perceive", "root", 0)
	assert.NotNil(t, ctx)
	end()

	ctx, end = p.StartTurnSpan(context.Background(), "root", 1)
	assert.NotNil(t, ctx)
	end()
}
