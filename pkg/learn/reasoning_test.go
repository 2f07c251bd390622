package learn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMutation_PlainJSON(t *testing.T) {
	m, err := parseMutation(`{"type":"create_memory","content":"always check quota first","tags":["billing"]}`)
	require.NoError(t, err)
	require.NotNil(t, m.CreateMemory)
	assert.Equal(t, "always check quota first", m.CreateMemory.Content)
	assert.Equal(t, []string{"billing"}, m.CreateMemory.Tags)
}

func TestParseMutation_MarkdownFenced(t *testing.T) {
	m, err := parseMutation("```json\n{\"type\":\"skip\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, MutationSkip, m.Type)
}

func TestParseMutation_UpdateAgent(t *testing.T) {
	m, err := parseMutation(`{"type":"update_agent","agent_name":"writer","system_prompt":"be terser"}`)
	require.NoError(t, err)
	require.NotNil(t, m.UpdateAgent)
	assert.Equal(t, "writer", m.UpdateAgent.AgentName)
}

func TestParseMutation_MalformedJSONErrors(t *testing.T) {
	_, err := parseMutation("not json at all")
	assert.Error(t, err)
}

func TestParseMutation_CreateRoutingRule(t *testing.T) {
	m, err := parseMutation(`{"type":"create_routing_rule","condition":"billing refund","preference":"billing_agent","strength":0.7}`)
	require.NoError(t, err)
	require.NotNil(t, m.CreateRoutingRule)
	assert.Equal(t, 0.7, m.CreateRoutingRule.Strength)
}
