package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findSub(s CommandSchema, name string) *CommandSchema {
	for i := range s.Subcommands {
		if s.Subcommands[i].Name == name {
			return &s.Subcommands[i]
		}
	}
	return nil
}

func TestDescribe_RootTree(t *testing.T) {
	schema := Describe(RootCmd())

	assert.Equal(t, "mentord", schema.Name)
	require.NotNil(t, findSub(schema, "serve"))
	kb := findSub(schema, "knowledge")
	require.NotNil(t, kb)
	assert.Equal(t, []string{"kb"}, kb.Aliases)
	assert.False(t, kb.Runnable)
	assert.NotNil(t, findSub(*kb, "ingest"))
	assert.NotNil(t, findSub(schema, "chats"))
	assert.Nil(t, findSub(schema, "help"))
}

func TestDescribe_Flags(t *testing.T) {
	schema := Describe(RootCmd())
	serve := findSub(schema, "serve")
	require.NotNil(t, serve)

	require.Len(t, serve.Flags, 1)
	assert.Equal(t, "port", serve.Flags[0].Name)
	assert.Equal(t, "p", serve.Flags[0].Shorthand)
	assert.Equal(t, "string", serve.Flags[0].Type)
	assert.False(t, serve.Flags[0].Inherited)
}

func TestWriteSchemaIfRequested(t *testing.T) {
	var out bytes.Buffer

	handled, err := WriteSchemaIfRequested(RootCmd(), []string{"kb", "reset", "--help-json"}, &out)
	require.NoError(t, err)
	require.True(t, handled)

	var schema CommandSchema
	require.NoError(t, json.Unmarshal(out.Bytes(), &schema))
	assert.Equal(t, "reset", schema.Name)
	require.Len(t, schema.Flags, 1)
	assert.Equal(t, "yes", schema.Flags[0].Name)
}

func TestWriteSchemaIfRequested_UnknownPathStopsAtParent(t *testing.T) {
	var out bytes.Buffer

	handled, err := WriteSchemaIfRequested(RootCmd(), []string{"chats", "bogus", "--help-json"}, &out)
	require.NoError(t, err)
	require.True(t, handled)
	assert.Contains(t, out.String(), `"name": "chats"`)
}

func TestWriteSchemaIfRequested_NotRequested(t *testing.T) {
	var out bytes.Buffer

	handled, err := WriteSchemaIfRequested(RootCmd(), []string{"serve"}, &out)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, out.String())
}
