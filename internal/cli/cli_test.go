package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/casualjim/strix/store"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoTools(t *testing.T) {
	tools := demoTools()
	require.Len(t, tools, 2)

	byName := map[string]int{}
	for i, def := range tools {
		byName[def.Name] = i
	}

	t.Run("lookup requires city", func(t *testing.T) {
		def := tools[byName["lookup"]]
		assert.True(t, def.Required("city"))

		out, err := def.Call(context.Background(), `{"city":"Paris"}`)
		require.NoError(t, err)
		assert.Equal(t, "sunny, 21°C", out)

		out, err = def.Call(context.Background(), `{"city":"Atlantis"}`)
		require.NoError(t, err)
		assert.Equal(t, "no weather report for Atlantis", out)
	})

	t.Run("current_time defaults to UTC", func(t *testing.T) {
		def := tools[byName["current_time"]]
		assert.False(t, def.Required("timezone"))

		out, err := def.Call(context.Background(), `{}`)
		require.NoError(t, err)
		assert.Contains(t, out, "UTC")
	})

	t.Run("current_time rejects unknown zones", func(t *testing.T) {
		_, err := currentTime("Mars/Olympus")
		assert.ErrorContains(t, err, "unknown timezone")
	})
}

func TestToolsCommand(t *testing.T) {
	var out bytes.Buffer
	toolsCmd.SetOut(&out)
	t.Cleanup(func() { toolsCmd.SetOut(nil) })

	require.NoError(t, toolsCmd.RunE(toolsCmd, nil))
	assert.Contains(t, out.String(), "current_time")
	assert.Contains(t, out.String(), "lookup")
	assert.Contains(t, out.String(), "city")
}

func TestPrintHistory(t *testing.T) {
	color.NoColor = true

	t.Run("empty", func(t *testing.T) {
		var out bytes.Buffer
		printHistory(&out, nil)
		assert.Equal(t, "No turns recorded.\n", out.String())
	})

	t.Run("turns", func(t *testing.T) {
		var out bytes.Buffer
		printHistory(&out, []store.Turn{
			{Input: "hi", Output: "hello", Timestamp: time.Now()},
			{Input: "bye", Output: "goodbye", Timestamp: time.Now()},
		})
		assert.Contains(t, out.String(), "User: hi\nAssistant: hello\n")
		assert.Contains(t, out.String(), "User: bye\nAssistant: goodbye\n")
	})
}

func TestDefaultConversationKey(t *testing.T) {
	t.Setenv("USER", "alice")
	assert.Equal(t, "alice", defaultConversationKey())

	t.Setenv("USER", "")
	assert.Equal(t, "default", defaultConversationKey())
}
