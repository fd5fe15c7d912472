package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameBasic(t *testing.T) {
	name, payload, ok := parseFrame("event:chunk\ndata: {\"delta\":\"hi\"}")
	require.True(t, ok)
	assert.Equal(t, "chunk", name)
	assert.Equal(t, "{\"delta\":\"hi\"}", payload)
}

func TestParseFrameMultiLineData(t *testing.T) {
	name, payload, ok := parseFrame("event:done\ndata: {\"a\":\ndata: 1}")
	require.True(t, ok)
	assert.Equal(t, "done", name)
	assert.Equal(t, "{\"a\":\n1}", payload)
}

func TestParseFrameLastEventWins(t *testing.T) {
	name, _, ok := parseFrame("event:start\nevent:chunk\ndata: {}")
	require.True(t, ok)
	assert.Equal(t, "chunk", name)
}

func TestParseFrameMissingEvent(t *testing.T) {
	_, _, ok := parseFrame("data: {\"delta\":\"hi\"}")
	assert.False(t, ok)
}

func TestParseFrameMissingData(t *testing.T) {
	_, _, ok := parseFrame("event:chunk")
	assert.False(t, ok)
}

func TestParseFrameIgnoresUnknownLines(t *testing.T) {
	name, payload, ok := parseFrame(": keep-alive\nid: 42\nevent:chunk\ndata: {}")
	require.True(t, ok)
	assert.Equal(t, "chunk", name)
	assert.Equal(t, "{}", payload)
}

func TestParseFrameTrimsCRAndWhitespace(t *testing.T) {
	name, payload, ok := parseFrame("event: chunk \r\ndata:  {\"delta\":\"hi\"} \r")
	require.True(t, ok)
	assert.Equal(t, "chunk", name)
	assert.Equal(t, "{\"delta\":\"hi\"}", payload)
}
