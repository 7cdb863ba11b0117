package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalNoEscapeKeepsHTML(t *testing.T) {
	b, err := MarshalNoEscape(map[string]string{"a": "<b>&</b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<b>&</b>"}`, string(b))
}

func TestMarshalNoEscapeIndent(t *testing.T) {
	b, err := MarshalNoEscapeIndent(map[string]any{"a": []int{1}}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    1\n  ]\n}", string(b))
}

func TestUnmarshalFlex(t *testing.T) {
	var direct map[string]int
	require.NoError(t, UnmarshalFlex([]byte(` {"x":1} `), &direct))
	assert.Equal(t, map[string]int{"x": 1}, direct)

	var wrapped map[string]int
	require.NoError(t, UnmarshalFlex([]byte(`"{\"x\":2}"`), &wrapped))
	assert.Equal(t, map[string]int{"x": 2}, wrapped)

	var bad map[string]int
	assert.Error(t, UnmarshalFlex([]byte(`not json`), &bad))
	assert.Error(t, UnmarshalFlex([]byte(`"plain text"`), &bad))
}
