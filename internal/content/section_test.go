package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
start:
  lines:
    - "first"
    - "second"
  answer-options:
    1:
      text: "go left"
      link: left_room
    2:
      text: "go right"
      link: right_room
left_room:
  lines: only line
  ending: yes
  achievement: explorer
menu:
  message: "Главное меню"
  attempts: 3
  broken: [1, [2]]
`

func parseSample(t *testing.T) *Section {
	t.Helper()
	s, err := Parse([]byte(sampleDoc), "sample.yml")
	require.NoError(t, err)
	return s
}

func TestSection_KeysAndChildren(t *testing.T) {
	s := parseSample(t)
	assert.Equal(t, []string{"start", "left_room", "menu"}, s.Keys())

	children := s.Children()
	require.Len(t, children, 3)
	assert.Equal(t, "start", children[0].Name())
	assert.Equal(t, "sample.yml", children[0].Source())
}

func TestSection_Getters(t *testing.T) {
	s := parseSample(t)

	lines, err := s.Strings("start.lines")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, lines)

	single, err := s.Strings("left_room.lines")
	require.NoError(t, err)
	assert.Equal(t, []string{"only line"}, single)

	ending, err := s.Bool("left_room.ending")
	require.NoError(t, err)
	assert.True(t, ending)

	n, err := s.Int("menu.attempts")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, "Главное меню", s.StringOr("menu.message", "x"))
	assert.Equal(t, "x", s.StringOr("menu.nope", "x"))
	assert.True(t, s.Has("start.answer-options.1.link"))
	assert.False(t, s.Has("start.missing"))

	_, err = s.String("nope")
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = s.Strings("menu.broken")
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = s.Bool("menu.message")
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = s.Section("menu.message")
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestSection_Sections(t *testing.T) {
	s := parseSample(t)

	opts, err := s.Sections("start.answer-options")
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, "go left", opts[0].StringOr("text", ""))
	assert.Equal(t, "right_room", opts[1].StringOr("link", ""))

	seq, err := Parse([]byte("opts:\n  - {text: a, link: x}\n  - {text: b, link: y}\n"), "seq.yml")
	require.NoError(t, err)
	items, err := seq.Sections("opts")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "y", items[1].StringOr("link", ""))

	_, err = s.Sections("menu.message")
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestSection_WithFallback(t *testing.T) {
	override, err := Parse([]byte("wait: \"подожди\"\n"), "messages.yml")
	require.NoError(t, err)
	defaults, err := Parse([]byte("wait: \"wait\"\nexit: \"bye\"\n"), "defaults.yml")
	require.NoError(t, err)

	merged := override.WithFallback(defaults)
	assert.Equal(t, "подожди", merged.StringOr("wait", ""))
	assert.Equal(t, "bye", merged.StringOr("exit", ""))
	assert.Equal(t, "", merged.StringOr("nope", ""))
}

func TestParse_Edge(t *testing.T) {
	empty, err := Parse(nil, "empty.yml")
	require.NoError(t, err)
	assert.Empty(t, empty.Keys())

	_, err = Parse([]byte("- a\n- b\n"), "list.yml")
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = Parse([]byte("a: [unclosed"), "bad.yml")
	assert.Error(t, err)
}
