package scorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidElement(t *testing.T) {
	assert.True(t, IsValidElement("cmi.core.lesson_status"))
	assert.True(t, IsValidElement("cmi.suspend_data"))
	assert.True(t, IsValidElement("cmi.core.score.raw"))

	assert.False(t, IsValidElement("cmi.core.student_name"))
	assert.False(t, IsValidElement("x.custom.key"))
	assert.False(t, IsValidElement(""))
}

func TestNormalizeValueUnknownElement(t *testing.T) {
	_, err := NormalizeValue("cmi.not.a.thing", "anything")
	require.ErrorIs(t, err, ErrUnknownElement)
}

func TestNormalizeValuePassthrough(t *testing.T) {
	value, err := NormalizeValue("cmi.core.lesson_location", "page-4")
	require.NoError(t, err)
	assert.Equal(t, "page-4", value)
}

func TestNormalizeValueMaxLength(t *testing.T) {
	_, err := NormalizeValue("cmi.core.lesson_location", strings.Repeat("a", 256))
	require.ErrorIs(t, err, ErrInvalidElementValue)

	// suspend_data carries the larger limit
	value, err := NormalizeValue("cmi.suspend_data", strings.Repeat("a", 4096))
	require.NoError(t, err)
	assert.Len(t, value, 4096)

	_, err = NormalizeValue("cmi.suspend_data", strings.Repeat("a", 4097))
	require.ErrorIs(t, err, ErrInvalidElementValue)
}

func TestNormalizeLessonStatus(t *testing.T) {
	cases := map[string]string{
		"passed":        "passed",
		"Completed":     "completed",
		" failed ":      "failed",
		"INCOMPLETE":    "incomplete",
		"browsed":       "browsed",
		"not attempted": "not attempted",
		"not_attempted": "not attempted",
		"Not-Attempted": "not attempted",
	}
	for input, want := range cases {
		got, err := NormalizeValue(ElementStatus, input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}
}

func TestNormalizeLessonStatusRejectsUnknown(t *testing.T) {
	for _, input := range []string{"done", "finished", "99", ""} {
		_, err := NormalizeValue(ElementStatus, input)
		require.ErrorIs(t, err, ErrInvalidElementValue, "input %q", input)
	}
}
