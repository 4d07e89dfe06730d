package scorm

import (
	"fmt"
	"strings"
)

// ElementStatus is the completion-status element; it is the one element
// whose value is normalized on commit.
const ElementStatus = "cmi.core.lesson_status"

// elementMaxLen is the recognized SCORM 1.2 element vocabulary. Anything
// outside this allow-list is rejected on commit so the persisted schema
// stays predictable and keys stay bounded.
var elementMaxLen = map[string]int{
	"cmi.core.lesson_status":   255,
	"cmi.core.lesson_location": 255,
	"cmi.core.score.raw":       255,
	"cmi.core.score.min":       255,
	"cmi.core.score.max":       255,
	"cmi.core.session_time":    255,
	"cmi.core.exit":            255,
	"cmi.suspend_data":         4096, // common de facto 1.2 limit
	"cmi.comments":             4096,
}

// Canonical lesson_status values per the 1.2 data model.
var lessonStatuses = map[string]bool{
	"passed":        true,
	"completed":     true,
	"failed":        true,
	"incomplete":    true,
	"browsed":       true,
	"not attempted": true,
}

// IsValidElement reports whether el is in the recognized vocabulary.
func IsValidElement(el string) bool {
	_, ok := elementMaxLen[el]
	return ok
}

// NormalizeValue validates a single (element, value) pair and returns the
// value to persist. Unknown elements, over-length values and
// out-of-vocabulary lesson_status values are all rejected; nothing is
// silently coerced.
func NormalizeValue(element, value string) (string, error) {
	maxLen, ok := elementMaxLen[element]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownElement, element)
	}
	if len(value) > maxLen {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidElementValue, element, maxLen)
	}
	if element == ElementStatus {
		return normalizeLessonStatus(value)
	}
	return value, nil
}

// normalizeLessonStatus collapses recognized synonyms (case, surrounding
// space, machine-friendly spellings of "not attempted") to the canonical
// enumeration.
func normalizeLessonStatus(value string) (string, error) {
	status := strings.ToLower(strings.TrimSpace(value))
	switch status {
	case "not_attempted", "not-attempted":
		status = "not attempted"
	}
	if !lessonStatuses[status] {
		return "", fmt.Errorf("%w: lesson_status %q", ErrInvalidElementValue, value)
	}
	return status, nil
}
