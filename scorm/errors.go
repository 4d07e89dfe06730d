package scorm

import "errors"

// Ingestion errors. Any of these aborts the upload and leaves no partial
// course state on disk or in the database.
var (
	ErrArchiveInvalid   = errors.New("archive is not a valid zip")
	ErrPathTraversal    = errors.New("archive entry escapes the target directory")
	ErrSizeLimit        = errors.New("archive exceeds the uncompressed size limit")
	ErrManifestNotFound = errors.New("imsmanifest.xml not found")
	ErrManifestInvalid  = errors.New("failed to parse manifest")
)

// Runtime errors. Returned per call; attempt state is never left
// half-updated by a failed call.
var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrScoNotFound         = errors.New("sco not found")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrLearnerIDRequired   = errors.New("learner id is required")
	ErrInvalidTransition   = errors.New("invalid attempt state transition")
	ErrUnknownElement      = errors.New("unknown cmi element")
	ErrInvalidElementValue = errors.New("invalid cmi element value")
)
