// Package parsererror defines the typed errors surfaced by the ingestion
// pipeline so callers can distinguish rejection, classification, extraction
// and sandbox failures.
package parsererror

import "fmt"

// ParseError represents an error while parsing a specific field value.
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError represents a gatekeeper rejection: the file did not pass
// the structural checks required to enter the pipeline.
type ValidationError struct {
	FilePath string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.FilePath, e.Reason)
}

// ClassificationError represents a failure to obtain a usable document
// category from the classifier.
type ClassificationError struct {
	FilePath string
	Err      error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed for %s: %v", e.FilePath, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// ExtractionError represents an exhausted extraction loop: every attempt,
// including regeneration retries, failed for the file.
type ExtractionError struct {
	FilePath string
	Attempts int
	LastErr  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s after %d attempts: %v",
		e.FilePath, e.Attempts, e.LastErr)
}

func (e *ExtractionError) Unwrap() error {
	return e.LastErr
}

// SandboxError represents a failure inside the sandboxed parser subprocess.
type SandboxError struct {
	FilePath string
	Stderr   string
	Err      error
}

func (e *SandboxError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("sandbox execution failed for %s: %v: %s",
			e.FilePath, e.Err, e.Stderr)
	}
	return fmt.Sprintf("sandbox execution failed for %s: %v", e.FilePath, e.Err)
}

func (e *SandboxError) Unwrap() error {
	return e.Err
}

// InvalidFormatError represents an input file that does not conform to the
// format a parser expected.
type InvalidFormatError struct {
	FilePath             string
	ExpectedFormat       string
	ActualContentSnippet string
	Msg                  string
}

func (e *InvalidFormatError) Error() string {
	if e.ActualContentSnippet != "" {
		return fmt.Sprintf("invalid format in file '%s': %s. Expected: %s. Content snippet: '%s'",
			e.FilePath, e.Msg, e.ExpectedFormat, e.ActualContentSnippet)
	}
	return fmt.Sprintf("invalid format in file '%s': %s. Expected: %s",
		e.FilePath, e.Msg, e.ExpectedFormat)
}

// DataExtractionError represents a required value that could not be pulled
// out of a file even though the file format itself looked valid.
type DataExtractionError struct {
	FilePath       string
	FieldName      string
	RawDataSnippet string
	Reason         string
	Msg            string
}

func (e *DataExtractionError) Error() string {
	if e.RawDataSnippet != "" {
		return fmt.Sprintf("data extraction failed in file '%s' for field '%s': %s. Reason: %s. Raw data snippet: '%s'",
			e.FilePath, e.FieldName, e.Msg, e.Reason, e.RawDataSnippet)
	}
	return fmt.Sprintf("data extraction failed in file '%s' for field '%s': %s. Reason: %s",
		e.FilePath, e.FieldName, e.Msg, e.Reason)
}
