package service

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/internal/llm"
	"github.com/MimeLyc/srt-translator/internal/subtitle"
	"github.com/MimeLyc/srt-translator/internal/translator"
)

type ErrorType int

const (
	ErrFileNotFound ErrorType = iota
	ErrFileRead
	ErrFileWrite
	ErrEncoding
	ErrFormat
	ErrTransport
	ErrBadResponse
	ErrParse
	ErrValidation
	ErrConfig
	ErrNotFound
	ErrUnknown
)

type CTXTransError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *CTXTransError {
	return &CTXTransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *CTXTransError {
	return &CTXTransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *CTXTransError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *CTXTransError) Unwrap() error {
	return e.Cause
}

func (e *CTXTransError) WithContext(key string, value any) *CTXTransError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrFileNotFound:
		return "FileNotFound"
	case ErrFileRead:
		return "FileRead"
	case ErrFileWrite:
		return "FileWrite"
	case ErrEncoding:
		return "Encoding"
	case ErrFormat:
		return "Format"
	case ErrTransport:
		return "Transport"
	case ErrBadResponse:
		return "BadResponse"
	case ErrParse:
		return "Parse"
	case ErrValidation:
		return "Validation"
	case ErrConfig:
		return "Config"
	case ErrNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Classify maps an error from any layer onto an ErrorType.
func Classify(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}

	var ctxErr *CTXTransError
	if errors.As(err, &ctxErr) {
		return ctxErr.Type
	}

	var (
		encErr   *subtitle.EncodingError
		fmtErr   *subtitle.FormatError
		tranErr  *llm.TransportError
		badErr   *llm.BadResponseError
		parseErr *translator.ParseError
	)
	switch {
	case errors.As(err, &encErr):
		return ErrEncoding
	case errors.As(err, &fmtErr):
		return ErrFormat
	case errors.As(err, &tranErr):
		return ErrTransport
	case errors.As(err, &badErr):
		return ErrBadResponse
	case errors.As(err, &parseErr):
		return ErrParse
	case errors.Is(err, os.ErrNotExist):
		return ErrFileNotFound
	case errors.Is(err, jobs.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, jobs.ErrInvalidState), errors.Is(err, jobs.ErrAlreadyStarted):
		return ErrValidation
	}
	return ErrUnknown
}

// Advice returns the hint for any error, classifying it first.
func Advice(err error) string {
	if err == nil {
		return ""
	}
	return adviceFor(Classify(err))
}

func adviceFor(t ErrorType) string {
	switch t {
	case ErrFileNotFound:
		return "Please check that the file path is correct and ensure the file exists with read permissions"
	case ErrFileRead:
		return "Please check file permissions to ensure read access and verify the file is not corrupted"
	case ErrFileWrite:
		return "Please ensure the output directory exists and has write permissions"
	case ErrEncoding:
		return "Please re-save the subtitle file as UTF-8 and import it again"
	case ErrFormat:
		return "Please fix the SRT structure at the reported line: each cue needs an index, a timing line with -->, and text"
	case ErrTransport:
		return "Please check the API URL and key, network connectivity, or lower the thread count if the provider is rate limiting"
	case ErrBadResponse:
		return "The model endpoint returned an unexpected body; check that the API URL points to an OpenAI-compatible chat completions service"
	case ErrParse:
		return "The model did not return the expected numbered list; try a smaller batch size or a more capable model"
	case ErrValidation:
		return "Please verify the request: the file or job may be in a state that does not allow this operation"
	case ErrConfig:
		return "Please check that configuration files or environment variables are set correctly"
	case ErrNotFound:
		return "The referenced file or job does not exist; refresh the list and try again"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var ctxErr *CTXTransError
	if errors.As(err, &ctxErr) {
		return ctxErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *CTXTransError {
	return NewErrorWithCause(errorType, message, err)
}

func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrUnknown, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
