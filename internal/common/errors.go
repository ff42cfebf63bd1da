package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/docclass/constants"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Pipeline errors
var (
	ErrUnreadablePDF       = errors.New("unreadable pdf")
	ErrLowConfidence       = errors.New("document type not recognized")
	ErrUnknownDocumentType = errors.New("unknown document type")
	ErrVocabularyMismatch  = errors.New("vocabulary mismatch")
	ErrEmptyLabel          = errors.New("no training examples for label")
	ErrModelNotLoaded      = errors.New("model not loaded")
)

const (
	CodeConfig             = "CONFIG_ERROR"
	CodeUnreadablePDF      = "UNREADABLE_PDF"
	CodeUnknownDocType     = "UNKNOWN_DOCUMENT_TYPE"
	CodeVocabularyMismatch = "VOCABULARY_MISMATCH"
	CodeEmptyLabel         = "EMPTY_LABEL"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// withSentinel keeps both the sentinel and the underlying cause reachable through errors.Is.
func withSentinel(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

func UnreadablePDFError(message string, cause error) error {
	return NewAppError(CodeUnreadablePDF, message, withSentinel(ErrUnreadablePDF, cause))
}

func UnknownDocumentTypeError(label constants.Label) error {
	return NewAppError(CodeUnknownDocType, fmt.Sprintf("no extraction strategy for label %q", label), ErrUnknownDocumentType)
}

func VocabularyMismatchError(message string, cause error) error {
	return NewAppError(CodeVocabularyMismatch, message, withSentinel(ErrVocabularyMismatch, cause))
}

func EmptyLabelError(label constants.Label, dir string) error {
	return NewAppError(CodeEmptyLabel, fmt.Sprintf("label %s has no usable documents in %s", label, dir), ErrEmptyLabel)
}

// LowConfidenceError is returned when the winning posterior is below the threshold.
// Label and Confidence are diagnostics only and must not be used as a prediction.
type LowConfidenceError struct {
	Label      constants.Label
	Confidence float64
	Threshold  float64
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("%s: best guess %s at %.3f is below threshold %.3f",
		ErrLowConfidence, e.Label, e.Confidence, e.Threshold)
}

func (e *LowConfidenceError) Is(target error) bool {
	return target == ErrLowConfidence
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps pipeline errors onto gRPC status codes.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "inference budget exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, ErrUnreadablePDF):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrLowConfidence):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrVocabularyMismatch), errors.Is(err, ErrModelNotLoaded):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
