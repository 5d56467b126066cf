package webpenc

import (
	"errors"
	"fmt"

	"github.com/deepteams/webpenc/internal/container"
	"github.com/deepteams/webpenc/internal/lossless"
	"github.com/deepteams/webpenc/internal/pixbuf"
)

// Errors reported through EncodeError. Use errors.Is to test for them.
var (
	ErrInvalidDimensions  = pixbuf.ErrInvalidDimensions
	ErrBufferSizeMismatch = pixbuf.ErrBufferSizeMismatch
	ErrInternal           = lossless.ErrInternal
	ErrSizeOverflow       = container.ErrSizeOverflow
	ErrInvalidOptions     = errors.New("invalid options")
)

// Stage is a step of the encoding pipeline.
type Stage int

const (
	StageIdle Stage = iota
	StageValidating
	StageTransforming
	StageEntropyCoding
	StageContainerAssembling
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageValidating:
		return "validating"
	case StageTransforming:
		return "transforming"
	case StageEntropyCoding:
		return "entropy coding"
	case StageContainerAssembling:
		return "container assembling"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// ErrorKind classifies an encoding failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidDimensions
	KindBufferSizeMismatch
	KindEncoderInternal
	KindSizeOverflow
	KindInvalidOptions
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidDimensions:
		return "InvalidDimensions"
	case KindBufferSizeMismatch:
		return "BufferSizeMismatch"
	case KindEncoderInternal:
		return "EncoderInternalError"
	case KindSizeOverflow:
		return "SizeOverflow"
	case KindInvalidOptions:
		return "InvalidOptions"
	}
	return "Unknown"
}

// EncodeError is returned by every failed encode. Stage is the pipeline
// step that failed.
type EncodeError struct {
	Stage Stage
	Kind  ErrorKind
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("Failed to encode: %s: %v", e.Stage, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindUnknown if err does not come from
// this package.
func KindOf(err error) ErrorKind {
	var ee *EncodeError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return classify(err)
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidDimensions):
		return KindInvalidDimensions
	case errors.Is(err, ErrBufferSizeMismatch):
		return KindBufferSizeMismatch
	case errors.Is(err, ErrSizeOverflow):
		return KindSizeOverflow
	case errors.Is(err, ErrInvalidOptions):
		return KindInvalidOptions
	case errors.Is(err, ErrInternal):
		return KindEncoderInternal
	}
	return KindUnknown
}
