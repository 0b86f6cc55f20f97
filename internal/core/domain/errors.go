package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoIdentifierFound    = errors.New("no video identifier found in URL")
	ErrMissingCredential    = errors.New("missing credential")
	ErrEmptyQuestion        = errors.New("question must not be empty")
	ErrNoTranscript         = errors.New("no transcript available for the video")
	ErrNoTranscriptText     = errors.New("no transcript text found in the video data")
	ErrJobFailed            = errors.New("transcript job failed")
	ErrPollBudgetExhausted  = errors.New("transcript job did not finish within the poll budget")
	ErrFileProcessingFailed = errors.New("uploaded file failed processing")
	ErrFileNotReady         = errors.New("uploaded file did not become active")
	ErrNoAnswer             = errors.New("no answer generated")
)

// Kind classifies a failure independently of where it happened.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindInvalidInput  Kind = "invalid-input"
	KindNetwork       Kind = "network"
	KindRemoteRequest Kind = "remote-request"
	KindProtocol      Kind = "protocol"
	KindDomain        Kind = "domain"
	KindLocalTimeout  Kind = "local-timeout"
	KindStorage       Kind = "storage"
)

// Stage names the step of the pipeline that failed.
type Stage string

const (
	StageConfig    Stage = "config"
	StageResolve   Stage = "resolve"
	StageSubmit    Stage = "submit"
	StagePoll      Stage = "poll"
	StageCollect   Stage = "collect"
	StageArchive   Stage = "archive"
	StageUpload    Stage = "upload"
	StageFileState Stage = "file-state"
	StageGenerate  Stage = "generate"
	StageAsk       Stage = "ask"
)

// Error is the error type returned by every adapter and the orchestrator.
// StatusCode and Body are set only for KindRemoteRequest.
type Error struct {
	Stage      Stage
	Kind       Kind
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindRemoteRequest:
		return fmt.Sprintf("%s: request failed with status %d: %s", e.Stage, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Stage, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a stage error of the given kind.
func NewError(stage Stage, kind Kind, err error) *Error {
	return &Error{Stage: stage, Kind: kind, Err: err}
}

// RemoteError reports a non-success HTTP response.
func RemoteError(stage Stage, status int, body string) *Error {
	return &Error{Stage: stage, Kind: KindRemoteRequest, StatusCode: status, Body: body}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StageOf returns the stage of the first *Error in err's chain, or "" if none.
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}
