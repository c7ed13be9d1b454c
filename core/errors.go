// Copyright 2025 The neuraldocs Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for the job-delivery layer.
type ErrorKind string

const (
	// ErrorKindTransient marks network, timeout, and rate-limit failures.
	// Retrying at the job-delivery layer is safe and may succeed.
	ErrorKindTransient ErrorKind = "transient"

	// ErrorKindContent marks malformed or empty input. Retrying will not
	// help; the job fails with a diagnostic reason.
	ErrorKindContent ErrorKind = "content"

	// ErrorKindConfiguration marks fatal setup problems such as an
	// embedding dimension mismatch. Detected at startup, not per request.
	ErrorKindConfiguration ErrorKind = "configuration"
)

// StageError is a classified failure attributed to a named pipeline stage.
type StageError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable failure of the named stage.
func Transient(stage string, err error) error {
	return &StageError{Stage: stage, Kind: ErrorKindTransient, Err: err}
}

// Content wraps err as a non-retryable content failure of the named stage.
func Content(stage string, err error) error {
	return &StageError{Stage: stage, Kind: ErrorKindContent, Err: err}
}

// Configuration wraps err as a fatal configuration failure.
func Configuration(stage string, err error) error {
	return &StageError{Stage: stage, Kind: ErrorKindConfiguration, Err: err}
}

// KindOf returns the classification of err. Unclassified errors default to
// transient so the delivery layer errs on the side of retrying.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrorKindTransient
}

// IsTransient reports whether retrying err at the delivery layer is safe.
func IsTransient(err error) bool {
	return KindOf(err) == ErrorKindTransient
}

// IsContent reports whether err is a non-retryable content failure.
func IsContent(err error) bool {
	return KindOf(err) == ErrorKindContent
}

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidJob indicates a Job failed validation.
	ErrInvalidJob = errors.New("invalid job")

	// ErrEmptyURL indicates the URL field is empty.
	ErrEmptyURL = errors.New("url cannot be empty")

	// ErrInvalidJobState indicates an unknown JobState value.
	ErrInvalidJobState = errors.New("invalid job state")

	// ErrUnknownJob indicates the scheduler has no record of a job id.
	// Distinct from a queued job, which has a record.
	ErrUnknownJob = errors.New("unknown job")
)
