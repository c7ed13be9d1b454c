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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - URL must not be empty
//   - Id must match the URL-derived ID when set
//
// NOT validated (populated during ingestion):
//   - Title and Sections (a document may legitimately have an empty body
//     while its vectors are missing; readers tolerate that state)
//   - Timestamps (set by the repository)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyURL)
	}

	if doc.Id != 0 && doc.Id != IDFromURL(doc.URL) {
		return fmt.Errorf("%w: id %s does not derive from url %q", ErrInvalidDocument, doc.Id, doc.URL)
	}

	return nil
}

// ValidateJob validates a Job according to domain rules.
//
// Validation rules:
//   - Id must not be empty
//   - URL must not be empty
//   - State must be one of the defined states
func ValidateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if job.Id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidJob)
	}

	if job.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyURL)
	}

	if err := ValidateJobState(job.State); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	return nil
}

// ValidateJobState validates that a JobState has a defined value.
func ValidateJobState(state JobState) error {
	switch state {
	case JobStateQueued, JobStateRunning, JobStateSucceeded, JobStateFailed:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidJobState, state)
}
