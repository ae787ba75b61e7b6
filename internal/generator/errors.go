package generator

import (
	"errors"
	"fmt"
)

// Kind classifies a generation failure.
type Kind string

const (
	KindUnavailable     Kind = "unavailable"
	KindInvalidResponse Kind = "invalid_response"
	KindTimeout         Kind = "timeout"
)

var (
	// ErrNoProvider is returned by NewModel when generation is disabled.
	ErrNoProvider = errors.New("no generation provider configured")
	// ErrUnknownCompany marks output naming an employer absent from the profile.
	ErrUnknownCompany = errors.New("experience company not in profile")

	errNoJSON = errors.New("no json object in response")
)

// GenerationError is returned by Generate for every failure after input
// validation.
type GenerationError struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generation %s after %d attempt(s)", e.Kind, e.Attempts)
	}
	return fmt.Sprintf("generation %s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// invalidResponseError marks a parsed response that cannot be used.
type invalidResponseError struct {
	problems []string
	err      error
}

func (e *invalidResponseError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("response failed schema: %v", e.problems)
}

func (e *invalidResponseError) Unwrap() error {
	return e.err
}
