package common

import "errors"

var (
	// ErrEmptyInput is returned by prompts when the user enters nothing for a
	// required value.
	ErrEmptyInput = errors.New("empty input")

	// ErrInterrupted is returned when input ends before a value was read.
	ErrInterrupted = errors.New("input interrupted")
)
