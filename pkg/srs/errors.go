package srs

import "errors"

// Sentinel errors for the srs package.
var (
	ErrInvalidGrade  = errors.New("srs: invalid grade")
	ErrInvalidPairID = errors.New("srs: invalid pair id")
)
