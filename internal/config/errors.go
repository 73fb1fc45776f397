// Package config provides configuration types and defaults for scenecode.
package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidPreset indicates an unknown preset name was provided.
	ErrInvalidPreset = errors.New("invalid preset")

	// ErrInvalidChunkMethod indicates an unknown chunk method name was provided.
	ErrInvalidChunkMethod = errors.New("invalid chunk method")

	// ErrInvalidChunkOrdering indicates an unknown chunk ordering name was provided.
	ErrInvalidChunkOrdering = errors.New("invalid chunk ordering")

	// ErrInvalidConcatMethod indicates an unknown concatenation method name was provided.
	ErrInvalidConcatMethod = errors.New("invalid concat method")

	// ErrInvalidCRF indicates a CRF value outside the valid 0-63 range.
	ErrInvalidCRF = errors.New("CRF value out of range")

	// ErrInvalidSVTPreset indicates an SVT-AV1 preset outside the valid 0-13 range.
	ErrInvalidSVTPreset = errors.New("SVT-AV1 preset out of range")

	// ErrInvalidFilmGrain indicates film grain denoise was set without film grain.
	ErrInvalidFilmGrain = errors.New("film grain configuration invalid")

	// ErrConfigInvalid is returned (wrapped with details) by Config.Validate.
	ErrConfigInvalid = errors.New("invalid configuration")
)
