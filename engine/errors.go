package engine

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAsset   = errors.New("missing asset")
	ErrMalformedMask  = errors.New("malformed mask")
	ErrEmptyResultSet = errors.New("no data")
	ErrAborted        = errors.New("aborted by participant")
)

// AssetError reports a trial whose assets could not be used. Kind is one of
// ErrMissingAsset or ErrMalformedMask.
type AssetError struct {
	Trial int
	Path  string
	Kind  error
	Err   error
}

func (e *AssetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("trial %d: %v: %s: %v", e.Trial, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("trial %d: %v: %s", e.Trial, e.Kind, e.Path)
}

func (e *AssetError) Is(target error) bool {
	return target == e.Kind
}

func (e *AssetError) Unwrap() error {
	return e.Err
}
