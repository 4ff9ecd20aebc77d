package domain

import "errors"

// Sentinel errors returned by the sample source's public API. These are
// ordinary conditions a caller can check for with errors.Is, not
// assertion failures.
var (
	ErrReleased       = errors.New("sample source released")
	ErrNotEnabled     = errors.New("track group not enabled")
	ErrAlreadyEnabled = errors.New("track group already enabled")
	ErrNotPrepared    = errors.New("sample source not prepared")
)
