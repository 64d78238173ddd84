package repository

import "errors"

// Error kinds from §7 of the specification. Sentinel values wrapped with
// fmt.Errorf("...: %w") at each call site, matching the teacher's own
// error-handling idiom.
var (
	ErrRepoNotFound  = errors.New("repository not found")
	ErrRepoMalformed = errors.New("repository malformed")
	ErrNameExists    = errors.New("name already exists")
	ErrNameNotFound  = errors.New("name not found")
	ErrNameMalformed = errors.New("name file malformed")
	ErrChunkMissing  = errors.New("referenced chunk missing from store")
	ErrCorruption    = errors.New("corruption detected")
	ErrCryptoFailure = errors.New("secret key does not match repository public key")
)
