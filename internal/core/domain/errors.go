package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown connector type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a run is already in flight.
	// A second trigger no-ops with this error instead of queueing.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrMissingCredentials indicates required credentials or config
	// are absent at startup. This is the only fatal error class: the
	// process exits before any work is attempted.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrConnectorValidation indicates connector validation failed.
	// The source is misconfigured or credentials are invalid.
	ErrConnectorValidation = errors.New("connector validation failed")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrIndexUnavailable indicates the document index is not
	// configured or not reachable.
	ErrIndexUnavailable = errors.New("document index unavailable")

	// ErrUploadTimeout indicates the index did not finish processing
	// an upload within the bounded wait.
	ErrUploadTimeout = errors.New("upload processing timed out")
)
