package rebuild

import "errors"

// Stage failure kinds. All are fatal for the run; none trigger automatic
// retries. Re-invoking the pipeline is safe: downloads skip existing files
// and remote deletes tolerate absent keys.
var (
	// ErrDownloadFailure aborts the run with the mirror left as-is for
	// inspection or re-run.
	ErrDownloadFailure = errors.New("repository download failed")
	// ErrValidationFailure signals an untrustworthy mirror: missing index
	// or an index entry with no backing file.
	ErrValidationFailure = errors.New("repository validation failed")
	// ErrLocalCleanupFailure signals a listing/mirror mismatch while
	// applying the reconciliation plan.
	ErrLocalCleanupFailure = errors.New("snapshot cleanup failed")
	// ErrPublishFailure aborts remote propagation; completed remote
	// operations are not rolled back.
	ErrPublishFailure = errors.New("repository publish failed")
)
