// Package exitcode defines the process exit code contract with callers.
// Interrupted and QuotaExhausted both mean the run is resumable as-is;
// Fatal means it is not resumable without investigation.
package exitcode

const (
	// Success: the run fully completed (or reached its configured item limit).
	Success = 0
	// Fatal: unexpected run-level failure (ledger write, misconfiguration).
	Fatal = 1
	// Interrupted: the run was stopped by a cancellation signal.
	Interrupted = 2
	// QuotaExhausted: the run stopped because the API budget ran out.
	QuotaExhausted = 3
)
