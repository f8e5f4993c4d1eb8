package archive

import "context"

// Archiver stores run summary files in remote storage so results survive
// the machine that produced them.
type Archiver interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// ArchiveRun uploads one run summary document under the configured
	// prefix, keyed by the bench run id.
	ArchiveRun(ctx context.Context, benchRunID string, summary []byte) error
}
