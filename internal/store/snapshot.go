package store

import "context"

// Kind names one persisted snapshot. Each record kind serializes to its own
// snapshot, reloaded wholesale at startup and overwritten wholesale after
// every mutation.
type Kind string

const (
	KindProjects    Kind = "projects"
	KindProcurement Kind = "procurement"
	KindOperations  Kind = "operations"
)

// Kinds lists every snapshot in load order.
var Kinds = []Kind{KindProjects, KindProcurement, KindOperations}

// SnapshotPort is the persistence boundary the record store writes through.
// Load returns (nil, nil) when no snapshot exists yet. Implementations:
// FileSnapshots (default), PostgresSnapshots, MemorySnapshots (tests).
type SnapshotPort interface {
	Load(ctx context.Context, kind Kind) ([]byte, error)
	Save(ctx context.Context, kind Kind, payload []byte) error
}
