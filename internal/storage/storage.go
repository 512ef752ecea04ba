package storage

import "clickship/internal/model"

// SnapshotSink is a sink for read-model snapshots.
type SnapshotSink interface {
	PutSnapshot(snap model.Snapshot) error
}
