package repository

import (
	"cctvmonitor/internal/model"
)

// SnapshotRepository defines the interface for saved frame artifacts.
type SnapshotRepository interface {
	// Create operations
	Insert(snap *model.Snapshot) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Snapshot, error)
	GetByFilename(filename string) (*model.Snapshot, error)
	GetTotalSize() (int64, error)

	// Delete operations
	Delete(id int64) error
}

// EventRepository defines the interface for delivered suspicious events.
type EventRepository interface {
	// Create operations
	Insert(ev *model.Event) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Event, error)
	GetByUUID(uuid string) (*model.Event, error)
	GetAll(filter *model.EventFilter) ([]model.Event, error)
	GetTotalCount(filter *model.EventFilter) (int, error)
	GetStats() (*model.EventStats, error)

	// Update operations
	MarkRead(id int64) error
	MarkAllRead(camera string) (int64, error)

	// Delete operations
	Delete(id int64) error
}
