package model

import "time"

// Snapshot is a saved frame artifact attached to a delivered event.
type Snapshot struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Camera    string    `json:"camera"`
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
}

// Event is a delivered SuspiciousEvent as stored in the database.
type Event struct {
	ID          int64        `json:"id"`
	UUID        string       `json:"uuid"`
	Camera      string       `json:"camera"`
	TrackID     int          `json:"track_id"`
	Kind        BehaviorKind `json:"event_type"`
	Description string       `json:"description"`
	Confidence  float64      `json:"confidence"`
	ClassLabel  string       `json:"class_name"`
	PositionX   float64      `json:"position_x"`
	PositionY   float64      `json:"position_y"`
	Frame       int          `json:"frame"`
	SnapshotID  *int64       `json:"snapshot_id,omitempty"`
	ImagePath   string       `json:"image_path,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	IsRead      bool         `json:"is_read"`
}

// EventFilter narrows event queries. Zero values are ignored.
type EventFilter struct {
	Camera     string
	Kind       BehaviorKind
	UnreadOnly bool
	StartDate  time.Time
	EndDate    time.Time
	Limit      int
	Offset     int
}

// EventStats contains aggregate counts about stored events.
type EventStats struct {
	TotalEvents int                  `json:"total_events"`
	Unread      int                  `json:"unread"`
	PerCamera   map[string]int       `json:"per_camera"`
	PerKind     map[BehaviorKind]int `json:"per_kind"`
}
