package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"cctvmonitor/internal/model"
)

// EventRepository implements repository.EventRepository for SQLite.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `
	e.id, e.uuid, e.camera, e.track_id, e.event_type, COALESCE(e.description, ''),
	e.confidence, e.class_name, e.position_x, e.position_y, e.frame,
	e.snapshot_id, COALESCE(s.filepath, ''), e.timestamp, e.is_read`

const eventFrom = `
	FROM events e
	LEFT JOIN snapshots s ON s.id = e.snapshot_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var ev model.Event
	var kind string
	var snapshotID sql.NullInt64
	var isRead int

	err := row.Scan(
		&ev.ID, &ev.UUID, &ev.Camera, &ev.TrackID, &kind, &ev.Description,
		&ev.Confidence, &ev.ClassLabel, &ev.PositionX, &ev.PositionY, &ev.Frame,
		&snapshotID, &ev.ImagePath, &ev.Timestamp, &isRead,
	)
	if err != nil {
		return nil, err
	}

	ev.Kind = model.BehaviorKind(kind)
	ev.IsRead = isRead != 0
	if snapshotID.Valid {
		id := snapshotID.Int64
		ev.SnapshotID = &id
	}
	return &ev, nil
}

// Insert adds a new event record to the database.
func (r *EventRepository) Insert(ev *model.Event) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	var snapshotID sql.NullInt64
	if ev.SnapshotID != nil {
		snapshotID = sql.NullInt64{Int64: *ev.SnapshotID, Valid: true}
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO events (uuid, camera, track_id, event_type, description, confidence,
			class_name, position_x, position_y, frame, snapshot_id, timestamp, is_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.UUID, ev.Camera, ev.TrackID, string(ev.Kind), ev.Description, ev.Confidence,
		ev.ClassLabel, ev.PositionX, ev.PositionY, ev.Frame, snapshotID, ev.Timestamp, boolToInt(ev.IsRead))
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	return result.LastInsertId()
}

// GetByID retrieves an event by its ID. A missing row yields nil, nil.
func (r *EventRepository) GetByID(id int64) (*model.Event, error) {
	return r.getOne(`WHERE e.id = ?`, id)
}

// GetByUUID retrieves an event by the alert ID it was delivered with.
func (r *EventRepository) GetByUUID(uuid string) (*model.Event, error) {
	return r.getOne(`WHERE e.uuid = ?`, uuid)
}

func (r *EventRepository) getOne(where string, arg interface{}) (*model.Event, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	ev, err := scanEvent(r.db.Conn().QueryRow(`SELECT `+eventColumns+eventFrom+` `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

// buildWhere turns a filter into a WHERE clause and its arguments.
func buildWhere(filter *model.EventFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter != nil {
		if filter.Camera != "" {
			conditions = append(conditions, "e.camera = ?")
			args = append(args, filter.Camera)
		}
		if filter.Kind != "" {
			conditions = append(conditions, "e.event_type = ?")
			args = append(args, string(filter.Kind))
		}
		if filter.UnreadOnly {
			conditions = append(conditions, "e.is_read = 0")
		}
		if !filter.StartDate.IsZero() {
			conditions = append(conditions, "e.timestamp >= ?")
			args = append(args, filter.StartDate)
		}
		if !filter.EndDate.IsZero() {
			conditions = append(conditions, "e.timestamp <= ?")
			args = append(args, filter.EndDate)
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// GetAll retrieves events matching the filter, newest first.
func (r *EventRepository) GetAll(filter *model.EventFilter) ([]model.Event, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)
	query := `SELECT ` + eventColumns + eventFrom + where + ` ORDER BY e.timestamp DESC, e.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *ev)
	}

	return events, rows.Err()
}

// GetTotalCount returns the number of events matching the filter, ignoring paging.
func (r *EventRepository) GetTotalCount(filter *model.EventFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM events e`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// GetStats returns totals grouped by camera and by behavior.
func (r *EventRepository) GetStats() (*model.EventStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.EventStats{
		PerCamera: make(map[string]int),
		PerKind:   make(map[model.BehaviorKind]int),
	}

	err := r.db.Conn().QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0) FROM events
	`).Scan(&stats.TotalEvents, &stats.Unread)
	if err != nil {
		return nil, fmt.Errorf("failed to get event totals: %w", err)
	}

	if err := r.groupCount(`SELECT camera, COUNT(*) FROM events GROUP BY camera`, func(key string, n int) {
		stats.PerCamera[key] = n
	}); err != nil {
		return nil, err
	}

	if err := r.groupCount(`SELECT event_type, COUNT(*) FROM events GROUP BY event_type`, func(key string, n int) {
		stats.PerKind[model.BehaviorKind(key)] = n
	}); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *EventRepository) groupCount(query string, put func(string, int)) error {
	rows, err := r.db.Conn().Query(query)
	if err != nil {
		return fmt.Errorf("failed to group events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan event group: %w", err)
		}
		put(key, n)
	}
	return rows.Err()
}

// MarkRead flags one event as seen.
func (r *EventRepository) MarkRead(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`UPDATE events SET is_read = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark event read: %w", err)
	}
	return nil
}

// MarkAllRead flags every unread event as seen, optionally for one camera only.
func (r *EventRepository) MarkAllRead(camera string) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	query := `UPDATE events SET is_read = 1 WHERE is_read = 0`
	var args []interface{}
	if camera != "" {
		query += ` AND camera = ?`
		args = append(args, camera)
	}

	result, err := r.db.Conn().Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark events read: %w", err)
	}
	return result.RowsAffected()
}

// Delete removes an event by its ID.
func (r *EventRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
