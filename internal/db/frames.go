package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FrameRecord is one tracker record as stored in the log.
type FrameRecord struct {
	ObjectID  int64   `json:"objectid"`
	ClassName string  `json:"classname"`
	Left      int     `json:"xtl"`
	Top       int     `json:"ytl"`
	Right     int     `json:"xbr"`
	Bottom    int     `json:"ybr"`
	Score     float64 `json:"score,omitempty"`
	Matched   bool    `json:"matched"`
}

// Frame is one processed upload.
type Frame struct {
	ID         string        `json:"frame_id"`
	Seq        uint64        `json:"frame_seq"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Dropped    int           `json:"dropped"`
	DurationMS float64       `json:"duration_ms"`
	RecordedAt time.Time     `json:"recorded_at"`
	Records    []FrameRecord `json:"records"`
}

// RecordFrame stores f and its records in one transaction. An empty ID is
// replaced by a new UUID and a zero RecordedAt by the current time; both are
// written back to f.
func (db *DB) RecordFrame(ctx context.Context, f *Frame) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.RecordedAt.IsZero() {
		f.RecordedAt = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin frame transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO frames (
			frame_id, frame_seq, width, height, detections, dropped, duration_ms, recorded_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Seq, f.Width, f.Height, len(f.Records), f.Dropped, f.DurationMS, f.RecordedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to insert frame %s: %w", f.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO frame_records (
			frame_id, position, object_id, class_name, xtl, ytl, xbr, ybr, score, matched
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range f.Records {
		if _, err := stmt.ExecContext(ctx,
			f.ID, i, r.ObjectID, r.ClassName, r.Left, r.Top, r.Right, r.Bottom, r.Score, r.Matched,
		); err != nil {
			return fmt.Errorf("failed to insert record %d of frame %s: %w", i, f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit frame %s: %w", f.ID, err)
	}
	return nil
}

// RecentFrames returns up to limit frames, newest first, with their records
// in emission order.
func (db *DB) RecentFrames(ctx context.Context, limit int) ([]Frame, error) {
	if limit <= 0 {
		return []Frame{}, nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT frame_id, frame_seq, width, height, dropped, duration_ms, recorded_unix_nanos
		FROM frames
		ORDER BY recorded_unix_nanos DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}

	frames := []Frame{}
	index := map[string]int{}
	for rows.Next() {
		var f Frame
		var nanos int64
		if err := rows.Scan(&f.ID, &f.Seq, &f.Width, &f.Height, &f.Dropped, &f.DurationMS, &nanos); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		f.RecordedAt = time.Unix(0, nanos)
		f.Records = []FrameRecord{}
		index[f.ID] = len(frames)
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range frames {
		recs, err := db.frameRecords(ctx, frames[i].ID)
		if err != nil {
			return nil, err
		}
		frames[i].Records = recs
	}
	return frames, nil
}

func (db *DB) frameRecords(ctx context.Context, frameID string) ([]FrameRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT object_id, class_name, xtl, ytl, xbr, ybr, score, matched
		FROM frame_records
		WHERE frame_id = ?
		ORDER BY position`, frameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records of frame %s: %w", frameID, err)
	}
	defer rows.Close()

	recs := []FrameRecord{}
	for rows.Next() {
		var r FrameRecord
		if err := rows.Scan(&r.ObjectID, &r.ClassName, &r.Left, &r.Top, &r.Right, &r.Bottom, &r.Score, &r.Matched); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// FrameCount returns the number of logged frames.
func (db *DB) FrameCount(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM frames`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count frames: %w", err)
	}
	return n, nil
}

// RecordReset logs a tracker reset that cleared n identities.
func (db *DB) RecordReset(ctx context.Context, cleared int) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO tracker_resets (identities_cleared, recorded_unix_nanos) VALUES (?, ?)`,
		cleared, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record reset: %w", err)
	}
	return nil
}

// ResetCount returns the number of logged tracker resets.
func (db *DB) ResetCount(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracker_resets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count resets: %w", err)
	}
	return n, nil
}
