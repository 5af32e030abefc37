// Package journal persists manager lifecycle events to a local SQLite
// file so job history survives the process. It implements
// manager.EventPublisher; a failing or slow journal never blocks the job
// pipeline, events are dropped instead.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"stemd/internal/manager"
)

const (
	// publishBuffer is how many events may sit between the pipeline and
	// the writer goroutine before Publish starts dropping.
	publishBuffer = 256
)

const schema = `
CREATE TABLE IF NOT EXISTS job_events (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	job_id     TEXT NOT NULL DEFAULT '',
	model      TEXT NOT NULL DEFAULT '',
	details    TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_events_job_id ON job_events(job_id);
`

// Entry is one persisted event row.
type Entry struct {
	Seq       int64
	Name      string
	JobID     string
	Model     string
	Details   string
	CreatedAt time.Time
}

// Journal is a SQLite-backed EventPublisher with a single async writer.
type Journal struct {
	db      *sql.DB
	log     zerolog.Logger
	ch      chan manager.Event
	done    chan struct{}
	closed  atomic.Bool
	dropped atomic.Uint64
}

// Open creates or opens the journal database at path and starts the
// writer. Pragmas are applied via EXEC so they work across drivers.
func Open(path string, log zerolog.Logger) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal: empty path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	j := &Journal{
		db:   db,
		log:  log,
		ch:   make(chan manager.Event, publishBuffer),
		done: make(chan struct{}),
	}
	go j.writer()
	return j, nil
}

// Publish queues an event for persistence. Never blocks: when the buffer
// is full or the journal is closed the event is counted as dropped.
func (j *Journal) Publish(e manager.Event) {
	if j.closed.Load() {
		j.dropped.Add(1)
		return
	}
	select {
	case j.ch <- e:
	default:
		j.dropped.Add(1)
	}
}

func (j *Journal) writer() {
	defer close(j.done)
	for e := range j.ch {
		details := ""
		if len(e.Fields) > 0 {
			if b, err := json.Marshal(e.Fields); err == nil {
				details = string(b)
			}
		}
		_, err := j.db.Exec(
			`INSERT INTO job_events (name, job_id, model, details, created_at) VALUES (?,?,?,?,?)`,
			e.Name, e.JobID, e.Model, details, time.Now().Unix(),
		)
		if err != nil {
			j.log.Warn().Err(err).Str("event", e.Name).Msg("journal write failed")
		}
	}
}

// Close drains buffered events and closes the database. Publishes after
// Close are dropped.
func (j *Journal) Close() error {
	if j.closed.Swap(true) {
		return nil
	}
	close(j.ch)
	<-j.done
	if n := j.dropped.Load(); n > 0 {
		j.log.Warn().Uint64("dropped", n).Msg("journal dropped events under pressure")
	}
	return j.db.Close()
}

// Dropped reports how many events were discarded because the buffer was
// full or the journal was closed.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

// JobEvents returns the persisted entries for one job, oldest first.
func (j *Journal) JobEvents(ctx context.Context, jobID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, name, job_id, model, details, created_at FROM job_events WHERE job_id = ? ORDER BY seq`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: query job %s: %w", jobID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Recent returns the newest entries across all jobs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, name, job_id, model, details, created_at FROM job_events ORDER BY seq DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: query recent: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.Seq, &e.Name, &e.JobID, &e.Model, &e.Details, &created); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}
