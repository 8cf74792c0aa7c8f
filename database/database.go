package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// Publication kinds recorded in the history.
const (
	KindPost      = "post"
	KindDump      = "dump"
	KindFastTrack = "fasttrack"
)

// Published is one status the relay created.
type Published struct {
	Target    string
	ThreadID  string
	PostID    string
	StatusID  string
	Kind      string
	Mentions  int
	Media     int
	Timestamp int64
}

// Exclusion is a thread skipped by the moderation filter.
type Exclusion struct {
	Target    string
	ThreadID  string
	Reason    string
	Timestamp int64
}

// History records published statuses and moderation exclusions.
type History struct {
	db *sql.DB
}

// InitDB initializes the database connection. It takes the database path as input.
func InitDB(dbPath string) (*sql.DB, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Successfully connected to the database at", dbPath)
	return db, nil
}

// NewHistory opens the history database and ensures its tables exist.
func NewHistory(dbPath string) (*History, error) {
	db, err := InitDB(dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; the relay writes from a single loop anyway.
	db.SetMaxOpenConns(1)

	if err := createPublishedTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create published table: %w", err)
	}
	if err := createExclusionsTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create exclusions table: %w", err)
	}
	return &History{db: db}, nil
}

func createPublishedTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS published (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        target TEXT NOT NULL,
        thread_id TEXT NOT NULL,
        post_id TEXT NOT NULL DEFAULT '',
        status_id TEXT NOT NULL,
        kind TEXT NOT NULL,
        mentions INTEGER NOT NULL DEFAULT 0,
        media INTEGER NOT NULL DEFAULT 0,
        timestamp INTEGER NOT NULL
    );`
	if _, err := db.Exec(query); err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_published_thread ON published(target, thread_id);",
		"CREATE INDEX IF NOT EXISTS idx_published_timestamp ON published(timestamp);",
	}
	for _, indexQuery := range indexes {
		if _, err := db.Exec(indexQuery); err != nil {
			log.Printf("Warning: failed to create index: %v", err)
		}
	}
	return nil
}

// createExclusionsTable creates the 'exclusions' table if it doesn't exist.
func createExclusionsTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS exclusions (
        target TEXT NOT NULL,
        thread_id TEXT NOT NULL,
        reason TEXT,
        timestamp INTEGER,
        PRIMARY KEY (target, thread_id)
    );`
	_, err := db.Exec(query)
	return err
}

// Close closes the database connection.
func (h *History) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// RecordPublished appends a published status.
func (h *History) RecordPublished(p Published) error {
	if p.Timestamp == 0 {
		p.Timestamp = time.Now().Unix()
	}
	query := `
    INSERT INTO published (target, thread_id, post_id, status_id, kind, mentions, media, timestamp)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?);`

	stmt, err := h.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for recording publication: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(p.Target, p.ThreadID, p.PostID, p.StatusID, p.Kind, p.Mentions, p.Media, p.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record publication of status %s: %w", p.StatusID, err)
	}
	return nil
}

// AddExclusion adds a thread to the exclusion list.
func (h *History) AddExclusion(e Exclusion) error {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	query := `INSERT OR REPLACE INTO exclusions (target, thread_id, reason, timestamp) VALUES (?, ?, ?, ?)`
	stmt, err := h.db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(e.Target, e.ThreadID, e.Reason, e.Timestamp)
	return err
}

// GetExcludedThreads returns the excluded thread ids of a target.
func (h *History) GetExcludedThreads(target string) (map[string]bool, error) {
	rows, err := h.db.Query("SELECT thread_id FROM exclusions WHERE target = ?", target)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	excluded := make(map[string]bool)
	for rows.Next() {
		var threadID string
		if err := rows.Scan(&threadID); err != nil {
			return nil, err
		}
		excluded[threadID] = true
	}
	return excluded, rows.Err()
}

// ListPublished returns publications of one thread, oldest first.
func (h *History) ListPublished(target, threadID string) ([]Published, error) {
	rows, err := h.db.Query(`
    SELECT target, thread_id, post_id, status_id, kind, mentions, media, timestamp
    FROM published WHERE target = ? AND thread_id = ? ORDER BY id`, target, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query publications: %w", err)
	}
	defer rows.Close()

	var out []Published
	for rows.Next() {
		var p Published
		if err := rows.Scan(&p.Target, &p.ThreadID, &p.PostID, &p.StatusID, &p.Kind, &p.Mentions, &p.Media, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan publication: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountPublished returns how many statuses of a kind were published since a time.
func (h *History) CountPublished(kind string, since time.Time) (int64, error) {
	var count int64
	err := h.db.QueryRow("SELECT COUNT(*) FROM published WHERE kind = ? AND timestamp >= ?", kind, since.Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s publications: %w", kind, err)
	}
	return count, nil
}
