package engine

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// CheckpointDB is SQLite-backed resume state for an interrupted migration.
// It records every verified file and every directory that finished with
// zero errors.
type CheckpointDB struct {
	db   *sql.DB
	path string

	// Batch buffer for MarkFileCompleted calls.
	mu      sync.Mutex
	batch   []completedFile
	done    chan struct{}
	stopped bool
}

type completedFile struct {
	relPath   string
	hash      string
	size      int64
	mtimeNano int64
}

// OpenCheckpoint opens (or creates) the checkpoint for the given absolute
// source/target roots. fingerprint identifies the plan; a change since the
// checkpoint was written is logged but not fatal, because file entries are
// matched by size and mtime anyway.
func OpenCheckpoint(src, dst, fingerprint string) (*CheckpointDB, error) {
	dbPath := checkpointPath(checkpointJobID(src, dst))

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	db.SetMaxOpenConns(1)

	c := &CheckpointDB{
		db:   db,
		path: dbPath,
		done: make(chan struct{}),
	}

	if err := c.init(src, dst, fingerprint); err != nil {
		db.Close()
		return nil, err
	}

	go c.flushLoop()

	return c, nil
}

func (c *CheckpointDB) init(src, dst, fingerprint string) error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			path    TEXT PRIMARY KEY,
			size    INTEGER NOT NULL,
			hash    TEXT NOT NULL,
			mtime   INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS dirs (
			path    TEXT PRIMARY KEY
		);
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	meta, err := c.meta()
	if err != nil {
		return err
	}

	if storedSrc, ok := meta["src_root"]; ok {
		if storedSrc != src || meta["dst_root"] != dst {
			return fmt.Errorf("checkpoint roots mismatch: stored %s->%s, got %s->%s",
				storedSrc, meta["dst_root"], src, dst)
		}
		if prev := meta["fingerprint"]; prev != fingerprint {
			slog.Warn("source tree changed since checkpoint was written",
				"checkpoint", c.path, "was", prev, "now", fingerprint)
		}
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES ('src_root', ?), ('dst_root', ?), ('fingerprint', ?)",
		src, dst, fingerprint,
	)
	if err != nil {
		return fmt.Errorf("store meta: %w", err)
	}
	return nil
}

func (c *CheckpointDB) meta() (map[string]string, error) {
	rows, err := c.db.Query("SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		m[k] = v
	}
	return m, rows.Err()
}

// IsFileCompleted reports whether the file (by relative path, size and
// mtime) was verified by an earlier run.
func (c *CheckpointDB) IsFileCompleted(relPath string, size, mtimeNano int64) bool {
	var storedSize, storedMtime int64
	err := c.db.QueryRow(
		"SELECT size, mtime FROM files WHERE path = ?", relPath,
	).Scan(&storedSize, &storedMtime)
	if err != nil {
		return false
	}
	return storedSize == size && storedMtime == mtimeNano
}

// MarkFileCompleted records a verified file. Writes are batched and flushed
// periodically.
func (c *CheckpointDB) MarkFileCompleted(relPath string, size int64, hash string, mtimeNano int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch = append(c.batch, completedFile{
		relPath:   relPath,
		size:      size,
		hash:      hash,
		mtimeNano: mtimeNano,
	})

	if len(c.batch) >= 100 {
		return c.flushLocked()
	}
	return nil
}

// IsDirCompleted reports whether the directory finished cleanly before.
// It does not vouch for the directory's current contents; callers still
// check each file.
func (c *CheckpointDB) IsDirCompleted(relPath string) bool {
	var p string
	err := c.db.QueryRow("SELECT path FROM dirs WHERE path = ?", relPath).Scan(&p)
	return err == nil
}

// MarkDirCompleted records a directory after flushing its pending files,
// so a directory is never marked ahead of its contents.
func (c *CheckpointDB) MarkDirCompleted(relPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.flushLocked(); err != nil {
		return err
	}
	if _, err := c.db.Exec("INSERT OR REPLACE INTO dirs (path) VALUES (?)", relPath); err != nil {
		return fmt.Errorf("insert dir %s: %w", relPath, err)
	}
	return nil
}

// Flush writes any pending batch entries to the database.
func (c *CheckpointDB) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *CheckpointDB) flushLocked() error {
	if len(c.batch) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO files (path, size, hash, mtime) VALUES (?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.batch {
		if _, err := stmt.Exec(e.relPath, e.size, e.hash, e.mtimeNano); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s: %w", e.relPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	c.batch = c.batch[:0]
	return nil
}

func (c *CheckpointDB) flushLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if err := c.flushLocked(); err != nil {
				slog.Warn("checkpoint flush failed", "error", err)
			}
			c.mu.Unlock()
		}
	}
}

// Close flushes pending writes and closes the database.
func (c *CheckpointDB) Close() error {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.done)
	}
	flushErr := c.flushLocked()
	c.mu.Unlock()
	return errors.Join(flushErr, c.db.Close())
}

// Remove deletes the checkpoint database and its WAL side files. Call it
// after Close.
func (c *CheckpointDB) Remove() error {
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(c.path + suffix)
	}
	return os.Remove(c.path)
}

// Path returns the checkpoint database path.
func (c *CheckpointDB) Path() string {
	return c.path
}

// checkpointJobID derives a stable job id from the source and target roots.
func checkpointJobID(src, dst string) string {
	h := blake3.New()
	h.Write([]byte(src))
	h.Write([]byte{0})
	h.Write([]byte(dst))
	digest := h.Sum(nil)
	return hex.EncodeToString(digest[:8])
}

// checkpointPath places checkpoints under $XDG_STATE_HOME/migrate so they
// survive a reboot, falling back to ~/.local/state and then the temp dir.
func checkpointPath(jobID string) string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "state")
		}
	}
	if dir == "" {
		return filepath.Join(os.TempDir(), "migrate-"+jobID+".db")
	}
	return filepath.Join(dir, "migrate", jobID+".db")
}
