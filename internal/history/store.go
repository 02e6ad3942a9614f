package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore persists watch history and favorite clips.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// SaveProgress upserts the playback position of a media file.
func (s *SQLiteStore) SaveProgress(ctx context.Context, file string, position, duration time.Duration) error {
	if strings.TrimSpace(file) == "" {
		return fmt.Errorf("file is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO watch_history (file, position_ms, duration_ms, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(file) DO UPDATE SET
			position_ms=excluded.position_ms,
			duration_ms=excluded.duration_ms,
			updated_at=excluded.updated_at`,
		file,
		position.Milliseconds(),
		duration.Milliseconds(),
		time.Now().UTC(),
	)
	return err
}

func (s *SQLiteStore) GetProgress(ctx context.Context, file string) (*WatchProgress, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT file, position_ms, duration_ms, updated_at FROM watch_history WHERE file = ?`,
		file,
	)
	item, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListRecent returns watch-history entries ordered by recency.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]WatchProgress, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT file, position_ms, duration_ms, updated_at
		 FROM watch_history
		 ORDER BY updated_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]WatchProgress, 0)
	for rows.Next() {
		item, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *item)
	}
	return ret, rows.Err()
}

// DeleteBefore removes watch-history entries last updated before the
// cutoff and returns the number of removed rows.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM watch_history WHERE updated_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*WatchProgress, error) {
	var item WatchProgress
	var positionMs, durationMs int64
	if err := row.Scan(&item.File, &positionMs, &durationMs, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Position = time.Duration(positionMs) * time.Millisecond
	item.Duration = time.Duration(durationMs) * time.Millisecond
	return &item, nil
}

// AddClip favorites one sentence of a subtitle content. Re-adding an
// already favorited sentence returns the existing clip.
func (s *SQLiteStore) AddClip(ctx context.Context, srtHash string, sentenceIndex int, text string) (*FavoriteClip, error) {
	if strings.TrimSpace(srtHash) == "" {
		return nil, fmt.Errorf("srt hash is required")
	}

	clip := &FavoriteClip{
		ID:            uuid.NewString(),
		SrtHash:       srtHash,
		SentenceIndex: sentenceIndex,
		Text:          text,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO favorite_clips (id, srt_hash, sentence_index, text, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(srt_hash, sentence_index) DO NOTHING`,
		clip.ID,
		clip.SrtHash,
		clip.SentenceIndex,
		clip.Text,
		clip.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, srt_hash, sentence_index, text, created_at
		 FROM favorite_clips WHERE srt_hash = ? AND sentence_index = ?`,
		srtHash, sentenceIndex,
	)
	var got FavoriteClip
	if err := row.Scan(&got.ID, &got.SrtHash, &got.SentenceIndex, &got.Text, &got.CreatedAt); err != nil {
		return nil, err
	}
	return &got, nil
}

func (s *SQLiteStore) RemoveClip(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM favorite_clips WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) ListClips(ctx context.Context, srtHash string) ([]FavoriteClip, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, srt_hash, sentence_index, text, created_at
		 FROM favorite_clips
		 WHERE srt_hash = ?
		 ORDER BY sentence_index ASC`,
		srtHash,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]FavoriteClip, 0)
	for rows.Next() {
		var item FavoriteClip
		if err := rows.Scan(&item.ID, &item.SrtHash, &item.SentenceIndex, &item.Text, &item.CreatedAt); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, rows.Err()
}

// ClipIndices filters the given sentence indices down to the ones
// favorited for this subtitle content.
func (s *SQLiteStore) ClipIndices(ctx context.Context, srtHash string, indices []int) ([]int, error) {
	if len(indices) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(indices)), ",")
	args := make([]any, 0, len(indices)+1)
	args = append(args, srtHash)
	for _, idx := range indices {
		args = append(args, idx)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT sentence_index FROM favorite_clips
		 WHERE srt_hash = ? AND sentence_index IN (`+placeholders+`)
		 ORDER BY sentence_index ASC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]int, 0)
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		ret = append(ret, idx)
	}
	return ret, rows.Err()
}
