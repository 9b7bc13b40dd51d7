package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MimeLyc/srt-translator/internal/jobs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore persists files, jobs and batch checkpoints.
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

func (s *SQLiteStore) LoadFiles(ctx context.Context) ([]jobs.FileItem, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, path, name, cue_count, language, status, error, created_at
		 FROM files
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]jobs.FileItem, 0)
	for rows.Next() {
		var item jobs.FileItem
		var status string
		if err := rows.Scan(
			&item.ID,
			&item.Path,
			&item.Name,
			&item.CueCount,
			&item.Language,
			&status,
			&item.Error,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.Status = jobs.FileStatus(status)
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) UpsertFile(ctx context.Context, item jobs.FileItem) error {
	if item.ID == "" {
		return fmt.Errorf("file id is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO files (id, path, name, cue_count, language, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			path=excluded.path,
			name=excluded.name,
			cue_count=excluded.cue_count,
			language=excluded.language,
			status=excluded.status,
			error=excluded.error`,
		item.ID,
		item.Path,
		item.Name,
		item.CueCount,
		item.Language,
		string(item.Status),
		item.Error,
		item.CreatedAt.UTC(),
	)
	return err
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, fileID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	return err
}

func (s *SQLiteStore) LoadJobs(ctx context.Context) ([]*jobs.TranslationJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, file_id, file_name, status, options_json, done_cues, total_cues, percent,
			eta_seconds, done_batches, total_batches, output_path, error, advice, created_at, updated_at
		 FROM jobs
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.TranslationJob, 0)
	for rows.Next() {
		var item jobs.TranslationJob
		var status, optionsJSON string
		if err := rows.Scan(
			&item.ID,
			&item.FileID,
			&item.FileName,
			&status,
			&optionsJSON,
			&item.DoneCues,
			&item.TotalCues,
			&item.Percent,
			&item.ETASeconds,
			&item.DoneBatches,
			&item.TotalBatches,
			&item.OutputPath,
			&item.Error,
			&item.Advice,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(optionsJSON), &item.Options); err != nil {
			return nil, fmt.Errorf("decode options of job %s: %w", item.ID, err)
		}
		item.Status = jobs.Status(status)
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *jobs.TranslationJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	options, err := json.Marshal(job.Options)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			id, file_id, file_name, status, options_json, done_cues, total_cues, percent,
			eta_seconds, done_batches, total_batches, output_path, error, advice, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_id=excluded.file_id,
			file_name=excluded.file_name,
			status=excluded.status,
			options_json=excluded.options_json,
			done_cues=excluded.done_cues,
			total_cues=excluded.total_cues,
			percent=excluded.percent,
			eta_seconds=excluded.eta_seconds,
			done_batches=excluded.done_batches,
			total_batches=excluded.total_batches,
			output_path=excluded.output_path,
			error=excluded.error,
			advice=excluded.advice,
			updated_at=excluded.updated_at`,
		job.ID,
		job.FileID,
		job.FileName,
		string(job.Status),
		string(options),
		job.DoneCues,
		job.TotalCues,
		job.Percent,
		job.ETASeconds,
		job.DoneBatches,
		job.TotalBatches,
		job.OutputPath,
		job.Error,
		job.Advice,
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
	)
	return err
}

// DeleteJob removes a job together with its checkpoints.
func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM job_batch_checkpoints WHERE job_id = ?`, jobID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveBatchCheckpoint(ctx context.Context, jobID string, batchNo int, translations map[int]string) error {
	payload, err := json.Marshal(translations)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO job_batch_checkpoints (job_id, batch_no, translated_json, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(job_id, batch_no) DO UPDATE SET
			translated_json=excluded.translated_json,
			updated_at=excluded.updated_at`,
		jobID,
		batchNo,
		string(payload),
		time.Now().UTC(),
	)
	return err
}

func (s *SQLiteStore) LoadBatchCheckpoints(ctx context.Context, jobID string) ([]jobs.BatchCheckpoint, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT job_id, batch_no, translated_json, updated_at
		 FROM job_batch_checkpoints
		 WHERE job_id = ?
		 ORDER BY batch_no ASC`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]jobs.BatchCheckpoint, 0)
	for rows.Next() {
		var item jobs.BatchCheckpoint
		var translatedJSON string
		if err := rows.Scan(&item.JobID, &item.BatchNo, &translatedJSON, &item.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(translatedJSON), &item.Translations); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) DeleteBatchCheckpoints(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM job_batch_checkpoints WHERE job_id = ?`, jobID)
	return err
}
