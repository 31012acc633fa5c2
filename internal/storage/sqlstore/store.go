package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"taskboard/internal/models"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Store wraps access to the relational database and implements every storage
// port used by the services.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
	now    func() time.Time
}

// Open initializes the store for the given driver and runs the required migrations.
// For sqlite3 the dsn is a file path; for pgx it is a Postgres connection string.
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		conn *sql.DB
		err  error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		conn, err = sql.Open(DriverSQLite, fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		conn.SetMaxOpenConns(1)
		conn.SetConnMaxLifetime(0)
	case DriverPostgres:
		conn, err = sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	s := &Store{db: conn, driver: driver, logger: logger, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := s.seed(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("database ready", slog.String("driver", driver))
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func ensureDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// rebind rewrites ? placeholders into $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS roles (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL UNIQUE
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            google_id TEXT NOT NULL UNIQUE,
            email TEXT NOT NULL,
            name TEXT NOT NULL,
            role_id TEXT NOT NULL REFERENCES roles(id),
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS task_statuses (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL UNIQUE,
            display_order INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS task_priorities (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL UNIQUE,
            value INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS epics (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL,
            owner_id TEXT NOT NULL REFERENCES users(id),
            story_points INTEGER NOT NULL DEFAULT 0,
            start_date TIMESTAMP NOT NULL,
            target_end_date TIMESTAMP NOT NULL,
            actual_end_date TIMESTAMP NULL,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sprints (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            goal TEXT NOT NULL DEFAULT '',
            scrum_master_id TEXT NOT NULL REFERENCES users(id),
            capacity_points INTEGER NOT NULL DEFAULT 0,
            start_date TIMESTAMP NOT NULL,
            end_date TIMESTAMP NOT NULL,
            active BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id TEXT PRIMARY KEY,
            epic_id TEXT NULL REFERENCES epics(id) ON DELETE SET NULL,
            sprint_id TEXT NULL REFERENCES sprints(id) ON DELETE SET NULL,
            created_by_id TEXT NOT NULL REFERENCES users(id),
            assigned_to_id TEXT NOT NULL REFERENCES users(id),
            status_id TEXT NOT NULL REFERENCES task_statuses(id),
            priority_id TEXT NOT NULL REFERENCES task_priorities(id),
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            story_points INTEGER NOT NULL DEFAULT 0,
            estimated_hours INTEGER NOT NULL DEFAULT 0,
            due_date TIMESTAMP NOT NULL,
            completed_at TIMESTAMP NULL,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assigned_to_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_sprint_status ON tasks(sprint_id, status_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_epic ON tasks(epic_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_updated ON tasks(updated_at);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// seed inserts the reference data rows that are missing.
func (s *Store) seed(ctx context.Context) error {
	roles := []string{models.RoleAdmin, models.RoleScrumMaster, models.RoleProductOwner, models.RoleDeveloper}
	for _, name := range roles {
		if err := s.insertMissing(ctx, "roles", name, `INSERT INTO roles(id, name) VALUES(?, ?)`); err != nil {
			return err
		}
	}

	statuses := []string{models.StatusBacklog, models.StatusTodo, models.StatusInProgress, models.StatusDone}
	for i, name := range statuses {
		if err := s.insertMissing(ctx, "task_statuses", name, `INSERT INTO task_statuses(id, name, display_order) VALUES(?, ?, ?)`, i+1); err != nil {
			return err
		}
	}

	priorities := []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}
	for i, name := range priorities {
		if err := s.insertMissing(ctx, "task_priorities", name, `INSERT INTO task_priorities(id, name, value) VALUES(?, ?, ?)`, i+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertMissing(ctx context.Context, table, name, insert string, extra ...any) error {
	var count int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE name = ?`, name).Scan(&count); err != nil {
		return fmt.Errorf("seed %s: %w", table, err)
	}
	if count > 0 {
		return nil
	}
	args := append([]any{uuid.NewString(), name}, extra...)
	if _, err := s.exec(ctx, insert, args...); err != nil {
		return fmt.Errorf("seed %s %s: %w", table, name, err)
	}
	return nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
}
