// Package database, SQLite bağlantısını ve migration sistemini yönetir.
//
// Driver: modernc.org/sqlite (pure-Go, CGO gerekmez). Bağlantı havuzu tek
// bağlantıya sabitlenir: SQLite zaten tek yazar kabul eder, tek bağlantı
// SQLITE_BUSY yarışlarını ortadan kaldırır. Repository'ler bu yüzden bir
// rows iterasyonu açıkken ikinci bir sorgu çalıştırmaz.
package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/akinalp/huddle/pkg/logger"
)

// DB, veritabanı bağlantısını saran struct.
type DB struct {
	Conn *sql.DB
	log  *logger.Logger
}

// New, yeni bir SQLite bağlantısı açar ve migration'ları çalıştırır.
// migrationsFS kökünde NNN_name.sql dosyaları bulunmalıdır.
func New(dbPath string, migrationsFS fs.FS, log *logger.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Conn: conn, log: log}
	if err := db.runMigrations(migrationsFS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("connected and migrations applied", zap.String("path", dbPath))
	return db, nil
}

// Close, veritabanı bağlantısını kapatır.
func (db *DB) Close() error {
	return db.Conn.Close()
}

// runMigrations, henüz uygulanmamış .sql dosyalarını alfabetik sırayla çalıştırır.
// Uygulananlar schema_migrations tablosunda tutulur.
func (db *DB) runMigrations(migrationsFS fs.FS) error {
	if _, err := db.Conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	applied, err := db.appliedMigrations()
	if err != nil {
		return err
	}

	for _, file := range sqlFiles {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		for i, stmt := range splitStatements(string(content)) {
			if _, err := db.Conn.Exec(stmt); err != nil {
				return fmt.Errorf("failed to execute migration %s (statement %d): %w", file, i+1, err)
			}
		}

		if _, err := db.Conn.Exec("INSERT INTO schema_migrations (filename) VALUES (?)", file); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}
		db.log.Info("migration applied", zap.String("file", file))
	}

	return nil
}

// appliedMigrations, uygulanmış migration dosya adlarını döner.
func (db *DB) appliedMigrations() (map[string]bool, error) {
	rows, err := db.Conn.Query("SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// splitStatements, SQL metnini noktalı virgülden böler.
// Tek tırnaklı string literal'lerin içindeki noktalı virgüller ve
// "--" satır yorumları dikkate alınır.
func splitStatements(src string) []string {
	var statements []string
	var current strings.Builder
	inString := false

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			statements = append(statements, s)
		}
		current.Reset()
	}

	for i := 0; i < len(src); i++ {
		ch := src[i]

		if !inString && ch == '-' && i+1 < len(src) && src[i+1] == '-' {
			for i < len(src) && src[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
			continue
		}

		if ch == '\'' {
			if inString && i+1 < len(src) && src[i+1] == '\'' {
				current.WriteString("''")
				i++
				continue
			}
			inString = !inString
		}

		if ch == ';' && !inString {
			flush()
			continue
		}
		current.WriteByte(ch)
	}
	flush()

	return statements
}
