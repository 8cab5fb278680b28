package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql schema_postgres.sql
var schemaFS embed.FS

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store 数据库存储层（SQLite / PostgreSQL）
type Store struct {
	db     *sql.DB
	driver string
}

// New 创建基于 SQLite 文件的 Store
func New(dbPath string) (*Store, error) {
	// 确保 data 目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return Open(DriverSQLite, dbPath)
}

// Open 按驱动打开数据库并初始化结构
func Open(driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite 建议单连接
		db.SetMaxIdleConns(1)
	}

	store := &Store{db: db, driver: driver}

	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema 初始化数据库结构
func (s *Store) initSchema() error {
	name := "schema.sql"
	if s.driver == DriverPostgres {
		name = "schema_postgres.sql"
	}
	schemaSQL, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if _, err := s.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return s.ensureRiwayatColumns()
}

// riwayatColumns 较新版本增加的列及类型，旧库缺失时补齐
var riwayatColumns = []struct {
	name, sqliteType, postgresType string
}{
	{"nopd", "TEXT", "TEXT"},
	{"npwpd", "TEXT", "TEXT"},
	{"jenis_pajak_usaha", "TEXT", "TEXT"},
	{"bulan_iso", "TEXT", "TEXT"},
	{"growth", "REAL", "DOUBLE PRECISION"},
}

// ensureRiwayatColumns 兼容旧版 riwayat 表
func (s *Store) ensureRiwayatColumns() error {
	rows, err := s.db.Query(`SELECT * FROM riwayat WHERE 1 = 0`)
	if err != nil {
		return fmt.Errorf("inspect riwayat failed: %w", err)
	}
	cols, err := rows.Columns()
	rows.Close()
	if err != nil {
		return fmt.Errorf("inspect riwayat columns failed: %w", err)
	}

	existing := map[string]bool{}
	for _, c := range cols {
		existing[strings.ToLower(c)] = true
	}
	for _, c := range riwayatColumns {
		if existing[c.name] {
			continue
		}
		typ := c.sqliteType
		if s.driver == DriverPostgres {
			typ = c.postgresType
		}
		if _, err := s.db.Exec(fmt.Sprintf(`ALTER TABLE riwayat ADD COLUMN %s %s`, c.name, typ)); err != nil {
			return fmt.Errorf("add column %s failed: %w", c.name, err)
		}
	}
	return nil
}

// Driver 当前驱动名
func (s *Store) Driver() string {
	return s.driver
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping 检查连接
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind 将 ? 占位符转换为驱动对应的形式
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// execer 事务与连接共用的执行接口
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) exec(ctx context.Context, e execer, query string, args ...any) (sql.Result, error) {
	return e.ExecContext(ctx, s.rebind(query), args...)
}
