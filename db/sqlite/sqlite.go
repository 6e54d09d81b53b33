package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("无法创建目录，请检查权限问题: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("无法打开数据库，请检查权限问题: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("无法连接到数据库: %w", err)
	}

	sqlDB := &SQLiteDB{db: db}

	if err := sqlDB.initTable(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("数据库创建失败: %w", err)
	}

	return sqlDB, nil
}

func (d *SQLiteDB) Close() error { return d.db.Close() }

func (d *SQLiteDB) initTable() error {
	schema := `
CREATE TABLE IF NOT EXISTS records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  keyword TEXT NOT NULL,
  title TEXT NOT NULL,
  title_link TEXT UNIQUE NOT NULL,
  html_link TEXT,                -- 缺失时为 NULL
  author TEXT,
  source TEXT,
  source_link TEXT,
  published_date TEXT NOT NULL,  -- ISO 日期，字符串比较即日期比较
  download TEXT,                 -- 弹窗占位时为 NULL
  database_type TEXT,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_records_keyword ON records(keyword);
CREATE INDEX IF NOT EXISTS idx_records_date ON records(published_date);
CREATE INDEX IF NOT EXISTS idx_records_database ON records(database_type);
	`

	_, err := d.db.Exec(schema)

	return err
}
