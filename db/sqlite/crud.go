package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CNKIHunter/internal/models"
)

const recordColumns = `title, title_link, html_link, author, source, source_link,
		published_date, download, database_type`

func (s *SQLiteDB) Upsert(keyword string, r *models.Record) (int64, error) {
	query := `
	INSERT INTO records (
		keyword, ` + recordColumns + `, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(title_link) DO UPDATE SET
		keyword = excluded.keyword,
		title = excluded.title,
		html_link = excluded.html_link,
		author = excluded.author,
		source = excluded.source,
		source_link = excluded.source_link,
		published_date = excluded.published_date,
		download = excluded.download,
		database_type = excluded.database_type,
		updated_at = CURRENT_TIMESTAMP
	RETURNING id
	`

	var id int64
	err := s.db.QueryRow(query,
		keyword, r.Title, r.TitleLink, nullable(r.HTMLLink), r.Author, r.Source, r.SourceLink,
		r.DateString(), nullable(r.Download), r.Database,
	).Scan(&id)

	return id, err
}

func (s *SQLiteDB) ListRecords(cond models.RecordCondition) ([]*models.Record, int, error) {
	where, args := buildWhere(cond)

	// 计算总量
	countQuery := "SELECT COUNT(*) FROM records" + where
	var total int
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + recordColumns + " FROM records" + where + " ORDER BY published_date DESC, id ASC"
	if cond.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, cond.Limit, cond.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	return records, total, err
}

func (s *SQLiteDB) CountRecords(cond models.RecordCondition) (int, error) {
	where, args := buildWhere(cond)
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM records"+where, args...).Scan(&count)
	return count, err
}

func (s *SQLiteDB) DeleteRecords(cond models.RecordCondition) (int, error) {
	where, args := buildWhere(cond)
	result, err := s.db.Exec("DELETE FROM records"+where, args...)
	if err != nil {
		return 0, err
	}

	count, err := result.RowsAffected()
	return int(count), err
}

// buildWhere 返回以 " WHERE" 开头的条件子句，无条件时为空串
func buildWhere(cond models.RecordCondition) (string, []interface{}) {
	var where []string
	var args []interface{}

	if cond.Keyword != "" {
		where = append(where, "keyword = ?")
		args = append(args, cond.Keyword)
	}

	if len(cond.Databases) > 0 {
		placeholders := strings.Repeat("?,", len(cond.Databases))
		placeholders = placeholders[:len(placeholders)-1]
		where = append(where, "database_type IN ("+placeholders+")")
		for _, db := range cond.Databases {
			args = append(args, db)
		}
	}

	if cond.DateFrom != nil {
		where = append(where, "published_date >= ?")
		args = append(args, cond.DateFrom.Format(models.DateLayout))
	}

	if cond.DateTo != nil {
		where = append(where, "published_date <= ?")
		args = append(args, cond.DateTo.Format(models.DateLayout))
	}

	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func scanRecords(rows *sql.Rows) ([]*models.Record, error) {
	var records []*models.Record

	for rows.Next() {
		var r models.Record
		var htmlLink, download sql.NullString
		var date string

		err := rows.Scan(
			&r.Title, &r.TitleLink, &htmlLink, &r.Author, &r.Source, &r.SourceLink,
			&date, &download, &r.Database,
		)
		if err != nil {
			return nil, err
		}

		r.Date, err = time.Parse(models.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("记录 %s 的日期无效: %w", r.TitleLink, err)
		}
		if htmlLink.Valid {
			r.HTMLLink = &htmlLink.String
		}
		if download.Valid {
			r.Download = &download.String
		}

		records = append(records, &r)
	}

	return records, rows.Err()
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
