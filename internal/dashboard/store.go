package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/criapa/DOE-PE/internal/catalog"
	"github.com/criapa/DOE-PE/internal/scan"
)

// Filter narrows the records a query sees. Empty slices match everything.
type Filter struct {
	Impacts    []catalog.Impact
	Categories []string
	Query      string // case-insensitive substring of the snippet
	Limit      int    // 0 means no limit
}

// KPIs are the headline counters of the dashboard
type KPIs struct {
	Mentions   int `json:"mentions"`
	Contests   int `json:"contests"`
	Gazettes   int `json:"gazettes"`
	HighImpact int `json:"high_impact"`
}

// CategoryCount is the number of records of one category and impact
type CategoryCount struct {
	Category string         `json:"category"`
	Impact   catalog.Impact `json:"impact"`
	Count    int            `json:"count"`
}

// TopicCount is the number of records under one topic
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Store keeps the loaded records in an in-memory SQLite database
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE records (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	arquivo        TEXT NOT NULL,
	pagina         INTEGER NOT NULL,
	topico         TEXT NOT NULL,
	categoria      TEXT NOT NULL,
	termo          TEXT NOT NULL,
	impacto        TEXT NOT NULL,
	snippet        TEXT NOT NULL,
	snippet_lower  TEXT NOT NULL,
	data           TEXT NOT NULL,
	origem         TEXT NOT NULL
);
CREATE INDEX idx_records_categoria ON records(categoria);
CREATE INDEX idx_records_impacto ON records(impacto);
`

// OpenStore creates an empty in-memory store
func OpenStore(ctx context.Context) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// every pooled connection would get its own :memory: database
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Replace swaps the stored records for recs in one transaction
func (s *Store) Replace(ctx context.Context, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records
		(arquivo, pagina, topico, categoria, termo, impacto, snippet, snippet_lower, data, origem)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx,
			r.SourceFile, r.Page, r.DetectedTopic, r.Category, r.MatchedTerm,
			r.Impact.String(), r.ContextSnippet, strings.ToLower(r.ContextSnippet),
			r.ProcessedDate.String(), r.OriginFile,
		); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}

	return tx.Commit()
}

// where renders the filter as a WHERE clause and its arguments
func (f Filter) where() (string, []any) {
	var conds []string
	var args []any

	if len(f.Impacts) > 0 {
		conds = append(conds, "impacto IN ("+placeholders(len(f.Impacts))+")")
		for _, imp := range f.Impacts {
			args = append(args, imp.String())
		}
	}
	if len(f.Categories) > 0 {
		conds = append(conds, "categoria IN ("+placeholders(len(f.Categories))+")")
		for _, c := range f.Categories {
			args = append(args, c)
		}
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		conds = append(conds, "instr(snippet_lower, ?) > 0")
		args = append(args, strings.ToLower(q))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Query returns the matching records in load order
func (s *Store) Query(ctx context.Context, f Filter) ([]Record, error) {
	where, args := f.where()
	q := `SELECT arquivo, pagina, topico, categoria, termo, impacto, snippet, data, origem
		FROM records` + where + " ORDER BY id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var impact, date string
		if err := rows.Scan(&r.SourceFile, &r.Page, &r.DetectedTopic, &r.Category, &r.MatchedTerm,
			&impact, &r.ContextSnippet, &date, &r.OriginFile); err != nil {
			return nil, err
		}
		if r.Impact, err = catalog.ParseImpact(impact); err != nil {
			return nil, err
		}
		if err := r.ProcessedDate.UnmarshalText([]byte(date)); err != nil {
			r.ProcessedDate = scan.Date{}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// KPIs computes the headline counters over the filtered records
func (s *Store) KPIs(ctx context.Context, f Filter) (KPIs, error) {
	where, args := f.where()
	q := `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN categoria = ? THEN 1 ELSE 0 END), 0),
		COUNT(DISTINCT origem),
		COALESCE(SUM(CASE WHEN impacto = ? THEN 1 ELSE 0 END), 0)
		FROM records` + where
	args = append([]any{catalog.CategoryContests, catalog.ImpactHigh.String()}, args...)

	var k KPIs
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&k.Mentions, &k.Contests, &k.Gazettes, &k.HighImpact); err != nil {
		return KPIs{}, fmt.Errorf("compute kpis: %w", err)
	}
	return k, nil
}

// ByCategory counts the filtered records per category and impact
func (s *Store) ByCategory(ctx context.Context, f Filter) ([]CategoryCount, error) {
	where, args := f.where()
	q := `SELECT categoria, impacto, COUNT(*) FROM records` + where +
		` GROUP BY categoria, impacto ORDER BY categoria, impacto`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		var impact string
		if err := rows.Scan(&c.Category, &impact, &c.Count); err != nil {
			return nil, err
		}
		if c.Impact, err = catalog.ParseImpact(impact); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TopTopics returns the n most frequent topics, ties broken by name
func (s *Store) TopTopics(ctx context.Context, f Filter, n int) ([]TopicCount, error) {
	where, args := f.where()
	q := `SELECT topico, COUNT(*) AS n FROM records` + where +
		` GROUP BY topico ORDER BY n DESC, topico LIMIT ?`
	args = append(args, n)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("count topics: %w", err)
	}
	defer rows.Close()

	var out []TopicCount
	for rows.Next() {
		var t TopicCount
		if err := rows.Scan(&t.Topic, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
