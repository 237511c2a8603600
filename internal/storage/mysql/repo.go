package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"

	"review_insights/internal/domain"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

var (
	_ domain.ReviewSource = (*Repo)(nil)
	_ domain.ReviewSink   = (*Repo)(nil)
)

// Repo is a ReviewSource over the scoring backend's reviews table. It is
// also the ReviewSink for submitted reviews.
type Repo struct {
	db    *sql.DB
	table string
}

func New(db *sql.DB, table string) (*Repo, error) {
	if table == "" {
		table = "api_review"
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Repo{db: db, table: table}, nil
}

func (r *Repo) Name() string { return "mysql:" + r.table }

// EnsureSchema creates the reviews table when it does not exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(createReviewsTableSQL, r.table))
	return err
}

// Insert stores a scored review and returns its generated id. rv.ID is
// ignored; the table assigns ids.
func (r *Repo) Insert(ctx context.Context, rv domain.ReviewRecord) (string, error) {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(insertReviewSQL, r.table), rv.Text, rv.PredictedScore)
	if err != nil {
		return "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// FetchReviews returns every row as the full review set.
func (r *Repo) FetchReviews(ctx context.Context) ([]domain.ReviewRecord, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(listReviewsSQL, r.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReviewRecord
	for rows.Next() {
		var (
			id    int64
			score int
			text  sql.NullString
		)
		if err := rows.Scan(&id, &score, &text); err != nil {
			return nil, err
		}
		out = append(out, domain.ReviewRecord{
			ID:             strconv.FormatInt(id, 10),
			PredictedScore: score,
			Text:           text.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
