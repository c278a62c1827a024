package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"jobflow/internal/database"
	"jobflow/internal/domain/job"
)

var ErrMissingApplyLink = errors.New("job has no apply link")

type JobRepository interface {
	List(ctx context.Context, limit, offset int) ([]job.Job, error)
	Count(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id int64) (job.Job, error)
	// Upsert inserts j or refreshes the row with the same apply link. It
	// reports whether a new row was created.
	Upsert(ctx context.Context, j job.Job) (bool, error)
}

type PostgresJobRepository struct {
	db database.DB
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

const jobColumns = `id, title, company, location, description, apply_link, tags, pay, experience, created_at`

func (r *PostgresJobRepository) List(ctx context.Context, limit, offset int) ([]job.Job, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs
		 ORDER BY id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]job.Job, 0, limit)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresJobRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresJobRepository) GetByID(ctx context.Context, id int64) (job.Job, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return job.Job{}, job.ErrNotFound
		}
		return job.Job{}, err
	}
	return j, nil
}

func (r *PostgresJobRepository) Upsert(ctx context.Context, j job.Job) (bool, error) {
	link := strings.TrimSpace(j.ApplyLink)
	if link == "" {
		return false, ErrMissingApplyLink
	}
	tags := j.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return false, fmt.Errorf("encode tags: %w", err)
	}

	var inserted bool
	err = r.db.QueryRow(ctx,
		`INSERT INTO jobs (title, company, location, description, apply_link, tags, pay, experience)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
		 ON CONFLICT (apply_link) DO UPDATE SET
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			location = EXCLUDED.location,
			description = EXCLUDED.description,
			tags = EXCLUDED.tags,
			pay = EXCLUDED.pay,
			experience = EXCLUDED.experience
		 RETURNING (xmax = 0)`,
		strings.TrimSpace(j.Title),
		strings.TrimSpace(j.Company),
		strings.TrimSpace(j.Location),
		j.Description,
		link,
		string(tagsJSON),
		nullable(j.Pay),
		nullable(j.Experience),
	).Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func scanJob(row database.Row) (job.Job, error) {
	var (
		j          job.Job
		tags       []byte
		pay        *string
		experience *string
	)
	if err := row.Scan(
		&j.ID,
		&j.Title,
		&j.Company,
		&j.Location,
		&j.Description,
		&j.ApplyLink,
		&tags,
		&pay,
		&experience,
		&j.CreatedAt,
	); err != nil {
		return job.Job{}, err
	}

	j.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &j.Tags); err != nil {
			return job.Job{}, fmt.Errorf("decode tags of job %d: %w", j.ID, err)
		}
	}
	if pay != nil {
		j.Pay = *pay
	}
	if experience != nil {
		j.Experience = *experience
	}
	return j, nil
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
