package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"courier-engine/internal/domain/aggregation"
)

type aggregationRepository struct {
	db DBTX
}

func NewAggregationRepository(db DBTX) AggregationRepository {
	return &aggregationRepository{db: db}
}

func (r *aggregationRepository) Insert(ctx context.Context, p *aggregation.PendingPayload) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Created.IsZero() {
		p.Created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO email_aggregation (id, org_id, bundle, application, payload, created)
        VALUES ($1,$2,$3,$4,$5,$6)
    `,
		p.ID,
		p.Key.OrgID,
		p.Key.Bundle,
		p.Key.Application,
		p.Payload,
		p.Created,
	)
	if isUniqueViolation(err) {
		// Ingestion is at-least-once; a redelivered row is already queued.
		return nil
	}
	return err
}

func (r *aggregationRepository) InsertBatch(ctx context.Context, payloads []*aggregation.PendingPayload) error {
	if len(payloads) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, p := range payloads {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.Created.IsZero() {
			p.Created = now
		}
	}

	const cols = 6
	values := make([]string, len(payloads))
	args := make([]interface{}, 0, len(payloads)*cols)
	for i, p := range payloads {
		values[i] = "(" + buildPlaceholders(i*cols+1, cols) + ")"
		args = append(args, p.ID, p.Key.OrgID, p.Key.Bundle, p.Key.Application, p.Payload, p.Created)
	}

	err := WithTx(ctx, r.db, func(tx DBTX) error {
		_, err := tx.ExecContext(ctx, `
        INSERT INTO email_aggregation (id, org_id, bundle, application, payload, created)
        VALUES `+strings.Join(values, ","),
			args...,
		)
		return err
	})
	if isUniqueViolation(err) {
		// A redelivered batch rolls back whole and is already queued.
		return nil
	}
	return err
}

// FetchWindow returns one page of the key's rows with created in (start, end],
// ordered by creation time so replay is deterministic.
func (r *aggregationRepository) FetchWindow(ctx context.Context, key aggregation.Key, start, end time.Time, offset, limit int) ([]aggregation.PendingPayload, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, org_id, bundle, application, payload, created
        FROM email_aggregation
        WHERE org_id = $1 AND bundle = $2 AND application = $3
          AND created > $4 AND created <= $5
        ORDER BY created ASC, id ASC
        OFFSET $6 LIMIT $7
    `, key.OrgID, key.Bundle, key.Application, start, end, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payloads []aggregation.PendingPayload
	for rows.Next() {
		var p aggregation.PendingPayload
		if err := rows.Scan(
			&p.ID,
			&p.Key.OrgID,
			&p.Key.Bundle,
			&p.Key.Application,
			&p.Payload,
			&p.Created,
		); err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payloads, nil
}

func (r *aggregationRepository) PurgeUpTo(ctx context.Context, key aggregation.Key, end time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        DELETE FROM email_aggregation
        WHERE org_id = $1 AND bundle = $2 AND application = $3 AND created <= $4
    `, key.OrgID, key.Bundle, key.Application, end)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
