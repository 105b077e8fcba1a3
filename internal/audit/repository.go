package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const exportLimit = 10000

// PGRepository membaca audit_logs dari PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository membuat repository audit berbasis pgx.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// TimelineWindow mengambil satu jendela timeline terurut dari yang terbaru.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	where, args := whereClause(filters)
	args = append(args, limit, offset)
	query := `SELECT occurred_at, COALESCE(actor_id, 0), action, entity, entity_id, meta FROM audit_logs` + where +
		fmt.Sprintf(` ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return r.query(ctx, query, args...)
}

// TimelineAll mengambil seluruh baris yang cocok untuk ekspor.
func (r *PGRepository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	where, args := whereClause(filters)
	query := `SELECT occurred_at, COALESCE(actor_id, 0), action, entity, entity_id, meta FROM audit_logs` + where +
		fmt.Sprintf(` ORDER BY occurred_at DESC, id DESC LIMIT %d`, exportLimit)
	return r.query(ctx, query, args...)
}

func (r *PGRepository) query(ctx context.Context, query string, args ...any) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var tr TimelineRow
		err := row.Scan(&tr.At, &tr.ActorID, &tr.Action, &tr.Entity, &tr.EntityID, &tr.Meta)
		return tr, err
	})
	if err != nil {
		return nil, fmt.Errorf("audit: scan timeline: %w", err)
	}
	return result, nil
}

func whereClause(filters TimelineFilters) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !filters.From.IsZero() {
		add("occurred_at >= $%d", filters.From.UTC())
	}
	if !filters.To.IsZero() {
		// Batas atas inklusif sampai akhir hari.
		add("occurred_at < $%d", filters.To.UTC().Add(24*time.Hour))
	}
	if filters.ActorID > 0 {
		add("actor_id = $%d", filters.ActorID)
	}
	if filters.Entity != "" {
		add("entity = $%d", filters.Entity)
	}
	if filters.Action != "" {
		add("action = $%d", filters.Action)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
