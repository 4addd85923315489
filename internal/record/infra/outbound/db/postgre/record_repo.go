package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	recordDomain "github.com/davicafu/querylab/internal/record/domain"
	sharedDomain "github.com/davicafu/querylab/shared/domain"
	sharedQuery "github.com/davicafu/querylab/shared/platform/query"
	"github.com/google/uuid"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type RecordRepoPostgres struct {
	db *sql.DB
}

func NewRecordRepoPostgres(db *sql.DB) *RecordRepoPostgres {
	return &RecordRepoPostgres{db: db}
}

var columnByField = map[string]string{
	"name":      "name",
	"status":    "status",
	"priority":  "priority",
	"notes":     "notes",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// ------------------ Helper DRY para insertar en outbox ------------------

func insertOutboxTx(ctx context.Context, tx *sql.Tx, evt sharedDomain.OutboxEvent) error {
	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at, processed)
		 VALUES ($1, $2, $3, $4, $5, $6, false)`,
		evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, payloadBytes, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// ------------------ CRUD + Outbox ------------------

// Create inserta record y evento en transacción
func (r *RecordRepoPostgres) Create(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (id, name, status, priority, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Name, string(rec.Status), rec.Priority, rec.Notes, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// Update actualiza record y crea evento en transacción
func (r *RecordRepoPostgres) Update(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE records SET name=$1, status=$2, priority=$3, notes=$4, updated_at=$5 WHERE id=$6`,
		rec.Name, string(rec.Status), rec.Priority, rec.Notes, rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = recordDomain.ErrRecordNotFound
		return err
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return fmt.Errorf("failed to insert outbox: %w", err)
	}

	return tx.Commit()
}

// DeleteByID elimina record y crea evento en transacción
func (r *RecordRepoPostgres) DeleteByID(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id=$1`, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = recordDomain.ErrRecordNotFound
		return err
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *RecordRepoPostgres) GetByID(ctx context.Context, id uuid.UUID) (*recordDomain.Record, error) {
	query := `SELECT id, name, status, priority, notes, created_at, updated_at FROM records WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var rec recordDomain.Record
	var status string
	if err := row.Scan(&rec.ID, &rec.Name, &status, &rec.Priority, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, recordDomain.ErrRecordNotFound
		}
		return nil, err
	}
	rec.Status = recordDomain.RecordStatus(status)

	return &rec, nil
}

// ListByFilter traduce el filtro saneado a un WHERE con placeholders $n.
func (r *RecordRepoPostgres) ListByFilter(ctx context.Context, f sharedDomain.Filter, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*recordDomain.Record, error) {
	var args []interface{}
	var conditions []string

	for _, cond := range f.ToConditions() {
		col, ok := columnByField[cond.Field]
		if !ok {
			continue
		}
		if cond.Op == sharedDomain.OpLike || cond.Op == sharedDomain.OpILike {
			args = append(args, fmt.Sprintf("%%%v%%", cond.Value))
			conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
			continue
		}
		args = append(args, cond.Value)
		conditions = append(conditions, fmt.Sprintf("%s %s $%d", col, cond.Op, len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := "created_at DESC"
	if sort.Field != "" {
		col, ok := columnByField[sort.Field]
		if !ok {
			col = "created_at"
		}
		dir := "ASC"
		if sort.Desc {
			dir = "DESC"
		}
		orderBy = fmt.Sprintf("%s %s", col, dir)
	}

	limit := 50
	offset := 0
	if p, ok := pagination.(sharedQuery.OffsetPagination); ok {
		if p.Limit > 0 {
			limit = p.Limit
		}
		offset = p.Offset
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT id, name, status, priority, notes, created_at, updated_at
		FROM records %s ORDER BY %s LIMIT $%d OFFSET $%d`, where, orderBy, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*recordDomain.Record
	for rows.Next() {
		var rec recordDomain.Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.Name, &status, &rec.Priority, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Status = recordDomain.RecordStatus(status)
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// ------------------ Inicialización de DB ------------------

// InitPostgres crea las tablas records y outbox si no existen
func InitPostgres(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS records (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            status TEXT NOT NULL,
            priority INTEGER NOT NULL DEFAULT 0,
            notes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS outbox (
            id UUID PRIMARY KEY,
            aggregate_type TEXT NOT NULL,
            aggregate_id TEXT NOT NULL,
            event_type TEXT NOT NULL,
            payload JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            processed BOOLEAN NOT NULL DEFAULT false
        )
    `)
	return err
}

var _ recordDomain.RecordRepository = (*RecordRepoPostgres)(nil)
