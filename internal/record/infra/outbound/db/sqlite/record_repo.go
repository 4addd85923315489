package sqlite

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
)

type RecordRepoSQLite struct {
	db *sql.DB
}

func NewRecordRepoSQLite(db *sql.DB) *RecordRepoSQLite {
	return &RecordRepoSQLite{db: db}
}

// Mapeo de nombres de campo del filtro a columnas. Un campo saneado que no
// esté aquí se ignora al construir el WHERE.
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
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		evt.ID.String(), evt.AggregateType, evt.AggregateID, evt.EventType, payloadBytes, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// ------------------ CRUD + Outbox ------------------

// Create inserta record y evento en transacción
func (r *RecordRepoSQLite) Create(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
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
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Name, string(rec.Status), rec.Priority, rec.Notes, rec.CreatedAt, rec.UpdatedAt,
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
func (r *RecordRepoSQLite) Update(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
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
		`UPDATE records SET name=?, status=?, priority=?, notes=?, updated_at=? WHERE id=?`,
		rec.Name, string(rec.Status), rec.Priority, rec.Notes, rec.UpdatedAt, rec.ID.String(),
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
		return err
	}

	return tx.Commit()
}

// DeleteByID elimina record y crea evento en transacción
func (r *RecordRepoSQLite) DeleteByID(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id=?`, id.String())
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

// GetByID con manejo de errores en uuid.Parse
func (r *RecordRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*recordDomain.Record, error) {
	query := `SELECT id, name, status, priority, notes, created_at, updated_at FROM records WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id.String())

	rec, err := scanRecord(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, recordDomain.ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ListByFilter traduce el filtro saneado a condiciones SQL. SQLite coerce
// los operandos string sobre columnas numéricas, así que los valores se
// enlazan tal cual salen del parser.
func (r *RecordRepoSQLite) ListByFilter(ctx context.Context, f sharedDomain.Filter, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*recordDomain.Record, error) {
	var args []interface{}
	var conditions []string

	for _, cond := range f.ToConditions() {
		col, ok := columnByField[cond.Field]
		if !ok {
			continue
		}
		if cond.Op == sharedDomain.OpLike || cond.Op == sharedDomain.OpILike {
			conditions = append(conditions, fmt.Sprintf("%s LIKE ?", col))
			args = append(args, fmt.Sprintf("%%%v%%", cond.Value))
			continue
		}
		conditions = append(conditions, fmt.Sprintf("%s %s ?", col, cond.Op))
		args = append(args, cond.Value)
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

	query := fmt.Sprintf(`SELECT id, name, status, priority, notes, created_at, updated_at
		FROM records %s ORDER BY %s LIMIT ? OFFSET ?`, where, orderBy)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*recordDomain.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func scanRecord(scan func(dest ...interface{}) error) (*recordDomain.Record, error) {
	var rec recordDomain.Record
	var idStr, status string
	if err := scan(&idStr, &rec.Name, &status, &rec.Priority, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	rec.ID = parsedID
	rec.Status = recordDomain.RecordStatus(status)

	return &rec, nil
}

// ------------------ Inicialización de DB ------------------

// InitSQLite crea las tablas records y outbox si no existen
func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS records (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            status TEXT NOT NULL,
            priority INTEGER NOT NULL DEFAULT 0,
            notes TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS outbox (
            id TEXT PRIMARY KEY,
            aggregate_type TEXT NOT NULL,
            aggregate_id TEXT NOT NULL,
            event_type TEXT NOT NULL,
            payload TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            processed BOOLEAN NOT NULL DEFAULT 0
        )
    `)
	return err
}

var _ recordDomain.RecordRepository = (*RecordRepoSQLite)(nil)
