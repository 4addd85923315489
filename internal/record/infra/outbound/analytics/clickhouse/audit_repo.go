package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	recordDomain "github.com/davicafu/querylab/internal/record/domain"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// SearchAuditRepo implementa la interfaz SearchAuditRepository para ClickHouse.
type SearchAuditRepo struct {
	db *sql.DB
}

// NewSearchAuditRepo es el constructor.
func NewSearchAuditRepo(addr string, dbName string) (*SearchAuditRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &SearchAuditRepo{db: conn}, nil
}

// LogBatch inserta un lote de auditorías. ClickHouse funciona mejor con
// inserciones en lotes.
func (r *SearchAuditRepo) LogBatch(ctx context.Context, audits []recordDomain.SearchAudit) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO searches_log (raw_filter, fields, result_size, event_time)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, audit := range audits {
		if _, err := stmt.ExecContext(
			ctx,
			audit.RawFilter,
			strings.Join(audit.Fields, ","),
			audit.ResultSize,
			audit.At,
		); err != nil {
			// Si un registro falla, hacemos rollback de todo el lote.
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for search audit: %w", err)
		}
	}

	return tx.Commit()
}

// GetDailySearchTrend devuelve el volumen diario de búsquedas en el rango.
func (r *SearchAuditRepo) GetDailySearchTrend(ctx context.Context, start, end time.Time) ([]recordDomain.DailySearchTrend, error) {
	query := `
		SELECT
			toStartOfDay(event_time) AS day,
			count() AS searches
		FROM searches_log
		WHERE event_time BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []recordDomain.DailySearchTrend
	for rows.Next() {
		var trend recordDomain.DailySearchTrend
		if err := rows.Scan(&trend.Day, &trend.SearchCount); err != nil {
			return nil, err
		}
		trends = append(trends, trend)
	}

	return trends, rows.Err()
}

var _ recordDomain.SearchAuditRepository = (*SearchAuditRepo)(nil)
