package filesystem

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	recordDomain "github.com/davicafu/querylab/internal/record/domain"
)

// JSONAuditStorage es un adaptador outbound que guarda el registro de búsquedas
// en un fichero JSON. Pensado para despliegues locales sin ClickHouse.
type JSONAuditStorage struct {
	filePath string
	mu       sync.Mutex // Mutex para evitar race conditions al leer/escribir el archivo.
}

// NewJSONAuditStorage es el constructor.
func NewJSONAuditStorage(filePath string) *JSONAuditStorage {
	return &JSONAuditStorage{
		filePath: filePath,
	}
}

type auditEntry struct {
	RawFilter  string    `json:"rawFilter"`
	Fields     []string  `json:"fields"`
	ResultSize int       `json:"resultSize"`
	At         time.Time `json:"at"`
}

// LogBatch añade las búsquedas al fichero JSON.
// Si el fichero no existe, lo crea.
func (s *JSONAuditStorage) LogBatch(ctx context.Context, audits []recordDomain.SearchAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, a := range audits {
		entries = append(entries, auditEntry{
			RawFilter:  a.RawFilter,
			Fields:     a.Fields,
			ResultSize: a.ResultSize,
			At:         a.At,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.filePath, data, 0644)
}

// GetDailySearchTrend agrega en memoria el número de búsquedas por día.
func (s *JSONAuditStorage) GetDailySearchTrend(ctx context.Context, start, end time.Time) ([]recordDomain.DailySearchTrend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	counts := make(map[time.Time]int)
	for _, e := range entries {
		if e.At.Before(start) || e.At.After(end) {
			continue
		}
		day := time.Date(e.At.Year(), e.At.Month(), e.At.Day(), 0, 0, 0, 0, time.UTC)
		counts[day]++
	}

	trends := make([]recordDomain.DailySearchTrend, 0, len(counts))
	for day, count := range counts {
		trends = append(trends, recordDomain.DailySearchTrend{Day: day, SearchCount: count})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Day.Before(trends[j].Day) })

	return trends, nil
}

func (s *JSONAuditStorage) readAll() ([]auditEntry, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, err
	}

	var entries []auditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Verificación en tiempo de compilación.
var _ recordDomain.SearchAuditRepository = (*JSONAuditStorage)(nil)
