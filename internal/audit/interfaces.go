package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"
)

// TableExporter provides access to database tables for export.
type TableExporter interface {
	// GetTableNames returns list of table names to export.
	GetTableNames(ctx context.Context) ([]string, error)

	// GetTableData returns rows for a table as maps.
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)

	// GetDB returns underlying sql.DB for custom queries.
	GetDB() *sql.DB
}

// ExcelWriter writes data to Excel format.
type ExcelWriter interface {
	AddSheet(name string) error
	WriteHeader(columns []string) error
	WriteRow(row []interface{}) error
	Save(w io.Writer) error
	SaveToFile(path string) error
}

// DataCleaner removes records past their retention window.
type DataCleaner interface {
	// PurgeCancelledReservations deletes cancelled reservations older
	// than the given duration and returns the number removed.
	PurgeCancelledReservations(ctx context.Context, olderThan time.Duration) (int64, error)
}

// GenerateFilename creates a filename like "2026-01.xlsx".
func GenerateFilename(t time.Time) string {
	return fmt.Sprintf("%s.xlsx", t.Format("2006-01"))
}

// GenerateFilenameForPreviousMonth creates the filename for the previous month.
func GenerateFilenameForPreviousMonth() string {
	now := time.Now()
	prevMonth := now.AddDate(0, -1, 0)
	return GenerateFilename(prevMonth)
}
