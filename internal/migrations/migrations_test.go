package migrations_test

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/foreman/internal/migrations"
	"github.com/JaimeStill/foreman/pkg/database"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(&database.Config{Driver: database.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpSQLite(t *testing.T) {
	db := openSQLite(t)

	if err := migrations.Up(db, database.DriverSQLite); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if err := migrations.Up(db, database.DriverSQLite); err != nil {
		t.Fatalf("second Up should be a no-op: %v", err)
	}

	for _, table := range []string{"documents", "validation_results", "violations"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestHistoryTablesAreAppendOnly(t *testing.T) {
	db := openSQLite(t)
	if err := migrations.Up(db, database.DriverSQLite); err != nil {
		t.Fatalf("Up: %v", err)
	}

	_, err := db.Exec(
		`INSERT INTO validation_results (id, document_id, level, overall_status, checks, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		"r1", "d1", "basic", "pass", "[]", time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	tests := []struct {
		name string
		stmt string
	}{
		{"update", `UPDATE validation_results SET overall_status = 'fail'`},
		{"delete", `DELETE FROM validation_results`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Exec(tt.stmt)
			if err == nil || !strings.Contains(err.Error(), "append-only") {
				t.Errorf("%s err = %v, want append-only rejection", tt.name, err)
			}
		})
	}
}

func TestSourceUnknownDriver(t *testing.T) {
	if _, err := migrations.Source("mysql"); !errors.Is(err, database.ErrUnsupportedDriver) {
		t.Errorf("Source(mysql) error = %v, want ErrUnsupportedDriver", err)
	}
}
