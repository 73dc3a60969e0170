package migrations

import (
	"strings"
	"testing"
)

func TestLoad_EmbeddedFiles(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	if err != nil {
		t.Fatalf("load(postgres) error = %v", err)
	}
	if len(pg) != 2 || pg[0].name != "001_experiment_runs.sql" {
		t.Errorf("postgres migrations = %v", pg)
	}

	ch, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		t.Fatalf("load(clickhouse) error = %v", err)
	}
	for _, m := range ch {
		if err := validateNoSemicolonInStrings(m.sql); err != nil {
			t.Errorf("%s: %v", m.name, err)
		}
		if n := len(splitStatements(m.sql)); n != 1 {
			t.Errorf("%s: %d statements, want 1", m.name, n)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `-- header
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second
CREATE TABLE b (y UInt8) ENGINE = Memory;
`
	stmts := splitStatements(sql)
	if len(stmts) != 2 {
		t.Fatalf("splitStatements() = %d statements, want 2", len(stmts))
	}
	if !strings.HasPrefix(stmts[1], "CREATE TABLE b") {
		t.Errorf("stmts[1] = %q", stmts[1])
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	if err := validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1;`); err != nil {
		t.Errorf("escaped quote rejected: %v", err)
	}
	if err := validateNoSemicolonInStrings(`SELECT 'a;b'`); err == nil {
		t.Error("semicolon in string accepted")
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/cropstress")
	if err != nil || db != "cropstress" {
		t.Errorf("databaseFromDSN() = %q, %v", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("missing database accepted")
	}
}
