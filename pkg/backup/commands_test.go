package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsdeck/opsdeck/pkg/model"
)

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "'plain'", shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, `'a;rm -rf /'`, shellQuote("a;rm -rf /"))
}

func TestDumpCommand(t *testing.T) {
	db := &model.Database{Host: "db-1.internal", Port: 5433, DBName: "orders", Username: "ops"}

	cmd := dumpCommand(db, "p'w")
	assert.Equal(t, `PGPASSWORD='p'\''w' pg_dump --no-password -h 'db-1.internal' -p 5433 -U 'ops' 'orders'`, cmd)
}

func TestDumpCommandDefaults(t *testing.T) {
	db := &model.Database{Host: "db-1", Port: 5432}

	cmd := dumpCommand(db, "")
	assert.Equal(t, `pg_dump --no-password -h 'db-1' -p 5432 'postgres'`, cmd)
}

func TestRestoreCommand(t *testing.T) {
	db := &model.Database{Host: "db-1", Port: 5432, DBName: "orders", Username: "ops"}

	cmd := restoreCommand(db, "pw")
	assert.Equal(t, `PGPASSWORD='pw' psql --no-password -v ON_ERROR_STOP=1 -h 'db-1' -p 5432 -U 'ops' -d 'orders' -f -`, cmd)
}
