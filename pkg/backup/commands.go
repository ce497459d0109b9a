package backup

import (
	"fmt"
	"strings"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// shellQuote single-quotes s for interpolation into a shell command.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func targetDBName(db *model.Database) string {
	if db.DBName != "" {
		return db.DBName
	}
	return "postgres"
}

// dumpCommand builds the pg_dump invocation for a database. The
// password travels as an environment assignment so pg_dump never
// prompts.
func dumpCommand(db *model.Database, password string) string {
	cmd := fmt.Sprintf("pg_dump --no-password -h %s -p %d", shellQuote(db.Host), db.Port)
	if db.Username != "" {
		cmd += " -U " + shellQuote(db.Username)
	}
	cmd += " " + shellQuote(targetDBName(db))
	if password != "" {
		cmd = "PGPASSWORD=" + shellQuote(password) + " " + cmd
	}
	return cmd
}

// restoreCommand builds the psql invocation that replays a dump read
// from stdin.
func restoreCommand(db *model.Database, password string) string {
	cmd := fmt.Sprintf("psql --no-password -v ON_ERROR_STOP=1 -h %s -p %d", shellQuote(db.Host), db.Port)
	if db.Username != "" {
		cmd += " -U " + shellQuote(db.Username)
	}
	cmd += " -d " + shellQuote(targetDBName(db)) + " -f -"
	if password != "" {
		cmd = "PGPASSWORD=" + shellQuote(password) + " " + cmd
	}
	return cmd
}
