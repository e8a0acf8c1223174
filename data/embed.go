// Package data embeds the database initialization scripts.
package data

import (
	_ "embed"
	"os"
)

//go:embed initdb/mariadb/002-ddl-tables.sql
var InitdbMariaDBTables string

//go:embed initdb/mariadb/003-ddl-privileges.sql
var InitdbMariaDBPrivileges string

// Expand substitutes ${VAR} references in an init script from the environment
func Expand(script string) string {
	return os.ExpandEnv(script)
}
