// Package migrations holds the schema, applied in file name order.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed *.sql
var Files embed.FS

// Names returns the migration file names in apply order.
func Names() ([]string, error) {
	names, err := fs.Glob(Files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the SQL of one migration.
func Read(name string) (string, error) {
	b, err := Files.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
