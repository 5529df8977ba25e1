//go:build !sqlite

package storage

import "fmt"

func newSQLiteStore(_ string) (Store, error) {
	return nil, fmt.Errorf("run store: binary built without the sqlite tag, use the memory backend or rebuild with -tags sqlite")
}
