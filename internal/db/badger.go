package db

import (
	"github.com/dgraph-io/badger/v4"
)

// OpenBadger abre (o crea) la base embebida en dir.
func OpenBadger(dir string) (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
}
