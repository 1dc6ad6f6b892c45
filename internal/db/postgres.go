package db

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var DB *sqlx.DB

// InitPostgres connects sqlx to Postgres, retrying for a short window so the
// daemon survives a database that is still coming up.
func InitPostgres(dsn string) error {
	var err error

	for i := 0; i < 10; i++ {
		DB, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			DB.SetMaxOpenConns(10)
			DB.SetMaxIdleConns(5)
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return err
}
