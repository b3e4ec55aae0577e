package database

import (
	"database/sql"
)

type PgAlumniRepository struct {
	conn *sql.DB
}

func NewPgAlumniRepository(dsn string) (*PgAlumniRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgAlumniRepository{conn: db}, nil
}

func (db *PgAlumniRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgAlumniRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
