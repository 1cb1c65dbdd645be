// Package store provides the SQLite persistence of associates.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/associates"
)

const (
	dropTable   = `DROP TABLE IF EXISTS associates`
	createTable = `CREATE TABLE IF NOT EXISTS associates (
        dni VARCHAR(10) PRIMARY KEY,
        first_name VARCHAR(50) NOT NULL,
        last_name VARCHAR(50) NOT NULL,
        address VARCHAR(100),
        phone VARCHAR(20),
        city VARCHAR(50)
    )`
	selectColumns = `SELECT dni, first_name, last_name, address, phone, city FROM associates`
)

// Config defines the database location.
type Config struct {
	// Path is the SQLite file. ":memory:" keeps the data in memory.
	Path string `json:"path" yaml:"path"`
	// Seed resets the table with the example rows on startup.
	Seed bool `json:"seed" yaml:"seed"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Path == "" {
		c.Path = "clinic.db"
	}
}

// AssociateStore persists associates in a SQLite database.
type AssociateStore struct {
	db *sql.DB
}

// NewAssociateStore opens or creates the database at path and ensures schema.
func NewAssociateStore(path string) (*AssociateStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createTable); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &AssociateStore{db: db}, nil
}

// Save inserts a new associate.
func (s *AssociateStore) Save(ctx context.Context, a associates.Associate) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO associates (dni, first_name, last_name, address, phone, city)
        VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(dni) DO NOTHING`,
		a.DNI, a.FirstName, a.LastName, a.Address, a.Phone, a.City)
	if err != nil {
		return fmt.Errorf("save associate %s: %w", a.DNI, err)
	}
	return expectRow(res, associates.ErrDuplicate, a.DNI)
}

// Update overwrites the data of an existing associate.
func (s *AssociateStore) Update(ctx context.Context, a associates.Associate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE associates SET first_name = ?, last_name = ?, address = ?, phone = ?, city = ? WHERE dni = ?`,
		a.FirstName, a.LastName, a.Address, a.Phone, a.City, a.DNI)
	if err != nil {
		return fmt.Errorf("update associate %s: %w", a.DNI, err)
	}
	return expectRow(res, associates.ErrNotFound, a.DNI)
}

// Delete removes the associate with the given DNI.
func (s *AssociateStore) Delete(ctx context.Context, dni string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM associates WHERE dni = ?`, dni)
	if err != nil {
		return fmt.Errorf("delete associate %s: %w", dni, err)
	}
	return expectRow(res, associates.ErrNotFound, dni)
}

func expectRow(res sql.Result, none error, dni string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", none, dni)
	}
	return nil
}

// FindByDNI returns the associate with the given DNI.
func (s *AssociateStore) FindByDNI(ctx context.Context, dni string) (associates.Associate, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE dni = ?`, dni)
	a, err := scanAssociate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return associates.Associate{}, fmt.Errorf("%w: %s", associates.ErrNotFound, dni)
	}
	if err != nil {
		return associates.Associate{}, fmt.Errorf("find associate %s: %w", dni, err)
	}
	return a, nil
}

// List returns every associate ordered by last name, then first name.
func (s *AssociateStore) List(ctx context.Context) ([]associates.Associate, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY last_name, first_name, dni`)
	if err != nil {
		return nil, fmt.Errorf("list associates: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var res []associates.Associate
	for rows.Next() {
		a, err := scanAssociate(rows)
		if err != nil {
			return nil, fmt.Errorf("list associates: %w", err)
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list associates: %w", err)
	}
	return res, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssociate(sc scanner) (associates.Associate, error) {
	var a associates.Associate
	var address, phone, city sql.NullString
	if err := sc.Scan(&a.DNI, &a.FirstName, &a.LastName, &address, &phone, &city); err != nil {
		return associates.Associate{}, err
	}
	a.Address, a.Phone, a.City = address.String, phone.String, city.String
	return a, nil
}

// Reset drops the table, recreates it and inserts the example associates in
// one transaction.
func (s *AssociateStore) Reset(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reset associates: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range []string{dropTable, createTable} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset associates: %w", err)
		}
	}
	for _, a := range associates.Seed() {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO associates (dni, first_name, last_name, address, phone, city) VALUES (?, ?, ?, ?, ?, ?)`,
			a.DNI, a.FirstName, a.LastName, a.Address, a.Phone, a.City); err != nil {
			return fmt.Errorf("seed associate %s: %w", a.DNI, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("reset associates: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *AssociateStore) Close() error { return s.db.Close() }
