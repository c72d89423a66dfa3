// Package store implements the persistence layer for members and
// videos over the traced postgres client.
//
// Stores translate database outcomes into coded errors: a missing row
// becomes the matching not-found code, a unique violation becomes a
// conflict, everything else keeps the client's infrastructure codes.
// [Ownership] adapts the video store to the access policy's ownership
// checker so owner-protected routes resolve in one indexed lookup.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

const (
	// DefaultPageSize is the listing page size when none is requested.
	DefaultPageSize = 20

	// MaxPageSize caps the listing page size.
	MaxPageSize = 100

	// uniqueViolation is the PostgreSQL error code for a unique
	// constraint violation.
	uniqueViolation = "23505"
)

// Page selects one page of a listing. The zero value means the first
// page at the default size.
type Page struct {
	// Number is the 1-based page number.
	Number int `json:"page"`

	// Size is the number of rows per page.
	Size int `json:"size"`
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Limit is the normalized row count for the page.
func (p Page) Limit() int {
	return p.normalize().Size
}

// Offset is the normalized row offset for the page.
func (p Page) Offset() int {
	p = p.normalize()
	return (p.Number - 1) * p.Size
}

// scanError maps a row-scan failure to a coded error. The client
// wraps Query and Exec failures itself, but QueryRow surfaces errors
// raw at Scan time, so stores classify them here.
func scanError(err error, notFound vherr.Code, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return vherr.New(notFound, message+": not found")
	}
	var vhErr *vherr.Error
	if errors.As(err, &vhErr) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return vherr.Wrap(err, vherr.CodeConflictAlreadyExists, message+": already exists")
	}
	return vherr.Wrap(err, vherr.CodeInternalDatabase, message)
}
