package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/spinql/internal/ir"
)

// ErrFunctionOwned is returned when a library declares a function URI that
// another library in the catalog already declares.
var ErrFunctionOwned = errors.New("function is declared by another library")

// WriteLibrary stores lib under its base URI and returns its content hash.
//
// Writing a library whose hash matches the stored one is a no-op and reports
// inserted=false. A changed library replaces the stored body and function
// rows in one transaction and moves to the end of the listing order.
func (s *Store) WriteLibrary(ctx context.Context, lib ir.Library) (hash string, inserted bool, err error) {
	if lib.BaseURI == "" {
		return "", false, fmt.Errorf("write library: base URI is empty")
	}
	hash, err = ir.LibraryHash(lib)
	if err != nil {
		return "", false, fmt.Errorf("write library: %w", err)
	}
	body, err := marshalLibrary(lib)
	if err != nil {
		return "", false, fmt.Errorf("write library: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("write library: begin: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT hash FROM libraries WHERE base_uri = ?`, lib.BaseURI).Scan(&existing)
	switch {
	case err == nil && existing == hash:
		return hash, false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return "", false, fmt.Errorf("write library: lookup: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM libraries`).Scan(&seq); err != nil {
		return "", false, fmt.Errorf("write library: next seq: %w", err)
	}

	// ON DELETE CASCADE drops the old function rows with the old library row.
	if _, err := tx.ExecContext(ctx, `DELETE FROM libraries WHERE base_uri = ?`, lib.BaseURI); err != nil {
		return "", false, fmt.Errorf("write library: replace: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO libraries
		(base_uri, hash, body, seq, ir_version, engine_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		lib.BaseURI,
		hash,
		body,
		seq,
		ir.IRVersion,
		ir.EngineVersion,
	)
	if err != nil {
		return "", false, fmt.Errorf("write library: %w", err)
	}

	for _, fn := range lib.Functions {
		if err := writeFunction(ctx, tx, lib.BaseURI, fn); err != nil {
			return "", false, fmt.Errorf("write library: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("write library: commit: %w", err)
	}
	return hash, true, nil
}

func writeFunction(ctx context.Context, tx *sql.Tx, baseURI string, fn ir.FunctionDecl) error {
	var owner string
	err := tx.QueryRowContext(ctx, `SELECT base_uri FROM functions WHERE uri = ?`, fn.URI).Scan(&owner)
	switch {
	case err == nil && owner == baseURI:
		return fmt.Errorf("duplicate function <%s>", fn.URI)
	case err == nil:
		return fmt.Errorf("%w: <%s> belongs to <%s>", ErrFunctionOwned, fn.URI, owner)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("lookup function <%s>: %w", fn.URI, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO functions (uri, base_uri, kind, arity)
		VALUES (?, ?, ?, ?)
	`, fn.URI, baseURI, functionKind(fn), len(fn.Arguments))
	if err != nil {
		return fmt.Errorf("insert function <%s>: %w", fn.URI, err)
	}
	return nil
}

// DeleteLibrary removes the library at baseURI and its function rows.
// It reports whether a library was removed.
func (s *Store) DeleteLibrary(ctx context.Context, baseURI string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM libraries WHERE base_uri = ?`, baseURI)
	if err != nil {
		return false, fmt.Errorf("delete library: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete library: %w", err)
	}
	return n > 0, nil
}
