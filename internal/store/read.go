package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/spinql/internal/imports"
	"github.com/roach88/spinql/internal/ir"
)

// LibraryInfo summarizes a stored library without decoding its body.
type LibraryInfo struct {
	BaseURI       string `json:"base_uri"`
	Hash          string `json:"hash"`
	Seq           int64  `json:"seq"`
	Functions     int    `json:"functions"`
	IRVersion     string `json:"ir_version"`
	EngineVersion string `json:"engine_version"`
}

// FunctionInfo is one row of the function index.
type FunctionInfo struct {
	URI     string `json:"uri"`
	BaseURI string `json:"base_uri"`
	Kind    string `json:"kind"`
	Arity   int    `json:"arity"`
}

// ReadLibrary returns the library stored at baseURI.
// Returns an error wrapping sql.ErrNoRows if it does not exist.
func (s *Store) ReadLibrary(ctx context.Context, baseURI string) (ir.Library, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM libraries WHERE base_uri = ?`, baseURI).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Library{}, fmt.Errorf("library <%s> not found: %w", baseURI, err)
		}
		return ir.Library{}, fmt.Errorf("read library: %w", err)
	}
	return unmarshalLibrary(body)
}

// ListLibraries returns a summary of every stored library.
// Results are ordered deterministically: ORDER BY seq ASC, base_uri COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the catalog is empty.
func (s *Store) ListLibraries(ctx context.Context) ([]LibraryInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.base_uri, l.hash, l.seq, l.ir_version, l.engine_version,
		       (SELECT COUNT(*) FROM functions f WHERE f.base_uri = l.base_uri)
		FROM libraries l
		ORDER BY l.seq ASC, l.base_uri COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query libraries: %w", err)
	}
	defer rows.Close()

	infos := []LibraryInfo{}
	for rows.Next() {
		var info LibraryInfo
		if err := rows.Scan(&info.BaseURI, &info.Hash, &info.Seq, &info.IRVersion, &info.EngineVersion, &info.Functions); err != nil {
			return nil, fmt.Errorf("scan library: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate libraries: %w", err)
	}
	return infos, nil
}

// ListFunctions returns the function index, ordered by URI.
// Returns an empty slice (not nil) if the catalog is empty.
func (s *Store) ListFunctions(ctx context.Context) ([]FunctionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uri, base_uri, kind, arity
		FROM functions
		ORDER BY uri COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query functions: %w", err)
	}
	defer rows.Close()

	fns := []FunctionInfo{}
	for rows.Next() {
		var fn FunctionInfo
		if err := rows.Scan(&fn.URI, &fn.BaseURI, &fn.Kind, &fn.Arity); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		fns = append(fns, fn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate functions: %w", err)
	}
	return fns, nil
}

// FindFunction returns the index row for uri, or false if no stored
// library declares it.
func (s *Store) FindFunction(ctx context.Context, uri string) (FunctionInfo, bool, error) {
	var fn FunctionInfo
	err := s.db.QueryRowContext(ctx, `
		SELECT uri, base_uri, kind, arity FROM functions WHERE uri = ?
	`, uri).Scan(&fn.URI, &fn.BaseURI, &fn.Kind, &fn.Arity)
	if errors.Is(err, sql.ErrNoRows) {
		return FunctionInfo{}, false, nil
	}
	if err != nil {
		return FunctionInfo{}, false, fmt.Errorf("find function: %w", err)
	}
	return fn, true, nil
}

// Loader returns an imports.Loader that reads libraries from the catalog
// with ctx.
func (s *Store) Loader(ctx context.Context) imports.Loader {
	return func(baseURI string) (ir.Library, error) {
		return s.ReadLibrary(ctx, baseURI)
	}
}

// StaleLibraries returns the base URIs of libraries compiled under another
// IR version, ordered like ListLibraries. They must be recompiled before
// their stored bodies are trusted.
func (s *Store) StaleLibraries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT base_uri FROM libraries
		WHERE ir_version != ?
		ORDER BY seq ASC, base_uri COLLATE BINARY ASC
	`, ir.IRVersion)
	if err != nil {
		return nil, fmt.Errorf("query stale libraries: %w", err)
	}
	defer rows.Close()

	stale := []string{}
	for rows.Next() {
		var base string
		if err := rows.Scan(&base); err != nil {
			return nil, fmt.Errorf("scan stale library: %w", err)
		}
		stale = append(stale, base)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale libraries: %w", err)
	}
	return stale, nil
}
