package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/imports"
	"github.com/roach88/spinql/internal/ir"
)

func TestWriteReadLibrary(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	lib := createTestLibrary("http://ex/")

	hash, inserted, err := s.WriteLibrary(ctx, lib)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, ir.MustLibraryHash(lib), hash)

	got, err := s.ReadLibrary(ctx, "http://ex/")
	require.NoError(t, err)
	assert.Equal(t, lib, got)
}

func TestWriteLibraryIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	lib := createTestLibrary("http://ex/")

	h1, inserted, err := s.WriteLibrary(ctx, lib)
	require.NoError(t, err)
	require.True(t, inserted)

	h2, inserted, err := s.WriteLibrary(ctx, lib)
	require.NoError(t, err)
	assert.False(t, inserted, "unchanged library is not rewritten")
	assert.Equal(t, h1, h2)

	infos, err := s.ListLibraries(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, int64(1), infos[0].Seq)
}

func TestWriteLibraryReplacesChanged(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, _, err := s.WriteLibrary(ctx, createTestLibrary("http://a/"))
	require.NoError(t, err)
	_, _, err = s.WriteLibrary(ctx, createTestLibrary("http://b/"))
	require.NoError(t, err)

	changed := createTestLibrary("http://a/")
	changed.Functions = changed.Functions[:1]
	hash, inserted, err := s.WriteLibrary(ctx, changed)
	require.NoError(t, err)
	assert.True(t, inserted)

	infos, err := s.ListLibraries(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "http://b/", infos[0].BaseURI)
	assert.Equal(t, "http://a/", infos[1].BaseURI, "rewritten library moves to the end")
	assert.Equal(t, hash, infos[1].Hash)
	assert.Equal(t, 1, infos[1].Functions)
	assert.Equal(t, int64(3), infos[1].Seq)

	_, found, err := s.FindFunction(ctx, "http://a/double")
	require.NoError(t, err)
	assert.False(t, found, "dropped function is removed from the index")
}

func TestWriteLibraryFunctionOwnership(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, _, err := s.WriteLibrary(ctx, createTestLibrary("http://a/"))
	require.NoError(t, err)

	other := createTestLibrary("http://b/")
	other.Functions[0].URI = "http://a/ageOf"
	_, _, err = s.WriteLibrary(ctx, other)
	require.ErrorIs(t, err, ErrFunctionOwned)

	_, err = s.ReadLibrary(ctx, "http://b/")
	assert.ErrorIs(t, err, sql.ErrNoRows, "failed write is rolled back")
}

func TestWriteLibraryErrors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, _, err := s.WriteLibrary(ctx, ir.Library{})
	assert.ErrorContains(t, err, "base URI is empty")

	dup := createTestLibrary("http://ex/")
	dup.Functions = append(dup.Functions, dup.Functions[0])
	_, _, err = s.WriteLibrary(ctx, dup)
	assert.ErrorContains(t, err, "duplicate function <http://ex/ageOf>")
}

func TestReadLibraryNotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadLibrary(context.Background(), "http://missing/")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	libs, err := s.ListLibraries(ctx)
	require.NoError(t, err)
	assert.NotNil(t, libs)
	assert.Empty(t, libs)

	fns, err := s.ListFunctions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, fns)
	assert.Empty(t, fns)
}

func TestListFunctions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, _, err := s.WriteLibrary(ctx, createTestLibrary("http://ex/"))
	require.NoError(t, err)

	fns, err := s.ListFunctions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []FunctionInfo{
		{URI: "http://ex/ageOf", BaseURI: "http://ex/", Kind: "template", Arity: 1},
		{URI: "http://ex/double", BaseURI: "http://ex/", Kind: "expression", Arity: 1},
	}, fns)
}

func TestDeleteLibraryCascades(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, _, err := s.WriteLibrary(ctx, createTestLibrary("http://ex/"))
	require.NoError(t, err)

	removed, err := s.DeleteLibrary(ctx, "http://ex/")
	require.NoError(t, err)
	assert.True(t, removed)

	fns, err := s.ListFunctions(ctx)
	require.NoError(t, err)
	assert.Empty(t, fns)

	removed, err = s.DeleteLibrary(ctx, "http://ex/")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLoaderFeedsImportRegistry(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	base := createTestLibrary("http://base/")
	root := createTestLibrary("http://root/")
	root.Imports = []string{"http://base/"}
	for _, lib := range []ir.Library{base, root} {
		_, _, err := s.WriteLibrary(ctx, lib)
		require.NoError(t, err)
	}

	reg := imports.NewRegistry()
	require.NoError(t, reg.LoadAll(root, s.Loader(ctx)))

	assert.Equal(t, []string{"http://base/", "http://root/"}, reg.BaseURIs())
	decl, ok := reg.LookupFunction("http://base/double")
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, decl.Arguments)
}

func TestMarshalLibraryKeepsHTMLCharacters(t *testing.T) {
	lib := ir.Library{BaseURI: "http://ex/?a=1&b=<2>", Functions: []ir.FunctionDecl{}}

	body, err := marshalLibrary(lib)
	require.NoError(t, err)
	assert.Contains(t, body, "http://ex/?a=1&b=<2>")

	got, err := unmarshalLibrary(body)
	require.NoError(t, err)
	assert.Equal(t, lib, got)
}

func TestStaleLibraries(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, _, err := s.WriteLibrary(ctx, createTestLibrary("http://ex/a#"))
	require.NoError(t, err)
	_, _, err = s.WriteLibrary(ctx, createTestLibrary("http://ex/b#"))
	require.NoError(t, err)

	stale, err := s.StaleLibraries(ctx)
	require.NoError(t, err)
	assert.Empty(t, stale)

	_, err = s.db.ExecContext(ctx, `UPDATE libraries SET ir_version = 'old' WHERE base_uri = ?`, "http://ex/b#")
	require.NoError(t, err)

	stale, err = s.StaleLibraries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://ex/b#"}, stale)
}
