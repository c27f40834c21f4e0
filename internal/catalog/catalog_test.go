package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ixtree/internal/page"
)

func TestLookupMissingReturnsErrAttributeNotFound(t *testing.T) {
	c, err := OpenFileCatalog(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)

	_, err = c.Lookup("students", "gpa")
	require.ErrorIs(t, err, ErrAttributeNotFound)
}

func TestRegisterThenLookupRoundTrips(t *testing.T) {
	c, err := OpenFileCatalog(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)

	want := Entry{KeyKind: page.KeyKindInt, FileName: "students.gpa.ix"}
	require.NoError(t, c.Register("students", "gpa", want))

	got, err := c.Lookup("students", "gpa")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestRegisterPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	c1, err := OpenFileCatalog(path)
	require.NoError(t, err)
	require.NoError(t, c1.Register("orders", "total", Entry{KeyKind: page.KeyKindFloat, FileName: "orders.total.ix"}))

	c2, err := OpenFileCatalog(path)
	require.NoError(t, err)
	got, err := c2.Lookup("orders", "total")
	require.NoError(t, err)
	require.Equal(t, Entry{KeyKind: page.KeyKindFloat, FileName: "orders.total.ix"}, got)
}

func TestRemoveDropsEntry(t *testing.T) {
	c, err := OpenFileCatalog(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)
	require.NoError(t, c.Register("students", "gpa", Entry{KeyKind: page.KeyKindInt, FileName: "x.ix"}))

	require.NoError(t, c.Remove("students", "gpa"))
	_, err = c.Lookup("students", "gpa")
	require.ErrorIs(t, err, ErrAttributeNotFound)
}

func TestRemoveMissingIsNotAnError(t *testing.T) {
	c, err := OpenFileCatalog(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)
	require.NoError(t, c.Remove("nope", "nope"))
}

func TestDistinctAttributesOnSameTableAreIndependent(t *testing.T) {
	c, err := OpenFileCatalog(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)

	require.NoError(t, c.Register("students", "gpa", Entry{KeyKind: page.KeyKindInt, FileName: "students.gpa.ix"}))
	require.NoError(t, c.Register("students", "age", Entry{KeyKind: page.KeyKindInt, FileName: "students.age.ix"}))

	gpa, err := c.Lookup("students", "gpa")
	require.NoError(t, err)
	age, err := c.Lookup("students", "age")
	require.NoError(t, err)
	require.NotEqual(t, gpa.FileName, age.FileName)
}
