// Package catalog maps (table, attribute) pairs to the on-disk index
// file that stores them, standing in for the original header's
// documented naming convention by attribute rather than a caller-supplied
// raw path (spec.md §6, SPEC_FULL.md §6).
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"

	"ixtree/internal/page"
)

// ErrAttributeNotFound is returned when the catalog has no entry for a
// (table, attribute) pair.
var ErrAttributeNotFound = errors.New("catalog: attribute not found")

// Entry describes one registered index: the key kind it was created
// with and the file name its pages live in, relative to the catalog's
// base directory.
type Entry struct {
	KeyKind  page.KeyKind `json:"key_kind"`
	FileName string       `json:"file_name"`
}

// Catalog resolves (table, attribute) pairs to Entry records and back.
// internal/manager is the only caller; it never touches the backing
// file directly.
type Catalog interface {
	Lookup(table, attribute string) (Entry, error)
	Register(table, attribute string, entry Entry) error
	Remove(table, attribute string) error
}

type key struct{ table, attribute string }

// FileCatalog is a JSON-backed Catalog: a single file holding a flat
// map of "table.attribute" to Entry, rewritten in full on every
// mutation. This is adequate for the catalog sizes a single index
// manager instance handles and keeps the on-disk format trivially
// inspectable.
type FileCatalog struct {
	path string

	mu      sync.Mutex
	entries map[string]Entry
}

// OpenFileCatalog opens (creating if necessary) the JSON catalog file
// at path.
func OpenFileCatalog(path string) (*FileCatalog, error) {
	c := &FileCatalog{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrap(err, "catalog: create directory")
		}
		if err := c.save(); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "catalog: read")
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, errors.Wrap(err, "catalog: decode")
	}
	return c, nil
}

func composite(table, attribute string) string { return table + "." + attribute }

// Lookup returns the Entry registered for (table, attribute), or
// ErrAttributeNotFound if none was registered.
func (c *FileCatalog) Lookup(table, attribute string) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[composite(table, attribute)]
	if !ok {
		return Entry{}, errors.Wrapf(ErrAttributeNotFound, "catalog: %s.%s", table, attribute)
	}
	return e, nil
}

// Register records entry for (table, attribute), overwriting any
// existing registration, and persists the catalog.
func (c *FileCatalog) Register(table, attribute string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[composite(table, attribute)] = entry
	return c.save()
}

// Remove deletes the (table, attribute) registration, if present, and
// persists the catalog. Removing an absent entry is not an error: the
// caller (internal/manager's DestroyIndex) is responsible for
// rejecting destruction of an index that was never created.
func (c *FileCatalog) Remove(table, attribute string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, composite(table, attribute))
	return c.save()
}

func (c *FileCatalog) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "catalog: encode")
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return errors.Wrap(err, "catalog: write")
	}
	return nil
}
