package database

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"diskbtree/btree"

	"github.com/cockroachdb/errors"
)

const manifestFile = "manifest.json"

var (
	ErrCollectionExists   = errors.New("collection already exists")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrInvalidName        = errors.New("invalid collection name")
)

// DBManifest tracks the DB ID plus every collection and where its tree lives.
type DBManifest struct {
	DBID        string                    `json:"db_id"`
	Collections map[string]CollectionInfo `json:"collections"`
}

type CollectionInfo struct {
	Dir      string `json:"dir"`
	Capacity int    `json:"capacity"`
}

// Database groups independent trees under one directory. Collections are
// opened lazily and stay open until Close.
type Database struct {
	dir         string
	manifest    DBManifest
	collections map[string]*Collection
	treeOpts    []btree.Option
	lock        sync.RWMutex
}

// NewDatabase opens the database in dbPath, creating it when no manifest is
// present yet.
func NewDatabase(dbPath, dbID string, opts ...btree.Option) (*Database, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create db directory %s", dbPath)
	}

	db := &Database{
		dir: dbPath,
		manifest: DBManifest{
			DBID:        dbID,
			Collections: make(map[string]CollectionInfo),
		},
		collections: make(map[string]*Collection),
		treeOpts:    opts,
	}

	if _, err := os.Stat(db.manifestPath()); err == nil {
		if err := db.loadManifest(); err != nil {
			return nil, err
		}
		return db, nil
	}
	if err := db.saveManifest(); err != nil {
		return nil, errors.Wrap(err, "failed to create new manifest")
	}
	return db, nil
}

// LoadDatabase opens an existing database; the manifest must exist.
func LoadDatabase(dbPath string, opts ...btree.Option) (*Database, error) {
	db := &Database{
		dir:         dbPath,
		collections: make(map[string]*Collection),
		treeOpts:    opts,
	}
	if err := db.loadManifest(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *Database) ID() string { return db.manifest.DBID }

func (db *Database) manifestPath() string {
	return filepath.Join(db.dir, manifestFile)
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && name != manifestFile
}

// CreateCollection creates a new tree whose nodes hold at most capacity keys.
func (db *Database) CreateCollection(name string, capacity int) (*Collection, error) {
	if !validName(name) {
		return nil, errors.Wrapf(ErrInvalidName, "%q", name)
	}

	db.lock.Lock()
	defer db.lock.Unlock()

	if _, exists := db.manifest.Collections[name]; exists {
		return nil, errors.Wrapf(ErrCollectionExists, "%q", name)
	}

	tree, err := btree.NewBTree[string, string](filepath.Join(db.dir, name), capacity, db.treeOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create tree for collection %q", name)
	}
	db.manifest.Collections[name] = CollectionInfo{Dir: name, Capacity: capacity}
	if err := db.saveManifest(); err != nil {
		delete(db.manifest.Collections, name)
		tree.Close()
		os.RemoveAll(filepath.Join(db.dir, name))
		return nil, errors.Wrap(err, "failed to save manifest after creating collection")
	}

	coll := &Collection{name: name, tree: tree}
	db.collections[name] = coll
	return coll, nil
}

// GetCollection returns the named collection, opening its tree on first use.
func (db *Database) GetCollection(name string) (*Collection, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	if coll, ok := db.collections[name]; ok {
		return coll, nil
	}

	info, exists := db.manifest.Collections[name]
	if !exists {
		return nil, errors.Wrapf(ErrCollectionNotFound, "%q", name)
	}

	tree, err := btree.LoadBTree[string, string](filepath.Join(db.dir, info.Dir), db.treeOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load tree for collection %q", name)
	}
	coll := &Collection{name: name, tree: tree}
	db.collections[name] = coll
	return coll, nil
}

// Collections returns the collection names in sorted order.
func (db *Database) Collections() []string {
	db.lock.RLock()
	defer db.lock.RUnlock()

	names := make([]string, 0, len(db.manifest.Collections))
	for name := range db.manifest.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (db *Database) saveManifest() error {
	data, err := json.MarshalIndent(db.manifest, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal manifest")
	}
	return os.WriteFile(db.manifestPath(), data, 0644)
}

func (db *Database) loadManifest() error {
	data, err := os.ReadFile(db.manifestPath())
	if err != nil {
		return errors.Wrap(err, "failed to read manifest file")
	}
	var m DBManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return errors.Wrap(err, "failed to parse manifest")
	}
	if m.Collections == nil {
		m.Collections = make(map[string]CollectionInfo)
	}
	db.manifest = m
	return nil
}

// Close closes all loaded collections.
func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	var errs error
	for name, coll := range db.collections {
		if err := coll.close(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "failed closing collection %q", name))
		}
		delete(db.collections, name)
	}
	return errs
}

// ListDatabases returns the names of the subdirectories of root that hold a
// database manifest.
func ListDatabases(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	dbIDs := make([]string, 0)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), manifestFile)); err == nil {
			dbIDs = append(dbIDs, e.Name())
		}
	}
	return dbIDs, nil
}
