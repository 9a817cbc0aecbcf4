package routes

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"diskbtree/btree"
	"diskbtree/database"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

var (
	ErrDatabaseNotFound = errors.New("database not found")
	ErrDatabaseExists   = errors.New("database already exists")
	ErrInvalidDatabase  = errors.New("invalid database id")
)

// Store keeps every database under root open once it has been used.
type Store struct {
	root     string
	treeOpts []btree.Option

	mu  sync.Mutex
	dbs map[string]*database.Database
}

func NewStore(root string, opts ...btree.Option) *Store {
	return &Store{root: root, treeOpts: opts, dbs: make(map[string]*database.Database)}
}

func validDBID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// Get returns the open database with the given id, loading it on first use.
func (s *Store) Get(dbID string) (*database.Database, error) {
	if !validDBID(dbID) {
		return nil, errors.Wrapf(ErrInvalidDatabase, "%q", dbID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[dbID]; ok {
		return db, nil
	}
	path := filepath.Join(s.root, dbID)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(ErrDatabaseNotFound, "%q", dbID)
	}
	db, err := database.LoadDatabase(path, s.treeOpts...)
	if err != nil {
		return nil, err
	}
	s.dbs[dbID] = db
	return db, nil
}

// Create makes a new database. An empty dbID gets a generated one.
func (s *Store) Create(dbID string) (*database.Database, error) {
	if dbID == "" {
		dbID = "db_" + strings.Split(uuid.NewString(), "-")[0]
	}
	if !validDBID(dbID) {
		return nil, errors.Wrapf(ErrInvalidDatabase, "%q", dbID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.root, dbID)
	if _, err := os.Stat(path); err == nil {
		return nil, errors.Wrapf(ErrDatabaseExists, "%q", dbID)
	}
	db, err := database.NewDatabase(path, dbID, s.treeOpts...)
	if err != nil {
		return nil, err
	}
	s.dbs[dbID] = db
	return db, nil
}

func (s *Store) List() ([]string, error) {
	return database.ListDatabases(s.root)
}

// Close closes every open database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for id, db := range s.dbs {
		errs = errors.CombineErrors(errs, db.Close())
		delete(s.dbs, id)
	}
	return errs
}
