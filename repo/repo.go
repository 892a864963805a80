// Package repo implements §6's persisted-state interface: an opaque
// (name -> content) store accessed only through the Repository interface,
// plus an in-memory and a Badger-backed implementation. Grounded on the
// teacher's std/object/storage package (BadgerStore), adapted to the
// name/prefix-registration semantics §4.7's autoconfiguration handshake
// needs instead of the teacher's object-store transaction API.
package repo

import (
	"sync"

	"github.com/dgraph-io/badger/v4"
	enc "github.com/usi-icn/nfnd/encoding"
)

// Repository is the persisted-state contract §6 names: add/get a
// name->content pair, and track the single served prefix this repo has
// been assigned by autoconfiguration.
type Repository interface {
	Add(name enc.Name, content []byte) error
	Get(name enc.Name) ([]byte, bool)
	SetPrefix(prefix enc.Name)
	GetPrefix() enc.Name
	GetPath() string
	Close() error
}

// MemRepo is an in-memory Repository, mutex-guarded, used by tests and by
// deployments with no persistence requirement.
type MemRepo struct {
	mu      sync.RWMutex
	content map[string][]byte
	names   map[string]enc.Name
	prefix  enc.Name
}

// NewMemRepo constructs an empty in-memory repository.
func NewMemRepo() *MemRepo {
	return &MemRepo{
		content: make(map[string][]byte),
		names:   make(map[string]enc.Name),
	}
}

func (r *MemRepo) String() string { return "mem-repo" }

func (r *MemRepo) Add(name enc.Name, content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := name.String()
	r.content[key] = append([]byte(nil), content...)
	r.names[key] = name
	return nil
}

func (r *MemRepo) Get(name enc.Name) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.content[name.String()]
	return c, ok
}

func (r *MemRepo) SetPrefix(prefix enc.Name) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefix = prefix
}

func (r *MemRepo) GetPrefix() enc.Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefix
}

func (r *MemRepo) GetPath() string { return "" }

func (r *MemRepo) Close() error { return nil }

// BadgerRepo is a dgraph-io/badger/v4-backed Repository for deployments
// that persist content across restarts.
type BadgerRepo struct {
	mu     sync.RWMutex
	db     *badger.DB
	path   string
	prefix enc.Name
}

// NewBadgerRepo opens (or creates) a Badger database rooted at path.
func NewBadgerRepo(path string) (*BadgerRepo, error) {
	db, err := badger.Open(badger.DefaultOptions(path))
	if err != nil {
		return nil, err
	}
	return &BadgerRepo{db: db, path: path}, nil
}

func (r *BadgerRepo) String() string { return "badger-repo:" + r.path }

func (r *BadgerRepo) Add(name enc.Name, content []byte) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(name.Bytes(), content)
	})
}

func (r *BadgerRepo) Get(name enc.Name) ([]byte, bool) {
	var out []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(name.Bytes())
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err == nil
}

func (r *BadgerRepo) SetPrefix(prefix enc.Name) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefix = prefix
}

func (r *BadgerRepo) GetPrefix() enc.Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefix
}

func (r *BadgerRepo) GetPath() string { return r.path }

func (r *BadgerRepo) Close() error { return r.db.Close() }
