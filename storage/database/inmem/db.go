// Package inmemdb keeps the reference API data in memory.
package inmemdb

import (
	"sync"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/registry"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
)

type (
	DB struct {
		user    *userTable
		records map[registry.Collection]*recordTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	// recordTable keeps insertion order, the default ordering of listings.
	recordTable struct {
		mutex sync.RWMutex
		order []string
		table map[string]school.Record
	}
)

func Open() *DB {
	db := &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		records: make(map[registry.Collection]*recordTable, len(registry.Collections)),
	}
	for _, c := range registry.Collections {
		db.records[c] = &recordTable{table: make(map[string]school.Record)}
	}
	return db
}

// Reset drops every user and record.
func (db *DB) Reset() {
	db.user.mutex.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.mutex.Unlock()

	for _, t := range db.records {
		t.mutex.Lock()
		t.order = nil
		t.table = make(map[string]school.Record)
		t.mutex.Unlock()
	}
}
