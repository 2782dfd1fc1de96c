// Package inmemdb implements the repositories in memory, with the same unique constraints as Postgres.
package inmemdb

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/announcement"
	"github.com/trezcool/parokia/core/digest"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/request"
	"github.com/trezcool/parokia/core/task"
	"github.com/trezcool/parokia/core/user"
	"github.com/trezcool/parokia/core/week"
)

type (
	// DB holds every table behind one lock.
	DB struct {
		mutex sync.RWMutex
		txMu  sync.Mutex

		users         map[string]user.User
		parishes      map[string]parish.Parish
		memberships   map[string]parish.Membership // by parish id + user id
		groups        map[string]parish.Group
		groupMembers  map[string]parish.GroupMember // by group id + user id
		exclusions    map[exclusion]bool
		weeks         map[string]week.Week
		events        map[string]event.Event
		exceptions    map[string]event.Exception // by event id + original start
		tasks         map[string]task.Task
		announcements map[string]announcement.Announcement
		requests      map[string]request.Request
		digests       map[string]digest.Digest
	}

	exclusion struct {
		parishID, channelID, userID string
	}

	// TxRunner serializes transactions. Repositories ignore the executor they are given.
	TxRunner struct {
		db *DB
	}
)

func Open() *DB {
	return &DB{
		users:         make(map[string]user.User),
		parishes:      make(map[string]parish.Parish),
		memberships:   make(map[string]parish.Membership),
		groups:        make(map[string]parish.Group),
		groupMembers:  make(map[string]parish.GroupMember),
		exclusions:    make(map[exclusion]bool),
		weeks:         make(map[string]week.Week),
		events:        make(map[string]event.Event),
		exceptions:    make(map[string]event.Exception),
		tasks:         make(map[string]task.Task),
		announcements: make(map[string]announcement.Announcement),
		requests:      make(map[string]request.Request),
		digests:       make(map[string]digest.Digest),
	}
}

var _ core.TxRunner = (*TxRunner)(nil) // interface compliance check

func NewTxRunner(db *DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) RunInTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	r.db.txMu.Lock()
	defer r.db.txMu.Unlock()
	return fn(nil)
}

func key(parts ...string) string {
	return strings.Join(parts, "|")
}

func timeKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
