// Package testutil provides shared fixtures for store-backed tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"librestock/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq int64

// NewTestDB opens a fresh in-memory sqlite database with the full schema.
// The pool is pinned to one connection: it keeps the in-memory database
// alive and serializes access, which sqlite needs under concurrent tests.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

// MutexLocker emulates a store-level advisory lock in process memory. It only
// guards a single process, which is all a test needs; production uses the
// postgres locker.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: make(map[int64]*sync.Mutex)}
}

func (l *MutexLocker) Lock(_ context.Context, _ *gorm.DB, key int64) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
