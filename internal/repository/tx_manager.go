package repository

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// TransactionManager manages database transactions via context injection.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
	// RunInTxWithLock additionally takes an exclusive advisory lock on lockKey
	// before fn runs, serializing the critical section across every process
	// sharing the store.
	RunInTxWithLock(ctx context.Context, lockKey int64, fn func(txCtx context.Context) error) error
}

// AdvisoryLocker acquires a store-level exclusive lock keyed by an
// application-chosen integer. For backends whose locks die with the
// transaction the returned release is a no-op.
type AdvisoryLocker interface {
	Lock(ctx context.Context, tx *gorm.DB, key int64) (release func(), err error)
}

// PostgresAdvisoryLocker uses pg_advisory_xact_lock; the database releases
// the lock when the transaction commits or rolls back.
type PostgresAdvisoryLocker struct{}

func (PostgresAdvisoryLocker) Lock(ctx context.Context, tx *gorm.DB, key int64) (func(), error) {
	if err := tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", key).Error; err != nil {
		return nil, err
	}
	return func() {}, nil
}

type transactionManager struct {
	db     *gorm.DB
	locker AdvisoryLocker
}

func NewTransactionManager(db *gorm.DB, locker AdvisoryLocker) TransactionManager {
	return &transactionManager{db: db, locker: locker}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

func (t *transactionManager) RunInTxWithLock(ctx context.Context, lockKey int64, fn func(txCtx context.Context) error) error {
	// release must outlive the transaction: a locker that is not
	// transaction-scoped has to stay held through commit, or a waiter could
	// read state from before the holder's writes became visible.
	var release func()
	defer func() {
		if release != nil {
			release()
		}
	}()

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := t.locker.Lock(ctx, tx, lockKey)
		if err != nil {
			return err
		}
		release = r

		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
