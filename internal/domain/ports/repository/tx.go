package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Repositories accept it as `qx` and
// detect the concrete type implementation-side; nil means the
// non-transactional path.
type Tx interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via `qx`. Keeps use-case signatures clean of
// storage types; the one place atomicity matters (approve + wallet credit)
// runs entirely inside a single WithTx callback.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, qx Tx) error) error
}
