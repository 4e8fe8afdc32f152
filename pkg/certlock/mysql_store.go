package certlock

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const mysqlErrDuplicateEntry = 1062

// Schema:
//
//	CREATE TABLE cert_locks (
//	    lock_key   VARCHAR(128) NOT NULL PRIMARY KEY,
//	    wallet     VARCHAR(42)  NOT NULL,
//	    created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);

// MySQLStore implements Store on a unique-key insert. The primary key
// on lock_key makes the insert the atomic set-if-absent: the loser of
// a race gets a duplicate-entry error, never a second row.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Compile-time interface compliance check
var _ Store = (*MySQLStore)(nil)

// NewMySQLStore creates a MySQL-backed once-lock store.
func NewMySQLStore(db *sql.DB, logger *zap.Logger) *MySQLStore {
	return &MySQLStore{db: db, logger: logger}
}

// IsLocked reports whether a row exists for the key.
func (s *MySQLStore) IsLocked(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM cert_locks WHERE lock_key = ?)", key,
	).Scan(&exists)
	if err != nil {
		s.logger.Error("failed to read lock", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("failed to read lock: %w", err)
	}
	return exists, nil
}

// TryConsume inserts the lock row; a duplicate-entry error means the
// key was already consumed.
func (s *MySQLStore) TryConsume(ctx context.Context, key string, meta Meta) (bool, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cert_locks (lock_key, wallet) VALUES (?, ?)",
		key, strings.ToLower(meta.Wallet),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			s.logger.Warn("lock already consumed",
				zap.String("key", key),
				zap.String("wallet", meta.Wallet),
			)
			return false, nil
		}
		s.logger.Error("failed to consume lock", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("failed to consume lock: %w", err)
	}

	s.logger.Info("lock consumed",
		zap.String("key", key),
		zap.String("wallet", meta.Wallet),
	)
	return true, nil
}

func isDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateEntry
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
