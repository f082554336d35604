package mongo

import (
	"context"
	"errors"
	"strings"

	"teamTracker/internal/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// inTransaction runs fn in a multi-document transaction. Standalone servers
// cannot run transactions; on the first such refusal the storage switches to
// running fn directly and stays that way. fn learns which mode it runs in
// through tx and must undo its own partial writes when tx is false.
func (s *Storage) inTransaction(ctx context.Context, fn func(ctx context.Context, tx bool) error) error {
	if !s.noTxn.Load() {
		err := s.runTransaction(ctx, fn)
		if !isTxnNotSupported(err) {
			return err
		}
		if s.noTxn.CompareAndSwap(false, true) {
			logger.Warn("Repository: MongoDB transactions unavailable, writing without them", zap.Error(err))
		}
	}
	return fn(ctx, false)
}

func (s *Storage) runTransaction(ctx context.Context, fn func(ctx context.Context, tx bool) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, true)
	})
	return err
}

// isTxnNotSupported reports whether err means the deployment cannot run
// transactions at all, as opposed to a transaction that failed.
func isTxnNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, IllegalOperation (legacy), OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	txn := strings.Contains(msg, "transaction")
	switch {
	case txn && strings.Contains(msg, "replica set"),
		txn && strings.Contains(msg, "session"),
		strings.Contains(msg, "session") && strings.Contains(msg, "not supported"),
		strings.Contains(msg, "illegal operation"):
		return true
	}
	return false
}
