package mongo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	repo "teamTracker/internal/repository"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no documents", mongo.ErrNoDocuments, repo.ErrNotFound},
		{"duplicate key", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}, repo.ErrAlreadyExists},
		{"unauthorized", mongo.CommandError{Code: 13, Message: "not authorized"}, repo.ErrPermissionDenied},
		{"deadline", fmt.Errorf("find: %w", context.DeadlineExceeded), repo.ErrUnavailable},
		{"disconnected", mongo.ErrClientDisconnected, repo.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err), tt.want)
		})
	}

	plain := errors.New("bad filter")
	assert.Equal(t, plain, mapError(plain))
	assert.NoError(t, mapError(nil))
}

func TestIsTxnNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"generic", errors.New("some random error"), false},
		{"standalone server", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"legacy illegal operation", mongo.CommandError{Code: 51, Message: "Illegal operation"}, true},
		{"not allowed in transaction", mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"}, true},
		{"other command error", mongo.CommandError{Code: 100, Message: "Some other error"}, false},
		{"wrapped", fmt.Errorf("read bootstrap claim: %w", mongo.CommandError{Code: 20}), true},
		{"sessions unsupported", errors.New("session operations are not supported on this server"), true},
		{"transaction alone", errors.New("transaction failed"), false},
		{"duplicate key", mapError(mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}), false},
		{"bootstrap race", errClaimRace, false},
		{"mixed case", errors.New("TRANSACTION FAILED on REPLICA SET"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTxnNotSupported(tt.err))
		})
	}
}
