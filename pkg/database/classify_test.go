package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"

	"github.com/sublyime/ingestion/pkg/apperrors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{
			name: "sql server login failed",
			err:  mssql.Error{Number: 18456, Message: "Login failed for user 'sa'."},
			kind: apperrors.ErrConnection,
		},
		{
			name: "sql server unknown database",
			err:  fmt.Errorf("open: %w", mssql.Error{Number: 4060, Message: "Cannot open database"}),
			kind: apperrors.ErrConnection,
		},
		{
			name: "sql server constraint violation",
			err:  mssql.Error{Number: 2627, Message: "Violation of PRIMARY KEY constraint"},
			kind: apperrors.ErrStoreQuery,
		},
		{
			name: "bad connection",
			err:  driver.ErrBadConn,
			kind: apperrors.ErrConnection,
		},
		{
			name: "network failure",
			err:  &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			kind: apperrors.ErrConnection,
		},
		{
			name: "statement timeout",
			err:  fmt.Errorf("query: %w", context.DeadlineExceeded),
			kind: apperrors.ErrStoreQuery,
		},
		{
			name: "plain error",
			err:  errors.New("syntax error at or near"),
			kind: apperrors.ErrStoreQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("op", tt.err)
			assert.ErrorIs(t, err, tt.kind)
			assert.ErrorContains(t, err, tt.err.Error())
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, Classify("op", nil))
}

func TestClassify_KeepsExistingKind(t *testing.T) {
	notFound := apperrors.NotFound("get", "data source 7 not found")
	assert.Same(t, notFound, Classify("other", notFound))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"bad connection", driver.ErrBadConn, true},
		{"postgres password rejected", &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}, false},
		{"postgres unknown database", &pgconn.PgError{Code: "3D000", Message: "database \"nope\" does not exist"}, false},
		{"postgres too many clients", &pgconn.PgError{Code: "53300", Message: "too many clients already"}, true},
		{"postgres starting up", &pgconn.PgError{Code: "57P03", Message: "the database system is starting up"}, true},
		{"postgres duplicate table", &pgconn.PgError{Code: "42P07", Message: "relation already exists"}, false},
		{"sql server login failed", mssql.Error{Number: 18456, Message: "Login failed"}, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain", errors.New("bad URL"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
