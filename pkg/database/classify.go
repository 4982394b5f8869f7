package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/sublyime/ingestion/pkg/apperrors"
)

// SQL Server error numbers that mean the session could not be established.
var sqlServerConnectionErrors = map[int32]bool{
	4060:  true, // cannot open database requested by the login
	18452: true, // login from an untrusted domain
	18456: true, // login failed
	18487: true, // password expired
	18488: true, // password must be changed
}

// Classify assigns err a failure kind. It is the only place driver errors are inspected;
// callers above this package rely on errors.Is against the apperrors sentinels.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsClassified(err) {
		return err
	}
	if isConnectionFailure(err) {
		return apperrors.Connection(op, err)
	}
	return apperrors.Query(op, err)
}

// IsTransient reports whether err is a connectivity failure that may clear on its own.
// A store that answered with any other error, such as a rejected login, is not transient.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 53: insufficient resources, 57P03: starting up
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "53") || pgErr.Code == "57P03"
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return false
	}
	return isConnectionFailure(err)
}

func isConnectionFailure(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return sqlServerConnectionErrors[msErr.Number]
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	// A statement that timed out is a query failure, even though net.Error reports Timeout.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
