package shared

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/relloyd/pgmirror/constants"
)

// ErrorKind classifies failures so the caller can decide whether to abort the run or just skip a table.
type ErrorKind int

const (
	ErrorKindUnknown    ErrorKind = iota
	ErrorKindConnection           // fatal: a database could not be reached
	ErrorKindCatalog              // fatal: source tables could not be enumerated
	ErrorKindSchema               // per-table: columns or keys could not be read
	ErrorKindPermission           // per-table: access to the table was refused
	ErrorKindDDL                  // per-table: destination table could not be created or altered
	ErrorKindTransfer             // per-table: rows could not be copied
	ErrorKindState                // per-table: sync state could not be read or saved
)

var errorKindNames = map[ErrorKind]string{
	ErrorKindUnknown:    "unknown",
	ErrorKindConnection: "connection",
	ErrorKindCatalog:    "catalog",
	ErrorKindSchema:     "schema",
	ErrorKindPermission: "permission",
	ErrorKindDDL:        "ddl",
	ErrorKindTransfer:   "transfer",
	ErrorKindState:      "state",
}

func (k ErrorKind) String() string {
	return errorKindNames[k]
}

// IsFatal returns true if errors of this kind must abort the whole run.
func (k ErrorKind) IsFatal() bool {
	return k == ErrorKindConnection || k == ErrorKindCatalog
}

// SyncError carries the kind of failure and the table it applies to, if any.
type SyncError struct {
	Kind  ErrorKind
	Table string
	Err   error
}

func (e *SyncError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%v error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%v error for table %v: %v", e.Kind, e.Table, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError wraps err with kind and table.
// A nil err returns nil.
func NewSyncError(kind ErrorKind, table string, err error) error {
	if err == nil {
		return nil
	}
	return &SyncError{Kind: kind, Table: table, Err: err}
}

// KindOf returns the kind of the first SyncError found in the chain of err.
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrorKindUnknown
}

// IsFatal returns true if err must abort the run.
func IsFatal(err error) bool {
	return KindOf(err).IsFatal()
}

// Classify wraps err as a SyncError of kind, unless its cause shows a lost connection or refused access.
// Errors already classified as connection failures are returned unchanged.
func Classify(kind ErrorKind, table string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) == ErrorKindConnection {
		return err
	}
	switch {
	case IsConnectionFailure(err):
		kind = ErrorKindConnection
	case IsPermissionDenied(err):
		kind = ErrorKindPermission
	}
	return NewSyncError(kind, table, err)
}

// IsConnectionFailure returns true if err shows the database could not be reached or the connection was lost.
func IsConnectionFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

var permissionDeniedTxt = []string{"permission denied", "access denied", "insufficient privilege", "not authorized"}

// IsPermissionDenied returns true if err looks like the database refused access to an object.
// Postgres errors are matched by SQLSTATE and other drivers by message text.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == constants.PostgresErrCodeInsufficientPriv
	}
	msg := strings.ToLower(err.Error())
	for _, txt := range permissionDeniedTxt {
		if strings.Contains(msg, txt) {
			return true
		}
	}
	return false
}

// IsUpsertStructuralFailure returns true if err shows that ON CONFLICT could not be applied to the
// target table, because it has no matching unique constraint or the batch holds a key twice.
func IsUpsertStructuralFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == constants.PostgresErrCodeInvalidColumnRef || pgErr.Code == constants.PostgresErrCodeCardinality
	}
	return false
}
