package rdbms

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/helper"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms/shared"
)

var reNetezzaDsn = regexp.MustCompile(`^netezza://.+?/.+?@//.+:[0-9]+/.+$`)

// newNetezzaConnection opens the Netezza database connection specified in d.
func newNetezzaConnection(ctx context.Context, log logger.Logger, d *shared.DsnConnectionDetails) (shared.Connector, error) {
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorPostgres{},
		DbType: constants.ConnectionTypeNetezza,
	}
	dsn, err := getNzgoConnectionString(d.Dsn)
	if err != nil {
		return nil, err
	}
	if err = openAndPing(ctx, conn, constants.DriverNameNetezza, dsn); err != nil {
		return nil, err
	}
	log.Info("Successful database connection to Netezza.")
	return conn, nil
}

// getNzgoConnectionString will parse a DSN of the form netezza://user/pass@//host:port/dbname?params
// and convert it to the format required by nzgo library, which is space separated key=value.
func getNzgoConnectionString(dsn string) (string, error) {
	if !reNetezzaDsn.MatchString(dsn) {
		return "", errors.New("unsupported Netezza DSN format")
	}
	dsn = strings.TrimPrefix(dsn, constants.ConnectionTypeNetezza+"://")
	userPwd, theRest := helper.SplitRight(dsn, `@`)
	user, pass := helper.SplitRight(userPwd, `/`)
	hostPort, dbNameParams := helper.SplitRight(theRest, `/`)
	host, port := helper.SplitRight(hostPort, `:`)
	host = strings.TrimLeft(host, "/")
	dbName, params := helper.SplitRight(dbNameParams, `?`)
	params = strings.Replace(params, "&", " ", -1) // use space as the separator.
	connStr := strings.TrimSpace(fmt.Sprintf("user=%s password='%s' host=%s port=%s dbname=%s logLevel=Off %s", user, pass, host, port, dbName, params))
	return connStr, nil
}
