package shared

import (
	"fmt"

	"github.com/xo/dburl"
)

// ConnectionDetails holds credentials for a logical database connection.
type ConnectionDetails struct {
	Type        string            `json:"type" errorTxt:"database type" mandatory:"yes" yaml:"type"`
	LogicalName string            `json:"logicalName" errorTxt:"database logical name" mandatory:"yes" yaml:"logicalName"`
	Data        map[string]string `json:"data" yaml:"data"`
}

// String redacts passwords and pretty-prints the contents of ConnectionDetails.
func (c ConnectionDetails) String() string {
	v, ok := c.Data[DefaultDsnConnectionKeyNames.Dsn]
	if !ok {
		return fmt.Sprintf("%v (type = %v)", c.LogicalName, c.Type)
	}
	return fmt.Sprintf("%v (type = %v; dsn = %v)", c.LogicalName, c.Type, RedactDsn(v))
}

// RedactDsn returns dsn with any password replaced.
// DSNs that are not URLs, such as bare ODBC connection strings, are hidden completely.
func RedactDsn(dsn string) string {
	u, err := dburl.Parse(dsn)
	if err != nil {
		return "<unparsable dsn>"
	}
	return u.Redacted()
}

// NewDsnConnectionDetails returns ConnectionDetails of the given type holding a DSN.
func NewDsnConnectionDetails(connType string, logicalName string, dsn string) ConnectionDetails {
	return ConnectionDetails{
		Type:        connType,
		LogicalName: logicalName,
		Data:        DsnConnectionDetailsToMap(nil, &DsnConnectionDetails{Dsn: dsn}),
	}
}
