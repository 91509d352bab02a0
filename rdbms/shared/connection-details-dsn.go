package shared

import (
	"github.com/pkg/errors"
	"github.com/xo/dburl"
)

var DefaultDsnConnectionKeyNames = struct {
	Dsn string
}{
	Dsn: "dsn",
}

// DsnConnectionDetails is a simple struct to hold a DSN only.
type DsnConnectionDetails struct {
	Dsn string `errorTxt:"data source name i.e. connect string" mandatory:"yes"`
}

// String returns the DSN with redacted password.
func (d DsnConnectionDetails) String() string {
	return RedactDsn(d.Dsn)
}

// Parse returns the parsed URL form of the DSN.
func (d DsnConnectionDetails) Parse() (*dburl.URL, error) {
	if d.Dsn == "" {
		return nil, errors.New("DSN not found")
	}
	u, err := dburl.Parse(d.Dsn)
	if err != nil {
		return nil, errors.Wrap(err, "DSN could not be parsed")
	}
	return u, nil
}

// DsnConnectionDetailsToMap populates the supplied map with details from the DSN struct.
func DsnConnectionDetailsToMap(m map[string]string, c *DsnConnectionDetails) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	m[DefaultDsnConnectionKeyNames.Dsn] = c.Dsn
	return m
}

// GetDsnConnectionDetails converts generic ConnectionDetails to DsnConnectionDetails
// and returns a pointer to the new struct.
func GetDsnConnectionDetails(c *ConnectionDetails) *DsnConnectionDetails {
	return &DsnConnectionDetails{
		Dsn: c.Data[DefaultDsnConnectionKeyNames.Dsn],
	}
}
