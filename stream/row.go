package stream

import (
	"strings"

	"github.com/pkg/errors"
)

// Row holds one value per descriptor column, in column order.
type Row []Value

// Batch is a chunk of rows fetched together.
type Batch []Row

// NormaliseRow converts raw driver values into a Row.
// classes must align 1:1 with raw.
func NormaliseRow(raw []interface{}, classes []Class) (Row, error) {
	if len(raw) != len(classes) {
		return nil, errors.Errorf("row has %v values but %v columns are described", len(raw), len(classes))
	}
	r := make(Row, len(raw))
	for idx, v := range raw {
		val, err := Normalise(v, classes[idx])
		if err != nil {
			return nil, errors.Wrapf(err, "column %v", idx+1)
		}
		r[idx] = val
	}
	return r, nil
}

// NormaliseBatch converts every raw row in rows.
func NormaliseBatch(rows [][]interface{}, classes []Class) (Batch, error) {
	b := make(Batch, len(rows))
	for idx, raw := range rows {
		r, err := NormaliseRow(raw, classes)
		if err != nil {
			return nil, errors.Wrapf(err, "row %v", idx+1)
		}
		b[idx] = r
	}
	return b, nil
}

// Args returns the bind values for r.
func (r Row) Args(native bool) []interface{} {
	retval := make([]interface{}, len(r))
	for idx, v := range r {
		retval[idx] = v.Arg(native)
	}
	return retval
}

func (r Row) String() string {
	s := make([]string, len(r))
	for idx, v := range r {
		if v.IsNull() {
			s[idx] = "<null>"
		} else {
			s[idx] = v.String()
		}
	}
	return "[" + strings.Join(s, ", ") + "]"
}

// Args returns the bind values for every row in b.
func (b Batch) Args(native bool) [][]interface{} {
	retval := make([][]interface{}, len(b))
	for idx, r := range b {
		retval[idx] = r.Args(native)
	}
	return retval
}

// KeyArgs returns single-column tuples holding the value at column idx of every row.
func (b Batch) KeyArgs(idx int, native bool) [][]interface{} {
	retval := make([][]interface{}, len(b))
	for i, r := range b {
		retval[i] = []interface{}{r[idx].Arg(native)}
	}
	return retval
}

// LastNonNull returns the last non-null value at column idx, scanning backwards.
func (b Batch) LastNonNull(idx int) (Value, bool) {
	for i := len(b) - 1; i >= 0; i-- {
		if !b[i][idx].IsNull() {
			return b[i][idx], true
		}
	}
	return Null, false
}
