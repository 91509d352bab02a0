package stream

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/relloyd/pgmirror/constants"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumeric
	KindTemporal
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumeric:
		return "numeric"
	case KindTemporal:
		return "temporal"
	case KindBinary:
		return "binary"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Class is the value class of a source column.
// It decides how raw driver values are interpreted and how temporal values are rendered.
type Class uint8

const (
	ClassText Class = iota + 1
	ClassNumeric
	ClassBoolean
	ClassDate
	ClassTime
	ClassTimestamp
	ClassTimestampTZ
	ClassBinary
)

func (c Class) String() string {
	switch c {
	case ClassText:
		return "text"
	case ClassNumeric:
		return "numeric"
	case ClassBoolean:
		return "boolean"
	case ClassDate:
		return "date"
	case ClassTime:
		return "time"
	case ClassTimestamp:
		return "timestamp"
	case ClassTimestampTZ:
		return "timestamptz"
	case ClassBinary:
		return "binary"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// IsTemporal reports whether values of the class are dates or times.
func (c Class) IsTemporal() bool {
	return c == ClassDate || c == ClassTime || c == ClassTimestamp || c == ClassTimestampTZ
}

// Layout returns the ISO-8601 layout used to render temporal values of the class.
// Non-temporal classes use the timestamp layout in case a driver hands back a time anyway.
func (c Class) Layout() string {
	switch c {
	case ClassDate:
		return constants.TimeFormatDate
	case ClassTime:
		return constants.TimeFormatTime
	case ClassTimestampTZ:
		return constants.TimeFormatTimestampTZ
	}
	return constants.TimeFormatTimestamp
}

// Value is a normalised column value.
// Exactly one of Text, Time or Bytes is meaningful, depending on Kind.
type Value struct {
	Kind  Kind
	Text  string
	Time  time.Time
	Bytes []byte
	class Class
}

// Null is the SQL NULL value.
var Null = Value{Kind: KindNull}

func NewText(s string) Value {
	return Value{Kind: KindText, Text: s, class: ClassText}
}

func NewNumeric(s string) Value {
	return Value{Kind: KindNumeric, Text: s, class: ClassNumeric}
}

// NewTemporal returns a temporal value rendered with the layout of class c.
func NewTemporal(t time.Time, c Class) Value {
	if !c.IsTemporal() {
		c = ClassTimestamp
	}
	return Value{Kind: KindTemporal, Time: t, class: c}
}

func NewBinary(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{Kind: KindBinary, Bytes: cp, class: ClassBinary}
}

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// String renders v as text.
// Temporal values use ISO-8601 and binary values use the Postgres hex bytea format.
// NULL renders as an empty string, so check IsNull first where that matters.
func (v Value) String() string {
	switch v.Kind {
	case KindText, KindNumeric:
		return v.Text
	case KindTemporal:
		return v.Time.Format(v.class.Layout())
	case KindBinary:
		return `\x` + hex.EncodeToString(v.Bytes)
	}
	return ""
}

// Arg returns v ready to bind to a destination statement.
// With native set, dates, timestamps and binary values are bound as time.Time and []byte.
// Everything else is bound as text.
func (v Value) Arg(native bool) interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindTemporal:
		if native && v.class != ClassTime {
			return v.Time
		}
	case KindBinary:
		if native {
			return v.Bytes
		}
	}
	return v.String()
}

// Normalise maps a raw driver value to a Value using the column class.
func Normalise(raw interface{}, class Class) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null, nil
	case time.Time:
		return NewTemporal(t, class), nil
	case *time.Time:
		if t == nil {
			return Null, nil
		}
		return NewTemporal(*t, class), nil
	case []byte:
		switch class {
		case ClassBinary:
			return NewBinary(t), nil
		case ClassNumeric:
			return NewNumeric(strings.TrimSpace(string(t))), nil
		}
		return NewText(string(t)), nil
	case string:
		if class == ClassNumeric {
			return NewNumeric(strings.TrimSpace(t)), nil
		}
		return NewText(t), nil
	case bool:
		return NewText(strconv.FormatBool(t)), nil
	case int:
		return NewNumeric(strconv.FormatInt(int64(t), 10)), nil
	case int8:
		return NewNumeric(strconv.FormatInt(int64(t), 10)), nil
	case int16:
		return NewNumeric(strconv.FormatInt(int64(t), 10)), nil
	case int32:
		return NewNumeric(strconv.FormatInt(int64(t), 10)), nil
	case int64:
		return NewNumeric(strconv.FormatInt(t, 10)), nil
	case uint:
		return NewNumeric(strconv.FormatUint(uint64(t), 10)), nil
	case uint8:
		return NewNumeric(strconv.FormatUint(uint64(t), 10)), nil
	case uint16:
		return NewNumeric(strconv.FormatUint(uint64(t), 10)), nil
	case uint32:
		return NewNumeric(strconv.FormatUint(uint64(t), 10)), nil
	case uint64:
		return NewNumeric(strconv.FormatUint(t, 10)), nil
	case float32:
		return NewNumeric(strconv.FormatFloat(float64(t), 'f', -1, 32)), nil
	case float64:
		return NewNumeric(strconv.FormatFloat(t, 'f', -1, 64)), nil
	case fmt.Stringer:
		return normaliseText(t.String(), class), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", raw)
}

func normaliseText(s string, class Class) Value {
	if class == ClassNumeric {
		return NewNumeric(s)
	}
	return NewText(s)
}
