package custom

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Datetime represents a datetime that is always rendered as RFC3339 in UTC.
type Datetime time.Time

// NewDatetime creates a Datetime from a time.
func NewDatetime(t time.Time) Datetime {
	return Datetime(t.UTC())
}

// Time returns the underlying time.
func (d Datetime) Time() time.Time {
	return time.Time(d)
}

// MarshalJSON implements the json.Marshaler interface.
func (d Datetime) MarshalJSON() ([]byte, error) {
	if time.Time(d).IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf(`%q`, time.Time(d).UTC().Format(time.RFC3339))), nil
}

// MarshalBSONValue implements the bson.ValueMarshaler interface.
func (d Datetime) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if time.Time(d).IsZero() {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(time.Time(d).UTC().Format(time.RFC3339))
}

// MarshalYAML implements the yaml.Marshaler interface.
func (d Datetime) MarshalYAML() (any, error) {
	if time.Time(d).IsZero() {
		return nil, nil
	}
	return time.Time(d).UTC().Format(time.RFC3339), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (d *Datetime) UnmarshalJSON(text []byte) error {
	s := strings.Trim(string(text), `"`)
	if s == "" || s == "null" {
		*d = Datetime{}
		return nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid datetime %q: %w", s, err)
	}
	*d = Datetime(t)
	return nil
}

// UnmarshalBSONValue implements the bson.ValueUnmarshaler interface. Both RFC3339 strings and
// native BSON datetimes are accepted.
func (d *Datetime) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeNull:
		*d = Datetime{}
		return nil
	case bson.TypeDateTime:
		tm, ok := raw.TimeOK()
		if !ok {
			return fmt.Errorf("invalid bson datetime")
		}
		*d = Datetime(tm.UTC())
		return nil
	case bson.TypeString:
		s, ok := raw.StringValueOK()
		if !ok {
			return fmt.Errorf("invalid bson string")
		}
		tm, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid datetime: %s", s)
		}
		*d = Datetime(tm)
		return nil
	default:
		return fmt.Errorf("cannot decode %s into a datetime", t)
	}
}

// String implements the fmt.Stringer interface.
func (d Datetime) String() string {
	return time.Time(d).UTC().Format(time.RFC3339)
}
