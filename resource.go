package medaware

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-chi/render"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/medaware/medaware/interfaces"
)

type Model = interfaces.Model

type Resource interface {
	Model
	ToDTO() render.Renderer
}

// Changes maps column names to their new values for a partial update.
type Changes map[string]any

// Filter is an equality filter keyed by column name. The "id" key addresses the
// primary key on every backend.
type Filter map[string]any

// newModel allocates the value a pointer model type points at.
func newModel[M Model]() M {
	var item M

	t := reflect.TypeOf(item)
	if t != nil && t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface().(M)
	}

	return item
}

// StringList is a list of strings stored as a BSON array in Mongo and as a JSON
// text column in SQL databases.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}

	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("failed to encode string list: %w", err)
	}

	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	var raw []byte

	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported string list source %T", src)
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}

	if out == nil {
		out = []string{}
	}

	*l = out

	return nil
}

// MarshalBSONValue writes a nil list as an empty array, matching Value.
func (l StringList) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if l == nil {
		l = StringList{}
	}

	return bson.MarshalValue([]string(l))
}

func (l *StringList) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*l = StringList{}
		return nil
	}

	var out []string
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}

	if out == nil {
		out = []string{}
	}

	*l = out

	return nil
}

func (StringList) GormDataType() string {
	return "text"
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}

	return json.Marshal([]string(l))
}
