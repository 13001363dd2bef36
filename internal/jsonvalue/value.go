/*
Package jsonvalue models a parsed JSON document as a tagged union.

Objects keep their keys in document order, which encoding/json maps do not.
Parsing and validation are delegated to github.com/tidwall/gjson.
*/
package jsonvalue

import (
	"errors"
	"strconv"

	"github.com/tidwall/gjson"
)

// ErrInvalid is returned by Parse when the text is not a single valid JSON document.
var ErrInvalid = errors.New("invalid JSON")

// Kind identifies the variant held by a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Field is one key/value pair of an object.
type Field struct {
	Key   string
	Value Value
}

// Value is a JSON value. The zero Value is null.
type Value struct {
	kind   Kind
	b      bool
	n      float64
	s      string
	items  []Value
	fields []Field
	raw    string
}

// Parse validates text and converts it to a Value.
func Parse(text string) (Value, error) {
	if !gjson.Valid(text) {
		return Value{}, ErrInvalid
	}
	return fromResult(gjson.Parse(text)), nil
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Value{}
	case gjson.True:
		return Value{kind: Bool, b: true}
	case gjson.False:
		return Value{kind: Bool}
	case gjson.Number:
		return Value{kind: Number, n: r.Num, raw: r.Raw}
	case gjson.String:
		return Value{kind: String, s: r.Str}
	}

	if r.IsArray() {
		v := Value{kind: Array, raw: r.Raw}
		r.ForEach(func(_, item gjson.Result) bool {
			v.items = append(v.items, fromResult(item))
			return true
		})
		return v
	}

	v := Value{kind: Object, raw: r.Raw}
	index := make(map[string]int)
	r.ForEach(func(key, item gjson.Result) bool {
		k := key.String()
		// Duplicate keys keep their first position and the last value.
		if i, ok := index[k]; ok {
			v.fields[i].Value = fromResult(item)
			return true
		}
		index[k] = len(v.fields)
		v.fields = append(v.fields, Field{Key: k, Value: fromResult(item)})
		return true
	})
	return v
}

// NewString returns a string value.
func NewString(s string) Value {
	return Value{kind: String, s: s}
}

// NewObject returns an object with the given fields in order.
func NewObject(fields ...Field) Value {
	return Value{kind: Object, fields: fields}
}

// Kind returns the variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == Null }

// Len returns the element count of an array or the key count of an object.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Object:
		return len(v.fields)
	default:
		return 0
	}
}

// Index returns the i-th array element, or null when out of range.
func (v Value) Index(i int) Value {
	if v.kind != Array || i < 0 || i >= len(v.items) {
		return Value{}
	}
	return v.items[i]
}

// Keys returns object keys in document order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, len(v.fields))
	for i, f := range v.fields {
		keys[i] = f.Key
	}
	return keys
}

// Get looks up an object key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether an object contains key.
func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Text renders scalars as plain text and containers as their JSON source.
func (v Value) Text() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case Number:
		if v.raw != "" {
			return v.raw
		}
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case String:
		return v.s
	default:
		return v.raw
	}
}

// TypeOf returns the name a dynamically typed runtime reports for v:
// containers and null are "object", scalars are their kind.
func (v Value) TypeOf() string {
	switch v.kind {
	case Bool, Number, String:
		return v.kind.String()
	default:
		return "object"
	}
}
