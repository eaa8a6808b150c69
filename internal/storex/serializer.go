package storex

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// TagKey is the struct tag naming a record field's storage column.
const TagKey = "db"

var (
	// ErrNotFlat reports a record type that is not a flat named-field struct.
	ErrNotFlat = errors.New("record type must be a flat named-field struct")
	// ErrBadField reports a record field that cannot be mapped to a column.
	ErrBadField = errors.New("record field cannot be mapped to a column")
	// ErrMissingField reports a DTO lacking a value for a record field.
	ErrMissingField = errors.New("dto missing value for record field")
	// ErrUnknownField reports a DTO key no record field accepts.
	ErrUnknownField = errors.New("dto key does not match any record field")
	// ErrTypeMismatch reports a DTO value that cannot populate its field.
	ErrTypeMismatch = errors.New("dto value type does not match record field")
)

type fieldSpec struct {
	column string
	index  int
	typ    reflect.Type
}

// Serializer converts between a record struct M and its DTO form, in both
// single and order-preserving batch variants. Construction validates the
// record shape once; a built Serializer is immutable and safe for concurrent
// use.
type Serializer[M any] struct {
	fields []fieldSpec
	byCol  map[string]int
}

// NewSerializer builds a Serializer for M. M must be a flat named-field
// struct: every field exported, non-embedded, carrying a unique non-empty
// `db` tag, and of a scalar storage type (bool, integer, float, string,
// []byte, time.Time, uuid.UUID, or pointer to one of those). Anything else
// fails construction.
func NewSerializer[M any]() (*Serializer[M], error) {
	t := reflect.TypeFor[M]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotFlat, t, t.Kind())
	}

	s := &Serializer[M]{byCol: make(map[string]int, t.NumField())}
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous {
			return nil, fmt.Errorf("%w: %s embeds %s", ErrNotFlat, t, f.Type)
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("%w: %s has unexported field %s", ErrNotFlat, t, f.Name)
		}
		col := f.Tag.Get(TagKey)
		if col == "" || col == "-" {
			return nil, fmt.Errorf("%w: field %s has no %q tag", ErrBadField, f.Name, TagKey)
		}
		if _, dup := s.byCol[col]; dup {
			return nil, fmt.Errorf("%w: column %q mapped twice", ErrBadField, col)
		}
		if !storableType(f.Type) {
			return nil, fmt.Errorf("%w: field %s has non-scalar type %s", ErrNotFlat, f.Name, f.Type)
		}
		s.byCol[col] = len(s.fields)
		s.fields = append(s.fields, fieldSpec{column: col, index: i, typ: f.Type})
	}
	if len(s.fields) == 0 {
		return nil, fmt.Errorf("%w: %s has no fields", ErrNotFlat, t)
	}
	return s, nil
}

var (
	timeType  = reflect.TypeOf(time.Time{})
	uuidType  = reflect.TypeOf(uuid.UUID{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// storableType reports whether t maps to a single storage column.
func storableType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		return t.Elem().Kind() != reflect.Pointer && storableType(t.Elem())
	}
	if t == timeType || t == uuidType || t == bytesType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// Columns returns the column names in record declaration order.
func (s *Serializer[M]) Columns() []string {
	cols := make([]string, len(s.fields))
	for i, f := range s.fields {
		cols[i] = f.column
	}
	return cols
}

// Serialize converts a record into its DTO form. It has no side effects and
// never fails: construction already proved every field is storable. Pointer
// fields flatten to their pointee and nil pointers to nil, so DTO values are
// always flat scalars or NULL.
func (s *Serializer[M]) Serialize(rec M) DTO {
	v := reflect.ValueOf(rec)
	d := make(DTO, len(s.fields))
	for _, f := range s.fields {
		fv := v.Field(f.index)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				d[f.column] = nil
			} else {
				d[f.column] = fv.Elem().Interface()
			}
			continue
		}
		d[f.column] = fv.Interface()
	}
	return d
}

// Deserialize converts a DTO back into a record. The DTO must carry exactly
// the record's columns: a missing column, an extra key, or a value that
// cannot populate its field is an error.
func (s *Serializer[M]) Deserialize(d DTO) (M, error) {
	var rec M
	v := reflect.ValueOf(&rec).Elem()
	for _, f := range s.fields {
		raw, ok := d[f.column]
		if !ok {
			var zero M
			return zero, fmt.Errorf("%w: %s", ErrMissingField, f.column)
		}
		if err := setField(v.Field(f.index), raw); err != nil {
			var zero M
			return zero, fmt.Errorf("column %s: %w", f.column, err)
		}
	}
	if len(d) != len(s.fields) {
		for col := range d {
			if _, ok := s.byCol[col]; !ok {
				var zero M
				return zero, fmt.Errorf("%w: %s", ErrUnknownField, col)
			}
		}
	}
	return rec, nil
}

// SerializeMany converts records element-wise, preserving order and length.
func (s *Serializer[M]) SerializeMany(recs []M) []DTO {
	dtos := make([]DTO, len(recs))
	for i, rec := range recs {
		dtos[i] = s.Serialize(rec)
	}
	return dtos
}

// DeserializeMany converts DTOs element-wise, preserving order and length.
// The first failing element aborts with its position in the error.
func (s *Serializer[M]) DeserializeMany(dtos []DTO) ([]M, error) {
	recs := make([]M, len(dtos))
	for i, d := range dtos {
		rec, err := s.Deserialize(d)
		if err != nil {
			return nil, fmt.Errorf("dto %d: %w", i, err)
		}
		recs[i] = rec
	}
	return recs, nil
}

// setField assigns a raw DTO value into a record field, restricting
// conversions to safe ones: numeric widening/narrowing and equal-kind
// conversions such as [16]byte into uuid.UUID. Cross-kind conversions
// (notably integer into string) are mismatches.
func setField(fv reflect.Value, raw any) error {
	ft := fv.Type()

	rv := reflect.ValueOf(raw)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		if ft.Kind() == reflect.Pointer {
			fv.SetZero()
			return nil
		}
		return fmt.Errorf("%w: NULL into %s", ErrTypeMismatch, ft)
	}

	if ft.Kind() == reflect.Pointer {
		elem := reflect.New(ft.Elem())
		if err := setField(elem.Elem(), raw); err != nil {
			return err
		}
		fv.Set(elem)
		return nil
	}

	switch {
	case rv.Type().AssignableTo(ft):
		fv.Set(rv)
	case convertibleKind(rv.Type(), ft):
		fv.Set(rv.Convert(ft))
	default:
		return fmt.Errorf("%w: %s into %s", ErrTypeMismatch, rv.Type(), ft)
	}
	return nil
}

func convertibleKind(src, dst reflect.Type) bool {
	if !src.ConvertibleTo(dst) {
		return false
	}
	if numericKind(src.Kind()) && numericKind(dst.Kind()) {
		return true
	}
	return src.Kind() == dst.Kind()
}

func numericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
