package validator

import (
	"fmt"
	"reflect"
	"strings"
)

// Validator validates one aspect of a struct value
type Validator interface {
	// Validate checks data, which must be a struct or a pointer to one
	Validate(data interface{}) error
}

// Validate runs every validator against data and returns the first error
func Validate(data interface{}, validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(data); err != nil {
			return err
		}
	}
	return nil
}

// RangeValidator checks that a numeric field lies within [Min, Max].
// Field is a dotted path such as "Poll.IntervalSeconds".
type RangeValidator struct {
	Field string
	Min   float64
	Max   float64
}

// Validate checks the field is within the configured range
func (rv *RangeValidator) Validate(data interface{}) error {
	field, err := lookup(data, rv.Field)
	if err != nil {
		return err
	}

	var value float64
	switch field.Kind() {
	case reflect.Float32, reflect.Float64:
		value = field.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		value = float64(field.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value = float64(field.Uint())
	default:
		return fmt.Errorf("field %s is not numeric", rv.Field)
	}

	if value < rv.Min || value > rv.Max {
		return fmt.Errorf("field %s value %v is not within [%v, %v]", rv.Field, value, rv.Min, rv.Max)
	}

	return nil
}

// OneOfValidator checks that a string field, or every element of a string
// slice field, is one of Allowed.
type OneOfValidator struct {
	Field   string
	Allowed []string
}

// Validate checks the field value against the allowed set
func (ov *OneOfValidator) Validate(data interface{}) error {
	field, err := lookup(data, ov.Field)
	if err != nil {
		return err
	}

	switch {
	case field.Kind() == reflect.String:
		return ov.check(field.String())
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		for i := 0; i < field.Len(); i++ {
			if err := ov.check(field.Index(i).String()); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("field %s is not a string", ov.Field)
	}
}

func (ov *OneOfValidator) check(value string) error {
	for _, a := range ov.Allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("field %s value %q must be one of [%s]", ov.Field, value, strings.Join(ov.Allowed, ", "))
}

// NotEmptyValidator checks that a string field is not blank
type NotEmptyValidator struct {
	Field string
}

// Validate checks the field is a non-blank string
func (nv *NotEmptyValidator) Validate(data interface{}) error {
	field, err := lookup(data, nv.Field)
	if err != nil {
		return err
	}
	if field.Kind() != reflect.String {
		return fmt.Errorf("field %s is not a string", nv.Field)
	}
	if strings.TrimSpace(field.String()) == "" {
		return fmt.Errorf("field %s cannot be empty", nv.Field)
	}
	return nil
}

func lookup(data interface{}, path string) (reflect.Value, error) {
	v := reflect.ValueOf(data)
	for _, name := range strings.Split(path, ".") {
		if v.Kind() == reflect.Ptr {
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("data must be a struct to resolve %s", path)
		}
		v = v.FieldByName(name)
		if !v.IsValid() {
			return reflect.Value{}, fmt.Errorf("field %s does not exist", path)
		}
	}
	return v, nil
}
