package config

import (
	"reflect"
	"time"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// Validator is implemented by configuration structs that carry
// cross-field constraints the required tag cannot express. Validate is
// called by [Loader.Load] after all values are resolved.
type Validator interface {
	Validate() error
}

// validate enforces required tags and then runs the struct's own
// Validate method when present.
func validate(cfg any, rv reflect.Value) error {
	if err := checkRequired(rv, ""); err != nil {
		return err
	}

	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			if _, ok := vherr.AsError(err); ok {
				return err
			}
			return vherr.Wrap(err, vherr.CodeValidation, "config: validation failed")
		}
	}

	return nil
}

// checkRequired walks the struct and fails on any zero-valued field
// tagged `required:"true"`. The path parameter carries the dotted field
// path for error messages.
func checkRequired(rv reflect.Value, path string) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		name := sf.Name
		if path != "" {
			name = path + "." + sf.Name
		}

		if field.Kind() == reflect.Struct && sf.Type != reflect.TypeOf(time.Duration(0)) {
			if err := checkRequired(field, name); err != nil {
				return err
			}
			continue
		}

		if sf.Tag.Get("required") == "true" && field.IsZero() {
			return vherr.Newf(vherr.CodeValidationRequired,
				"config: required field %q is not set (env var %q)", name, sf.Tag.Get("env"))
		}
	}

	return nil
}
