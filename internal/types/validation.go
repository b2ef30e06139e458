package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every request type in this package; custom tags are
// registered once.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report json field names so messages match the wire format
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "mood", func(fl validator.FieldLevel) bool {
		return IsValidMood(Mood(fl.Field().String()))
	})
	mustRegister(v, "color_preset", func(fl validator.FieldLevel) bool {
		return IsValidColorPreset(fl.Field().String())
	})
	mustRegister(v, "element", func(fl validator.FieldLevel) bool {
		return IsValidElement(fl.Field().String())
	})
	mustRegister(v, "quick_fix", func(fl validator.FieldLevel) bool {
		return IsValidQuickFix(fl.Field().String())
	})
	mustRegister(v, "output_type", func(fl validator.FieldLevel) bool {
		return OutputType(fl.Field().String()).IsValid()
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// FieldError is a single failing field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that kept a request from being accepted
type ValidationError struct {
	Object string       `json:"object"`
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + " " + fe.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Object, strings.Join(parts, "; "))
}

// Add appends a field failure
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// HasField reports whether field is among the failures
func (e *ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// validateStruct runs the struct tags of s and folds the result into a ValidationError
func validateStruct(object string, s interface{}) *ValidationError {
	verr := &ValidationError{Object: object}
	err := validate.Struct(s)
	if err == nil {
		return verr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add(object, err.Error())
		return verr
	}

	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe), messageFor(fe))
	}
	return verr
}

// fieldPath drops the leading struct name from the namespace ("BriefFields.elements[0]")
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s entry", fe.Param())
	case "unique":
		return "must not contain duplicates"
	case "mood":
		return fmt.Sprintf("must be one of %s", strings.Join(moodIDs(), ", "))
	case "color_preset":
		return fmt.Sprintf("must be one of %s", strings.Join(colorPresetNames(), ", "))
	case "element":
		return fmt.Sprintf("%q is not a known element", fe.Value())
	case "quick_fix":
		return fmt.Sprintf("%q is not a known quick fix", fe.Value())
	case "output_type":
		return fmt.Sprintf("must be %q or %q", OutputImages, OutputVideo)
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func moodIDs() []string {
	ids := make([]string, len(MoodOptions))
	for i, m := range MoodOptions {
		ids[i] = string(m.ID)
	}
	return ids
}

func colorPresetNames() []string {
	names := make([]string, 0, len(ColorPresets)+1)
	for _, p := range ColorPresets {
		names = append(names, p.Name)
	}
	return append(names, CustomColorPreset)
}
