package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const maxBodyBytes = 1 << 20

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterStructValidation(passwordConfirmed, registerRequest{}, createUserRequest{}, updateUserRequest{})

	return v
}

// passwordConfirmed reports a mismatch on the password field, not on the
// confirmation.
func passwordConfirmed(sl validator.StructLevel) {
	var password, confirmation *string
	switch req := sl.Current().Interface().(type) {
	case registerRequest:
		password, confirmation = req.Password, req.PasswordConfirmation
	case createUserRequest:
		password, confirmation = req.Password, req.PasswordConfirmation
	case updateUserRequest:
		password, confirmation = req.Password, req.PasswordConfirmation
	}

	if password == nil {
		return
	}
	if confirmation == nil || *confirmation != *password {
		sl.ReportError(confirmation, "password", "Password", "confirmed", "")
	}
}

// label renders a json field name the way messages show it.
func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func message(fe validator.FieldError) string {
	f := label(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("The %s field is required.", f)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", f)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", f, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", f, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must be at least %s characters.", f, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", f, fe.Param())
	case "confirmed":
		return fmt.Sprintf("The %s field confirmation does not match.", f)
	default:
		return fmt.Sprintf("The %s field is invalid.", f)
	}
}

// typeMessage explains a JSON value of the wrong type for field.
func typeMessage(field string, t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	f := label(field)
	switch t.Kind() {
	case reflect.Bool:
		return fmt.Sprintf("The %s field must be true or false.", f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("The %s field must be an integer.", f)
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("The %s field must be a number.", f)
	case reflect.String:
		return fmt.Sprintf("The %s field must be a string.", f)
	default:
		return fmt.Sprintf("The %s field is invalid.", f)
	}
}

// decodeAndValidate reads a JSON body into dst and runs the struct rules.
// Every problem comes back as a *common.ValidationError.
func (h *Handler) decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))

	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		v := common.NewValidationError()

		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			v.Add(typeErr.Field, typeMessage(typeErr.Field, typeErr.Type))
		} else {
			v.Add("body", "The request body must be a valid JSON object.")
		}
		return v
	}

	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		v := common.NewValidationError()
		for _, fe := range fieldErrs {
			v.Add(fe.Field(), message(fe))
		}
		return v
	}

	return nil
}

// numeric accepts a JSON number or a numeric string.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
