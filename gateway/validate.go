package gateway

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/campusai/campus/pkg/apierr"
)

// MaxMessageBytes caps the content of a single chat message.
const MaxMessageBytes = 32 << 10

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names in errors.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxMessageBytes
	})

	return v
}

// validationError converts a validator error into an invalid_request error
// naming the first offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apierr.Wrap(apierr.KindInvalidRequest, err)
	}

	fe := verrs[0]
	// Drop the top-level struct name: "ChatRequest.messages[0].role".
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "min":
		msg = fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	case "max":
		msg = fmt.Sprintf("%s allows at most %s entries", field, fe.Param())
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "maxbytes":
		msg = fmt.Sprintf("%s exceeds %d bytes", field, MaxMessageBytes)
	default:
		msg = field + " is invalid"
	}
	return apierr.New(apierr.KindInvalidRequest, msg)
}
