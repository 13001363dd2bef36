package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks field ranges and enums.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &InvalidConfigError{Message: err.Error()}
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return &InvalidConfigError{
		Message: strings.Join(msgs, "\n"),
		Hint:    "Check ~/.promptstruct/config.yaml and PROMPTSTRUCT_* environment variables",
	}
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s: %q is not one of [%s]", field, fe.Value(), fe.Param())
	case "required", "required_if":
		return fmt.Sprintf("%s: required", field)
	case "ltfield":
		return fmt.Sprintf("%s: must be less than %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s: %q is not a valid URL", field, fe.Value())
	default:
		return fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}
