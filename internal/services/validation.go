package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/farellandr/rollcall/internal/apperror"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validationError turns validator output into an INVALID_INPUT error listing
// each failing field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.Wrap(apperror.CodeInvalidInput, "Invalid input.", err)
	}

	messages := make([]string, 0, len(fieldErrs))
	metadata := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		metadata[fe.Field()] = fe.Tag()
	}
	return &apperror.Error{
		Code:     apperror.CodeInvalidInput,
		Message:  "Invalid input: " + strings.Join(messages, ", ") + ".",
		Metadata: metadata,
		Cause:    err,
	}
}

func invalidInput(message string, field string) error {
	return apperror.WithMetadata(apperror.CodeInvalidInput, message, map[string]string{"field": field})
}
