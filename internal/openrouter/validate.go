package openrouter

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"flashai/internal/models"

	"github.com/go-playground/validator/v10"
)

// Normalizer вызывается после декодирования и до проверки правил,
// например чтобы обрезать пробелы.
type Normalizer interface {
	Normalize()
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func shapeValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// В путях нарушений используем JSON-имена полей.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ValidateResponse извлекает содержимое первого варианта ответа, разбирает его как JSON
// в тип, на который указывает out, и проверяет правила validate-тегов.
// out заполняется только при полном успехе.
func ValidateResponse(resp Response, out any) error {
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("%w: out must be a non-nil pointer, got %T", models.ErrInvalidInput, out)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return &models.Error{
			Kind:    models.KindResponseValidation,
			Reason:  models.ReasonEmptyContent,
			Message: "completion response has no content",
		}
	}
	content := resp.Choices[0].Content

	fresh := reflect.New(target.Type().Elem())
	if err := json.Unmarshal([]byte(content), fresh.Interface()); err != nil {
		return &models.Error{
			Kind:    models.KindResponseValidation,
			Reason:  models.ReasonMalformedJSON,
			Message: "completion content is not valid JSON for the expected shape",
			Err:     err,
		}
	}

	if n, ok := fresh.Interface().(Normalizer); ok {
		n.Normalize()
	}

	if isStruct(fresh.Type().Elem()) {
		if err := shapeValidator().Struct(fresh.Interface()); err != nil {
			return schemaMismatch(err)
		}
	}

	target.Elem().Set(fresh.Elem())
	return nil
}

func isStruct(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func schemaMismatch(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &models.Error{
			Kind:    models.KindResponseValidation,
			Reason:  models.ReasonSchemaMismatch,
			Message: "completion content does not match the expected shape",
			Err:     err,
		}
	}

	violations := make([]models.Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, models.Violation{
			Field:   fieldPath(fe.Namespace()),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: violationMessage(fe),
		})
	}
	return &models.Error{
		Kind:       models.KindResponseValidation,
		Reason:     models.ReasonSchemaMismatch,
		Message:    fmt.Sprintf("completion content does not match the expected shape (%d violations)", len(violations)),
		Violations: violations,
	}
}

// fieldPath убирает имя корневого типа: "FlashcardSet.flashcards[0].front" -> "flashcards[0].front".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}
