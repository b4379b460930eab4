package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Коды ошибок перехода.
const (
	// CodeInvalidTransition — действие недопустимо в текущем статусе
	CodeInvalidTransition = "INVALID_TRANSITION"
	// CodeInputRequired — не заполнены обязательные входные данные
	CodeInputRequired = "INPUT_REQUIRED"
)

// TransitionError — ошибка перехода между статусами.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_TRANSITION, INPUT_REQUIRED)
	Message string // Человекочитаемое описание
	Fields  []string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInputRequired проверяет, что ошибка вызвана незаполненными полями.
func IsInputRequired(err error) bool {
	var te *TransitionError
	return errors.As(err, &te) && te.Code == CodeInputRequired
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator возвращает общий экземпляр validator с зарегистрированным тегом notblank.
// Экземпляр потокобезопасен и кэширует метаданные структур.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("notblank", validators.NotBlank)
	})
	return validate
}

// validateStruct проверяет структуру и превращает ошибки validator в TransitionError.
func validateStruct(s any, message string) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &TransitionError{Code: CodeInputRequired, Message: err.Error()}
	}

	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fe.Field())
	}
	return &TransitionError{
		Code:    CodeInputRequired,
		Message: fmt.Sprintf("%s (%s)", message, strings.Join(fields, ", ")),
		Fields:  fields,
	}
}

// ValidateForm проверяет форму по тегам validate (редактирование проекта,
// запись в ленту обновлений, учётная запись администратора).
// Ошибка — INPUT_REQUIRED со списком полей.
func ValidateForm(form any) error {
	return validateStruct(form, "форма заполнена не полностью")
}
