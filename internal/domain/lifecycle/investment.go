package lifecycle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// InvestmentStatus — статус инвестиции.
type InvestmentStatus string

const (
	InvestmentPending   InvestmentStatus = "pending"
	InvestmentConfirmed InvestmentStatus = "confirmed"
	InvestmentCancelled InvestmentStatus = "cancelled"
	InvestmentCompleted InvestmentStatus = "completed"
)

// InvestmentStatuses — все статусы (для фильтров UI).
var InvestmentStatuses = []InvestmentStatus{
	InvestmentPending, InvestmentConfirmed, InvestmentCancelled, InvestmentCompleted,
}

// PaymentStatus — статус оплаты, независимый от статуса инвестиции.
// Устанавливается только backend.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentStatuses — все статусы оплаты.
var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

// PaymentMethods — способы оплаты, принимаемые при подтверждении.
var PaymentMethods = []string{"bank_transfer", "mobile_banking", "cash", "card"}

// DefaultPaymentMethod — способ оплаты по умолчанию.
const DefaultPaymentMethod = "bank_transfer"

// InvestmentAction — действие администратора над инвестицией.
type InvestmentAction string

const (
	InvestmentActionConfirm  InvestmentAction = "confirm"
	InvestmentActionCancel   InvestmentAction = "cancel"
	InvestmentActionComplete InvestmentAction = "complete"
)

// investmentTransitions — матрица переходов статусов инвестиции.
var investmentTransitions = map[InvestmentStatus]map[InvestmentAction]InvestmentStatus{
	InvestmentPending: {
		InvestmentActionConfirm: InvestmentConfirmed,
		InvestmentActionCancel:  InvestmentCancelled,
	},
	InvestmentConfirmed: {InvestmentActionComplete: InvestmentCompleted},
	InvestmentCancelled: {},
	InvestmentCompleted: {},
}

var investmentActionOrder = []InvestmentAction{
	InvestmentActionConfirm,
	InvestmentActionCancel,
	InvestmentActionComplete,
}

// ParseInvestmentStatus преобразует строку в InvestmentStatus.
func ParseInvestmentStatus(s string) (InvestmentStatus, error) {
	st := InvestmentStatus(s)
	if _, ok := investmentTransitions[st]; !ok {
		return "", fmt.Errorf("недопустимый статус инвестиции: %q", s)
	}
	return st, nil
}

// ParsePaymentStatus преобразует строку в PaymentStatus.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	for _, ps := range PaymentStatuses {
		if string(ps) == s {
			return ps, nil
		}
	}
	return "", fmt.Errorf("недопустимый статус оплаты: %q", s)
}

// ParseInvestmentAction преобразует строку в InvestmentAction.
func ParseInvestmentAction(s string) (InvestmentAction, error) {
	for _, a := range investmentActionOrder {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("недопустимое действие над инвестицией: %q", s)
}

// IsTerminal возвращает true для cancelled и completed.
func (s InvestmentStatus) IsTerminal() bool {
	return len(investmentTransitions[s]) == 0
}

// CanPerformInvestment проверяет, допустимо ли действие в текущем статусе.
func CanPerformInvestment(current InvestmentStatus, action InvestmentAction) bool {
	_, ok := investmentTransitions[current][action]
	return ok
}

// NextInvestmentStatus возвращает статус после действия.
func NextInvestmentStatus(current InvestmentStatus, action InvestmentAction) (InvestmentStatus, error) {
	target, ok := investmentTransitions[current][action]
	if !ok {
		return "", &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("действие %s недопустимо для инвестиции в статусе %s", action, current),
		}
	}
	return target, nil
}

// AvailableInvestmentActions возвращает действия, которые UI показывает для статуса.
func AvailableInvestmentActions(current InvestmentStatus) []InvestmentAction {
	result := make([]InvestmentAction, 0, len(investmentActionOrder))
	for _, a := range investmentActionOrder {
		if CanPerformInvestment(current, a) {
			result = append(result, a)
		}
	}
	return result
}

// ConfirmInput — данные подтверждения оплаты.
type ConfirmInput struct {
	PaymentReference string `json:"payment_reference" validate:"required,notblank,max=255"`
	PaymentMethod    string `json:"payment_method" validate:"required,oneof=bank_transfer mobile_banking cash card"`
}

// CancelInput — данные отмены инвестиции.
type CancelInput struct {
	Reason string `json:"reason" validate:"required,notblank,max=1000"`
}

// CompleteInput — данные завершения инвестиции (фактический возврат).
type CompleteInput struct {
	ReturnAmount float64 `json:"return_amount" validate:"gte=0"`
}

// ParseReturnAmount разбирает сумму возврата из формы.
// Пустое, нечисловое или бесконечное значение (Inf, NaN) — ошибка INPUT_REQUIRED.
func ParseReturnAmount(raw string) (CompleteInput, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CompleteInput{}, &TransitionError{
			Code:    CodeInputRequired,
			Message: "сумма возврата обязательна (ReturnAmount)",
			Fields:  []string{"ReturnAmount"},
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return CompleteInput{}, &TransitionError{
			Code:    CodeInputRequired,
			Message: fmt.Sprintf("сумма возврата должна быть числом: %q", raw),
			Fields:  []string{"ReturnAmount"},
		}
	}
	return CompleteInput{ReturnAmount: v}, nil
}

// Validate проверяет обязательные поля подтверждения.
func (in ConfirmInput) Validate() error {
	return validateStruct(in, "для подтверждения нужны номер платежа и способ оплаты")
}

// Validate проверяет причину отмены.
func (in CancelInput) Validate() error {
	return validateStruct(in, "причина отмены обязательна")
}

// Validate проверяет сумму возврата.
func (in CompleteInput) Validate() error {
	return validateStruct(in, "сумма возврата не может быть отрицательной")
}
