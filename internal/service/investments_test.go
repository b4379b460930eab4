package service

import (
	"context"
	"errors"
	"testing"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
)

func newTestInvestmentService(b *mockInvestmentBackend) (*InvestmentService, *mockJournalRepo) {
	repo := &mockJournalRepo{}
	return NewInvestmentService(b, NewJournalService(repo, testLogger()), 10, testLogger()), repo
}

func TestInvestmentConfirm_DefaultMethod(t *testing.T) {
	b := &mockInvestmentBackend{status: lifecycle.InvestmentPending}
	svc, journal := newTestInvestmentService(b)

	inv, err := svc.Confirm(context.Background(), 11, lifecycle.ConfirmInput{PaymentReference: "TRX-1001"})
	if err != nil {
		t.Fatalf("Confirm() ошибка: %v", err)
	}
	if inv.Status != lifecycle.InvestmentConfirmed {
		t.Errorf("Status = %s, ожидали confirmed", inv.Status)
	}
	body, ok := b.lastBody.(lifecycle.ConfirmInput)
	if !ok || body.PaymentMethod != lifecycle.DefaultPaymentMethod {
		t.Errorf("в backend ушло %+v, ожидали bank_transfer", b.lastBody)
	}
	if e := journal.last(); e == nil || e.Entity != model.JournalEntityInvestment || e.Outcome != model.OutcomeSuccess {
		t.Errorf("запись журнала: %+v", e)
	}
}

// TestInvestmentTransitions_InputBeforeNetwork проверяет, что пустой ввод
// отклоняется без запросов к backend.
func TestInvestmentTransitions_InputBeforeNetwork(t *testing.T) {
	tests := []struct {
		name string
		call func(s *InvestmentService) error
	}{
		{"confirm без номера платежа", func(s *InvestmentService) error {
			_, err := s.Confirm(context.Background(), 1, lifecycle.ConfirmInput{PaymentReference: "  "})
			return err
		}},
		{"confirm с неизвестным способом", func(s *InvestmentService) error {
			_, err := s.Confirm(context.Background(), 1, lifecycle.ConfirmInput{PaymentReference: "TRX", PaymentMethod: "barter"})
			return err
		}},
		{"cancel без причины", func(s *InvestmentService) error {
			_, err := s.Cancel(context.Background(), 1, lifecycle.CancelInput{})
			return err
		}},
		{"complete с отрицательной суммой", func(s *InvestmentService) error {
			_, err := s.Complete(context.Background(), 1, lifecycle.CompleteInput{ReturnAmount: -5})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &mockInvestmentBackend{status: lifecycle.InvestmentPending}
			svc, _ := newTestInvestmentService(b)

			err := tt.call(svc)
			if !lifecycle.IsInputRequired(err) {
				t.Fatalf("ожидали INPUT_REQUIRED, получили %v", err)
			}
			if b.total() != 0 {
				t.Errorf("backend вызван %d раз, ожидали 0", b.total())
			}
		})
	}
}

func TestInvestmentComplete_FromPendingInvalid(t *testing.T) {
	b := &mockInvestmentBackend{status: lifecycle.InvestmentPending}
	svc, journal := newTestInvestmentService(b)

	_, err := svc.Complete(context.Background(), 2, lifecycle.CompleteInput{ReturnAmount: 1500})
	var te *lifecycle.TransitionError
	if !errors.As(err, &te) || te.Code != lifecycle.CodeInvalidTransition {
		t.Fatalf("ожидали INVALID_TRANSITION, получили %v", err)
	}
	if n := b.count(string(lifecycle.InvestmentActionComplete)); n != 0 {
		t.Errorf("complete вызван %d раз, ожидали 0", n)
	}
	if e := journal.last(); e.Outcome != model.OutcomeRejected {
		t.Errorf("Outcome = %s, ожидали rejected", e.Outcome)
	}
}

func TestInvestmentLifecycle_ConfirmThenComplete(t *testing.T) {
	b := &mockInvestmentBackend{status: lifecycle.InvestmentPending}
	svc, _ := newTestInvestmentService(b)
	ctx := context.Background()

	if _, err := svc.Confirm(ctx, 5, lifecycle.ConfirmInput{PaymentReference: "TRX", PaymentMethod: "cash"}); err != nil {
		t.Fatalf("Confirm() ошибка: %v", err)
	}
	inv, err := svc.Complete(ctx, 5, lifecycle.CompleteInput{ReturnAmount: 0})
	if err != nil {
		t.Fatalf("Complete() ошибка: %v", err)
	}
	if inv.Status != lifecycle.InvestmentCompleted {
		t.Errorf("Status = %s, ожидали completed", inv.Status)
	}

	// Завершённую инвестицию нельзя отменить
	if _, err := svc.Cancel(ctx, 5, lifecycle.CancelInput{Reason: "ошибка"}); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation, получили %v", err)
	}
}

func TestInvestmentCancel_BackendMessageVerbatim(t *testing.T) {
	b := &mockInvestmentBackend{
		status:    lifecycle.InvestmentPending,
		actionErr: &backend.APIError{StatusCode: 422, Message: "Investment already paid out"},
	}
	svc, _ := newTestInvestmentService(b)

	_, err := svc.Cancel(context.Background(), 3, lifecycle.CancelInput{Reason: "дубль"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("422 должен давать ErrValidation, получили %v", err)
	}
	if text, _ := NoticeText(err); text != "Investment already paid out" {
		t.Errorf("NoticeText() = %q", text)
	}
	if n := b.count(string(lifecycle.InvestmentActionCancel)); n != 1 {
		t.Errorf("cancel вызван %d раз, ожидали ровно 1", n)
	}
}

func TestInvestmentPayments_PaidOnly(t *testing.T) {
	var got model.InvestmentFilter
	b := &mockInvestmentBackend{
		listFn: func(_ context.Context, f model.InvestmentFilter) (model.Page[model.Investment], error) {
			got = f
			return model.Page[model.Investment]{}, nil
		},
	}
	svc, _ := newTestInvestmentService(b)

	if _, err := svc.Payments(context.Background(), 3); err != nil {
		t.Fatalf("Payments() ошибка: %v", err)
	}
	if got.PaymentStatus != lifecycle.PaymentPaid || got.Page != 3 || got.Limit != 10 {
		t.Errorf("фильтр = %+v", got)
	}
}
