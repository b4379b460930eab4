package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
)

// InvestmentBackend — вызовы backend, нужные сервису инвестиций.
type InvestmentBackend interface {
	ListInvestments(ctx context.Context, f model.InvestmentFilter) (model.Page[model.Investment], error)
	GetInvestment(ctx context.Context, id int64) (*model.Investment, error)
	ConfirmInvestment(ctx context.Context, id int64, in lifecycle.ConfirmInput) error
	CancelInvestment(ctx context.Context, id int64, in lifecycle.CancelInput) error
	CompleteInvestment(ctx context.Context, id int64, in lifecycle.CompleteInput) error
}

// InvestmentService — инвестиции, платежи и их жизненный цикл.
type InvestmentService struct {
	backend  InvestmentBackend
	journal  *JournalService
	pageSize int
	logger   *slog.Logger
}

// NewInvestmentService создаёт сервис инвестиций.
func NewInvestmentService(b InvestmentBackend, journal *JournalService, pageSize int, logger *slog.Logger) *InvestmentService {
	if pageSize <= 0 {
		pageSize = model.DefaultPageSize
	}
	return &InvestmentService{
		backend:  b,
		journal:  journal,
		pageSize: pageSize,
		logger:   logger.With(slog.String("component", "investment_service")),
	}
}

// List возвращает страницу инвестиций.
func (s *InvestmentService) List(ctx context.Context, f model.InvestmentFilter) (model.Page[model.Investment], error) {
	if f.Limit <= 0 {
		f.Limit = s.pageSize
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	page, err := s.backend.ListInvestments(ctx, f)
	if err != nil {
		return model.Page[model.Investment]{}, mapBackendError("список инвестиций", err)
	}
	return page, nil
}

// Payments возвращает страницу оплаченных инвестиций.
func (s *InvestmentService) Payments(ctx context.Context, page int) (model.Page[model.Investment], error) {
	return s.List(ctx, model.InvestmentFilter{PaymentStatus: lifecycle.PaymentPaid, Page: page})
}

// Get возвращает инвестицию по ID.
func (s *InvestmentService) Get(ctx context.Context, id int64) (*model.Investment, error) {
	inv, err := s.backend.GetInvestment(ctx, id)
	if err != nil {
		return nil, mapBackendError(fmt.Sprintf("инвестиция %d", id), err)
	}
	return inv, nil
}

// Confirm подтверждает оплату. Пустой способ оплаты заменяется bank_transfer.
func (s *InvestmentService) Confirm(ctx context.Context, id int64, in lifecycle.ConfirmInput) (*model.Investment, error) {
	if in.PaymentMethod == "" {
		in.PaymentMethod = lifecycle.DefaultPaymentMethod
	}
	return s.transition(ctx, id, lifecycle.InvestmentActionConfirm, in.Validate,
		func(ctx context.Context) error { return s.backend.ConfirmInvestment(ctx, id, in) })
}

// Cancel отменяет инвестицию с причиной.
func (s *InvestmentService) Cancel(ctx context.Context, id int64, in lifecycle.CancelInput) (*model.Investment, error) {
	return s.transition(ctx, id, lifecycle.InvestmentActionCancel, in.Validate,
		func(ctx context.Context) error { return s.backend.CancelInvestment(ctx, id, in) })
}

// Complete завершает инвестицию с фактической суммой возврата.
func (s *InvestmentService) Complete(ctx context.Context, id int64, in lifecycle.CompleteInput) (*model.Investment, error) {
	return s.transition(ctx, id, lifecycle.InvestmentActionComplete, in.Validate,
		func(ctx context.Context) error { return s.backend.CompleteInvestment(ctx, id, in) })
}

// transition — общий порядок перехода: проверка ввода без сети, свежий статус,
// один вызов backend, запись в журнал, повторное чтение.
func (s *InvestmentService) transition(
	ctx context.Context,
	id int64,
	action lifecycle.InvestmentAction,
	validate func() error,
	call func(ctx context.Context) error,
) (*model.Investment, error) {
	if err := validate(); err != nil {
		s.journal.Record(ctx, model.JournalEntityInvestment, id, string(action), err)
		return nil, validation("переход инвестиции", err)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.NextInvestmentStatus(current.Status, action); err != nil {
		s.journal.Record(ctx, model.JournalEntityInvestment, id, string(action), err)
		return nil, validation("переход инвестиции", err)
	}

	err = call(ctx)
	s.journal.Record(ctx, model.JournalEntityInvestment, id, string(action), err)
	if err != nil {
		return nil, mapBackendError(fmt.Sprintf("переход инвестиции %s", action), err)
	}

	s.logger.Info("Статус инвестиции изменён",
		slog.Int64("investment_id", id),
		slog.String("action", string(action)),
		slog.String("from", string(current.Status)),
	)

	updated, err := s.backend.GetInvestment(ctx, id)
	if err != nil {
		s.logger.Warn("Не удалось перечитать инвестицию после перехода",
			slog.Int64("investment_id", id),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return updated, nil
}
