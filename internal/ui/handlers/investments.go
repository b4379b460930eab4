// investments.go — инвестиции: список с фильтрами, платежи, карточка и переходы.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/ui/pages"
)

const (
	investmentsPath = "/admin/investments"
	paymentsPath    = "/admin/payments"
)

// InvestmentManager — операции над инвестициями. Реализуется service.InvestmentService.
type InvestmentManager interface {
	List(ctx context.Context, f model.InvestmentFilter) (model.Page[model.Investment], error)
	Payments(ctx context.Context, page int) (model.Page[model.Investment], error)
	Get(ctx context.Context, id int64) (*model.Investment, error)
	Confirm(ctx context.Context, id int64, in lifecycle.ConfirmInput) (*model.Investment, error)
	Cancel(ctx context.Context, id int64, in lifecycle.CancelInput) (*model.Investment, error)
	Complete(ctx context.Context, id int64, in lifecycle.CompleteInput) (*model.Investment, error)
}

// InvestmentsHandler — обработчики раздела инвестиций.
type InvestmentsHandler struct {
	page
	investments InvestmentManager
	journal     JournalReader
}

// NewInvestmentsHandler создаёт InvestmentsHandler. journal может быть nil.
func NewInvestmentsHandler(env Env, investments InvestmentManager, journal JournalReader) *InvestmentsHandler {
	return &InvestmentsHandler{
		page:        newPage(env, "ui.investments"),
		investments: investments,
		journal:     journal,
	}
}

// HandleList обрабатывает GET /admin/investments (фильтры status, payment_status, page).
// Неизвестные значения фильтров игнорируются.
func (h *InvestmentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter pages.InvestmentFilter
	if st, err := lifecycle.ParseInvestmentStatus(q.Get("status")); err == nil {
		filter.Status = string(st)
	}
	if ps, err := lifecycle.ParsePaymentStatus(q.Get("payment_status")); err == nil {
		filter.PaymentStatus = string(ps)
	}

	data := pages.InvestmentsData{
		Base:            h.base(w, r, "investments.title", pages.SectionInvestments),
		Statuses:        investmentStatuses(),
		PaymentStatuses: paymentStatuses(),
		Filter:          filter,
	}
	result, err := list(h.page, r, "investments", func(ctx context.Context) (model.Page[model.Investment], error) {
		return h.investments.List(ctx, model.InvestmentFilter{
			Status:        lifecycle.InvestmentStatus(filter.Status),
			PaymentStatus: lifecycle.PaymentStatus(filter.PaymentStatus),
			Page:          queryPage(r),
		})
	})
	if err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	} else {
		data.Items = result.Items
		data.Pager = pages.PagerFrom(result, investmentsPath,
			encodeQuery("status", filter.Status, "payment_status", filter.PaymentStatus))
	}
	h.render(w, r, pages.Investments(data))
}

// HandlePayments обрабатывает GET /admin/payments — только оплаченные инвестиции.
func (h *InvestmentsHandler) HandlePayments(w http.ResponseWriter, r *http.Request) {
	data := pages.InvestmentsData{
		Base:         h.base(w, r, "payments.title", pages.SectionPayments),
		PaymentsView: true,
		Filter:       pages.InvestmentFilter{PaymentStatus: string(lifecycle.PaymentPaid)},
	}
	result, err := list(h.page, r, "payments", func(ctx context.Context) (model.Page[model.Investment], error) {
		return h.investments.Payments(ctx, queryPage(r))
	})
	if err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	} else {
		data.Items = result.Items
		data.Pager = pages.PagerFrom(result, paymentsPath, "")
	}
	h.render(w, r, pages.Investments(data))
}

// HandleDetail обрабатывает GET /admin/investments/{id}.
func (h *InvestmentsHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	inv, err := h.investments.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, investmentsPath)
		return
	}

	actions := lifecycle.AvailableInvestmentActions(inv.Status)
	data := pages.InvestmentDetailData{
		Base:           h.base(w, r, "investment.detail", pages.SectionInvestments),
		Investment:     *inv,
		Actions:        make([]string, 0, len(actions)),
		PaymentMethods: lifecycle.PaymentMethods,
		DefaultMethod:  lifecycle.DefaultPaymentMethod,
	}
	for _, a := range actions {
		data.Actions = append(data.Actions, string(a))
	}
	if h.journal != nil && h.journal.Enabled() {
		entries, err := h.journal.ForEntity(r.Context(), model.JournalEntityInvestment, id, journalDetailLimit)
		if err != nil {
			h.logger.Warn("Журнал инвестиции недоступен",
				slog.Int64("investment_id", id),
				slog.String("error", err.Error()),
			)
		}
		data.Journal = entries
	}

	h.render(w, r, pages.InvestmentDetail(data))
}

// HandleTransition возвращает обработчик POST /admin/investments/{id}/{action}.
// Обязательные поля проверяются до обращения к backend.
func (h *InvestmentsHandler) HandleTransition(action lifecycle.InvestmentAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idOr404(w, r)
		if !ok {
			return
		}
		target := itemURL(investmentsPath, id)

		var err error
		switch action {
		case lifecycle.InvestmentActionConfirm:
			_, err = h.investments.Confirm(r.Context(), id, lifecycle.ConfirmInput{
				PaymentReference: strings.TrimSpace(r.FormValue("payment_reference")),
				PaymentMethod:    r.FormValue("payment_method"),
			})
		case lifecycle.InvestmentActionCancel:
			_, err = h.investments.Cancel(r.Context(), id, lifecycle.CancelInput{
				Reason: strings.TrimSpace(r.FormValue("reason")),
			})
		case lifecycle.InvestmentActionComplete:
			var in lifecycle.CompleteInput
			in, err = lifecycle.ParseReturnAmount(r.FormValue("return_amount"))
			if err == nil {
				_, err = h.investments.Complete(r.Context(), id, in)
			}
		default:
			http.NotFound(w, r)
			return
		}
		if err != nil {
			h.fail(w, r, err, target)
			return
		}
		h.done(w, r, "flash.action_done", target)
	}
}

func investmentStatuses() []string {
	result := make([]string, 0, len(lifecycle.InvestmentStatuses))
	for _, s := range lifecycle.InvestmentStatuses {
		result = append(result, string(s))
	}
	return result
}

func paymentStatuses() []string {
	result := make([]string, 0, len(lifecycle.PaymentStatuses))
	for _, s := range lifecycle.PaymentStatuses {
		result = append(result, string(s))
	}
	return result
}
