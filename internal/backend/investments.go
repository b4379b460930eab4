package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
)

// ListInvestments возвращает страницу инвестиций с фильтрами по статусу и оплате.
func (c *Client) ListInvestments(ctx context.Context, f model.InvestmentFilter) (model.Page[model.Investment], error) {
	q := pageQuery(f.Page, f.Limit)
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.PaymentStatus != "" {
		q.Set("payment_status", string(f.PaymentStatus))
	}

	var data json.RawMessage
	if err := c.getJSON(ctx, "/admin/investments", q, &data); err != nil {
		return model.Page[model.Investment]{}, fmt.Errorf("ListInvestments: %w", err)
	}

	items, meta, err := decodePage[model.Investment](data, "investments")
	if err != nil {
		return model.Page[model.Investment]{}, fmt.Errorf("ListInvestments: %w", err)
	}
	return toPage(items, meta, f.Page), nil
}

// GetInvestment возвращает инвестицию по ID.
func (c *Client) GetInvestment(ctx context.Context, id int64) (*model.Investment, error) {
	var inv model.Investment
	if err := c.getJSON(ctx, fmt.Sprintf("/admin/investments/%d", id), nil, &inv); err != nil {
		return nil, fmt.Errorf("GetInvestment: %w", err)
	}
	return &inv, nil
}

// ConfirmInvestment подтверждает оплату инвестиции.
func (c *Client) ConfirmInvestment(ctx context.Context, id int64, in lifecycle.ConfirmInput) error {
	return c.transitionInvestment(ctx, id, lifecycle.InvestmentActionConfirm, in)
}

// CancelInvestment отменяет инвестицию с причиной.
func (c *Client) CancelInvestment(ctx context.Context, id int64, in lifecycle.CancelInput) error {
	return c.transitionInvestment(ctx, id, lifecycle.InvestmentActionCancel, in)
}

// CompleteInvestment завершает инвестицию с фактической суммой возврата.
func (c *Client) CompleteInvestment(ctx context.Context, id int64, in lifecycle.CompleteInput) error {
	return c.transitionInvestment(ctx, id, lifecycle.InvestmentActionComplete, in)
}

// transitionInvestment — PUT /admin/investments/{id}/{action}, один вызов без повторов.
func (c *Client) transitionInvestment(ctx context.Context, id int64, action lifecycle.InvestmentAction, body any) error {
	path := fmt.Sprintf("/admin/investments/%d/%s", id, action)
	if err := c.sendJSON(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("investment %s: %w", action, err)
	}
	return nil
}
