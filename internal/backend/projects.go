package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
)

// Поля файлов проекта в multipart-запросе.
const (
	FieldNIDCardFront  = "nid_card_front"
	FieldNIDCardBack   = "nid_card_back"
	FieldProjectImages = "project_images"
)

// ListProjects возвращает страницу проектов с фильтрами.
func (c *Client) ListProjects(ctx context.Context, f model.ProjectFilter) (model.Page[model.Project], error) {
	q := pageQuery(f.Page, f.Limit)
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}

	var data json.RawMessage
	if err := c.getJSON(ctx, "/admin/projects", q, &data); err != nil {
		return model.Page[model.Project]{}, fmt.Errorf("ListProjects: %w", err)
	}

	items, meta, err := decodePage[model.Project](data, "projects")
	if err != nil {
		return model.Page[model.Project]{}, fmt.Errorf("ListProjects: %w", err)
	}
	return toPage(items, meta, f.Page), nil
}

// GetProject возвращает проект со статистикой бронирования.
// Если backend не включил статистику в ответ, она запрашивается отдельно;
// ошибка этого запроса не мешает показу проекта.
func (c *Client) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	if err := c.getJSON(ctx, fmt.Sprintf("/admin/projects/%d", id), nil, &p); err != nil {
		return nil, fmt.Errorf("GetProject: %w", err)
	}

	if p.InvestmentStats == nil {
		var stats model.InvestmentStats
		err := c.getJSON(ctx, fmt.Sprintf("/admin/investments/stats/project/%d", id), nil, &stats)
		switch {
		case err == nil:
			p.InvestmentStats = &stats
		case ctx.Err() != nil:
			return nil, fmt.Errorf("GetProject: %w", ctx.Err())
		default:
			c.logger.Debug("Статистика инвестиций проекта недоступна",
				slog.Int64("project_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return &p, nil
}

// CreateProject создаёт проект (статус pending). NID и изображения — части multipart.
func (c *Client) CreateProject(ctx context.Context, form model.ProjectForm, files []FilePart) error {
	if err := c.sendForm(ctx, http.MethodPost, "/admin/projects", projectFields(form), files, nil); err != nil {
		return fmt.Errorf("CreateProject: %w", err)
	}
	return nil
}

// UpdateProject изменяет поля проекта. Статус не меняется.
func (c *Client) UpdateProject(ctx context.Context, id int64, form model.ProjectForm, files []FilePart) error {
	if err := c.sendForm(ctx, http.MethodPut, fmt.Sprintf("/admin/projects/%d", id), projectFields(form), files, nil); err != nil {
		return fmt.Errorf("UpdateProject: %w", err)
	}
	return nil
}

// DeleteProject удаляет проект.
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	if err := c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/admin/projects/%d", id), nil, nil); err != nil {
		return fmt.Errorf("DeleteProject: %w", err)
	}
	return nil
}

// TransitionProject выполняет переход статуса проекта: approve, reject, start, complete.
// Единственный вызов без повторов. Для reject передаётся причина.
func (c *Client) TransitionProject(ctx context.Context, id int64, action lifecycle.ProjectAction, reject lifecycle.RejectInput) error {
	switch action {
	case lifecycle.ProjectActionApprove, lifecycle.ProjectActionStart, lifecycle.ProjectActionComplete:
		if err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/admin/projects/%s/%d", action, id), nil, nil); err != nil {
			return fmt.Errorf("TransitionProject %s: %w", action, err)
		}
	case lifecycle.ProjectActionReject:
		body := map[string]string{"rejection_reason": reject.RejectionReason}
		if err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/admin/projects/reject/%d", id), body, nil); err != nil {
			return fmt.Errorf("TransitionProject reject: %w", err)
		}
	default:
		return fmt.Errorf("TransitionProject: действие %s не является переходом статуса", action)
	}
	return nil
}

// projectFields сериализует форму проекта в поля запроса.
func projectFields(f model.ProjectForm) []Field {
	fields := []Field{
		{"project_name", f.ProjectName},
		{"farmer_name", f.FarmerName},
		{"farmer_phone", f.FarmerPhone},
		{"farmer_address", f.FarmerAddress},
		{"per_unit_price", formatFloat(f.PerUnitPrice)},
		{"total_returnable_per_unit", formatFloat(f.TotalReturnablePerUnit)},
		{"project_duration", strconv.Itoa(f.ProjectDuration)},
		{"total_units", strconv.Itoa(f.TotalUnits)},
		{"earning_percentage", formatFloat(f.EarningPercentage)},
		{"why_fund_with_krishibazar", f.WhyFundWithKrishibazar},
	}
	if f.CategoryID != nil {
		fields = append(fields, Field{"category_id", strconv.FormatInt(*f.CategoryID, 10)})
	}
	return fields
}

// pageQuery формирует параметры пагинации (нулевые значения не передаются).
func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// toPage собирает model.Page из элементов и счётчиков backend.
func toPage[T any](items []T, meta pageData, requested int) model.Page[T] {
	return model.Page[T]{
		Items:       items,
		CurrentPage: meta.CurrentPage,
		TotalPages:  meta.TotalPages,
		TotalCount:  meta.TotalCount,
	}.Normalize(requested)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
