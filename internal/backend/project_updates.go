package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/krishibazar/admin-console/internal/domain/model"
)

// FieldMediaFiles — поле медиафайлов записи ленты в multipart-запросе.
const FieldMediaFiles = "media_files"

// ListProjectUpdates возвращает ленту обновлений проекта.
func (c *Client) ListProjectUpdates(ctx context.Context, projectID int64, page, limit int) ([]model.ProjectUpdate, error) {
	q := pageQuery(page, limit)
	if projectID > 0 {
		q.Set("project_id", strconv.FormatInt(projectID, 10))
	}

	var data json.RawMessage
	if err := c.getJSON(ctx, "/admin/project-updates", q, &data); err != nil {
		return nil, fmt.Errorf("ListProjectUpdates: %w", err)
	}

	items, _, err := decodePage[model.ProjectUpdate](data, "data")
	if err != nil {
		return nil, fmt.Errorf("ListProjectUpdates: %w", err)
	}
	return items, nil
}

// CreateProjectUpdate добавляет запись в ленту обновлений.
// Медиафайлы передаются частями media_files; без файлов уходит JSON.
func (c *Client) CreateProjectUpdate(ctx context.Context, form model.ProjectUpdateForm, media []FilePart) error {
	fields := []Field{
		{"project_id", strconv.FormatInt(form.ProjectID, 10)},
		{"title", form.Title},
		{"update_type", form.UpdateType},
	}
	if form.Description != "" {
		fields = append(fields, Field{"description", form.Description})
	}
	if form.MilestoneStatus != "" {
		fields = append(fields, Field{"milestone_status", form.MilestoneStatus})
	}
	if form.FarmerNotes != "" {
		fields = append(fields, Field{"farmer_notes", form.FarmerNotes})
	}

	for i := range media {
		media[i].Field = FieldMediaFiles
	}

	if err := c.sendForm(ctx, http.MethodPost, "/admin/project-updates", fields, media, nil); err != nil {
		return fmt.Errorf("CreateProjectUpdate: %w", err)
	}
	return nil
}
