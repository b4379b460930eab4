package model

// UpdateType — вид записи в ленте обновлений проекта.
type UpdateType string

const (
	UpdateProgress  UpdateType = "progress"
	UpdateFinancial UpdateType = "financial"
	UpdateMilestone UpdateType = "milestone"
	UpdateGeneral   UpdateType = "general"
	UpdateHarvest   UpdateType = "harvest"
)

// UpdateTypes — допустимые виды записей.
var UpdateTypes = []UpdateType{UpdateProgress, UpdateFinancial, UpdateMilestone, UpdateGeneral, UpdateHarvest}

// ProjectUpdate — запись ленты обновлений проекта. Только добавляется.
type ProjectUpdate struct {
	ID              int64      `json:"id"`
	ProjectID       int64      `json:"project_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	UpdateType      UpdateType `json:"update_type"`
	MediaFiles      FileList   `json:"media_files"`
	MilestoneStatus string     `json:"milestone_status,omitempty"`
	FarmerNotes     string     `json:"farmer_notes,omitempty"`
	CreatedBy       int64      `json:"created_by,omitempty"`
	CreatedAt       Timestamp  `json:"created_at"`
	ProjectName     string     `json:"project_name,omitempty"`
}

// ProjectUpdateForm — данные новой записи ленты. Медиафайлы передаются отдельно.
type ProjectUpdateForm struct {
	ProjectID       int64  `validate:"gt=0"`
	Title           string `validate:"required,notblank,max=255"`
	UpdateType      string `validate:"required,oneof=progress financial milestone general harvest"`
	Description     string `validate:"max=5000"`
	MilestoneStatus string `validate:"max=255"`
	FarmerNotes     string `validate:"max=5000"`
}
