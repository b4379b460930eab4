// Пакет lifecycle — конечные автоматы статусов проекта и инвестиции.
//
// Проект:     pending → {approved, rejected}; approved → running; running → completed.
// Инвестиция: pending → {confirmed, cancelled}; confirmed → completed.
//
// Автоматы не хранят состояние: источник истины — backend. Здесь только
// матрицы допустимых действий и проверка обязательных входных данных,
// которая выполняется до любого сетевого запроса.
package lifecycle

import "fmt"

// ProjectStatus — статус инвестиционного проекта.
type ProjectStatus string

const (
	// ProjectPending — ожидает решения
	ProjectPending ProjectStatus = "pending"
	// ProjectApproved — одобрен, открыт для инвестиций
	ProjectApproved ProjectStatus = "approved"
	// ProjectRejected — отклонён (конечный)
	ProjectRejected ProjectStatus = "rejected"
	// ProjectRunning — запущен, новые инвестиции закрыты
	ProjectRunning ProjectStatus = "running"
	// ProjectCompleted — завершён (конечный)
	ProjectCompleted ProjectStatus = "completed"
)

// ProjectStatuses — все статусы в порядке жизненного цикла (для фильтров UI).
var ProjectStatuses = []ProjectStatus{
	ProjectPending, ProjectApproved, ProjectRejected, ProjectRunning, ProjectCompleted,
}

// ProjectAction — действие администратора над проектом.
type ProjectAction string

const (
	ProjectActionApprove  ProjectAction = "approve"
	ProjectActionReject   ProjectAction = "reject"
	ProjectActionStart    ProjectAction = "start"
	ProjectActionComplete ProjectAction = "complete"
	ProjectActionEdit     ProjectAction = "edit"
	ProjectActionDelete   ProjectAction = "delete"
)

// projectTransitions — матрица переходов статусов.
// Ключ — текущий статус, значение — действие → целевой статус.
var projectTransitions = map[ProjectStatus]map[ProjectAction]ProjectStatus{
	ProjectPending: {
		ProjectActionApprove: ProjectApproved,
		ProjectActionReject:  ProjectRejected,
	},
	ProjectApproved:  {ProjectActionStart: ProjectRunning},
	ProjectRunning:   {ProjectActionComplete: ProjectCompleted},
	ProjectRejected:  {},
	ProjectCompleted: {},
}

// projectEditable — статусы, в которых разрешено редактирование полей.
var projectEditable = map[ProjectStatus]bool{
	ProjectPending:  true,
	ProjectApproved: true,
}

// projectActionOrder — порядок кнопок в UI.
var projectActionOrder = []ProjectAction{
	ProjectActionApprove,
	ProjectActionReject,
	ProjectActionStart,
	ProjectActionComplete,
	ProjectActionEdit,
	ProjectActionDelete,
}

// ParseProjectStatus преобразует строку в ProjectStatus.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	st := ProjectStatus(s)
	if _, ok := projectTransitions[st]; !ok {
		return "", fmt.Errorf("недопустимый статус проекта: %q", s)
	}
	return st, nil
}

// ParseProjectAction преобразует строку в ProjectAction.
func ParseProjectAction(s string) (ProjectAction, error) {
	for _, a := range projectActionOrder {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("недопустимое действие над проектом: %q", s)
}

// IsTerminal возвращает true для статусов без исходящих переходов.
func (s ProjectStatus) IsTerminal() bool {
	return len(projectTransitions[s]) == 0
}

// AcceptsInvestments — проект открыт для новых инвестиций только в статусе approved.
func (s ProjectStatus) AcceptsInvestments() bool {
	return s == ProjectApproved
}

// AcceptsUpdates — новости проекта публикуются только в статусах approved и running.
func (s ProjectStatus) AcceptsUpdates() bool {
	return s == ProjectApproved || s == ProjectRunning
}

// NextProjectStatus возвращает статус после действия.
// Для edit статус не меняется; для delete запись удаляется, возвращается текущий.
func NextProjectStatus(current ProjectStatus, action ProjectAction) (ProjectStatus, error) {
	if !CanPerformProject(current, action) {
		return "", &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("действие %s недопустимо для проекта в статусе %s", action, current),
		}
	}
	if target, ok := projectTransitions[current][action]; ok {
		return target, nil
	}
	return current, nil
}

// CanPerformProject проверяет, допустимо ли действие в текущем статусе.
func CanPerformProject(current ProjectStatus, action ProjectAction) bool {
	transitions, ok := projectTransitions[current]
	if !ok {
		return false
	}
	switch action {
	case ProjectActionDelete:
		return true
	case ProjectActionEdit:
		return projectEditable[current]
	}
	_, ok = transitions[action]
	return ok
}

// AvailableProjectActions возвращает действия, которые UI показывает для статуса.
func AvailableProjectActions(current ProjectStatus) []ProjectAction {
	result := make([]ProjectAction, 0, len(projectActionOrder))
	for _, a := range projectActionOrder {
		if CanPerformProject(current, a) {
			result = append(result, a)
		}
	}
	return result
}

// RejectInput — входные данные отклонения проекта.
type RejectInput struct {
	RejectionReason string `validate:"required,notblank,max=1000"`
}

// ValidateProjectInput проверяет обязательные поля действия.
// Вызывается до обращения к backend: пустая причина отказа не уходит в сеть.
func ValidateProjectInput(action ProjectAction, reject RejectInput) error {
	if action != ProjectActionReject {
		return nil
	}
	return validateStruct(reject, "причина отклонения обязательна")
}
