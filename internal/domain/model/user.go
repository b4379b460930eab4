package model

// User — пользователь платформы (фермер или инвестор).
// Новые пользователи ждут одобрения администратором.
type User struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	NIDFront   string    `json:"nid_front,omitempty"`
	NIDBack    string    `json:"nid_back,omitempty"`
	IsApproved Flag      `json:"is_approved"`
	IsVerified Flag      `json:"is_verified"`
	CreatedAt  Timestamp `json:"created_at"`
}

// DisplayName возвращает имя для таблиц.
func (u User) DisplayName() string {
	if u.FirstName != "" || u.LastName != "" {
		if u.LastName == "" {
			return u.FirstName
		}
		if u.FirstName == "" {
			return u.LastName
		}
		return u.FirstName + " " + u.LastName
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// AdminForm — данные создания администратора.
type AdminForm struct {
	Name          string  `json:"name" validate:"required,notblank,max=100"`
	Username      string  `json:"username" validate:"required,notblank,max=50"`
	Email         string  `json:"email" validate:"required,email"`
	Password      string  `json:"password" validate:"required,min=6"`
	RoleIDs       []int64 `json:"role_ids,omitempty"`
	PermissionIDs []int64 `json:"permission_ids,omitempty"`
}

// PermissionForm — данные права (создание и изменение).
type PermissionForm struct {
	PermissionKey string `json:"permission_key" validate:"required,notblank,max=100"`
	Label         string `json:"label" validate:"required,notblank,max=255"`
}

// RoleForm — данные роли (создание и изменение).
type RoleForm struct {
	Name          string  `json:"name" validate:"required,notblank,max=100"`
	PermissionIDs []int64 `json:"permission_ids"`
}
