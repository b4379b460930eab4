package model

import "github.com/krishibazar/admin-console/internal/domain/lifecycle"

// Investment — вложение инвестора в проект.
// PaymentStatus отслеживается независимо от Status.
type Investment struct {
	ID               int64                      `json:"id"`
	UserID           int64                      `json:"user_id"`
	ProjectID        int64                      `json:"project_id"`
	UnitsInvested    int                        `json:"units_invested"`
	AmountPerUnit    Amount                     `json:"amount_per_unit"`
	TotalAmount      Amount                     `json:"total_amount"`
	Status           lifecycle.InvestmentStatus `json:"status"`
	PaymentStatus    lifecycle.PaymentStatus    `json:"payment_status"`
	PaymentReference string                     `json:"payment_reference,omitempty"`
	PaymentMethod    string                     `json:"payment_method,omitempty"`
	ReturnReceived   Amount                     `json:"return_received"`
	ReturnDate       Timestamp                  `json:"return_date"`
	InvestmentDate   Timestamp                  `json:"investment_date"`
	PaymentDate      Timestamp                  `json:"payment_date"`
	Notes            string                     `json:"notes,omitempty"`
	CreatedAt        Timestamp                  `json:"created_at"`

	// Поля, которые backend присоединяет из проекта и профиля инвестора.
	ProjectName            string `json:"project_name,omitempty"`
	FarmerName             string `json:"farmer_name,omitempty"`
	EarningPercentage      Amount `json:"earning_percentage"`
	ProjectDuration        int    `json:"project_duration,omitempty"`
	ExpectedReturnAmount   Amount `json:"expected_return_amount"`
	TotalReturnablePerUnit Amount `json:"total_returnable_per_unit"`
	FirstName              string `json:"first_name,omitempty"`
	LastName               string `json:"last_name,omitempty"`
	Email                  string `json:"email,omitempty"`
	Phone                  string `json:"phone,omitempty"`
}

// InvestorName возвращает имя инвестора для таблиц.
func (i Investment) InvestorName() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	default:
		return i.Email
	}
}

// InvestmentFilter — фильтры списка инвестиций.
type InvestmentFilter struct {
	Status        lifecycle.InvestmentStatus
	PaymentStatus lifecycle.PaymentStatus
	Page          int
	Limit         int
}
