package model

import "github.com/krishibazar/admin-console/internal/domain/lifecycle"

// Project — инвестиционный проект фермера.
type Project struct {
	ID                     int64                   `json:"id"`
	ProjectName            string                  `json:"project_name"`
	FarmerName             string                  `json:"farmer_name"`
	FarmerPhone            string                  `json:"farmer_phone"`
	FarmerAddress          string                  `json:"farmer_address"`
	CategoryID             *int64                  `json:"category_id,omitempty"`
	PerUnitPrice           Amount                  `json:"per_unit_price"`
	TotalReturnablePerUnit Amount                  `json:"total_returnable_per_unit"`
	ProjectDuration        int                     `json:"project_duration"`
	TotalUnits             int                     `json:"total_units"`
	EarningPercentage      Amount                  `json:"earning_percentage"`
	WhyFundWithKrishibazar string                  `json:"why_fund_with_krishibazar"`
	Status                 lifecycle.ProjectStatus `json:"status"`
	NIDCardFront           string                  `json:"nid_card_front,omitempty"`
	NIDCardBack            string                  `json:"nid_card_back,omitempty"`
	ProjectImages          FileList                `json:"project_images,omitempty"`
	RejectionReason        string                  `json:"rejection_reason,omitempty"`
	CreatedBy              int64                   `json:"created_by,omitempty"`
	ApprovedBy             *int64                  `json:"approved_by,omitempty"`
	CreatedAt              Timestamp               `json:"created_at"`
	ApprovedAt             Timestamp               `json:"approved_at"`
	StartedAt              Timestamp               `json:"started_at"`
	CompletedAt            Timestamp               `json:"completed_at"`
	InvestmentStats        *InvestmentStats        `json:"investment_stats,omitempty"`
}

// InvestmentStats — сводка бронирования единиц проекта (вычисляет backend).
type InvestmentStats struct {
	TotalBookedUnits int    `json:"total_booked_units"`
	ConfirmedUnits   int    `json:"confirmed_units"`
	ConfirmedAmount  Amount `json:"confirmed_amount"`
}

// AvailableUnits возвращает число свободных единиц (не меньше нуля).
func (p Project) AvailableUnits() int {
	if p.InvestmentStats == nil {
		return p.TotalUnits
	}
	return max(0, p.TotalUnits-p.InvestmentStats.TotalBookedUnits)
}

// Поля формы проекта, изменение которых запускает пересчёт доходности.
const (
	FieldPerUnitPrice      = "per_unit_price"
	FieldTotalReturnable   = "total_returnable_per_unit"
	FieldEarningPercentage = "earning_percentage"
)

// DeriveEarningPercentage = (returnable - price) / price * 100, округлено до сотых.
// Для неположительной цены результат 0.
func DeriveEarningPercentage(price, returnable float64) float64 {
	if price <= 0 {
		return 0
	}
	return Round2((returnable - price) / price * 100)
}

// DeriveReturnable = price * (1 + pct/100), округлено до сотых.
func DeriveReturnable(price, pct float64) float64 {
	return Round2(price * (1 + pct/100))
}

// ReconcileEarning согласует доходность и сумму возврата после правки одного поля:
// пересчитывается то из двух полей, которое не редактировали.
// При правке цены сохраняется сумма возврата, пересчитывается процент.
// Пока цена или изменённое значение не положительны, поля не трогаются.
func ReconcileEarning(price, returnable, pct float64, edited string) (float64, float64) {
	if price <= 0 {
		return returnable, pct
	}
	switch edited {
	case FieldTotalReturnable, FieldPerUnitPrice:
		if returnable > 0 {
			pct = DeriveEarningPercentage(price, returnable)
		}
	case FieldEarningPercentage:
		if pct > 0 {
			returnable = DeriveReturnable(price, pct)
		}
	}
	return returnable, pct
}

// ProjectForm — поля создания и редактирования проекта.
// Файлы (NID, изображения) передаются отдельно как части multipart.
type ProjectForm struct {
	ProjectName            string  `validate:"required,notblank,max=255"`
	FarmerName             string  `validate:"required,notblank,max=255"`
	FarmerPhone            string  `validate:"required,notblank,max=32"`
	FarmerAddress          string  `validate:"required,notblank"`
	CategoryID             *int64  `validate:"omitempty"`
	PerUnitPrice           float64 `validate:"gt=0"`
	TotalReturnablePerUnit float64 `validate:"gt=0"`
	ProjectDuration        int     `validate:"gt=0"`
	TotalUnits             int     `validate:"gt=0"`
	EarningPercentage      float64 `validate:"gt=0"`
	WhyFundWithKrishibazar string  `validate:"required,notblank"`
}

// FormFromProject заполняет форму текущими значениями проекта.
func FormFromProject(p Project) ProjectForm {
	return ProjectForm{
		ProjectName:            p.ProjectName,
		FarmerName:             p.FarmerName,
		FarmerPhone:            p.FarmerPhone,
		FarmerAddress:          p.FarmerAddress,
		CategoryID:             p.CategoryID,
		PerUnitPrice:           p.PerUnitPrice.Float64(),
		TotalReturnablePerUnit: p.TotalReturnablePerUnit.Float64(),
		ProjectDuration:        p.ProjectDuration,
		TotalUnits:             p.TotalUnits,
		EarningPercentage:      p.EarningPercentage.Float64(),
		WhyFundWithKrishibazar: p.WhyFundWithKrishibazar,
	}
}

// ProjectFilter — фильтры списка проектов.
type ProjectFilter struct {
	Status lifecycle.ProjectStatus
	Search string
	Page   int
	Limit  int
}
