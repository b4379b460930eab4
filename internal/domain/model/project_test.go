package model

import (
	"encoding/json"
	"testing"
)

func TestDeriveEarning(t *testing.T) {
	if got := DeriveReturnable(100, 20); got != 120 {
		t.Errorf("DeriveReturnable(100, 20) = %v, хотели 120", got)
	}
	if got := DeriveEarningPercentage(100, 150); got != 50 {
		t.Errorf("DeriveEarningPercentage(100, 150) = %v, хотели 50", got)
	}
	if got := DeriveEarningPercentage(0, 150); got != 0 {
		t.Errorf("DeriveEarningPercentage(0, 150) = %v, хотели 0", got)
	}
	// 1/3 округляется до сотых
	if got := DeriveEarningPercentage(300, 400); got != 33.33 {
		t.Errorf("DeriveEarningPercentage(300, 400) = %v, хотели 33.33", got)
	}
}

// TestDeriveEarningRoundTrip — процент → сумма → процент возвращает исходное значение.
func TestDeriveEarningRoundTrip(t *testing.T) {
	cases := []struct{ price, pct float64 }{
		{100, 20}, {250, 12.5}, {80, 35}, {1000, 7.25},
	}
	for _, c := range cases {
		ret := DeriveReturnable(c.price, c.pct)
		if back := DeriveEarningPercentage(c.price, ret); back != c.pct {
			t.Errorf("price=%v pct=%v: returnable=%v, обратно %v", c.price, c.pct, ret, back)
		}
	}
}

func TestReconcileEarning(t *testing.T) {
	tests := []struct {
		name           string
		price          float64
		returnable     float64
		pct            float64
		edited         string
		wantReturnable float64
		wantPct        float64
	}{
		{"правка процента", 100, 0, 20, FieldEarningPercentage, 120, 20},
		{"правка суммы возврата", 100, 150, 20, FieldTotalReturnable, 150, 50},
		{"правка цены пересчитывает процент", 200, 120, 20, FieldPerUnitPrice, 120, -40},
		{"правка цены при пустой сумме возврата", 200, 0, 20, FieldPerUnitPrice, 0, 20},
		{"нулевая цена ничего не меняет", 0, 150, 20, FieldTotalReturnable, 150, 20},
		{"нулевой процент не пересчитывается", 100, 130, 0, FieldEarningPercentage, 130, 0},
		{"прочие поля", 100, 130, 20, "project_name", 130, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ret, pct := ReconcileEarning(tt.price, tt.returnable, tt.pct, tt.edited)
			if ret != tt.wantReturnable || pct != tt.wantPct {
				t.Errorf("ReconcileEarning = (%v, %v), хотели (%v, %v)", ret, pct, tt.wantReturnable, tt.wantPct)
			}
		})
	}
}

func TestAvailableUnits(t *testing.T) {
	p := Project{TotalUnits: 50}
	if got := p.AvailableUnits(); got != 50 {
		t.Errorf("без статистики: %d, хотели 50", got)
	}
	p.InvestmentStats = &InvestmentStats{TotalBookedUnits: 60}
	if got := p.AvailableUnits(); got != 0 {
		t.Errorf("перебронирование: %d, хотели 0", got)
	}
}

// TestProjectDecode — ответ backend с DECIMAL-строками и списком файлов в строке.
func TestProjectDecode(t *testing.T) {
	raw := `{
		"id": 7,
		"project_name": "Томаты",
		"per_unit_price": "100.00",
		"total_returnable_per_unit": 120,
		"earning_percentage": "20.00",
		"status": "approved",
		"project_images": "[\"a.jpg\",\"b.jpg\"]",
		"approved_at": "2025-03-01 10:20:30",
		"rejection_reason": null,
		"investment_stats": {"total_booked_units": 5, "confirmed_units": 3, "confirmed_amount": "300.00"}
	}`

	var p Project
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.PerUnitPrice != 100 || p.TotalReturnablePerUnit != 120 || p.EarningPercentage != 20 {
		t.Errorf("суммы: %v %v %v", p.PerUnitPrice, p.TotalReturnablePerUnit, p.EarningPercentage)
	}
	if len(p.ProjectImages) != 2 || p.ProjectImages[1] != "b.jpg" {
		t.Errorf("ProjectImages = %v", p.ProjectImages)
	}
	if p.ApprovedAt.IsZero() {
		t.Error("ApprovedAt не разобран")
	}
	if p.InvestmentStats == nil || p.InvestmentStats.ConfirmedAmount != 300 {
		t.Errorf("InvestmentStats = %+v", p.InvestmentStats)
	}
}
