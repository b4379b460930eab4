package model

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestAmountUnmarshal(t *testing.T) {
	tests := []struct {
		raw     string
		want    Amount
		wantErr bool
	}{
		{`1500`, 1500, false},
		{`"1500.50"`, 1500.5, false},
		{`" 12 "`, 12, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		var a Amount
		err := json.Unmarshal([]byte(tt.raw), &a)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Amount(%s): ожидалась ошибка", tt.raw)
			}
			continue
		}
		if err != nil || a != tt.want {
			t.Errorf("Amount(%s) = %v, %v; хотели %v", tt.raw, a, err, tt.want)
		}
	}
}

func TestFileListUnmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{`["a.jpg", "b.png"]`, []string{"a.jpg", "b.png"}},
		{`"[\"a.jpg\",\"b.png\"]"`, []string{"a.jpg", "b.png"}},
		{`"a.jpg, b.png,"`, []string{"a.jpg", "b.png"}},
		{`"single.mp4"`, []string{"single.mp4"}},
		{`""`, nil},
		{`null`, nil},
	}

	for _, tt := range tests {
		var l FileList
		if err := json.Unmarshal([]byte(tt.raw), &l); err != nil {
			t.Errorf("FileList(%s): %v", tt.raw, err)
			continue
		}
		if !slices.Equal([]string(l), tt.want) {
			t.Errorf("FileList(%s) = %v, хотели %v", tt.raw, l, tt.want)
		}
	}
}

func TestFlagAndTimestamp(t *testing.T) {
	var u User
	raw := `{"id":1,"is_approved":1,"is_verified":"false","created_at":"2025-01-02T03:04:05.000Z"}`
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !u.IsApproved || u.IsVerified {
		t.Errorf("флаги: approved=%v verified=%v", u.IsApproved, u.IsVerified)
	}
	if u.CreatedAt.Year() != 2025 {
		t.Errorf("CreatedAt = %v", u.CreatedAt)
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"вчера"`), &ts); err != nil || !ts.IsZero() {
		t.Errorf("нераспознанное время: %v, %v", ts, err)
	}
}

func TestPageNormalize(t *testing.T) {
	p := Page[int]{Items: []int{1, 2, 3}}.Normalize(2)
	if p.CurrentPage != 2 || p.TotalPages != 1 || p.TotalCount != 3 {
		t.Errorf("Normalize = %+v", p)
	}
	if !p.HasPrev() || p.HasNext() {
		t.Errorf("HasPrev=%v HasNext=%v", p.HasPrev(), p.HasNext())
	}
}
