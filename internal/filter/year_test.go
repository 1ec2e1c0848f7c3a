package filter

import (
	"testing"

	"github.com/lotas/wegweiser/internal/types"
)

func TestExtractYear(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Updated 2023", "2023", true},
		{"TBD", "", false},
		{"", "", false},
		{"Reviewed 2019", "", false},
		{"2021 then 2024", "2021", true},
		{"ref 120345", "2034", true},
		{"v2.0", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractYear(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExtractYear(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAvailableYears(t *testing.T) {
	ds := []types.Category{
		{Code: "A", Sections: []types.Section{
			{Code: "A1", Status: "Updated 2009"},
			{Code: "A2", Status: "2023"},
			{Code: "A3", Status: "TBD"},
		}},
		{Code: "B", Sections: []types.Section{
			{Code: "B1", Status: "since 2023"},
			{Code: "B2", Status: "2015 / 2099"},
			{Code: "B3", Status: "2020"},
		}},
	}
	got := AvailableYears(ds)
	want := []string{"2023", "2020", "2015", "2009"}
	if len(got) != len(want) {
		t.Fatalf("AvailableYears = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AvailableYears[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAvailableYearsEmpty(t *testing.T) {
	if got := AvailableYears(nil); len(got) != 0 {
		t.Errorf("AvailableYears(nil) = %v, want empty", got)
	}
}
