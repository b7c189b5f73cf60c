package recurrence

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"2024-06-15", "2024-06-15", false},
		{" 2024-06-15 ", "2024-06-15", false},
		{"2024-06-15T23:30:00+02:00", "2024-06-15", false},
		{"2024-02-29", "2024-02-29", false},
		{"2023-02-29", "", true},
		{"15/06/2024", "", true},
		{"", "", true},
		{"not-a-date", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDate) {
					t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestDate_AddMonths(t *testing.T) {
	tests := []struct {
		start string
		n     int
		want  string
	}{
		{"2024-01-15", 1, "2024-02-15"},
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-01-31", 2, "2024-03-31"},
		{"2024-03-31", 1, "2024-04-30"},
		{"2024-11-30", 3, "2025-02-28"},
		{"2024-02-29", 12, "2025-02-28"},
		{"2024-02-29", 48, "2028-02-29"},
		{"2024-03-15", -3, "2023-12-15"},
		{"2024-03-31", -1, "2024-02-29"},
		{"2024-01-10", -13, "2022-12-10"},
	}

	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			got := MustParseDate(tt.start).AddMonths(tt.n)
			if got.String() != tt.want {
				t.Errorf("%s.AddMonths(%d) = %s, want %s", tt.start, tt.n, got, tt.want)
			}
		})
	}
}

func TestDateOf_DropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	got := DateOf(time.Date(2024, time.June, 30, 23, 59, 0, 0, loc))
	if got.String() != "2024-06-30" {
		t.Errorf("DateOf() = %s, want 2024-06-30", got)
	}
	if got.Location() != time.UTC || got.Hour() != 0 {
		t.Errorf("DateOf() = %v, want midnight UTC", got.Time)
	}
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		Due  Date `json:"due"`
		None Date `json:"none"`
	}

	data, err := json.Marshal(wrapper{Due: NewDate(2024, time.June, 15)})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `{"due":"2024-06-15","none":null}` {
		t.Errorf("Marshal() = %s", data)
	}

	var back wrapper
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !back.Due.Equal(NewDate(2024, time.June, 15).Time) || !back.None.IsZero() {
		t.Errorf("Unmarshal() = %+v", back)
	}
}

func TestDaysIn(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, tt := range tests {
		if got := DaysIn(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysIn(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}
