package types

import "testing"

func TestDaysSince(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want int
	}{
		{"same day", "10/19/2026", "10/19/2026", 0},
		{"leap year", "01/01/2020", "01/01/2021", 366},
		{"across february 29", "02/28/2020", "03/01/2020", 2},
		{"backwards", "01/01/2021", "01/01/2020", -366},
		{"beyond three centuries", "01/01/1700", "01/01/2026", 119069},
		{"beyond three centuries backwards", "01/01/2026", "01/01/1700", -119069},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustParseDate(tt.to).DaysSince(MustParseDate(tt.from))
			if got != tt.want {
				t.Errorf("DaysSince(%s, %s) = %d, want %d", tt.to, tt.from, got, tt.want)
			}
		})
	}
}

func TestParseDateFormats(t *testing.T) {
	for _, in := range []string{"1/2/2026", "01/02/2026", " 01/02/2026 "} {
		d, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if d.String() != "01/02/2026" {
			t.Errorf("ParseDate(%q) = %s", in, d)
		}
	}
	if _, err := ParseDate("2026-01-02"); err == nil {
		t.Error("expected an error for an ISO date")
	}
}
