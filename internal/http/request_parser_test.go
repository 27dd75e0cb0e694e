package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestParseMonth(t *testing.T) {
	loc := time.FixedZone("MUT", 4*60*60)
	now := time.Date(2024, 7, 19, 15, 0, 0, 0, loc)

	tests := []struct {
		name    string
		query   url.Values
		want    time.Time
		wantErr bool
	}{
		{
			name:  "defaults to current month",
			query: url.Values{},
			want:  time.Date(2024, 7, 1, 0, 0, 0, 0, loc),
		},
		{
			name:  "YYYY-MM",
			query: url.Values{"month": {"2023-02"}},
			want:  time.Date(2023, 2, 1, 0, 0, 0, 0, loc),
		},
		{
			name:  "numeric month uses current year",
			query: url.Values{"month": {"3"}},
			want:  time.Date(2024, 3, 1, 0, 0, 0, 0, loc),
		},
		{
			name:  "year and month",
			query: url.Values{"year": {"2022"}, "month": {"12"}},
			want:  time.Date(2022, 12, 1, 0, 0, 0, 0, loc),
		},
		{
			name:    "month out of range",
			query:   url.Values{"month": {"13"}},
			wantErr: true,
		},
		{
			name:    "malformed YYYY-MM",
			query:   url.Values{"month": {"2024-1x"}},
			wantErr: true,
		},
		{
			name:    "malformed year",
			query:   url.Values{"year": {"twenty"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonth(tt.query, now)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("err = %v, want errBadRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseMonth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 20},
		{"5", 5},
		{"0", 20},
		{"-3", 20},
		{"abc", 20},
		{"500", 100},
	}
	for _, tt := range tests {
		if got := ParseLimit(url.Values{"limit": {tt.raw}}, 20, 100); got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestFieldParserCollectsEveryFailure(t *testing.T) {
	loc := time.UTC
	p := NewFieldParser(loc)

	amount := p.Amount("amount", "1,250.50")
	date := p.Date("date", "15/06/2024")
	_ = p.Amount("price", "twelve")
	_ = p.Date("dueDate", "2024-02-30")
	optional := p.OptionalAmount("fee", "  ")
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	defaulted := p.DateOr("from", "", fallback)

	if amount.String() != "1250.5" {
		t.Errorf("amount = %s, want 1250.5", amount)
	}
	if !date.Equal(time.Date(2024, 6, 15, 0, 0, 0, 0, loc)) {
		t.Errorf("date = %v", date)
	}
	if !optional.IsZero() {
		t.Errorf("optional amount = %s, want 0", optional)
	}
	if !defaulted.Equal(fallback) {
		t.Errorf("DateOr = %v, want fallback", defaulted)
	}

	var ve core.ValidationErrors
	if !errors.As(p.Err(), &ve) {
		t.Fatalf("Err() = %v, want ValidationErrors", p.Err())
	}
	if len(ve) != 2 {
		t.Fatalf("got %d failures, want 2: %v", len(ve), ve)
	}
	if ve[0].Field != "price" || !errors.Is(ve[0].Err, core.ErrInvalidAmount) {
		t.Errorf("first failure = %+v", ve[0])
	}
	if ve[1].Field != "dueDate" || !errors.Is(ve[1].Err, core.ErrInvalidDate) {
		t.Errorf("second failure = %+v", ve[1])
	}
}

func TestFieldParserNoErrors(t *testing.T) {
	p := NewFieldParser(time.UTC)
	p.OptionalDate("targetDate", "")
	if err := p.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		want    string
	}{
		{name: "valid", body: `{"name":"Rent"}`, want: "Rent"},
		{name: "empty body", body: "", want: ""},
		{name: "malformed", body: `{"name":`, wantErr: true},
		{name: "oversized", body: `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var v struct {
				Name string `json:"name"`
			}
			err := decodeJSON(w, req, &v)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("err = %v, want errBadRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Name != tt.want {
				t.Errorf("name = %q, want %q", v.Name, tt.want)
			}
		})
	}
}
