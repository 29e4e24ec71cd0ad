package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultLimit, 0},
		{"?limit=50&offset=10", 50, 10},
		{"?limit=abc&offset=xyz", DefaultLimit, 0},
		{"?limit=0", DefaultLimit, 0},
		{"?limit=500", MaxLimit, 0},
		{"?offset=-5", DefaultLimit, 0},
	}
	e := echo.New()
	for _, tt := range tests {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/children"+tt.query, nil), httptest.NewRecorder())
		p := FromContext(c)
		if p.Limit != tt.limit || p.Offset != tt.offset {
			t.Errorf("FromContext(%q) = %+v, want limit %d offset %d", tt.query, p, tt.limit, tt.offset)
		}
	}
}

func TestNewResponse_NextOffset(t *testing.T) {
	tests := []struct {
		name                 string
		total, limit, offset int
		next                 *int
	}{
		{"first of three pages", 45, 20, 0, intPtr(20)},
		{"last partial page", 45, 20, 40, nil},
		{"exact fit", 40, 20, 20, nil},
		{"empty", 0, 20, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResponse([]string{}, tt.total, tt.limit, tt.offset)
			if r.HasMore != (tt.next != nil) {
				t.Errorf("HasMore = %v", r.HasMore)
			}
			switch {
			case tt.next == nil && r.NextOffset != nil:
				t.Errorf("expected no next_offset, got %d", *r.NextOffset)
			case tt.next != nil && (r.NextOffset == nil || *r.NextOffset != *tt.next):
				t.Errorf("expected next_offset %d, got %v", *tt.next, r.NextOffset)
			}
		})
	}
}

func intPtr(n int) *int { return &n }
