package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func fetch(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return resp.StatusCode, out
}

func TestSuccessEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", func(c *fiber.Ctx) error {
		return OK(c, fiber.StatusOK, "all good", fiber.Map{"value": 1})
	})

	status, out := fetch(t, app, "/ok")
	if status != http.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
	if out["success"] != true {
		t.Error("expected success=true")
	}
	if out["message"] != "all good" {
		t.Errorf("unexpected message %v", out["message"])
	}
	if out["timestamp"] == nil {
		t.Error("expected a timestamp")
	}
	if _, ok := out["pagination"]; ok {
		t.Error("pagination must be omitted when not set")
	}
}

func TestPaginatedEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/list", func(c *fiber.Ctx) error {
		return OKPage(c, "OK", []int{1, 2, 3}, NewPagination(2, 3, 7))
	})

	_, out := fetch(t, app, "/list")
	p, ok := out["pagination"].(map[string]any)
	if !ok {
		t.Fatal("expected pagination object")
	}
	if p["page"] != float64(2) || p["limit"] != float64(3) || p["total"] != float64(7) {
		t.Errorf("unexpected pagination %v", p)
	}
	if p["totalPages"] != float64(3) {
		t.Errorf("expected totalPages 3, got %v", p["totalPages"])
	}
}

func TestErrorEnvelope(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(true)})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return NewErrorWithDetails(fiber.StatusBadRequest, CodeValidation, "bad input", fiber.Map{"field": "quantity"})
	})

	status, out := fetch(t, app, "/fail")
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
	if out["success"] != false {
		t.Error("expected success=false")
	}
	errObj, ok := out["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error object")
	}
	if errObj["code"] != CodeValidation {
		t.Errorf("unexpected code %v", errObj["code"])
	}
	if _, ok := errObj["details"]; !ok {
		t.Error("expected details in development mode")
	}
}

func TestErrorEnvelope_ProductionHidesDetails(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(false)})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return NewErrorWithDetails(fiber.StatusBadRequest, CodeValidation, "bad input", fiber.Map{"field": "quantity"})
	})

	_, out := fetch(t, app, "/fail")
	errObj := out["error"].(map[string]any)
	if _, ok := errObj["details"]; ok {
		t.Error("details must be stripped outside development mode")
	}
}

func TestNewPagination_Rounding(t *testing.T) {
	cases := []struct {
		total      int64
		limit      int
		totalPages int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
	}
	for _, tc := range cases {
		p := NewPagination(1, tc.limit, tc.total)
		if p.TotalPages != tc.totalPages {
			t.Errorf("total=%d limit=%d: expected %d pages, got %d", tc.total, tc.limit, tc.totalPages, p.TotalPages)
		}
	}
}
