package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"relief-backend/internal/config"
	"relief-backend/internal/httpx"
	"relief-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: testSecret,
		TokenTTL:  time.Hour,
		Env:       "development",
	}
}

func gatedApp(cfg *config.Config, roles ...models.UserRole) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(true)})
	handlers := []fiber.Handler{Gate(cfg)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *fiber.Ctx) error {
		userID, email, role, err := UserInfo(c)
		if err != nil {
			return err
		}
		return httpx.OK(c, fiber.StatusOK, "OK", fiber.Map{
			"user_id": userID, "email": email, "role": role,
		})
	})
	app.Get("/protected", handlers...)
	return app
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func doRequest(t *testing.T, app *fiber.App, token string, viaCookie bool) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		if viaCookie {
			req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
		} else {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var env envelope
	_ = json.Unmarshal(body, &env)
	return resp.StatusCode, env
}

func TestGate_AbsentToken(t *testing.T) {
	app := gatedApp(testConfig())

	status, env := doRequest(t, app, "", false)
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", status)
	}
	if env.Error.Code != httpx.CodeAuthenticationRequired {
		t.Errorf("expected %s, got %s", httpx.CodeAuthenticationRequired, env.Error.Code)
	}
	if env.Success {
		t.Error("expected success=false")
	}
}

func TestGate_InvalidToken(t *testing.T) {
	app := gatedApp(testConfig())

	status, env := doRequest(t, app, "garbage-token", false)
	if status != http.StatusForbidden {
		t.Errorf("expected 403, got %d", status)
	}
	if env.Error.Code != httpx.CodeInvalidCredential {
		t.Errorf("expected %s, got %s", httpx.CodeInvalidCredential, env.Error.Code)
	}
}

func TestGate_ExpiredToken(t *testing.T) {
	cfg := testConfig()
	app := gatedApp(cfg)

	token, _ := GenerateToken(cfg.JWTSecret, -time.Minute, testUser())
	status, env := doRequest(t, app, token, false)
	if status != http.StatusForbidden {
		t.Errorf("expected 403, got %d", status)
	}
	if env.Error.Code != httpx.CodeInvalidCredential {
		t.Errorf("expected %s, got %s", httpx.CodeInvalidCredential, env.Error.Code)
	}
}

func TestGate_ValidTokenViaHeader(t *testing.T) {
	cfg := testConfig()
	app := gatedApp(cfg)

	token, _ := GenerateToken(cfg.JWTSecret, time.Hour, testUser())
	status, env := doRequest(t, app, token, false)
	if status != http.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
	if !env.Success {
		t.Error("expected success=true")
	}
}

func TestGate_ValidTokenViaCookie(t *testing.T) {
	cfg := testConfig()
	app := gatedApp(cfg)

	token, _ := GenerateToken(cfg.JWTSecret, time.Hour, testUser())
	status, _ := doRequest(t, app, token, true)
	if status != http.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
}

func TestRequireRole_Mismatch(t *testing.T) {
	cfg := testConfig()
	app := gatedApp(cfg, models.RoleAdmin)

	// Caller is a coordinator, route wants an admin.
	token, _ := GenerateToken(cfg.JWTSecret, time.Hour, testUser())
	status, env := doRequest(t, app, token, false)
	if status != http.StatusForbidden {
		t.Errorf("expected 403, got %d", status)
	}
	if env.Error.Code != httpx.CodeInsufficientPermissions {
		t.Errorf("expected %s, got %s", httpx.CodeInsufficientPermissions, env.Error.Code)
	}
	// The message names the required roles and the caller's role.
	if !strings.Contains(env.Message, string(models.RoleAdmin)) || !strings.Contains(env.Message, string(models.RoleCoordinator)) {
		t.Errorf("expected message to name both roles, got %q", env.Message)
	}
}

func TestRequireRole_Allowed(t *testing.T) {
	cfg := testConfig()
	app := gatedApp(cfg, models.RoleAdmin, models.RoleCoordinator)

	token, _ := GenerateToken(cfg.JWTSecret, time.Hour, testUser())
	status, _ := doRequest(t, app, token, false)
	if status != http.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
}

func TestSkipIfAuthenticated(t *testing.T) {
	cfg := testConfig()
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(true)})
	loginCalled := false
	app.Post("/login", SkipIfAuthenticated(cfg), func(c *fiber.Ctx) error {
		loginCalled = true
		return httpx.OK(c, fiber.StatusOK, "login processed", nil)
	})

	// Authenticated caller gets short-circuited.
	token, _ := GenerateToken(cfg.JWTSecret, time.Hour, testUser())
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if loginCalled {
		t.Error("expected login handler to be skipped for an authenticated caller")
	}

	// Anonymous caller reaches the login handler.
	req = httptest.NewRequest(http.MethodPost, "/login", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if !loginCalled {
		t.Error("expected login handler to run for an anonymous caller")
	}
}
