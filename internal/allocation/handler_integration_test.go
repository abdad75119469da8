package allocation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"relief-backend/internal/audit"
	"relief-backend/internal/cache"
	"relief-backend/internal/httpx"
	"relief-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func getTestCache(t *testing.T) (*cache.Store, *redis.Client) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return cache.NewStore(client), client
}

type allocationEnvelope struct {
	Success bool               `json:"success"`
	Data    AllocationResponse `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func fetchAllocation(t *testing.T, app *fiber.App, id string) (int, allocationEnvelope) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/allocations/"+id, nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var env allocationEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return resp.StatusCode, env
}

// The next read after a mutation must reflect it even when a cached
// copy existed immediately before.
func TestCacheInvalidation_AfterTransition(t *testing.T) {
	db := getTestDB(t)
	store, client := getTestCache(t)
	defer client.Close()

	eng := NewEngine(db)
	auditor := audit.NewService(db)

	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(true)})
	app.Get("/allocations/:id", GetHandler(eng, store))
	app.Put("/allocations/:id", TransitionHandler(eng, store, auditor))

	_, to, item := seed(t, db)
	alloc, err := eng.Create(context.Background(), CreateInput{
		ToOrgID: to.ID, ItemID: item.ID, Quantity: 5, RequestedBy: "a@x.org",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := entityKey(alloc.ID)
	client.Del(context.Background(), id)

	// First read populates the cache.
	idStr := strings.TrimPrefix(id, "allocation:")
	status, env := fetchAllocation(t, app, idStr)
	if status != http.StatusOK || env.Data.Status != string(models.StatusPending) {
		t.Fatalf("unexpected first read: status=%d data=%+v", status, env.Data)
	}
	if _, ok, _ := store.Get(context.Background(), id); !ok {
		t.Fatal("expected entity key to be cached after read")
	}

	// Mutate through the handler.
	req := httptest.NewRequest(http.MethodPut, "/allocations/"+idStr,
		strings.NewReader(`{"status":"REJECTED"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("transition request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from transition, got %d", resp.StatusCode)
	}

	// Stale copy must be gone, next read reflects the mutation.
	if _, ok, _ := store.Get(context.Background(), id); ok {
		t.Error("expected entity key to be invalidated by the mutation")
	}
	_, env = fetchAllocation(t, app, idStr)
	if env.Data.Status != string(models.StatusRejected) {
		t.Errorf("expected REJECTED after mutation, got %s", env.Data.Status)
	}
}

func TestGetHandler_NotFound(t *testing.T) {
	db := getTestDB(t)
	store, client := getTestCache(t)
	defer client.Close()

	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(true)})
	app.Get("/allocations/:id", GetHandler(NewEngine(db), store))

	status, env := fetchAllocation(t, app, "999999999")
	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if env.Error.Code != httpx.CodeNotFound {
		t.Errorf("expected %s, got %s", httpx.CodeNotFound, env.Error.Code)
	}
}
