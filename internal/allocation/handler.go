package allocation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"relief-backend/internal/audit"
	"relief-backend/internal/auth"
	"relief-backend/internal/cache"
	"relief-backend/internal/httpx"
	"relief-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateAllocationRequest struct {
	FromOrgID   *uint  `json:"fromOrgId"`
	ToOrgID     uint   `json:"toOrgId"`
	ItemID      uint   `json:"itemId"`
	Quantity    int    `json:"quantity"`
	RequestedBy string `json:"requestedBy"`
	Notes       string `json:"notes"`
}

type TransitionAllocationRequest struct {
	Status        string  `json:"status"`
	ApprovedBy    *uint   `json:"approvedBy"`
	CompletedDate *string `json:"completedDate"` // "2006-01-02"
	Notes         *string `json:"notes"`
}

type AllocationResponse struct {
	ID            uint    `json:"id"`
	Reference     string  `json:"reference"`
	FromOrgID     *uint   `json:"fromOrgId"`
	FromOrgName   *string `json:"fromOrgName"`
	ToOrgID       uint    `json:"toOrgId"`
	ToOrgName     string  `json:"toOrgName"`
	ItemID        uint    `json:"itemId"`
	ItemName      string  `json:"itemName"`
	Quantity      int     `json:"quantity"`
	Status        string  `json:"status"`
	RequestedBy   string  `json:"requestedBy"`
	ApprovedBy    *uint   `json:"approvedBy"`
	RequestDate   string  `json:"requestDate"`
	ApprovedDate  *string `json:"approvedDate"`
	CompletedDate *string `json:"completedDate"`
	Notes         string  `json:"notes"`
}

func toResponse(a *models.Allocation) AllocationResponse {
	resp := AllocationResponse{
		ID:          a.ID,
		Reference:   a.Reference,
		FromOrgID:   a.FromOrgID,
		ToOrgID:     a.ToOrgID,
		ToOrgName:   a.ToOrg.Name,
		ItemID:      a.ItemID,
		ItemName:    a.Item.Name,
		Quantity:    a.Quantity,
		Status:      string(a.Status),
		RequestedBy: a.RequestedBy,
		ApprovedBy:  a.ApprovedBy,
		RequestDate: a.RequestDate.Format("2006-01-02 15:04:05"),
		Notes:       a.Notes,
	}
	if a.FromOrg != nil {
		resp.FromOrgName = &a.FromOrg.Name
	}
	if a.ApprovedDate != nil {
		s := a.ApprovedDate.Format("2006-01-02 15:04:05")
		resp.ApprovedDate = &s
	}
	if a.CompletedDate != nil {
		s := a.CompletedDate.Format("2006-01-02 15:04:05")
		resp.CompletedDate = &s
	}
	return resp
}

// toHTTPError maps engine errors to envelope codes. Field-level detail
// stays server-side unless the error already carries it.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return httpx.NewError(fiber.StatusNotFound, httpx.CodeNotFound, "Allocation not found")
	case errors.Is(err, ErrOrganizationNotFound):
		return httpx.NewError(fiber.StatusNotFound, httpx.CodeNotFound, "Organization not found")
	case errors.Is(err, ErrItemNotFound):
		return httpx.NewError(fiber.StatusNotFound, httpx.CodeNotFound, "Inventory item not found")
	case errors.Is(err, ErrInvalidTransition):
		return httpx.NewError(fiber.StatusConflict, httpx.CodeInvalidStateTransition, "Requested status change is not permitted from the current status")
	case errors.Is(err, ErrMissingApprover):
		return httpx.NewError(fiber.StatusBadRequest, httpx.CodeMissingApprover, "approvedBy is required when approving")
	case errors.Is(err, ErrMissingSourceOrg):
		return httpx.NewError(fiber.StatusBadRequest, httpx.CodeMissingSourceOrg, "Source organization no longer exists")
	case errors.Is(err, ErrMissingInventoryRecord):
		return httpx.NewError(fiber.StatusConflict, httpx.CodeMissingInventoryRecord, "Source organization holds no stock record for this item")
	case errors.Is(err, ErrInsufficientInventory):
		return httpx.NewError(fiber.StatusConflict, httpx.CodeInsufficientInventory, "Source organization does not hold enough stock")
	case errors.Is(err, ErrSameOrganization):
		return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "fromOrgId and toOrgId must differ")
	case errors.Is(err, ErrInvalidQuantity):
		return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "quantity must be greater than zero")
	default:
		return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Storage operation failed")
	}
}

// invalidate drops the entity key and every list key after a mutation.
// The cache is best-effort: failures are logged, never returned, so a
// cache outage cannot mask a committed mutation.
func invalidate(c *fiber.Ctx, store *cache.Store, id uint) {
	ctx := c.UserContext()
	if err := store.Delete(ctx, entityKey(id)); err != nil {
		log.Printf("cache invalidation failed for %s: %v", entityKey(id), err)
	}
	if err := store.DeletePattern(ctx, listKeyPattern()); err != nil {
		log.Printf("cache invalidation failed for %s: %v", listKeyPattern(), err)
	}
}

// POST /api/allocations
func CreateHandler(eng *Engine, store *cache.Store, auditor *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateAllocationRequest
		if err := c.BodyParser(&body); err != nil {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid request body")
		}

		if body.ToOrgID == 0 || body.ItemID == 0 {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "toOrgId and itemId are required")
		}
		if body.RequestedBy == "" {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "requestedBy is required")
		}

		alloc, err := eng.Create(c.UserContext(), CreateInput{
			FromOrgID:   body.FromOrgID,
			ToOrgID:     body.ToOrgID,
			ItemID:      body.ItemID,
			Quantity:    body.Quantity,
			RequestedBy: body.RequestedBy,
			Notes:       body.Notes,
		})
		if err != nil {
			return toHTTPError(err)
		}

		if userID, userName, _, err := auth.UserInfo(c); err == nil {
			_ = auditor.Record(audit.Entry{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "allocation",
				EntityID:    alloc.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Allocation %s created: %d x item %d to org %d", alloc.Reference, alloc.Quantity, alloc.ItemID, alloc.ToOrgID),
				After:       alloc,
			})
		}

		invalidate(c, store, alloc.ID)

		return httpx.OK(c, fiber.StatusCreated, "Allocation created", toResponse(alloc))
	}
}

// GET /api/allocations/:id
func GetHandler(eng *Engine, store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid allocation id")
		}

		key := entityKey(uint(id))
		if payload, ok, cerr := store.Get(c.UserContext(), key); cerr == nil && ok {
			return httpx.OK(c, fiber.StatusOK, "OK", json.RawMessage(payload))
		} else if cerr != nil {
			log.Printf("cache read failed for %s: %v", key, cerr)
		}

		alloc, err := eng.Get(c.UserContext(), uint(id))
		if err != nil {
			return toHTTPError(err)
		}

		resp := toResponse(alloc)
		if payload, err := json.Marshal(resp); err == nil {
			if err := store.Set(c.UserContext(), key, string(payload), entityCacheTTL); err != nil {
				log.Printf("cache write failed for %s: %v", key, err)
			}
		}

		return httpx.OK(c, fiber.StatusOK, "OK", resp)
	}
}

type cachedList struct {
	Items []AllocationResponse `json:"items"`
	Total int64                `json:"total"`
}

// GET /api/allocations?page&limit&status&toOrgId&fromOrgId
func ListHandler(eng *Engine, store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := ListFilter{
			Page:      c.QueryInt("page", 1),
			Limit:     c.QueryInt("limit", 20),
			Status:    models.AllocationStatus(c.Query("status")),
			ToOrgID:   uint(c.QueryInt("toOrgId", 0)),
			FromOrgID: uint(c.QueryInt("fromOrgId", 0)),
		}
		if f.Page < 1 {
			f.Page = 1
		}
		if f.Limit < 1 || f.Limit > 100 {
			f.Limit = 20
		}

		key := listKey(f)
		if payload, ok, cerr := store.Get(c.UserContext(), key); cerr == nil && ok {
			var cached cachedList
			if err := json.Unmarshal([]byte(payload), &cached); err == nil {
				return httpx.OKPage(c, "OK", cached.Items, httpx.NewPagination(f.Page, f.Limit, cached.Total))
			}
		} else if cerr != nil {
			log.Printf("cache read failed for %s: %v", key, cerr)
		}

		allocs, total, err := eng.List(c.UserContext(), f)
		if err != nil {
			return toHTTPError(err)
		}

		items := make([]AllocationResponse, 0, len(allocs))
		for i := range allocs {
			items = append(items, toResponse(&allocs[i]))
		}

		if payload, err := json.Marshal(cachedList{Items: items, Total: total}); err == nil {
			if err := store.Set(c.UserContext(), key, string(payload), listCacheTTL); err != nil {
				log.Printf("cache write failed for %s: %v", key, err)
			}
		}

		return httpx.OKPage(c, "OK", items, httpx.NewPagination(f.Page, f.Limit, total))
	}
}

// PUT /api/allocations/:id
func TransitionHandler(eng *Engine, store *cache.Store, auditor *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid allocation id")
		}

		var body TransitionAllocationRequest
		if err := c.BodyParser(&body); err != nil {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid request body")
		}
		if body.Status == "" {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "status is required")
		}

		in := TransitionInput{
			Target:     models.AllocationStatus(body.Status),
			ApprovedBy: body.ApprovedBy,
			Notes:      body.Notes,
		}
		if body.CompletedDate != nil {
			d, err := time.Parse("2006-01-02", *body.CompletedDate)
			if err != nil {
				return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "completedDate must be 'YYYY-MM-DD'")
			}
			in.CompletedDate = &d
		}

		before, err := eng.Get(c.UserContext(), uint(id))
		if err != nil {
			return toHTTPError(err)
		}

		alloc, err := eng.Transition(c.UserContext(), uint(id), in)
		if err != nil {
			return toHTTPError(err)
		}

		if userID, userName, _, err := auth.UserInfo(c); err == nil {
			_ = auditor.Record(audit.Entry{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "allocation",
				EntityID:    alloc.ID,
				Action:      models.AuditActionTransition,
				Description: fmt.Sprintf("Allocation %s: %s -> %s", alloc.Reference, before.Status, alloc.Status),
				Before:      before,
				After:       alloc,
			})
		}

		invalidate(c, store, alloc.ID)

		return httpx.OK(c, fiber.StatusOK, "Allocation updated", toResponse(alloc))
	}
}

// DELETE /api/allocations/:id
func DeleteHandler(eng *Engine, store *cache.Store, auditor *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid allocation id")
		}

		alloc, err := eng.Delete(c.UserContext(), uint(id))
		if err != nil {
			return toHTTPError(err)
		}

		if userID, userName, _, err := auth.UserInfo(c); err == nil {
			_ = auditor.Record(audit.Entry{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "allocation",
				EntityID:    alloc.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Allocation %s removed", alloc.Reference),
				Before:      alloc,
			})
		}

		invalidate(c, store, alloc.ID)

		return httpx.OK(c, fiber.StatusOK, "Allocation removed", fiber.Map{"id": alloc.ID})
	}
}
