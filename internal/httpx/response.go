package httpx

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Error codes used in the error envelope.
const (
	CodeValidation              = "VALIDATION_ERROR"
	CodeNotFound                = "NOT_FOUND"
	CodeInvalidStateTransition  = "INVALID_STATE_TRANSITION"
	CodeInsufficientInventory   = "INSUFFICIENT_INVENTORY"
	CodeMissingSourceOrg        = "MISSING_SOURCE_ORG"
	CodeMissingInventoryRecord  = "MISSING_INVENTORY_RECORD"
	CodeMissingApprover         = "MISSING_APPROVER"
	CodeAuthenticationRequired  = "AUTHENTICATION_REQUIRED"
	CodeInvalidCredential       = "INVALID_CREDENTIAL"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodePersistence             = "PERSISTENCE_ERROR"
)

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

type successBody struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       any         `json:"data"`
	Timestamp  string      `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

type errorBody struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Error     errorDetail `json:"error"`
	Timestamp string      `json:"timestamp"`
}

func OK(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(successBody{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func OKPage(c *fiber.Ctx, message string, data any, p Pagination) error {
	return c.Status(fiber.StatusOK).JSON(successBody{
		Success:    true,
		Message:    message,
		Data:       data,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Pagination: &p,
	})
}

func Fail(c *fiber.Ctx, status int, code, message string, details any) error {
	return c.Status(status).JSON(errorBody{
		Success:   false,
		Message:   message,
		Error:     errorDetail{Code: code, Details: details},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ErrorHandler renders every handler failure as the error envelope.
// In non-development mode field-level details are stripped and internal
// error text is replaced by a generic message.
func ErrorHandler(development bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *Error
		if errors.As(err, &appErr) {
			details := appErr.Details
			if !development {
				details = nil
			}
			return Fail(c, appErr.Status, appErr.Code, appErr.Message, details)
		}
		if e, ok := err.(*fiber.Error); ok {
			return Fail(c, e.Code, CodeValidation, e.Message, nil)
		}
		msg := "Unexpected server error"
		if development {
			msg = err.Error()
		}
		return Fail(c, fiber.StatusInternalServerError, CodePersistence, msg, nil)
	}
}

// Error is a request failure carrying an envelope code. Handlers return
// it and the app-level error handler renders the envelope.
type Error struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func NewErrorWithDetails(status int, code, message string, details any) *Error {
	return &Error{Status: status, Code: code, Message: message, Details: details}
}
