package server

import (
	"github.com/gofiber/fiber/v2"
)

// ErrorType classifies API errors for clients.
type ErrorType string

const (
	ValidationErrorType ErrorType = "ValidationError"
	NotFoundErrorType   ErrorType = "NotFoundError"
	GeneralErrorType    ErrorType = "GeneralError"
)

// SuccessResponse is the envelope of every successful reply.
type SuccessResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse is the envelope of every failed reply.
type ErrorResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	ErrorType ErrorType `json:"error_type"`
}

// SendSuccess writes data in the success envelope.
func SendSuccess(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(SuccessResponse{
		Status: "success",
		Data:   data,
	})
}

// SendErrorWithType writes an error envelope with the given type.
func SendErrorWithType(c *fiber.Ctx, status int, message string, errorType ErrorType) error {
	return c.Status(status).JSON(ErrorResponse{
		Status:    "error",
		Message:   message,
		ErrorType: errorType,
	})
}
