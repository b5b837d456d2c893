package response

import "github.com/gofiber/fiber/v2"

// Response is the envelope every API handler returns.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success returns a success response
func Success(c *fiber.Ctx, data any) error {
	return c.JSON(Response{
		Status: "success",
		Data:   data,
	})
}

// Accepted returns a 202 success response for work that continues
// asynchronously.
func Accepted(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusAccepted).JSON(Response{
		Status: "success",
		Data:   data,
	})
}

// SuccessWithMessage returns a success response with message
func SuccessWithMessage(c *fiber.Ctx, message string, data any) error {
	return c.JSON(Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// Error returns an error response with status code
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Status:  "error",
		Message: message,
	})
}

// BadRequest returns a 400 error
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

// Unauthorized returns a 401 error
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

// NotFound returns a 404 error
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

// Conflict returns a 409 error
func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

// InternalServerError returns a 500 error
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}
