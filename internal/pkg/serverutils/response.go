package serverutils

import (
	"errors"
	"time"

	"ai-interviewer-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestId string    `json:"requestId,omitempty"`
}

type Response struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorBody struct {
	Success  bool        `json:"success"`
	Error    ErrorDetail `json:"error"`
	Metadata Metadata    `json:"metadata"`
}

func metadata(ctx *fiber.Ctx) Metadata {
	m := Metadata{Timestamp: time.Now().UTC()}
	if id, ok := ctx.Locals("requestid").(string); ok {
		m.RequestId = id
	}
	return m
}

func SuccessResponse(ctx *fiber.Ctx, message string, data interface{}) Response {
	return Response{
		Success:  true,
		Message:  message,
		Data:     data,
		Metadata: metadata(ctx),
	}
}

func ErrorResponse(ctx *fiber.Ctx, code, message string) ErrorBody {
	return ErrorBody{
		Error:    ErrorDetail{Code: code, Message: message},
		Metadata: metadata(ctx),
	}
}

// WriteError renders err with its public status and message. The cause is
// never sent to the client.
func WriteError(ctx *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return ctx.Status(fe.Code).JSON(ErrorResponse(ctx, fiberErrorCode(fe.Code), fe.Message))
	}

	pub := apperror.ToPublic(err)
	if pub.Status == fiber.StatusUnauthorized {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			pub.Message = "Authentication required: " + appErr.Message
		}
	}
	return ctx.Status(pub.Status).JSON(ErrorResponse(ctx, pub.Code, pub.Message))
}

func fiberErrorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "RESOURCE_NOT_FOUND"
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case fiber.StatusUnauthorized:
		return "AUTHENTICATION_ERROR"
	case fiber.StatusUpgradeRequired:
		return "UPGRADE_REQUIRED"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}
