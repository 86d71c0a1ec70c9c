package controller

import (
	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/pkg/serverutils"
	"ai-interviewer-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IReportController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
}

type reportController struct {
	reportService service.IReportService
}

func NewReportController(reportService service.IReportService) IReportController {
	return &reportController{reportService: reportService}
}

func (c *reportController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/report")
	h.Get(":sessionId", c.Show)
}

func (c *reportController) Show(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return apperror.Validation("invalid session id")
	}
	report, err := c.reportService.Get(ctx.UserContext(), sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(ctx, "", report))
}
