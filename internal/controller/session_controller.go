package controller

import (
	"fmt"

	"ai-interviewer-be/internal/dto"
	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/pkg/serverutils"
	"ai-interviewer-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Token(ctx *fiber.Ctx) error
	Finish(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Turns(ctx *fiber.Ctx) error
	Metrics(ctx *fiber.Ctx) error
}

type SessionControllerConfig struct {
	JWTSecret string
	// RealtimeURL is the websocket endpoint handed out with session tokens.
	// Empty means derive it from the request.
	RealtimeURL string
}

type sessionController struct {
	sessionService service.ISessionService
	turnService    service.ITurnService
	tokenService   service.ITokenService
	reportService  service.IReportService
	metricsService service.IMetricsService
	cfg            SessionControllerConfig
}

func NewSessionController(
	sessionService service.ISessionService,
	turnService service.ITurnService,
	tokenService service.ITokenService,
	reportService service.IReportService,
	metricsService service.IMetricsService,
	cfg SessionControllerConfig,
) ISessionController {
	return &sessionController{
		sessionService: sessionService,
		turnService:    turnService,
		tokenService:   tokenService,
		reportService:  reportService,
		metricsService: metricsService,
		cfg:            cfg,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session")
	h.Use(serverutils.OptionalJwtMiddleware(c.cfg.JWTSecret))
	h.Get("", serverutils.JwtMiddleware(c.cfg.JWTSecret), c.List)
	h.Post("start", c.Start)
	h.Post("token", c.Token)
	h.Post("finish", c.Finish)
	h.Get(":id", c.Show)
	h.Get(":id/turns", c.Turns)
	h.Get(":id/metrics", c.Metrics)
}

func (c *sessionController) Start(ctx *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	// the authenticated user wins over a user id in the body
	userId := req.UserId
	if id, ok := localUserId(ctx); ok {
		userId = &id
	}

	competencies := make([]entity.Competency, 0, len(req.Competencies))
	for _, comp := range req.Competencies {
		competencies = append(competencies, entity.Competency{
			Type:        comp.Type,
			Name:        comp.Name,
			Description: comp.Description,
			Weight:      comp.Weight,
		})
	}

	session, err := c.sessionService.CreateSession(ctx.UserContext(), service.CreateSessionInput{
		UserId: userId,
		Job: entity.JobContext{
			Title:       req.JobTitle,
			Company:     req.JobCompany,
			Description: req.JobDescription,
		},
		Competencies: competencies,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse(ctx, "Session created", dto.StartSessionResponse{
		SessionId:    session.Id,
		Status:       session.Status,
		Competencies: session.Competencies,
		CreatedAt:    session.CreatedAt,
	}))
}

func (c *sessionController) Token(ctx *fiber.Ctx) error {
	var req dto.SessionTokenRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	session, err := c.sessionService.GetSession(ctx.UserContext(), req.SessionId)
	if err != nil {
		return err
	}
	if err := authorizeOwner(ctx, session); err != nil {
		return err
	}
	if session.Status.IsTerminal() {
		return apperror.New(apperror.ErrSessionNotActive, fmt.Sprintf("session is %s", session.Status))
	}

	issued, err := c.tokenService.Issue(session.Id, session.UserId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse(ctx, "Session token issued", dto.SessionTokenResponse{
		SessionToken: issued.Token,
		WebsocketUrl: c.realtimeURL(ctx),
		ExpiresIn:    int64(issued.ExpiresIn.Seconds()),
		ExpiresAt:    issued.ExpiresAt,
	}))
}

func (c *sessionController) Finish(ctx *fiber.Ctx) error {
	var req dto.FinishSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	owned, err := c.sessionService.GetSession(ctx.UserContext(), req.SessionId)
	if err != nil {
		return err
	}
	if err := authorizeOwner(ctx, owned); err != nil {
		return err
	}

	session, err := c.sessionService.Finish(ctx.UserContext(), req.SessionId, req.Reason)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse(ctx, "Session finished", dto.FinishSessionResponse{
		SessionId:   session.Id,
		Status:      session.Status,
		CompletedAt: session.CompletedAt,
	}))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.Validation("invalid session id")
	}

	session, err := c.sessionService.GetSession(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	res, err := c.detail(ctx, session)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(ctx, "", res))
}

func (c *sessionController) List(ctx *fiber.Ctx) error {
	userId, ok := localUserId(ctx)
	if !ok {
		return apperror.ErrAuthenticationFailed
	}
	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	sessions, total, err := c.sessionService.ListSessions(ctx.UserContext(), userId, page, limit)
	if err != nil {
		return err
	}

	res := dto.SessionListResponse{
		Sessions: make([]dto.SessionDetailResponse, 0, len(sessions)),
		Pagination: dto.Pagination{
			Page:  page,
			Limit: limit,
			Total: int(total),
			Pages: (int(total) + limit - 1) / limit,
		},
	}
	for _, s := range sessions {
		d, err := c.detail(ctx, s)
		if err != nil {
			return err
		}
		res.Sessions = append(res.Sessions, *d)
	}
	return ctx.JSON(serverutils.SuccessResponse(ctx, "", res))
}

func (c *sessionController) Turns(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.Validation("invalid session id")
	}
	turns, err := c.turnService.ListTurns(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(ctx, "", fiber.Map{"turns": turns}))
}

func (c *sessionController) Metrics(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.Validation("invalid session id")
	}
	metrics, err := c.metricsService.SessionMetrics(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(ctx, "", metrics))
}

func (c *sessionController) detail(ctx *fiber.Ctx, session *entity.Session) (*dto.SessionDetailResponse, error) {
	turns, err := c.turnService.ListTurns(ctx.UserContext(), session.Id)
	if err != nil {
		return nil, err
	}
	res := &dto.SessionDetailResponse{
		Id:           session.Id,
		UserId:       session.UserId,
		JobTitle:     session.Job.Title,
		JobCompany:   session.Job.Company,
		Status:       session.Status,
		Competencies: session.Competencies,
		CreatedAt:    session.CreatedAt,
		StartedAt:    session.StartedAt,
		CompletedAt:  session.CompletedAt,
		TurnCount:    len(turns),
	}
	if session.Status == entity.SessionStatusCompleted {
		if report, err := c.reportService.Get(ctx.UserContext(), session.Id); err == nil {
			score := report.OverallScore
			res.OverallScore = &score
		}
	}
	return res, nil
}

func (c *sessionController) realtimeURL(ctx *fiber.Ctx) string {
	if c.cfg.RealtimeURL != "" {
		return c.cfg.RealtimeURL
	}
	scheme := "ws"
	if ctx.Protocol() == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/realtime", scheme, ctx.Hostname())
}

func localUserId(ctx *fiber.Ctx) (uuid.UUID, bool) {
	raw, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	return id, err == nil
}

// authorizeOwner admits the user a session belongs to. Anonymous sessions are
// open to anyone holding their id.
func authorizeOwner(ctx *fiber.Ctx, session *entity.Session) error {
	if session.UserId == nil {
		return nil
	}
	if id, ok := localUserId(ctx); ok && id == *session.UserId {
		return nil
	}
	return apperror.New(apperror.ErrAuthenticationFailed, "session belongs to another user")
}
