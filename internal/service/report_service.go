package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/internal/repository/unitofwork"
	"ai-interviewer-be/pkg/scoring"

	"github.com/google/uuid"
)

const (
	maxStrengths    = 3
	maxImprovements = 3
	weakCompetency  = 3.0
)

var starNextSteps = map[entity.StarElement]string{
	entity.StarSituation: "Open each answer by setting the scene: where you were and what was going on.",
	entity.StarTask:      "State your own responsibility or goal before describing what happened.",
	entity.StarAction:    "Spend most of the answer on the specific actions you personally took.",
	entity.StarResult:    "Practice providing more specific examples with quantified results.",
}

var competencyResources = map[entity.CompetencyType]string{
	entity.CompetencyCommunication:  "Record yourself answering common behavioral questions and review for structure and filler words.",
	entity.CompetencyProblemSolving: "Work through case-style problems out loud, naming the options you weighed and why you chose one.",
	entity.CompetencyOwnership:      "Prepare two stories where you took initiative beyond your assigned scope and saw it through.",
	entity.CompetencyTeamwork:       "Prepare examples of resolving disagreement and of helping a teammate succeed.",
	entity.CompetencyRoleFit:        "Research the company's recent projects and map your experience to the role's core requirements.",
}

type IReportService interface {
	// Generate builds the report from the session's turns and scores and
	// replaces any earlier report.
	Generate(ctx context.Context, sessionId uuid.UUID) (*entity.Report, error)
	// Get returns the stored report, generating it for completed sessions
	// that do not have one yet.
	Get(ctx context.Context, sessionId uuid.UUID) (*entity.Report, error)
}

type reportService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
	now        func() time.Time
}

func NewReportService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IReportService {
	return &reportService{
		uowFactory: uowFactory,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *reportService) Get(ctx context.Context, sessionId uuid.UUID) (*entity.Report, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	report, err := uow.ReportRepository().GetBySession(ctx, sessionId)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	session, err := uow.SessionRepository().Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session.Status != entity.SessionStatusCompleted {
		return nil, apperror.New(apperror.ErrNotFound, "report is available once the session is completed")
	}
	return s.Generate(ctx, sessionId)
}

func (s *reportService) Generate(ctx context.Context, sessionId uuid.UUID) (*entity.Report, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	scores, err := uow.ScoreRepository().ListBySession(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	turns, err := uow.TurnRepository().ListBySession(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	report := buildReport(session, turns, scores)
	report.Id = uuid.NewSHA1(sessionId, []byte("report"))
	report.CreatedAt = s.now()

	if err := uow.ReportRepository().Save(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	s.logger.Info("REPORT", "Report generated", map[string]interface{}{
		"session_id":    sessionId,
		"overall_score": report.OverallScore,
		"scores":        len(scores),
	})
	return report, nil
}

func buildReport(session *entity.Session, turns []*entity.Turn, scores []*entity.Score) *entity.Report {
	byCompetency := make(map[entity.CompetencyType][]*entity.Score)
	for _, sc := range scores {
		byCompetency[sc.Competency] = append(byCompetency[sc.Competency], sc)
	}

	report := &entity.Report{
		SessionId:             session.Id,
		CompetencyAssessments: []entity.CompetencyAssessment{},
	}

	var weighted, totalWeight float64
	var weak []entity.Competency
	for _, c := range session.Competencies {
		list := byCompetency[c.Type]
		if len(list) == 0 {
			continue
		}
		a := assess(c, list)
		report.CompetencyAssessments = append(report.CompetencyAssessments, a)
		weighted += a.AverageScore * c.Weight
		totalWeight += c.Weight
		if a.AverageScore < weakCompetency {
			weak = append(weak, c)
		}
	}

	if totalWeight > 0 {
		report.OverallScore = round2(weighted / totalWeight)
	}
	report.OverallSummary = overallSummary(report, weak)
	report.NextSteps = nextSteps(turns, scores)
	for _, c := range weak {
		if r, ok := competencyResources[c.Type]; ok {
			report.RecommendedResources = append(report.RecommendedResources, r)
		}
	}
	return report
}

func assess(c entity.Competency, scores []*entity.Score) entity.CompetencyAssessment {
	sum := 0
	strengths := newOrderedSet()
	improvements := newOrderedSet()
	for _, sc := range scores {
		sum += sc.Value
		if sc.Value >= 4 {
			strengths.add(sc.Rationale)
		} else if sc.ImprovementTip != "" {
			improvements.add(sc.ImprovementTip)
		}
	}
	avg := round2(float64(sum) / float64(len(scores)))

	name := c.Name
	if name == "" {
		name = string(c.Type)
	}
	label := scoring.RubricLabel(int(math.Round(avg)))

	return entity.CompetencyAssessment{
		Competency:   c.Type,
		AverageScore: avg,
		Summary:      fmt.Sprintf("%s: %s across %d scored answers (average %.2f/5).", name, label, len(scores), avg),
		Strengths:    strengths.first(maxStrengths),
		Improvements: improvements.first(maxImprovements),
	}
}

func overallSummary(r *entity.Report, weak []entity.Competency) string {
	if len(r.CompetencyAssessments) == 0 {
		return "No candidate answers were scored in this session."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Overall %s (%.2f/5).", strings.ToLower(scoring.RubricLabel(int(math.Round(r.OverallScore)))), r.OverallScore)

	best := r.CompetencyAssessments[0]
	for _, a := range r.CompetencyAssessments[1:] {
		if a.AverageScore > best.AverageScore {
			best = a
		}
	}
	fmt.Fprintf(&b, " Strongest area: %s.", best.Competency)

	if len(weak) > 0 {
		names := make([]string, 0, len(weak))
		for _, c := range weak {
			names = append(names, string(c.Type))
		}
		fmt.Fprintf(&b, " Areas for growth: %s.", strings.Join(names, ", "))
	}
	return b.String()
}

// nextSteps suggests practice for STAR elements missing from at least half
// of the scored candidate turns.
func nextSteps(turns []*entity.Turn, scores []*entity.Score) []string {
	starByTurn := make(map[uuid.UUID]entity.StarCompleteness)
	for _, sc := range scores {
		starByTurn[sc.TurnId] = sc.Star
	}

	missing := make(map[entity.StarElement]int)
	scored := 0
	for _, t := range turns {
		star, ok := starByTurn[t.Id]
		if !ok {
			continue
		}
		scored++
		for _, e := range star.Missing() {
			missing[e]++
		}
	}

	var steps []string
	if scored > 0 {
		for _, e := range entity.StarElements {
			if missing[e]*2 >= scored {
				steps = append(steps, starNextSteps[e])
			}
		}
	}
	if len(steps) == 0 {
		steps = append(steps, "Keep practicing with STAR-structured answers for new competencies.")
	}
	return steps
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok || v == "" {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) first(n int) []string {
	if len(s.items) <= n {
		return append([]string{}, s.items...)
	}
	return append([]string{}, s.items[:n]...)
}
