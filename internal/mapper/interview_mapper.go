package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/model"

	"gorm.io/datatypes"
)

type InterviewMapper struct{}

func NewInterviewMapper() *InterviewMapper {
	return &InterviewMapper{}
}

// Session Mappers

func (m *InterviewMapper) SessionToModel(s *entity.Session) (*model.InterviewSession, error) {
	if s == nil {
		return nil, nil
	}
	competencies, err := toJSON(s.Competencies)
	if err != nil {
		return nil, fmt.Errorf("encode competencies: %w", err)
	}
	var metadata datatypes.JSONMap
	if len(s.Metadata) > 0 {
		metadata = datatypes.JSONMap(s.Metadata)
	}
	return &model.InterviewSession{
		Id:             s.Id,
		UserId:         s.UserId,
		JobTitle:       s.Job.Title,
		JobCompany:     s.Job.Company,
		JobDescription: s.Job.Description,
		Competencies:   competencies,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		Metadata:       metadata,
	}, nil
}

func (m *InterviewMapper) SessionToEntity(s *model.InterviewSession) (*entity.Session, error) {
	if s == nil {
		return nil, nil
	}
	var competencies []entity.Competency
	if err := fromJSON(s.Competencies, &competencies); err != nil {
		return nil, fmt.Errorf("decode competencies: %w", err)
	}
	status := entity.SessionStatus(s.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("stored session %s has unknown status %q", s.Id, s.Status)
	}
	// NULL scans into an empty JSONMap; an empty map is reported as nil.
	var metadata map[string]interface{}
	if len(s.Metadata) > 0 {
		metadata = map[string]interface{}(s.Metadata)
	}
	return &entity.Session{
		Id:     s.Id,
		UserId: s.UserId,
		Job: entity.JobContext{
			Title:       s.JobTitle,
			Company:     s.JobCompany,
			Description: s.JobDescription,
		},
		Competencies: competencies,
		Status:       status,
		CreatedAt:    utc(s.CreatedAt),
		StartedAt:    utcPtr(s.StartedAt),
		CompletedAt:  utcPtr(s.CompletedAt),
		Metadata:     metadata,
	}, nil
}

func (m *InterviewMapper) TransitionToModel(t *entity.SessionTransition) *model.SessionTransition {
	return &model.SessionTransition{
		Id:         t.Id,
		SessionId:  t.SessionId,
		FromStatus: string(t.From),
		ToStatus:   string(t.To),
		Event:      string(t.Event),
		Reason:     t.Reason,
		OccurredAt: t.OccurredAt,
	}
}

func (m *InterviewMapper) TransitionToEntity(t *model.SessionTransition) *entity.SessionTransition {
	return &entity.SessionTransition{
		Id:         t.Id,
		SessionId:  t.SessionId,
		From:       entity.SessionStatus(t.FromStatus),
		To:         entity.SessionStatus(t.ToStatus),
		Event:      entity.SessionEvent(t.Event),
		Reason:     t.Reason,
		OccurredAt: utc(t.OccurredAt),
	}
}

// Turn Mappers

func (m *InterviewMapper) TurnToModel(t *entity.Turn) (*model.InterviewTurn, error) {
	if t == nil {
		return nil, nil
	}
	var tags datatypes.JSON
	if t.StarTags != nil {
		b, err := toJSON(t.StarTags)
		if err != nil {
			return nil, fmt.Errorf("encode star tags: %w", err)
		}
		tags = b
	}
	res := &model.InterviewTurn{
		Id:        t.Id,
		SessionId: t.SessionId,
		Sequence:  t.Sequence,
		Role:      string(t.Role),
		Content:   t.Content,
		StarTags:  tags,
		Final:     t.Final,
		Timestamp: t.Timestamp,
	}
	if t.Competency != nil {
		c := string(*t.Competency)
		res.Competency = &c
	}
	if t.Audio != nil {
		d, conf := t.Audio.DurationMs, t.Audio.Confidence
		res.AudioDurationMs = &d
		res.AudioConfidence = &conf
	}
	return res, nil
}

func (m *InterviewMapper) TurnToEntity(t *model.InterviewTurn) (*entity.Turn, error) {
	if t == nil {
		return nil, nil
	}
	role := entity.TurnRole(t.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("stored turn %s has unknown role %q", t.Id, t.Role)
	}
	res := &entity.Turn{
		Id:        t.Id,
		SessionId: t.SessionId,
		Sequence:  t.Sequence,
		Role:      role,
		Content:   t.Content,
		Final:     t.Final,
		Timestamp: utc(t.Timestamp),
	}
	if len(t.StarTags) > 0 {
		if err := fromJSON(t.StarTags, &res.StarTags); err != nil {
			return nil, fmt.Errorf("decode star tags: %w", err)
		}
	}
	if t.Competency != nil {
		c := entity.CompetencyType(*t.Competency)
		res.Competency = &c
	}
	if t.AudioDurationMs != nil || t.AudioConfidence != nil {
		res.Audio = &entity.AudioMetadata{}
		if t.AudioDurationMs != nil {
			res.Audio.DurationMs = *t.AudioDurationMs
		}
		if t.AudioConfidence != nil {
			res.Audio.Confidence = *t.AudioConfidence
		}
	}
	return res, nil
}

// Score Mappers

func (m *InterviewMapper) ScoreToModel(s *entity.Score) (*model.InterviewScore, error) {
	star, err := toJSON(s.Star)
	if err != nil {
		return nil, fmt.Errorf("encode star completeness: %w", err)
	}
	return &model.InterviewScore{
		Id:               s.Id,
		SessionId:        s.SessionId,
		TurnId:           s.TurnId,
		Competency:       string(s.Competency),
		Score:            s.Value,
		Rationale:        s.Rationale,
		ImprovementTip:   s.ImprovementTip,
		StarCompleteness: star,
		RubricVersion:    s.RubricVersion,
		CreatedAt:        s.CreatedAt,
	}, nil
}

func (m *InterviewMapper) ScoreToEntity(s *model.InterviewScore) (*entity.Score, error) {
	res := &entity.Score{
		Id:             s.Id,
		SessionId:      s.SessionId,
		TurnId:         s.TurnId,
		Competency:     entity.CompetencyType(s.Competency),
		Value:          s.Score,
		Rationale:      s.Rationale,
		ImprovementTip: s.ImprovementTip,
		RubricVersion:  s.RubricVersion,
		CreatedAt:      utc(s.CreatedAt),
	}
	if err := fromJSON(s.StarCompleteness, &res.Star); err != nil {
		return nil, fmt.Errorf("decode star completeness: %w", err)
	}
	return res, nil
}

// Latency Mappers

func (m *InterviewMapper) MetricsToModel(l *entity.LatencyMetrics) (*model.SessionMetric, error) {
	avg, err := toJSON(l.Average)
	if err != nil {
		return nil, fmt.Errorf("encode average latency: %w", err)
	}
	peak, err := toJSON(l.Peak)
	if err != nil {
		return nil, fmt.Errorf("encode peak latency: %w", err)
	}
	return &model.SessionMetric{
		Id:          l.Id,
		SessionId:   l.SessionId,
		Scope:       string(l.Scope),
		Average:     avg,
		Peak:        peak,
		SampleCount: l.SampleCount,
		Breaches:    l.Breaches,
		AudioOnly:   l.AudioOnly,
		RecordedAt:  l.RecordedAt,
	}, nil
}

func (m *InterviewMapper) MetricsToEntity(l *model.SessionMetric) (*entity.LatencyMetrics, error) {
	res := &entity.LatencyMetrics{
		Id:          l.Id,
		SessionId:   l.SessionId,
		Scope:       entity.MetricsScope(l.Scope),
		SampleCount: l.SampleCount,
		Breaches:    l.Breaches,
		AudioOnly:   l.AudioOnly,
		RecordedAt:  utc(l.RecordedAt),
	}
	if err := fromJSON(l.Average, &res.Average); err != nil {
		return nil, fmt.Errorf("decode average latency: %w", err)
	}
	if err := fromJSON(l.Peak, &res.Peak); err != nil {
		return nil, fmt.Errorf("decode peak latency: %w", err)
	}
	return res, nil
}

// Report Mappers

func (m *InterviewMapper) ReportToModel(r *entity.Report) (*model.InterviewReport, error) {
	assessments, err := toJSON(r.CompetencyAssessments)
	if err != nil {
		return nil, fmt.Errorf("encode assessments: %w", err)
	}
	nextSteps, err := toJSON(r.NextSteps)
	if err != nil {
		return nil, fmt.Errorf("encode next steps: %w", err)
	}
	resources, err := toJSON(r.RecommendedResources)
	if err != nil {
		return nil, fmt.Errorf("encode resources: %w", err)
	}
	return &model.InterviewReport{
		Id:                    r.Id,
		SessionId:             r.SessionId,
		OverallScore:          r.OverallScore,
		OverallSummary:        r.OverallSummary,
		CompetencyAssessments: assessments,
		NextSteps:             nextSteps,
		RecommendedResources:  resources,
		CreatedAt:             r.CreatedAt,
	}, nil
}

func (m *InterviewMapper) ReportToEntity(r *model.InterviewReport) (*entity.Report, error) {
	res := &entity.Report{
		Id:             r.Id,
		SessionId:      r.SessionId,
		OverallScore:   r.OverallScore,
		OverallSummary: r.OverallSummary,
		CreatedAt:      utc(r.CreatedAt),
	}
	if err := fromJSON(r.CompetencyAssessments, &res.CompetencyAssessments); err != nil {
		return nil, fmt.Errorf("decode assessments: %w", err)
	}
	if err := fromJSON(r.NextSteps, &res.NextSteps); err != nil {
		return nil, fmt.Errorf("decode next steps: %w", err)
	}
	if err := fromJSON(r.RecommendedResources, &res.RecommendedResources); err != nil {
		return nil, fmt.Errorf("decode resources: %w", err)
	}
	return res, nil
}

func toJSON(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func fromJSON(b datatypes.JSON, v interface{}) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, v)
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
