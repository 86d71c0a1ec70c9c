package entity

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumsRejectUnknownValues(t *testing.T) {
	var status SessionStatus
	require.NoError(t, json.Unmarshal([]byte(`"in_progress"`), &status))
	assert.Equal(t, SessionStatusInProgress, status)
	assert.Error(t, json.Unmarshal([]byte(`"paused"`), &status))

	var reason FinishReason
	assert.Error(t, json.Unmarshal([]byte(`"timeout"`), &reason))

	var role TurnRole
	assert.Error(t, json.Unmarshal([]byte(`"narrator"`), &role))

	var tags []StarElement
	require.NoError(t, json.Unmarshal([]byte(`["situation","result"]`), &tags))
	assert.Equal(t, []StarElement{StarSituation, StarResult}, tags)
	assert.Error(t, json.Unmarshal([]byte(`["outcome"]`), &tags))

	var stage Stage
	assert.Error(t, json.Unmarshal([]byte(`"render"`), &stage))
	assert.Error(t, json.Unmarshal([]byte(`42`), &stage))
}

func TestSessionStatus_IsTerminal(t *testing.T) {
	assert.False(t, SessionStatusCreated.IsTerminal())
	assert.False(t, SessionStatusInProgress.IsTerminal())
	assert.True(t, SessionStatusCompleted.IsTerminal())
	assert.True(t, SessionStatusAbandoned.IsTerminal())
	assert.True(t, SessionStatusError.IsTerminal())
}

func TestFinishReason_Event(t *testing.T) {
	assert.Equal(t, SessionEventComplete, FinishReasonCompleted.Event())
	assert.Equal(t, SessionEventAbandon, FinishReasonAbandoned.Event())
	assert.Equal(t, SessionEventFail, FinishReasonError.Event())
}

func TestStarCompleteness(t *testing.T) {
	var s StarCompleteness
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, StarElements, s.Missing())

	s.Set(StarSituation)
	s.Set(StarResult)
	assert.Equal(t, 2, s.Count())
	assert.True(t, s.Has(StarResult))
	assert.Equal(t, []StarElement{StarTask, StarAction}, s.Missing())
}

func TestScoreID_IsStablePerPair(t *testing.T) {
	turn := uuid.New()
	assert.Equal(t, ScoreID(turn, CompetencyOwnership), ScoreID(turn, CompetencyOwnership))
	assert.NotEqual(t, ScoreID(turn, CompetencyOwnership), ScoreID(turn, CompetencyTeamwork))
	assert.NotEqual(t, ScoreID(turn, CompetencyOwnership), ScoreID(uuid.New(), CompetencyOwnership))
}

func TestTurnClone_IsDeep(t *testing.T) {
	comp := CompetencyRoleFit
	orig := &Turn{Competency: &comp, StarTags: []StarElement{StarTask}, Audio: &AudioMetadata{DurationMs: 10}}
	c := orig.Clone()
	*c.Competency = CompetencyTeamwork
	c.StarTags[0] = StarResult
	c.Audio.DurationMs = 99

	assert.Equal(t, CompetencyRoleFit, *orig.Competency)
	assert.Equal(t, StarTask, orig.StarTags[0])
	assert.Equal(t, int64(10), orig.Audio.DurationMs)
	assert.Nil(t, (*Turn)(nil).Clone())
}

func TestDefaultCompetencies(t *testing.T) {
	s := Session{Competencies: DefaultCompetencies()}
	assert.Len(t, s.Competencies, 5)
	rf, ok := s.Competency(CompetencyRoleFit)
	require.True(t, ok)
	assert.Equal(t, 1.2, rf.Weight)
	_, ok = s.Competency("leadership")
	assert.False(t, ok)
}
