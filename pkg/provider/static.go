package provider

import (
	"context"
	"fmt"
	"strings"

	"ai-interviewer-be/internal/entity"
)

// behavioural prompts per competency, asked in order
var competencyQuestions = map[entity.CompetencyType][]string{
	entity.CompetencyCommunication: {
		"Tell me about a time when you had to explain a complex idea to someone without your background.",
		"Describe a situation where a misunderstanding put your work at risk. How did you handle it?",
	},
	entity.CompetencyProblemSolving: {
		"Walk me through the hardest problem you solved recently.",
		"Describe a situation where your first approach failed. What did you do next?",
	},
	entity.CompetencyOwnership: {
		"Tell me about a time when you took responsibility for something outside your role.",
		"Describe a project you drove from start to finish. What was the result?",
	},
	entity.CompetencyTeamwork: {
		"Tell me about a time when you disagreed with a teammate. How did you resolve it?",
		"Describe a situation where you helped a struggling colleague.",
	},
	entity.CompetencyRoleFit: {
		"Which past project best prepares you for the {role} role, and why?",
		"Walk me through a technical decision you made that you would defend today.",
	},
}

// StaticGenerator asks scripted questions. It is the generator used when no
// language model is configured and the fallback when the model fails.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

func (g *StaticGenerator) NextQuestion(ctx context.Context, req QuestionRequest) (string, error) {
	if req.FollowUp != nil && req.FollowUp.Required && len(req.FollowUp.Probes) > 0 {
		return req.FollowUp.Probes[0], nil
	}

	asked := 0
	for _, t := range req.History {
		if t.Role == entity.TurnRoleInterviewer {
			asked++
		}
	}
	if asked == 0 {
		if req.Job.Title != "" {
			return fmt.Sprintf("Thanks for joining. To start, tell me about yourself and what draws you to the %s role.", req.Job.Title), nil
		}
		return "Thanks for joining. To start, tell me about yourself.", nil
	}

	competency := entity.CompetencyCommunication
	if req.Competency != nil {
		competency = req.Competency.Type
	}
	questions, ok := competencyQuestions[competency]
	if !ok {
		return fmt.Sprintf("Tell me about a time you demonstrated %s.", competency), nil
	}
	role := req.Job.Title
	if role == "" {
		role = "this"
	}
	return strings.ReplaceAll(questions[(asked-1)%len(questions)], "{role}", role), nil
}
