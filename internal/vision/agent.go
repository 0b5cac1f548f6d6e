package vision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/encoding"
	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/foreman/pkg/formatting"
)

// Agent is a Judge backed by a go-agents vision model.
type Agent struct {
	cfg    gaconfig.AgentConfig
	logger *slog.Logger
}

// NewAgent creates an Agent. A model client is created per call.
func NewAgent(cfg gaconfig.AgentConfig, logger *slog.Logger) *Agent {
	return &Agent{
		cfg:    cfg,
		logger: logger.With("system", "vision"),
	}
}

// Judge sends the PNG image and the criteria checklist to the model.
func (a *Agent) Judge(ctx context.Context, image []byte, criteria []Criterion) (*Judgment, error) {
	if len(image) == 0 {
		return nil, ErrNoImage
	}
	if len(criteria) == 0 {
		criteria = AllCriteria
	}

	dataURI, err := encoding.EncodeImageDataURI(image, document.PNG)
	if err != nil {
		return nil, fmt.Errorf("%w: encode image: %w", ErrJudgeFailed, err)
	}

	model, err := agent.New(&a.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create agent: %w", ErrJudgeFailed, err)
	}

	resp, err := model.Vision(ctx, Prompt(criteria), []string{dataURI})
	if err != nil {
		return nil, fmt.Errorf("%w: vision call: %w", ErrJudgeFailed, err)
	}

	j, err := ParseJudgment(resp.Content(), criteria)
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "document judged",
		"score", j.Score,
		"ready_for_client", j.ReadyForClient,
		"criteria", len(criteria),
	)
	return j, nil
}

// ParseJudgment decodes a model response. Scores are clamped to 0..MaxScore,
// findings for criteria outside the checklist are dropped, and checklist
// criteria the model omitted are reported with a zero score.
func ParseJudgment(content string, criteria []Criterion) (*Judgment, error) {
	j, err := formatting.Parse[Judgment](content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJudgeFailed, err)
	}

	byCriterion := make(map[Criterion]Finding, len(j.Findings))
	for _, f := range j.Findings {
		if _, dup := byCriterion[f.Criterion]; !dup {
			byCriterion[f.Criterion] = f
		}
	}

	findings := make([]Finding, 0, len(criteria))
	for _, c := range criteria {
		f, ok := byCriterion[c]
		if !ok {
			f = Finding{Criterion: c, Notes: "not assessed"}
		}
		f.Score = clamp(f.Score)
		findings = append(findings, f)
	}

	j.Findings = findings
	j.Score = clamp(j.Score)
	return &j, nil
}

func clamp(score float64) float64 {
	return max(0, min(score, MaxScore))
}
