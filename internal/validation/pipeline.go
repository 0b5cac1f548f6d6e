package validation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/internal/documents"
	"github.com/JaimeStill/foreman/internal/editor"
	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/internal/templates"
	"github.com/JaimeStill/foreman/internal/vision"
)

// Documents is the slice of the document store the pipeline reads and
// writes renders to.
type Documents interface {
	Find(ctx context.Context, id uuid.UUID) (*documents.Record, error)
	Load(ctx context.Context, id uuid.UUID) (*generation.Document, error)
	Artifact(ctx context.Context, id uuid.UUID) ([]byte, error)
	SaveRender(ctx context.Context, id uuid.UUID, png []byte) (string, error)
	Siblings(ctx context.Context, digest string, exclude uuid.UUID) ([]documents.Record, error)
}

// Templates resolves template ids for the template usage check.
type Templates interface {
	Get(id string) (*templates.Template, error)
}

// Pipeline runs validation levels against stored documents. Validate is safe
// for concurrent use; editor calls are serialized by the editor wrapper.
type Pipeline struct {
	docs      Documents
	templates Templates
	assembler *assembly.Assembler
	editor    *editor.Serialized
	judge     vision.Judge
	recorder  Recorder
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// Options holds the optional collaborators of a Pipeline. A nil Editor fails
// comprehensive validation and a nil Judge fails the vision check.
type Options struct {
	Editor   *editor.Serialized
	Judge    vision.Judge
	Recorder Recorder
}

// New creates a Pipeline over the given document store and template source.
func New(docs Documents, tmpls Templates, opts Options, cfg Config, logger *slog.Logger) *Pipeline {
	logger = logger.With("system", "validation")
	return &Pipeline{
		docs:      docs,
		templates: tmpls,
		assembler: assembly.New(nil, logger),
		editor:    opts.Editor,
		judge:     opts.Judge,
		recorder:  opts.Recorder,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// subject carries what earlier checks learned about the document to later ones.
type subject struct {
	id       uuid.UUID
	record   *documents.Record
	doc      *generation.Document
	artifact []byte
	root     *html.Node
	render   []byte
}

type stage func(ctx context.Context, s *subject) []Check

func (p *Pipeline) stages() map[Level]stage {
	return map[Level]stage{
		LevelBasic:         p.basic,
		LevelStandard:      p.standard,
		LevelComprehensive: p.comprehensive,
		LevelProduction:    p.production,
	}
}

// Validate runs every level up to and including level against the document
// and records the result. Escalation stops after the first level with a
// failing check. Check failures are reported in the result; the returned
// error is reserved for unknown levels, cancellation and recording failures.
func (p *Pipeline) Validate(ctx context.Context, id uuid.UUID, level Level) (*Result, error) {
	if level.rank() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}

	s := &subject{id: id}
	stages := p.stages()

	var checks []Check
	for _, l := range Levels {
		if !level.Includes(l) {
			break
		}
		found := stages[l](ctx, s)
		checks = append(checks, found...)

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("validate %s: %w", id, err)
		}
		if overall(found) == StatusFail {
			p.logger.Info("escalation stopped", "document", id, "level", l)
			break
		}
	}

	result := &Result{
		ID:            uuid.New(),
		DocumentID:    id,
		Level:         level,
		OverallStatus: overall(checks),
		Checks:        checks,
		RecordedAt:    p.now(),
	}

	p.logger.Info("document validated",
		"document", id,
		"level", level,
		"reached", result.Reached(),
		"status", result.OverallStatus,
	)

	if p.recorder != nil {
		if err := p.recorder.RecordResult(ctx, result); err != nil {
			return result, fmt.Errorf("record validation result: %w", err)
		}
	}
	return result, nil
}

func newCheck(level Level, name string, status Status, format string, args ...any) Check {
	return Check{
		Name:    name,
		Level:   level,
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	}
}

func (c Check) with(key, value string) Check {
	if c.Details == nil {
		c.Details = make(map[string]string)
	}
	c.Details[key] = value
	return c
}
