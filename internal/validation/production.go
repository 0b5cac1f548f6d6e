package validation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/JaimeStill/foreman/internal/vision"
	"github.com/JaimeStill/foreman/pkg/currency"
)

var placeholders = []string{"{{", "}}", "todo", "tbd", "lorem ipsum", "xxx", "placeholder"}

// production scores the exported render and checks client-facing details.
// Failures are reported as warnings unless BlockOnProduction is set.
func (p *Pipeline) production(ctx context.Context, s *subject) []Check {
	checks := p.visionChecks(ctx, s)
	checks = append(checks, professionalFormatting(s), clientReady(s))

	if p.cfg.BlockOnProduction {
		return checks
	}
	for i, c := range checks {
		if c.Status == StatusFail {
			checks[i] = c.with("severity", string(StatusFail))
			checks[i].Status = StatusWarn
		}
	}
	return checks
}

func (p *Pipeline) visionChecks(ctx context.Context, s *subject) []Check {
	const name = "vision_quality"

	if p.judge == nil {
		return []Check{newCheck(LevelProduction, name, StatusFail, "no vision judge configured")}
	}
	if len(s.render) == 0 {
		return []Check{newCheck(LevelProduction, name, StatusFail, "%v", vision.ErrNoImage)}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.VisionTimeoutDuration())
	defer cancel()

	j, err := p.judge.Judge(ctx, s.render, vision.AllCriteria)
	if err != nil {
		return []Check{newCheck(LevelProduction, name, StatusFail, "%v", err)}
	}

	threshold := p.cfg.VisionThreshold
	score := strconv.FormatFloat(j.Score, 'f', 1, 64)

	overall := newCheck(LevelProduction, name, StatusPass, "scored %s of %g", score, vision.MaxScore)
	if j.Score < threshold {
		overall = newCheck(LevelProduction, name, StatusFail, "scored %s, below threshold %g", score, threshold)
	}
	overall = overall.with("score", score)
	if j.Summary != "" {
		overall = overall.with("summary", j.Summary)
	}

	checks := []Check{overall}
	for _, c := range vision.AllCriteria {
		f, _ := j.Finding(c)
		status := StatusPass
		if f.Score < threshold {
			status = StatusFail
		}
		check := newCheck(LevelProduction, "vision_"+string(c), status, "%s: %g", c.Describe(), f.Score)
		if f.Notes != "" {
			check = check.with("notes", f.Notes)
		}
		checks = append(checks, check)
	}
	return checks
}

// professionalFormatting rejects placeholder text, zero-value lines and
// descriptions that do not start with a capital letter.
func professionalFormatting(s *subject) Check {
	const name = "professional_formatting"
	doc := s.doc

	var problems []string
	for _, item := range doc.LineItems {
		desc := strings.TrimSpace(item.Description)
		lower := strings.ToLower(desc)
		for _, ph := range placeholders {
			if strings.Contains(lower, ph) {
				problems = append(problems, fmt.Sprintf("%s: placeholder %q", item.Line, ph))
				break
			}
		}
		if item.Total.IsZero() {
			problems = append(problems, item.Line+": zero amount")
		}
		if r := []rune(desc); len(r) > 0 && unicode.IsLetter(r[0]) && !unicode.IsUpper(r[0]) {
			problems = append(problems, item.Line+": description not capitalized")
		}
	}

	if body := strings.ToLower(text(s.root)); strings.Contains(body, "{{") || strings.Contains(body, "<no value>") {
		problems = append(problems, "artifact contains unrendered template text")
	}

	if len(problems) > 0 {
		return newCheck(LevelProduction, name, StatusFail, "%s", strings.Join(problems, "; "))
	}
	return newCheck(LevelProduction, name, StatusPass, "formatting is client presentable")
}

func clientReady(s *subject) Check {
	const name = "client_ready"
	doc := s.doc

	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"client", doc.Header.Client},
		{"project", doc.Header.Project},
		{"number", doc.Header.Number},
		{"jurisdiction", doc.Jurisdiction},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if !doc.Total.IsPositive() {
		missing = append(missing, "positive total")
	}

	if len(missing) > 0 {
		return newCheck(LevelProduction, name, StatusFail, "missing %s", strings.Join(missing, ", "))
	}
	return newCheck(LevelProduction, name, StatusPass, "ready for %s, total %s", doc.Header.Client, currency.Format(doc.Total))
}
