package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/documents"
	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/internal/history"
	"github.com/JaimeStill/foreman/internal/monitor"
	"github.com/JaimeStill/foreman/internal/templates"
	"github.com/JaimeStill/foreman/internal/validation"
	"github.com/JaimeStill/foreman/internal/workflow"
	"github.com/JaimeStill/foreman/pkg/currency"
	"github.com/JaimeStill/foreman/pkg/formatting"
	"github.com/JaimeStill/foreman/pkg/pagination"
)

func cmdTemplates(ctx context.Context, a *app, args []string) int {
	fs := a.flagSet("templates", "[-suggest ID]")
	suggest := fs.String("suggest", "", "List templates whose ID resembles this one")
	if code := parse(fs, args); code >= 0 {
		return code
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return a.fail(err)
	}

	repo := templates.NewRepository(cfg.Templates, a.logger)
	if _, err := repo.Discover(cfg.Templates.Dir); err != nil {
		fmt.Fprintln(a.stderr, a.style.warn.UnsetWidth().Render("warning:"), err)
	}

	if *suggest != "" {
		matches := repo.Suggest(*suggest)
		if len(matches) == 0 {
			return a.fail(fmt.Errorf("no templates resemble %q", *suggest))
		}
		for _, id := range matches {
			a.println(id)
		}
		return exitOK
	}

	summaries := repo.List()
	a.println(a.style.title.Render(fmt.Sprintf("Templates (%d) in %s", len(summaries), cfg.Templates.Dir)))

	widths := []int{30, 14, 7, 14}
	a.println(a.style.label.Render(row(widths, "ID", "CATEGORY", "LINES", "REVISION", "NAME")))
	for _, s := range summaries {
		a.println(row(widths, s.ID, s.Category, fmt.Sprint(s.Lines), short(s.Revision), s.Name))
	}
	return exitOK
}

func cmdGenerate(ctx context.Context, a *app, args []string) int {
	fs := a.flagSet("generate", "-template ID [-set name=value ...] [flags]")

	req := workflow.Request{Binding: assembly.Binding{}}
	var kind, level string

	fs.StringVar(&req.TemplateID, "template", "", "Template ID")
	fs.Var(bindingFlag(req.Binding), "set", "Parameter binding name=value (repeatable)")
	fs.StringVar(&kind, "kind", string(generation.KindEstimate), "Document kind (estimate, invoice, contract)")
	fs.StringVar(&req.Jurisdiction, "jurisdiction", "", "Tax jurisdiction")
	fs.StringVar(&req.Header.Company, "company", "", "Company name")
	fs.StringVar(&req.Header.Client, "client", "", "Client name")
	fs.StringVar(&req.Header.Project, "project", "", "Project name")
	fs.StringVar(&req.Header.Address, "address", "", "Project address")
	fs.StringVar(&req.Header.Number, "number", "", "Document number (generated when empty)")
	fs.StringVar(&level, "level", string(validation.LevelStandard), "Validation level")
	fs.BoolVar(&req.Deliver, "deliver", false, "Mark the document delivered once validation passes")
	fs.StringVar(&req.Scenario, "scenario", "", "Compliance scenario")
	fs.BoolVar(&req.SkipValidation, "skip-validation", false, "Skip validation")
	fs.BoolVar(&req.DeferValidation, "defer-validation", false, "Defer validation to a later run")
	fs.BoolVar(&req.Override, "override", false, "Override enforced compliance rules")

	if code := parse(fs, args); code >= 0 {
		return code
	}
	if req.TemplateID == "" {
		fs.Usage()
		return exitError
	}
	req.Kind = generation.Kind(kind)
	req.Level = validation.Level(level)

	d, err := a.systems()
	if err != nil {
		return a.fail(err)
	}

	result, err := workflow.Execute(ctx, d.Workflow, req)
	if result != nil {
		if result.Document != nil {
			a.printRecord(ctx, result.Document)
		}
		if result.Validation != nil {
			a.printValidation(result.Validation)
		}
		a.printViolations(result.Violations())
		if result.Delivered {
			a.println(a.style.pass.UnsetWidth().Render("delivered"))
		}
	}

	switch {
	case errors.Is(err, compliance.ErrBlocked):
		fmt.Fprintln(a.stderr, a.style.fail.UnsetWidth().Render("blocked:"), err)
		return exitBlocked
	case err != nil:
		return a.fail(err)
	}
	return exitOK
}

func cmdValidate(ctx context.Context, a *app, args []string) int {
	fs := a.flagSet("validate", "[-level LEVEL] DOCUMENT_ID")
	level := fs.String("level", string(validation.LevelStandard), "Validation level (basic, standard, comprehensive, production)")
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitError
	}

	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return a.fail(fmt.Errorf("invalid document id: %w", err))
	}
	lvl, err := validation.ParseLevel(*level)
	if err != nil {
		return a.fail(err)
	}

	d, err := a.systems()
	if err != nil {
		return a.fail(err)
	}

	result, err := d.Validation.Validate(ctx, id, lvl)
	if err != nil {
		return a.fail(err)
	}

	a.printValidation(result)
	if !result.Passed() {
		return exitError
	}
	return exitOK
}

func cmdPreview(ctx context.Context, a *app, args []string) int {
	fs := a.flagSet("preview", "[-style NAME] (DOCUMENT_ID | -template ID [-set name=value ...])")
	binding := assembly.Binding{}
	style := fs.String("style", "auto", "Markdown style (auto, dark, light, notty, ascii, ...)")
	width := fs.Int("width", 100, "Word wrap width")
	templateID := fs.String("template", "", "Generate in memory from this template instead of loading a document")
	jurisdiction := fs.String("jurisdiction", "", "Tax jurisdiction for in-memory generation")
	fs.Var(bindingFlag(binding), "set", "Parameter binding name=value (repeatable)")
	if code := parse(fs, args); code >= 0 {
		return code
	}
	if (*templateID == "") == (fs.NArg() == 0) {
		fs.Usage()
		return exitError
	}

	d, err := a.systems()
	if err != nil {
		return a.fail(err)
	}

	var doc *generation.Document
	if *templateID != "" {
		tmpl, err := d.Templates.Get(*templateID)
		if err != nil {
			if s := d.Templates.Suggest(*templateID); len(s) > 0 {
				err = fmt.Errorf("%w (did you mean %s?)", err, strings.Join(s, ", "))
			}
			return a.fail(err)
		}
		doc, err = d.Session.Generate(generation.Request{
			Template:     tmpl,
			Binding:      binding,
			Jurisdiction: *jurisdiction,
		})
		if err != nil {
			return a.fail(err)
		}
	} else {
		id, err := uuid.Parse(fs.Arg(0))
		if err != nil {
			return a.fail(fmt.Errorf("invalid document id: %w", err))
		}
		if doc, err = d.Documents.Load(ctx, id); err != nil {
			return a.fail(err)
		}
	}

	md, err := generation.RenderMarkdown(doc)
	if err != nil {
		return a.fail(err)
	}

	renderer, err := markdownRenderer(*style, *width)
	if err != nil {
		return a.fail(err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return a.fail(err)
	}

	fmt.Fprint(a.stdout, out)
	return exitOK
}

func cmdProtocols(ctx context.Context, a *app, args []string) int {
	fs := a.flagSet("protocols", "[-file PROTOCOL] [-operation OP]")
	file := fs.String("file", "", "Protocol file (default: configured or built-in)")
	operation := fs.String("operation", "", "Only rules for this operation")
	if code := parse(fs, args); code >= 0 {
		return code
	}

	registry, err := a.registry(*file)
	if err != nil {
		return a.fail(err)
	}

	widths := []int{36, 22, 6, 9}
	a.println(a.style.label.Render(row(widths, "RULE", "OPERATION", "PHASE", "SEVERITY", "DESCRIPTION")))
	for _, r := range registry.Rules() {
		if *operation != "" && string(r.Operation) != *operation {
			continue
		}
		a.println(row(widths, r.ID, string(r.Operation), string(r.Phase), a.style.severity(r.Severity), r.Description))
	}
	return exitOK
}

// cmdCheck evaluates rules without a history sink so a dry run leaves the
// audit chain untouched.
func cmdCheck(ctx context.Context, a *app, args []string) int {
	fs := a.flagSet("check", "-operation OP [-phase pre|post] [flags]")
	var flags listFlag
	file := fs.String("file", "", "Protocol file (default: configured or built-in)")
	operation := fs.String("operation", "", "Operation to evaluate")
	phase := fs.String("phase", string(compliance.PhasePre), "Phase (pre or post)")
	opctx := &compliance.Context{}
	fs.StringVar(&opctx.TemplateID, "template", "", "Template ID")
	fs.StringVar(&opctx.DocumentID, "document", "", "Document ID")
	fs.StringVar(&opctx.Scenario, "scenario", "", "Scenario")
	fs.BoolVar(&opctx.Override, "override", false, "Override enforced rules")
	fs.Var(&flags, "flag", "Set a context flag (repeatable)")
	if code := parse(fs, args); code >= 0 {
		return code
	}

	opctx.Operation = compliance.Operation(*operation)
	if !slices.Contains(compliance.Operations, opctx.Operation) {
		return a.fail(fmt.Errorf("unknown operation %q", *operation))
	}
	p := compliance.Phase(*phase)
	if p != compliance.PhasePre && p != compliance.PhasePost {
		return a.fail(fmt.Errorf("unknown phase %q", *phase))
	}
	for _, f := range flags {
		opctx.SetFlag(f, true)
	}

	registry, err := a.registry(*file)
	if err != nil {
		return a.fail(err)
	}

	outcome, err := compliance.NewEnforcer(registry, nil, a.logger).Check(ctx, p, opctx)
	if outcome != nil {
		if len(outcome.Violations) == 0 {
			n := len(registry.For(opctx.Operation, p))
			a.println(a.style.pass.UnsetWidth().Render(fmt.Sprintf("%d rules pass", n)))
		}
		a.printViolations(outcome.Violations)
	}

	switch {
	case errors.Is(err, compliance.ErrBlocked):
		return exitBlocked
	case err != nil:
		return a.fail(err)
	}
	return exitOK
}

func cmdMonitor(ctx context.Context, a *app, args []string) int {
	fs := a.flagSet("monitor", "[-duration D] [-interval D]")
	duration := fs.Duration("duration", 0, "Stop after this long (default: configured maximum)")
	interval := fs.Duration("interval", 0, "Poll interval (default: configured)")
	if code := parse(fs, args); code >= 0 {
		return code
	}

	if _, err := a.systems(); err != nil {
		return a.fail(err)
	}

	mcfg := a.cfg.Monitor
	if *duration > 0 {
		mcfg.MaxDuration = duration.String()
	}
	if *interval > 0 {
		mcfg.Interval = interval.String()
	}

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	m := monitor.New(monitor.EditorSampler{Editor: a.infra.Editor}, &mcfg, a.logger)
	a.println(a.style.muted.Render(fmt.Sprintf("monitoring every %s for up to %s; interrupt to stop",
		mcfg.IntervalDuration(), mcfg.MaxDurationValue())))

	report, err := m.Run(context.WithoutCancel(ctx), stop)
	if err != nil {
		return a.fail(err)
	}

	for _, e := range report.Events {
		line := row([]int{10, 18}, e.At.Local().Format(time.TimeOnly), string(e.Type), e.Detail)
		if e.Type == monitor.EventErrorDetected || e.Kind != "" {
			line = a.style.warn.UnsetWidth().Render(line)
		}
		a.println(line)
	}
	a.printf("%d events over %d polls (%s)\n", len(report.Events), report.Polls, report.Reason)
	return exitOK
}

func cmdViolations(ctx context.Context, a *app, args []string) int {
	fs := a.flagSet("violations", "[-verify] [filters]")
	verify := fs.Bool("verify", false, "Verify the audit hash chain instead of listing")
	rule := fs.String("rule", "", "Filter by rule ID")
	document := fs.String("document", "", "Filter by document ID")
	operation := fs.String("operation", "", "Filter by operation")
	blocked := fs.Bool("blocked", false, "Only blocking violations")
	page := fs.Int("page", 1, "Page number")
	size := fs.Int("size", 20, "Page size")
	if code := parse(fs, args); code >= 0 {
		return code
	}

	d, err := a.systems()
	if err != nil {
		return a.fail(err)
	}

	if *verify {
		report, err := d.History.VerifyChain(ctx)
		if err != nil {
			return a.fail(err)
		}
		if !report.Verified {
			fmt.Fprintln(a.stderr, a.style.fail.UnsetWidth().Render("chain broken"),
				fmt.Sprintf("at seq %d: %s", report.BrokenAt, report.Reason))
			return exitError
		}
		a.printf("%s %d violations, head %s\n",
			a.style.pass.UnsetWidth().Render("chain verified:"), report.Count, short(report.Head))
		return exitOK
	}

	var filters history.Filters
	if *rule != "" {
		filters.RuleID = rule
	}
	if *document != "" {
		filters.DocumentID = document
	}
	if *operation != "" {
		filters.Operation = operation
	}
	if *blocked {
		filters.Blocked = blocked
	}

	result, err := d.History.Violations(ctx, pagination.PageRequest{Page: *page, PageSize: *size}, filters)
	if err != nil {
		return a.fail(err)
	}

	a.println(a.style.title.Render(fmt.Sprintf("Violations (%d, page %d of %d)",
		result.Total, result.Page, result.TotalPages)))
	a.printViolations(result.Data)
	if result.HasNext() {
		a.println(a.style.muted.Render(fmt.Sprintf("next page: foreman violations -page %d", result.Page+1)))
	}
	return exitOK
}

func cmdDocuments(ctx context.Context, a *app, args []string) int {
	fs := a.flagSet("documents", "[-template ID] [-client NAME] [-status STATUS] [-page N]")
	template := fs.String("template", "", "Only documents generated from this template")
	client := fs.String("client", "", "Client name contains")
	status := fs.String("status", "", "generated or delivered")
	page := fs.Int("page", 1, "Page number")
	size := fs.Int("size", 20, "Page size")
	if code := parse(fs, args); code >= 0 {
		return code
	}

	d, err := a.systems()
	if err != nil {
		return a.fail(err)
	}

	var filters documents.Filters
	if *template != "" {
		filters.TemplateID = template
	}
	if *client != "" {
		filters.Client = client
	}
	if *status != "" {
		filters.Status = status
	}

	result, err := d.Documents.List(ctx, pagination.PageRequest{Page: *page, PageSize: *size}, filters)
	if err != nil {
		return a.fail(err)
	}

	widths := []int{14, 26, 12, 24, 10}
	rows := pagination.Map(*result, func(r documents.Record) string {
		return row(widths, r.Number, r.TemplateID, string(r.Status), r.Client, currency.Format(r.Total), r.ID.String())
	})

	a.println(a.style.title.Render(fmt.Sprintf("Documents (%d, page %d of %d)",
		rows.Total, rows.Page, rows.TotalPages)))
	if len(rows.Data) > 0 {
		a.println(a.style.label.Render(row(widths, "NUMBER", "TEMPLATE", "STATUS", "CLIENT", "TOTAL", "ID")))
	}
	for _, line := range rows.Data {
		a.println(line)
	}
	if rows.HasNext() {
		a.println(a.style.muted.Render(fmt.Sprintf("next page: foreman documents -page %d", rows.Page+1)))
	}
	return exitOK
}

func (a *app) registry(file string) (*compliance.Registry, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	c := cfg.Compliance
	if file != "" {
		c.ProtocolFile = file
	}
	return c.Load()
}

func (a *app) printRecord(ctx context.Context, rec *documents.Record) {
	a.println(a.style.title.Render(fmt.Sprintf("%s %s", rec.Kind.Title(), rec.Number)))

	field := func(name, value string) {
		if value != "" {
			a.printf("  %s %s\n", a.style.label.Width(14).Render(name), value)
		}
	}
	field("id", rec.ID.String())
	field("template", fmt.Sprintf("%s @ %s", rec.TemplateID, short(rec.TemplateRevision)))
	field("client", rec.Client)
	field("jurisdiction", rec.Jurisdiction)
	field("subtotal", currency.Format(rec.Subtotal))
	field("tax", currency.Format(rec.Tax))
	field("total", currency.Format(rec.Total))
	field("status", string(rec.Status))

	artifact := rec.ArtifactKey
	if a.infra != nil {
		if meta, err := a.infra.Storage.Find(ctx, rec.ArtifactKey); err == nil {
			artifact = fmt.Sprintf("%s (%s)", artifact, formatting.FormatBytes(meta.ContentLength, 1))
		}
	}
	field("artifact", artifact)
}

func (a *app) printValidation(r *validation.Result) {
	a.printf("%s %s\n", a.style.title.Render(fmt.Sprintf("Validation (%s)", r.Level)), a.style.status(r.OverallStatus))
	for _, c := range r.Checks {
		a.println("  " + row([]int{7, 30}, a.style.status(c.Status), c.Name, c.Message))
	}
}

func (a *app) printViolations(vs []compliance.Violation) {
	for _, v := range vs {
		a.println("  " + row([]int{7, 36}, a.style.violation(v), v.RuleID, v.Message))
	}
}

func short(digest string) string {
	digest = strings.TrimPrefix(digest, "sha256:")
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
