package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/JaimeStill/foreman/internal/api"
	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/internal/config"
	"github.com/JaimeStill/foreman/internal/infrastructure"
)

const envForemanHome = "FOREMAN_HOME"

const (
	exitOK      = 0
	exitError   = 1
	exitBlocked = 2
)

type command struct {
	run func(ctx context.Context, a *app, args []string) int
}

var commands = map[string]command{
	"templates":  {cmdTemplates},
	"generate":   {cmdGenerate},
	"validate":   {cmdValidate},
	"preview":    {cmdPreview},
	"protocols":  {cmdProtocols},
	"check":      {cmdCheck},
	"monitor":    {cmdMonitor},
	"documents":  {cmdDocuments},
	"violations": {cmdViolations},
}

// app carries global flags and lazily built systems for one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	style  styles

	configFile    string
	home          string
	templatesDir  string
	editorBackend string

	cfg    *config.Config
	logger *slog.Logger
	infra  *infrastructure.Infrastructure
	domain *api.Domain
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, style: newStyles()}

	fs := flag.NewFlagSet("foreman", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }
	fs.StringVar(&a.configFile, "config", "", "Config file")
	fs.StringVar(&a.home, "home", "", "Data directory")
	fs.StringVar(&a.templatesDir, "templates", "", "Template directory override")
	fs.StringVar(&a.editorBackend, "editor", "", "Editor backend override")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	name := fs.Arg(0)
	if name == "" || name == "help" {
		printUsage(stdout)
		return exitOK
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		printUsage(stderr)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.close()

	return cmd.run(ctx, a, fs.Args()[1:])
}

// flagSet creates a subcommand flag set that reports to stderr.
func (a *app) flagSet(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: foreman %s %s\n\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// parse returns the exit code for a flag parse failure, or -1 to continue.
func parse(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}
	return -1
}

func (a *app) homeDir() (string, error) {
	if a.home != "" {
		return a.home, nil
	}
	if env := os.Getenv(envForemanHome); env != "" {
		return env, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(dir, ".foreman"), nil
}

// loadConfig loads the configuration once. The CLI defaults to an embedded
// SQLite database and local artifact storage under the home directory and
// logs at warn so command output stays readable.
func (a *app) loadConfig() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	home, err := a.homeDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return nil, fmt.Errorf("create home %s: %w", home, err)
	}

	path := a.configFile
	if path == "" {
		path = filepath.Join(home, config.BaseConfigFile)
	}

	base := config.Embedded(home)
	base.Logging.Level = "warn"
	base.Templates.Dir = a.templatesDir
	base.Editor.Backend = a.editorBackend

	cfg, err := config.LoadFile(path, base)
	if err != nil {
		return nil, err
	}
	if a.templatesDir != "" {
		cfg.Templates.Dir = a.templatesDir
	}
	if a.editorBackend != "" {
		cfg.Editor.Backend = a.editorBackend
	}

	a.cfg = cfg
	a.logger = cfg.Logging.NewLogger(a.stderr)
	return cfg, nil
}

// systems builds infrastructure and the domain on first use, applying
// migrations to the configured database.
func (a *app) systems() (*api.Domain, error) {
	if a.domain != nil {
		return a.domain, nil
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	infra, err := infrastructure.New(cfg, a.stderr)
	if err != nil {
		return nil, err
	}
	a.infra = infra

	if err := infra.Migrate(); err != nil {
		return nil, err
	}

	domain, err := api.NewDomain(api.NewRuntime(cfg, infra))
	if err != nil {
		return nil, err
	}
	a.domain = domain
	return domain, nil
}

func (a *app) close() {
	if a.infra != nil {
		a.infra.Close()
	}
}

// fail reports err and returns the error exit code.
func (a *app) fail(err error) int {
	fmt.Fprintln(a.stderr, a.style.fail.UnsetWidth().Render("error:"), err)
	return exitError
}

func (a *app) println(args ...any) {
	fmt.Fprintln(a.stdout, args...)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

// bindingFlag collects repeated -set name=value pairs.
type bindingFlag assembly.Binding

func (b bindingFlag) String() string {
	pairs := make([]string, 0, len(b))
	for k, v := range b {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(pairs, ",")
}

func (b bindingFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	b[strings.TrimSpace(name)] = strings.TrimSpace(value)
	return nil
}

// listFlag collects a repeated string flag.
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(s string) error {
	*l = append(*l, s)
	return nil
}
