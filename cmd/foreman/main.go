package main

import (
	"fmt"
	"io"
	"os"
)

const usage = `foreman - estimate generation with validation and compliance

Usage:
  foreman [global flags] <command> [flags] [args]

Commands:
  templates    List discovered templates, or suggest close matches for an ID
  generate     Generate, persist and validate a document from a template
  validate     Validate a stored document at a given level
  preview      Render a document as markdown in the terminal
  protocols    List the compliance rules in effect
  check        Evaluate compliance rules for an operation without running it
  monitor      Watch the editor for dialogs and document changes
  documents    List stored documents
  violations   List recorded violations or verify the audit chain

Global Flags:
  -config FILE      Config file (default: $FOREMAN_HOME/config.toml)
  -home DIR         Data directory for the database and artifacts
                    (default: $FOREMAN_HOME or ~/.foreman)
  -templates DIR    Template directory override
  -editor BACKEND   Editor backend override (chrome or none)

Exit Codes:
  0  success
  1  error or failed validation
  2  blocked by a compliance rule

Examples:
  foreman templates
  foreman generate -template sprinkler_zone_turf -set zones=2 -set trench_feet=180 -jurisdiction TX
  foreman validate -level comprehensive 0b6f0c1e-...
  foreman preview -template paver_patio -set length_ft=16 -set width_ft=12
  foreman check -operation document_delivery -phase pre -template paver_patio
  foreman documents -template sprinkler_zone_turf -client alvarez
  foreman violations -verify

Environment Variables:
  FOREMAN_HOME        Data directory
  FOREMAN_LOG_LEVEL   Log level (default for the CLI: warn)
  GLAMOUR_STYLE       Markdown style for preview
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, usage)
}
