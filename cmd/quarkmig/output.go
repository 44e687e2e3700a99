package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/oxhq/quarkmig/core"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printFatal reports the error that ended a command. JSON mode prints the
// CLIError payload on stderr so stdout keeps only the command result.
func (a *app) printFatal(err error) {
	ce := classify(err)
	if a.jsonOut {
		fmt.Fprintln(a.errOut, ce.JSON())
		return
	}
	fmt.Fprintf(a.errOut, "%s [%s] %s\n", red("Error:"), ce.Code, ce.Error())
}

func (a *app) printReport(r *core.RunReport, showDiff bool, elapsed time.Duration) {
	for _, f := range r.Files {
		if !f.Modified && !f.Failed() {
			continue
		}
		size := ""
		if f.Modified {
			size = fmt.Sprintf("%s → %s", humanize.Bytes(uint64(f.OriginalSize)), humanize.Bytes(uint64(f.ModifiedSize)))
		}
		a.printFile(f.Path, f.Modified, f.Rules, f.Errors, size)
		if showDiff && f.Diff != "" {
			fmt.Fprint(a.out, f.Diff)
		}
	}

	verb := "modified"
	if r.DryRun {
		verb = "to modify"
	}
	fmt.Fprintf(a.out, "\n%s %s %s in %s\n",
		bold("quarkmig"),
		counts(r.FilesModified, r.FilesScanned, r.FilesFailed),
		verb,
		elapsed.Round(time.Millisecond),
	)
}

func (a *app) printFile(path string, modified bool, rules, errs []string, size string) {
	mark := green("✓")
	if len(errs) > 0 {
		mark = red("✗")
	}
	line := mark + " " + path
	if modified && len(rules) > 0 {
		line += " " + cyan(strings.Join(rules, ", "))
	}
	if size != "" {
		line += " (" + size + ")"
	}
	fmt.Fprintln(a.out, line)
	for _, e := range errs {
		fmt.Fprintf(a.out, "    %s\n", red(e))
	}
}

func counts(modified, scanned, failed int) string {
	s := fmt.Sprintf("%d/%d files", modified, scanned)
	if failed > 0 {
		s += ", " + red(fmt.Sprintf("%d failed", failed))
	}
	return s
}
