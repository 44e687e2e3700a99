package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/oxhq/quarkmig/db"
	"github.com/oxhq/quarkmig/internal/config"
	"github.com/oxhq/quarkmig/models"
)

type runView struct {
	ID            string     `json:"id"`
	Root          string     `json:"root"`
	DryRun        bool       `json:"dry_run"`
	Rules         []string   `json:"rules"`
	FilesScanned  int        `json:"files_scanned"`
	FilesModified int        `json:"files_modified"`
	FilesFailed   int        `json:"files_failed"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
	Files         []fileView `json:"files,omitempty"`
}

type fileView struct {
	Path     string   `json:"path"`
	Modified bool     `json:"modified"`
	Rules    []string `json:"rules,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Diff     string   `json:"diff,omitempty"`
}

func viewOf(r models.Run) runView {
	v := runView{
		ID:            r.ID,
		Root:          r.Root,
		DryRun:        r.DryRun,
		Rules:         db.DecodeList(r.Rules),
		FilesScanned:  r.FilesScanned,
		FilesModified: r.FilesModified,
		FilesFailed:   r.FilesFailed,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
	}
	for _, f := range r.Files {
		v.Files = append(v.Files, fileView{
			Path:     f.Path,
			Modified: f.Modified,
			Rules:    db.DecodeList(f.Rules),
			Errors:   db.DecodeList(f.Errors),
			Diff:     f.Diff,
		})
	}
	return v
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or show one run in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			conn, err := db.Connect(cfg.History.DSN, cfg.History.Debug)
			if err != nil {
				return err
			}
			defer db.Close(conn)

			if len(args) == 1 {
				run, err := db.Run(cmd.Context(), conn, args[0])
				if err != nil {
					return err
				}
				return a.showRun(viewOf(*run))
			}

			runs, err := db.History(cmd.Context(), conn, limit)
			if err != nil {
				return err
			}
			views := make([]runView, 0, len(runs))
			for _, r := range runs {
				views = append(views, viewOf(r))
			}
			return a.listRuns(views)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", db.DefaultLimit, "number of runs to list")
	return cmd
}

func (a *app) listRuns(runs []runView) error {
	if a.jsonOut {
		return a.printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.out, "no runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, r := range runs {
		mode := ""
		if r.DryRun {
			mode = yellow("dry run")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			cyan(r.ID),
			humanize.Time(r.StartedAt),
			r.Root,
			counts(r.FilesModified, r.FilesScanned, r.FilesFailed),
			mode,
		)
	}
	return tw.Flush()
}

func (a *app) showRun(r runView) error {
	if a.jsonOut {
		return a.printJSON(r)
	}
	fmt.Fprintf(a.out, "%s %s\n", bold("run"), r.ID)
	fmt.Fprintf(a.out, "root:     %s\n", r.Root)
	fmt.Fprintf(a.out, "started:  %s (%s)\n", r.StartedAt.Format(time.RFC3339), humanize.Time(r.StartedAt))
	fmt.Fprintf(a.out, "rules:    %v\n", r.Rules)
	fmt.Fprintf(a.out, "files:    %s\n", counts(r.FilesModified, r.FilesScanned, r.FilesFailed))
	for _, f := range r.Files {
		a.printFile(f.Path, f.Modified, f.Rules, f.Errors, "")
	}
	return nil
}
