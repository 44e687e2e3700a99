// Command quarkmig migrates Spring Boot projects to Quarkus.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oxhq/quarkmig/internal/recipe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries the global flags and output streams shared by the commands.
type app struct {
	out        io.Writer
	errOut     io.Writer
	configPath string
	jsonOut    bool
}

// execute runs the command line and returns the process exit code: 0 on
// success, 2 when the run finished with failed files, 1 otherwise.
func execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	a := &app{out: out, errOut: errOut}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	if err := root.ExecuteContext(ctx); err != nil {
		a.printFatal(err)
		if errors.Is(err, recipe.ErrFilesFailed) {
			return 2
		}
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quarkmig",
		Short:         "Spring to Quarkus source migration",
		Long:          "quarkmig rewrites the Java sources and Maven build of a Spring Boot project into their Quarkus equivalents.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "configuration file (default ./quarkmig.yaml)")
	root.PersistentFlags().BoolVarP(&a.jsonOut, "json", "j", false, "print results as JSON")

	root.AddCommand(a.runCmd(), a.rulesCmd(), a.historyCmd(), a.versionCmd())
	return root
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the quarkmig version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.jsonOut {
				return a.printJSON(map[string]string{"version": version})
			}
			_, err := io.WriteString(a.out, "quarkmig "+version+"\n")
			return err
		},
	}
}
