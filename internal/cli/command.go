package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/idelchi/largest/internal/dirstat"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// DefaultTopN is the default number of distinct sizes to display.
const DefaultTopN = 10

//nolint:gochecknoglobals // Config constant
var (
	allowedOutputs = []string{"table", "json"}
	allowedShells  = []string{"bash", "zsh", "fish", "powershell"}
)

// Execute runs the CLI with the process arguments.
func (c CLI) Execute() error {
	return c.Command().ExecuteContext(context.Background())
}

// Command builds the root command.
func (c CLI) Command() *cobra.Command {
	var options dirstat.Options

	cmd := &cobra.Command{
		Use:   "largest [flags] DIR...",
		Short: "Find the largest files in directory trees",
		Long: heredoc.Doc(`
			largest walks one or more directories and reports the files with the
			largest sizes found.

			Files are grouped by their exact size: the N largest distinct sizes are
			shown, and every file of a shown size is listed under it.

			Symbolic links are never followed. Errors reading individual entries are
			reported on stderr and do not stop the scan; the number of such errors
			becomes the exit status.
		`),
		Example: heredoc.Doc(`
			largest -n 20 ~/Downloads
			largest -X -G --skip-hidden / /home
			largest --generate-completion zsh > _largest
		`),
		SilenceUsage:      true,
		SilenceErrors:     true,
		ValidArgsFunction: completeDirs,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, options, args)
		},
	}

	addFlags(cmd.Flags(), &options)

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	_ = cmd.RegisterFlagCompletionFunc("generate-completion", fixedCompletion(allowedShells))
	_ = cmd.RegisterFlagCompletionFunc("output", fixedCompletion(allowedOutputs))

	return cmd
}

func addFlags(flags *pflag.FlagSet, options *dirstat.Options) {
	flags.IntVarP(&options.TopN, "num", "n", DefaultTopN, "Number of largest distinct sizes to display")
	flags.BoolVarP(&options.SameFilesystem, "xdev", "X", false, "Don't descend into other file systems")
	flags.BoolVarP(&options.Decimal, "decimal", "G", false, "Show sizes in powers of ten")
	flags.BoolVar(&options.SkipHidden, "skip-hidden", false, "Skip hidden files and directories")
	flags.StringVar(&options.Generator, "generate-completion", "",
		fmt.Sprintf("Print a completion script for one of %v and exit", allowedShells))
	flags.StringVarP(&options.Output, "output", "o", "table", "Output format: json or table")
	flags.BoolVar(&options.Debug, "debug", false, "Enable debug output")
	flags.BoolVarP(&options.Version, "version", "v", false, "Show version and exit")

	flags.SortFlags = false
}

func (c CLI) run(cmd *cobra.Command, options dirstat.Options, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if options.Version {
		fmt.Fprintln(stdout, c.version)

		return nil
	}

	if options.Generator != "" {
		fmt.Fprintf(stderr, "Generating completion file for %s...\n", options.Generator)

		if err := generateCompletion(cmd.Root(), options.Generator, stdout); err != nil {
			return usageError(err)
		}

		return nil
	}

	if len(args) == 0 {
		_ = cmd.Help()

		return usageError(errors.New("at least one directory is required"))
	}

	if !slices.Contains(allowedOutputs, options.Output) {
		return usageError(fmt.Errorf("invalid output format %q: must be one of %v", options.Output, allowedOutputs))
	}

	if options.TopN < 0 {
		return usageError(errors.New("number of files cannot be negative"))
	}

	options.Paths = args
	options.Log = stderr

	return logic(cmd.Context(), options, stdout, stderr)
}

func generateCompletion(root *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	default:
		return fmt.Errorf("unsupported shell %q: must be one of %v", shell, allowedShells)
	}
}

func completeDirs(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveFilterDirs
}

func fixedCompletion(values []string) cobra.CompletionFunc {
	return func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}
