package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/spinql/internal/store"
)

// CatalogStats summarizes recorded statistics. Durations are nanoseconds.
type CatalogStats struct {
	RunID   string           `json:"run_id,omitempty"`
	Entries []CatalogStat    `json:"entries,omitempty"`
	Totals  map[string]int64 `json:"totals,omitempty"`
}

// CatalogStat is one recorded statistic.
type CatalogStat struct {
	Label     string `json:"label"`
	Context   string `json:"context"`
	Duration  int64  `json:"duration_ns"`
	StartedAt string `json:"started_at"`
}

// NewCatalogCommand creates the catalog command and its subcommands.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the library catalog",
		Long: `Inspect and maintain the SQLite library catalog named by --db.

Libraries are written to the catalog by "spinql compile --db" and
"spinql test --db"; the test command also records run statistics.`,
	}

	cmd.AddCommand(
		newCatalogSubcommand(rootOpts, "list", "List stored libraries", cobra.NoArgs, runCatalogList),
		newCatalogSubcommand(rootOpts, "functions", "List the function index", cobra.NoArgs, runCatalogFunctions),
		newCatalogSubcommand(rootOpts, "find <function-uri>", "Show which library declares a function", cobra.ExactArgs(1), runCatalogFind),
		newCatalogSubcommand(rootOpts, "show <base-uri>", "Print a stored library", cobra.ExactArgs(1), runCatalogShow),
		newCatalogSubcommand(rootOpts, "rm <base-uri>", "Remove a library", cobra.ExactArgs(1), runCatalogRemove),
		newCatalogSubcommand(rootOpts, "stats [run-id]", "Show recorded statistics", cobra.MaximumNArgs(1), runCatalogStats),
	)

	return cmd
}

type catalogRunner func(ctx context.Context, st *store.Store, formatter *OutputFormatter, args []string) error

func newCatalogSubcommand(rootOpts *RootOptions, use, short string, args cobra.PositionalArgs, run catalogRunner) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			st, err := openCatalog(rootOpts)
			if err != nil {
				_ = formatter.Error(ErrCodeCatalog, err.Error(), nil)
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			formatter.VerboseLog("Using catalog %s", rootOpts.DB)
			return run(ctx, st, formatter, args)
		},
	}
}

func runCatalogList(ctx context.Context, st *store.Store, formatter *OutputFormatter, _ []string) error {
	libs, err := st.ListLibraries(ctx)
	if err != nil {
		return catalogError(formatter, err)
	}
	if formatter.Format == "json" {
		return formatter.Success(libs)
	}

	w := formatter.Writer
	if len(libs) == 0 {
		fmt.Fprintln(w, "No libraries in catalog.")
		return nil
	}
	stale, err := st.StaleLibraries(ctx)
	if err != nil {
		return catalogError(formatter, err)
	}
	isStale := make(map[string]bool, len(stale))
	for _, base := range stale {
		isStale[base] = true
	}
	for _, lib := range libs {
		marker := ""
		if isStale[lib.BaseURI] {
			marker = " (stale)"
		}
		fmt.Fprintf(w, "%4d  %s  %d function(s)  %s%s\n", lib.Seq, lib.BaseURI, lib.Functions, shortHash(lib.Hash), marker)
	}
	return nil
}

func runCatalogFunctions(ctx context.Context, st *store.Store, formatter *OutputFormatter, _ []string) error {
	fns, err := st.ListFunctions(ctx)
	if err != nil {
		return catalogError(formatter, err)
	}
	if formatter.Format == "json" {
		return formatter.Success(fns)
	}

	w := formatter.Writer
	if len(fns) == 0 {
		fmt.Fprintln(w, "No functions in catalog.")
		return nil
	}
	for _, fn := range fns {
		fmt.Fprintf(w, "%-10s %d  <%s>\n", fn.Kind, fn.Arity, fn.URI)
	}
	return nil
}

func runCatalogFind(ctx context.Context, st *store.Store, formatter *OutputFormatter, args []string) error {
	fn, ok, err := st.FindFunction(ctx, args[0])
	if err != nil {
		return catalogError(formatter, err)
	}
	if !ok {
		msg := fmt.Sprintf("no stored library declares <%s>", args[0])
		_ = formatter.Error(ErrCodeNoFunction, msg, nil)
		return NewExitError(ExitFailure, msg)
	}
	if formatter.Format == "json" {
		return formatter.Success(fn)
	}
	fmt.Fprintf(formatter.Writer, "<%s>\n  library: <%s>\n  kind: %s\n  arity: %d\n", fn.URI, fn.BaseURI, fn.Kind, fn.Arity)
	return nil
}

func runCatalogShow(ctx context.Context, st *store.Store, formatter *OutputFormatter, args []string) error {
	lib, err := st.ReadLibrary(ctx, args[0])
	if err != nil {
		return catalogError(formatter, err)
	}
	if formatter.Format == "json" {
		return formatter.Success(lib)
	}
	return formatter.JSON(lib)
}

func runCatalogRemove(ctx context.Context, st *store.Store, formatter *OutputFormatter, args []string) error {
	removed, err := st.DeleteLibrary(ctx, args[0])
	if err != nil {
		return catalogError(formatter, err)
	}
	if !removed {
		msg := fmt.Sprintf("library <%s> not found", args[0])
		_ = formatter.Error(ErrCodeCatalog, msg, nil)
		return NewExitError(ExitFailure, msg)
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"removed": args[0]})
	}
	fmt.Fprintf(formatter.Writer, "\u2713 Removed <%s>\n", args[0])
	return nil
}

func runCatalogStats(ctx context.Context, st *store.Store, formatter *OutputFormatter, args []string) error {
	if len(args) == 0 {
		return catalogTotals(ctx, st, formatter)
	}

	values, err := st.ReadStatistics(ctx, args[0])
	if err != nil {
		return catalogError(formatter, err)
	}
	result := CatalogStats{RunID: args[0], Entries: make([]CatalogStat, len(values))}
	for i, v := range values {
		result.Entries[i] = CatalogStat{
			Label:     v.Label,
			Context:   v.Context,
			Duration:  v.Duration.Nanoseconds(),
			StartedAt: v.StartedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(values) == 0 {
		fmt.Fprintf(w, "No statistics recorded for %s.\n", args[0])
		return nil
	}
	for _, v := range values {
		fmt.Fprintf(w, "%-20s %-12s %s\n", v.Label, v.Duration, v.Context)
	}
	return nil
}

func catalogTotals(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	totals, err := st.TotalDurations(ctx)
	if err != nil {
		return catalogError(formatter, err)
	}
	result := CatalogStats{Totals: make(map[string]int64, len(totals))}
	for label, d := range totals {
		result.Totals[label] = d.Nanoseconds()
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(totals) == 0 {
		fmt.Fprintln(w, "No statistics recorded.")
		return nil
	}
	for _, label := range slices.Sorted(maps.Keys(totals)) {
		fmt.Fprintf(w, "%-20s %s\n", label, totals[label])
	}
	return nil
}

// shortHash trims a hex digest for display.
func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

func catalogError(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(ErrCodeCatalog, err.Error(), nil)
	return WrapExitError(ExitCommandError, ErrCodeCatalog, err)
}
