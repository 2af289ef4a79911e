package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/spinql/internal/compiler"
	"github.com/roach88/spinql/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled libraries.
type CompilationResult struct {
	Libraries []ir.Library `json:"libraries"`
	Catalog   *CatalogSync `json:"catalog,omitempty"`
}

// CatalogSync reports which libraries were written to the catalog.
type CatalogSync struct {
	Path      string   `json:"path"`
	Written   []string `json:"written"`
	Unchanged []string `json:"unchanged"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	LibraryCount    int
	FunctionCount   int
	TemplateCount   int
	ExpressionCount int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <libraries-dir>",
		Short: "Compile CUE function libraries to canonical IR",
		Long: `Compile CUE function libraries to canonical IR format.

The compiler parses CUE files, validates them against the IR schema,
and outputs JSON for use by the engine. With --db the libraries are
also written to the catalog; unchanged libraries are left as they are.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, libsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	// Use shared loader with collect-all mode
	loadResult, loadErrors := LoadLibraries(libsDir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, libsDir)
	for _, lib := range loadResult.Libraries {
		formatter.VerboseLog("Compiling library: %s (%d function(s))", lib.BaseURI, len(lib.Functions))
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	// Schema validation catches errors that span declarations, such as
	// duplicate URIs and recursive expression functions.
	if verrs := compiler.Validate(loadResult.Libraries); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = &LoadError{Code: v.Code, Message: fmt.Sprintf("%s: %s", v.Field, v.Message)}
		}
		return outputCompileErrors(formatter, errs)
	}

	result := &CompilationResult{Libraries: loadResult.Libraries}
	stats := calculateStats(result)

	if opts.DB != "" {
		sync, err := syncCatalog(cmd.Context(), opts.RootOptions, result.Libraries)
		if err != nil {
			return outputCompileError(formatter, ErrCodeCatalog, err.Error(), nil)
		}
		result.Catalog = sync
	}

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, stats, opts.Output)
}

// syncCatalog writes libs to the catalog named by --db.
func syncCatalog(ctx context.Context, opts *RootOptions, libs []ir.Library) (*CatalogSync, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openCatalog(opts)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	sync := &CatalogSync{Path: opts.DB, Written: []string{}, Unchanged: []string{}}
	for _, lib := range libs {
		_, inserted, err := st.WriteLibrary(ctx, lib)
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", lib.BaseURI, err)
		}
		if inserted {
			sync.Written = append(sync.Written, lib.BaseURI)
		} else {
			sync.Unchanged = append(sync.Unchanged, lib.BaseURI)
		}
	}
	return sync, nil
}

// calculateStats computes summary statistics from compilation result.
func calculateStats(result *CompilationResult) CompilationStats {
	stats := CompilationStats{LibraryCount: len(result.Libraries)}

	for _, lib := range result.Libraries {
		stats.FunctionCount += len(lib.Functions)
		for _, fn := range lib.Functions {
			if fn.IsTemplate() {
				stats.TemplateCount++
			} else {
				stats.ExpressionCount++
			}
		}
	}

	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "\u2713 Compiled %d library(ies), %d function(s)\n\n", stats.LibraryCount, stats.FunctionCount)

	fmt.Fprintln(w, "Libraries:")
	for _, lib := range result.Libraries {
		templates := 0
		for _, fn := range lib.Functions {
			if fn.IsTemplate() {
				templates++
			}
		}
		fmt.Fprintf(w, "  %s: %d template(s), %d expression(s)\n",
			lib.BaseURI, templates, len(lib.Functions)-templates)
	}
	fmt.Fprintln(w)

	if result.Catalog != nil {
		fmt.Fprintf(w, "Catalog %s: %d written, %d unchanged\n",
			result.Catalog.Path, len(result.Catalog.Written), len(result.Catalog.Unchanged))
	}
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote IR to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "\u2717 Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeIRToFile writes the compilation result to a file as indented JSON.
func writeIRToFile(result *CompilationResult, filename string) error {
	// Canonical JSON without indentation is used only for hashing.
	data, err := json.MarshalIndent(result.Libraries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
