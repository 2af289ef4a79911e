package cli

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/spinql/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <libraries-dir>",
		Short: "Validate function libraries without writing output",
		Long: `Validate CUE function libraries without writing output.

Performs syntax checking, schema validation and cross-library checks
(duplicate URIs, self imports, recursive expression functions).
Faster than compile for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, libsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	validationErrors, err := validateDir(libsDir, formatter)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter)
}

// validateDir loads every library under dir and validates them together.
// A non-nil error means the directory itself could not be loaded.
func validateDir(dir string, formatter *OutputFormatter) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadLibraries(dir, LoadModeCollectAll)
	if loadResult == nil {
		if len(loadErrors) > 0 {
			return nil, loadErrors[0]
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "nothing loaded"}
	}

	if formatter != nil {
		formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)
	}

	var errs []compiler.ValidationError
	for _, err := range loadErrors {
		errs = append(errs, toValidationError(err))
	}

	for _, lib := range loadResult.Libraries {
		if formatter != nil {
			formatter.VerboseLog("Validating library: %s", lib.BaseURI)
		}
	}
	if len(loadResult.Libraries) > 0 {
		errs = append(errs, compiler.Validate(loadResult.Libraries)...)
	}

	return errs, nil
}

// toValidationError converts a load error into a validation error.
func toValidationError(err error) compiler.ValidationError {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
	}
	field, message := "load", loadErr.Message
	if prefix, rest, ok := strings.Cut(loadErr.Message, ": "); ok && strings.HasPrefix(prefix, "library.") {
		field, message = prefix, rest
	}
	return compiler.ValidationError{
		Field:   field,
		Message: message,
		Code:    loadErr.Code,
		Line:    lineOf(loadErr.Pos),
	}
}

// lineOf extracts the line number from a token.Pos.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true}
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "\u2713 All libraries valid")
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "\u2717 Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateLibrariesDir validates all libraries in a directory.
// This is a helper function for external callers.
func ValidateLibrariesDir(dir string) ([]compiler.ValidationError, error) {
	return validateDir(dir, nil)
}
