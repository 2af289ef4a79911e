package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/spinql/internal/compiler"
	"github.com/roach88/spinql/internal/ir"
)

// LoadMode controls how errors are handled during library loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading libraries from a directory.
type LoadResult struct {
	Libraries []ir.Library
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during library loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadLibraries loads and compiles the CUE function libraries in a directory.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
//
// A nil result means the directory itself could not be loaded.
func LoadLibraries(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("libraries directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing libraries directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		Libraries: []ir.Library{},
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	libsVal := value.LookupPath(cue.ParsePath("library"))
	if libsVal.Exists() {
		iter, iterErr := libsVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating libraries: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				lib, compileErr := compiler.CompileLibrary(iter.Value())
				if compileErr != nil {
					errs = append(errs, convertCompileError(compileErr, "library."+iter.Selector().Unquoted()))
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.Libraries = append(result.Libraries, *lib)
			}
		}
	}

	if len(result.Libraries) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no libraries found"})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeCatalog     = "E008" // Catalog open/read/write error
	ErrCodeNoFunction  = "E009" // Function not declared

	// Library compile errors share the validation codes.
	ErrCodeLibraryBase     = compiler.ErrLibraryBaseEmpty
	ErrCodeLibraryFunction = compiler.ErrLibraryNoFunction
	ErrCodeFunctionShape   = compiler.ErrFunctionShape
	ErrCodeInvalidPattern  = compiler.ErrInvalidPattern
	ErrCodeInvalidExpr     = compiler.ErrInvalidExpression
)

// MapFieldToErrorCode maps a compiler error field to an error code.
//
// Function fields look like "function.<name>.<part>"; only the part
// decides the code.
func MapFieldToErrorCode(field string) string {
	if rest, ok := strings.CutPrefix(field, "function."); ok {
		if i := strings.Index(rest, "."); i >= 0 {
			field = "function." + rest[i+1:]
		} else {
			field = "function"
		}
	}
	switch {
	case field == "base":
		return ErrCodeLibraryBase
	case field == "function":
		return ErrCodeLibraryFunction
	case field == "function.body":
		return ErrCodeFunctionShape
	case strings.HasPrefix(field, "function.body.patterns"):
		return ErrCodeInvalidPattern
	case field == "function.expr", strings.HasPrefix(field, "expr"):
		return ErrCodeInvalidExpr
	default:
		return ErrCodeGeneric
	}
}
