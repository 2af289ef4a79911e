package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/spinql/internal/ir"
)

// CompileLibraries compiles every library declared under the "library"
// struct of v, in declaration order.
//
// Returns an empty slice (not nil) if v declares no library.
func CompileLibraries(v cue.Value) ([]ir.Library, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	libs := []ir.Library{}

	libVal := v.LookupPath(cue.ParsePath("library"))
	if !libVal.Exists() {
		return libs, nil
	}
	iter, err := libVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		lib, err := CompileLibrary(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("library.%s: %w", iter.Selector().Unquoted(), err)
		}
		libs = append(libs, *lib)
	}
	return libs, nil
}

// LoadFile reads the CUE file at path and compiles its libraries.
func LoadFile(path string) ([]ir.Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read library file: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	return CompileLibraries(v)
}
