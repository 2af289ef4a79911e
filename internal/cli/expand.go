package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/spinql/internal/compiler"
	"github.com/roach88/spinql/internal/decoder"
	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/imports"
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
	"github.com/roach88/spinql/internal/stats"
)

// ExpandOptions holds flags for the expand command.
type ExpandOptions struct {
	*RootOptions
	Prefixes   map[string]string // extra prefixes for the function name and arguments
	Sequential bool              // name temporaries t1, t2, ... instead of random names

	// TempVars overrides the temporary name generator chosen by Sequential.
	TempVars decoder.TempVarGenerator
}

// ExpandResult describes one expanded or evaluated call.
type ExpandResult struct {
	Function string   `json:"function"`
	Kind     string   `json:"kind"` // "template" | "expression"
	Call     string   `json:"call"`
	Encoded  []string `json:"encoded"`

	// Template functions
	Pattern     string            `json:"pattern,omitempty"`
	Result      string            `json:"result,omitempty"`
	Bindings    map[string]string `json:"bindings,omitempty"`
	Temporaries map[string]string `json:"temporaries,omitempty"`

	// Expression functions
	Body        string `json:"body,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Value       string `json:"value,omitempty"`
	ValueError  string `json:"value_error,omitempty"`
}

// NewExpandCommand creates the expand command.
func NewExpandCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpandOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "expand <libraries-dir> <function> [args...]",
		Short: "Show what a function call turns into",
		Long: `Show what a call of a declared function turns into.

The function is named by full URI, by prefixed name or by local name when
that is unique. Arguments use term syntax: ?x is a variable, 42 an integer,
"text" a plain literal and ex:name a prefixed URI.

A template call is expanded into its instantiated graph pattern. An
expression call shows the compiled body and, when every argument is a
constant, its value. Both print the call in its sp:arguments encoding.

With --db, imports missing from the directory are read from the catalog.`,
		Example: `  spinql expand ./libraries ex:ageOf ?who
  spinql expand ./libraries math:double 21 --sequential
  spinql expand ./libraries double 21 --prefix math=http://example.org/math#`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(opts, args[0], args[1], args[2:], cmd)
		},
	}

	cmd.Flags().StringToStringVar(&opts.Prefixes, "prefix", nil, "extra prefix declarations (name=namespace)")
	cmd.Flags().BoolVar(&opts.Sequential, "sequential", false, "use sequential temporary names")

	return cmd
}

func runExpand(opts *ExpandOptions, libsDir, name string, rawArgs []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	loadResult, loadErrors := LoadLibraries(libsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputExpandError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputExpandError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	registry, err := buildRegistry(ctx, opts.RootOptions, loadResult.Libraries)
	if err != nil {
		return outputExpandError(formatter, ErrCodeCatalog, err.Error())
	}

	prefixes := mergedPrefixes(registry, opts.Prefixes)
	decl, err := resolveFunction(registry, name, prefixes)
	if err != nil {
		return outputExpandError(formatter, ErrCodeNoFunction, err.Error())
	}
	formatter.VerboseLog("Resolved %s to <%s>", name, decl.URI)

	args := make([]expr.Expr, len(rawArgs))
	for i, raw := range rawArgs {
		args[i], err = parseArgument(raw, prefixes)
		if err != nil {
			return outputExpandError(formatter, ErrCodeGeneric, fmt.Sprintf("argument %d: %v", i+1, err))
		}
	}
	// Template formals without an actual expand to temporaries.
	if len(args) > len(decl.Arguments) || (!decl.IsTemplate() && len(args) != len(decl.Arguments)) {
		return outputExpandError(formatter, string(ir.ErrCodeMalformedCall),
			fmt.Sprintf("<%s> takes %d argument(s), got %d", decl.URI, len(decl.Arguments), len(args)))
	}

	var result *ExpandResult
	if decl.IsTemplate() {
		result, err = expandTemplate(opts, decl, args, formatter)
	} else {
		result, err = evaluateExpression(registry, decl, args)
	}
	if err != nil {
		code := string(ir.CodeOf(err))
		if code == "" {
			code = ErrCodeGeneric
		}
		return outputExpandError(formatter, code, err.Error())
	}

	return outputExpandSuccess(formatter, result)
}

// buildRegistry registers libs and, with a catalog, their missing imports.
func buildRegistry(ctx context.Context, opts *RootOptions, libs []ir.Library) (*imports.Registry, error) {
	registry := imports.NewRegistry()
	for _, lib := range libs {
		if err := registry.Register(lib); err != nil {
			return nil, err
		}
	}
	if opts.DB == "" {
		return registry, nil
	}

	st, err := openCatalog(opts)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	for _, lib := range libs {
		if err := registry.LoadAll(lib, st.Loader(ctx)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// mergedPrefixes combines the prefixes of every registered library with
// extra, which wins on conflicts.
func mergedPrefixes(registry *imports.Registry, extra map[string]string) map[string]string {
	prefixes := map[string]string{}
	for _, base := range registry.BaseURIs() {
		if lib, ok := registry.Get(base); ok {
			maps.Copy(prefixes, lib.Prefixes)
		}
	}
	maps.Copy(prefixes, extra)
	return prefixes
}

// resolveFunction finds the declaration name refers to: a full URI, a
// prefixed name or a unique local name.
func resolveFunction(registry *imports.Registry, name string, prefixes map[string]string) (ir.FunctionDecl, error) {
	uri := strings.TrimSuffix(strings.TrimPrefix(name, "<"), ">")
	if decl, ok := registry.LookupFunction(uri); ok {
		return decl, nil
	}
	if expanded, ok := ir.ExpandPrefixed(name, prefixes); ok {
		if decl, ok := registry.LookupFunction(expanded); ok {
			return decl, nil
		}
	}

	var matches []ir.FunctionDecl
	for _, base := range registry.BaseURIs() {
		lib, _ := registry.Get(base)
		for _, fn := range lib.Functions {
			if localName(fn.URI) == name {
				matches = append(matches, fn)
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return ir.FunctionDecl{}, fmt.Errorf("no function named %s", name)
	default:
		uris := make([]string, len(matches))
		for i, m := range matches {
			uris[i] = "<" + m.URI + ">"
		}
		return ir.FunctionDecl{}, fmt.Errorf("%s is ambiguous: %s", name, strings.Join(uris, ", "))
	}
}

// localName returns the part of uri after its last '#' or '/'.
func localName(uri string) string {
	if i := strings.LastIndexAny(uri, "#/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// parseArgument reads ?x as a variable and anything else as a constant term.
func parseArgument(raw string, prefixes map[string]string) (expr.Expr, error) {
	item, err := queryir.ParseItem(raw, prefixes)
	if err != nil {
		return nil, err
	}
	switch {
	case item.IsVariable():
		return expr.NewVariable(item.Name), nil
	case item.IsNode():
		return expr.NewConstant(item.Node), nil
	default:
		return nil, fmt.Errorf("%s: only variables and constants can be passed", raw)
	}
}

func expandTemplate(opts *ExpandOptions, decl ir.FunctionDecl, args []expr.Expr, formatter *OutputFormatter) (*ExpandResult, error) {
	call := decoder.NewTemplateCall(decl, args...)
	encoded, err := encodeCall(call)
	if err != nil {
		return nil, err
	}

	temps := opts.TempVars
	if temps == nil {
		if opts.Sequential {
			temps = decoder.NewSequentialTempVars("t")
		} else {
			temps = decoder.UUIDTempVars{}
		}
	}

	manager := stats.NewManager(stats.WithRecording(opts.Verbose))
	exp, err := call.Expand(
		decoder.WithTempVars(temps),
		decoder.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter())),
		decoder.WithStats(manager),
	)
	if err != nil {
		return nil, err
	}
	for _, s := range manager.Statistics() {
		formatter.VerboseLog("%s %s: %s", s.Label, s.Context, s.Duration)
	}

	bindings := make(map[string]string, len(exp.Bindings))
	for name, item := range exp.Bindings {
		bindings[name] = item.String()
	}

	return &ExpandResult{
		Function:    decl.URI,
		Kind:        "template",
		Call:        call.String(),
		Encoded:     encoded,
		Pattern:     exp.Pattern.String(),
		Result:      exp.Result,
		Bindings:    bindings,
		Temporaries: exp.Temporaries,
	}, nil
}

func evaluateExpression(registry *imports.Registry, decl ir.FunctionDecl, args []expr.Expr) (*ExpandResult, error) {
	lib, ok := libraryOf(registry, decl.URI)
	if !ok {
		return nil, fmt.Errorf("no library declares <%s>", decl.URI)
	}
	body, err := compiler.CompileExpr(*decl.Expr, compiler.Scope{Prefixes: lib.Prefixes, Functions: registry})
	if err != nil {
		return nil, err
	}
	fingerprint, err := expr.Fingerprint(body)
	if err != nil {
		return nil, err
	}

	call := expr.NewFunctionCall(decl.URI, decl.Deterministic, args...)
	encoded, err := encodeCall(call)
	if err != nil {
		return nil, err
	}

	result := &ExpandResult{
		Function:    decl.URI,
		Kind:        "expression",
		Call:        call.String(),
		Encoded:     encoded,
		Body:        body.String(),
		Fingerprint: fingerprint,
	}

	if len(call.Variables()) > 0 {
		return result, nil
	}
	var libs []ir.Library
	for _, base := range registry.BaseURIs() {
		l, _ := registry.Get(base)
		libs = append(libs, l)
	}
	functions, err := compiler.BuildFunctions(libs, registry)
	if err != nil {
		return nil, err
	}
	v, err := call.Evaluate(expr.EmptySolution, expr.NewContext(expr.WithFunctions(functions)))
	if err != nil {
		result.ValueError = err.Error()
	} else {
		result.Value = ir.FormatTerm(v)
	}
	return result, nil
}

// libraryOf returns the registered library declaring uri.
func libraryOf(registry *imports.Registry, uri string) (ir.Library, bool) {
	for _, base := range registry.BaseURIs() {
		lib, ok := registry.Get(base)
		if !ok {
			continue
		}
		if _, ok := lib.Function(uri); ok {
			return lib, true
		}
	}
	return ir.Library{}, false
}

// encodeCall renders call in its sp:arguments triple form.
func encodeCall(call expr.Expr) ([]string, error) {
	triples, err := decoder.EncodeCall(call, queryir.BlankItem("call"))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(triples))
	for i, t := range triples {
		out[i] = t.String()
	}
	return out, nil
}

func outputExpandSuccess(formatter *OutputFormatter, result *ExpandResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s function <%s>\n\n", result.Kind, result.Function)
	fmt.Fprintf(w, "Call:\n  %s\n\n", result.Call)

	fmt.Fprintln(w, "Encoded:")
	for _, t := range result.Encoded {
		fmt.Fprintf(w, "  %s\n", t)
	}
	fmt.Fprintln(w)

	if result.Kind == "template" {
		fmt.Fprintf(w, "Pattern:\n  %s\n", result.Pattern)
		if result.Result != "" {
			fmt.Fprintf(w, "\nResult: ?%s\n", result.Result)
		}
		writeMapping(formatter, "Bindings", result.Bindings, "")
		writeMapping(formatter, "Temporaries", result.Temporaries, "?")
		return nil
	}

	fmt.Fprintf(w, "Body:\n  %s\n", result.Body)
	fmt.Fprintf(w, "Fingerprint: %s\n", result.Fingerprint)
	switch {
	case result.Value != "":
		fmt.Fprintf(w, "Value: %s\n", result.Value)
	case result.ValueError != "":
		fmt.Fprintf(w, "Value: error: %s\n", result.ValueError)
	}
	return nil
}

// writeMapping prints a sorted "?name -> value" table.
func writeMapping(formatter *OutputFormatter, title string, m map[string]string, valuePrefix string) {
	if len(m) == 0 {
		return
	}
	fmt.Fprintf(formatter.Writer, "\n%s:\n", title)
	for _, name := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(formatter.Writer, "  ?%s -> %s%s\n", name, valuePrefix, m[name])
	}
}

func outputExpandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
