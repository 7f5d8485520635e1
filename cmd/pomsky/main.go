package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Kyza/pomsky/diag"
	"github.com/Kyza/pomsky/flavor"
	"github.com/Kyza/pomsky/pkg/pomsky"
)

// Exit codes: 1 for compilation errors, 2 for invalid invocation, 3 for
// I/O failures.
const (
	exitCompile = 1
	exitUsage   = 2
	exitIO      = 3
)

// maxRenderedDiagnostics caps human-readable diagnostic output; the JSON
// mode always carries all of them.
const maxRenderedDiagnostics = 8

func main() {
	var (
		flavorName = flag.String("flavor", "pcre", "target flavor: pcre, python, java, js, dotnet, ruby, rust")
		path       = flag.String("path", "", "read the input from a file instead of the argument or stdin")
		jsonOut    = flag.Bool("json", false, "print the result as JSON")
		noNewline  = flag.Bool("n", false, "don't print a trailing newline after the output")
		verbose    = flag.Bool("verbose", false, "print compilation stages to stderr")
		goOut      = flag.String("go-out", "", "write a generated Go source file to this path instead of printing the regex")
		goName     = flag.String("go-name", "Pattern", "identifier prefix for -go-out")
		goPackage  = flag.String("go-package", "main", "package name for -go-out")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: pomsky [options] [input]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	fl, ok := flavor.FromString(*flavorName)
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown flavor %q\n", *flavorName)
		os.Exit(exitUsage)
	}

	src, err := readInput(*path, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitIO)
	}

	if *goOut != "" {
		err := pomsky.GenerateGo(pomsky.GoOptions{
			Source:     src,
			Name:       *goName,
			OutputFile: *goOut,
			Package:    *goPackage,
			Verbose:    *verbose,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(exitCompile)
		}
		return
	}

	out, diags := pomsky.CompileString(src, pomsky.Options{
		Flavor:  fl,
		Verbose: *verbose,
	})

	if *jsonOut {
		printJSON(src, out, diags)
	} else {
		printDiagnostics(src, diags)
	}

	if diag.HasErrors(diags) {
		os.Exit(exitCompile)
	}
	if !*jsonOut {
		if *noNewline {
			fmt.Print(out)
		} else {
			fmt.Println(out)
		}
	}
}

func readInput(path string, args []string) (string, error) {
	switch {
	case path != "" && len(args) > 0:
		return "", fmt.Errorf("cannot combine -path with an input argument")
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	case len(args) > 1:
		return "", fmt.Errorf("expected at most one input argument")
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

func printDiagnostics(src string, diags []diag.Diagnostic) {
	shown := diags
	omitted := 0
	if len(shown) > maxRenderedDiagnostics {
		omitted = len(shown) - maxRenderedDiagnostics
		shown = shown[:maxRenderedDiagnostics]
	}
	for _, d := range shown {
		line, col := lineCol(src, d.Span.Start)
		fmt.Fprintf(os.Stderr, "%s %s at %d:%d: %s\n", d.Severity, d.Code, line, col, d.Message)
		if d.Help != "" {
			fmt.Fprintf(os.Stderr, "  help: %s\n", d.Help)
		}
	}
	if omitted > 0 {
		fmt.Fprintf(os.Stderr, "note: some errors were omitted (%d not shown)\n", omitted)
	}
}

type jsonSpan struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

type jsonDiagnostic struct {
	Severity string   `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Help     string   `json:"help,omitempty"`
	Span     jsonSpan `json:"span"`
}

type jsonResult struct {
	Success     bool             `json:"success"`
	Output      *string          `json:"output"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
}

func printJSON(src, out string, diags []diag.Diagnostic) {
	res := jsonResult{
		Success:     !diag.HasErrors(diags),
		Diagnostics: make([]jsonDiagnostic, 0, len(diags)),
	}
	if res.Success {
		res.Output = &out
	}
	for _, d := range diags {
		line, col := lineCol(src, d.Span.Start)
		res.Diagnostics = append(res.Diagnostics, jsonDiagnostic{
			Severity: d.Severity.String(),
			Code:     d.Code.String(),
			Message:  d.Message,
			Help:     d.Help,
			Span: jsonSpan{
				Start:  d.Span.Start,
				End:    d.Span.End,
				Line:   line,
				Column: col,
			},
		})
	}
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitIO)
	}
}

// lineCol converts a byte offset into a 1-based line and column. The
// column counts bytes, matching how editors address plain text.
func lineCol(src string, offset int) (int, int) {
	if offset > len(src) {
		offset = len(src)
	}
	before := src[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndex(before, "\n")
	return line, col
}
