package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/davidahmann/specgate/internal/htmlconv"
	"github.com/davidahmann/specgate/internal/lint"
	"github.com/davidahmann/specgate/internal/report"
	"github.com/davidahmann/specgate/internal/rules"
	"github.com/davidahmann/specgate/pkg/types"
)

const defaultAddr = "http://localhost:8080"

func main() {
	exitFn(run(os.Args, os.Stdout, os.Stderr))
}

var exitFn = os.Exit

var now = time.Now

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	switch args[1] {
	case "lint":
		return handleLint(args[2:], stdout, stderr)
	case "rules":
		return handleRules(args[2:], stdout, stderr)
	case "status":
		return handleStatus(args[2:], stdout, stderr)
	case "summary":
		return handleSummary(args[2:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
}

// handleLint exits 1 when the document needs mandatory fixes so it can gate
// a pipeline.
func handleLint(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("lint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	depth := fs.String("depth", string(types.DepthFull), "check depth: basic, structure or full")
	title := fs.String("title", "", "document title, overrides any title in the file")
	htmlIn := fs.Bool("html", false, "treat the file as wiki storage HTML")
	jsonOut := fs.Bool("json", false, "print the quality result as JSON")
	outDir := fs.String("out", "", "write a quality report into this directory")
	rulesPath := fs.String("rules", "", "rule table path (defaults to the built-in table)")
	noColor := fs.Bool("no-color", false, "disable coloured output")
	if err := fs.Parse(reorder(args)); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "lint requires <file>")
		fs.Usage()
		return 2
	}
	if *noColor {
		color.NoColor = true
	}

	checkDepth, ok := types.ParseCheckDepth(*depth)
	if !ok {
		fmt.Fprintf(stderr, "invalid --depth %q\n", *depth)
		return 2
	}

	compiled, err := compileRules(*rulesPath)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	path := fs.Arg(0)
	// #nosec G304 -- path is operator-provided.
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	doc := types.Document{Text: string(raw), Title: *title, URL: path}
	if *htmlIn {
		converted, err := htmlconv.Convert(doc.Text)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
		doc.Text = converted.Text
		if doc.Title == "" {
			doc.Title = converted.Title
		}
	}

	engine := lint.NewEngine(compiled)
	engine.Now = now
	result, err := engine.AnalyzeAndScore(context.Background(), doc, checkDepth)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	if *outDir != "" {
		r, err := report.Build(doc, result, now())
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
		written, err := report.Write(*outDir, r)
		if err != nil {
			fmt.Fprintln(stderr, "write report:", err)
			return 1
		}
		fmt.Fprintf(stderr, "wrote %s\n", written)
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
	} else if err := renderResult(stdout, result); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	if result.Level == types.LevelLow {
		return 1
	}
	return 0
}

func handleRules(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "lint":
		fs := flag.NewFlagSet("rules lint", flag.ContinueOnError)
		fs.SetOutput(stderr)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(stderr, "rules lint requires <rules_path>")
			fs.Usage()
			return 2
		}
		compiled, err := compileRules(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
		fmt.Fprintf(stdout, "ok rules_id=%s rules_hash=%s\n", compiled.Table.RulesID, compiled.Hash)
		return 0
	default:
		usage(stderr)
		return 2
	}
}

func handleStatus(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr, token, jsonOut := clientFlags(fs)
	if err := fs.Parse(reorder(args)); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "status requires <workflow_id>")
		fs.Usage()
		return 2
	}

	body, status, err := httpGet(http.DefaultClient, *addr+"/v1/workflows/"+fs.Arg(0), *token)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	if status != http.StatusOK {
		fmt.Fprintf(stderr, "status failed: %s\n", strings.TrimSpace(string(body)))
		return 1
	}
	if *jsonOut {
		_, _ = stdout.Write(body)
		return 0
	}

	var rec types.WorkflowRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		fmt.Fprintln(stderr, "invalid response:", err)
		return 1
	}
	renderRecord(stdout, rec)
	return 0
}

func handleSummary(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr, token, jsonOut := clientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	body, status, err := httpGet(http.DefaultClient, *addr+"/v1/workflows", *token)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	if status != http.StatusOK {
		fmt.Fprintf(stderr, "summary failed: %s\n", strings.TrimSpace(string(body)))
		return 1
	}
	if *jsonOut {
		_, _ = stdout.Write(body)
		return 0
	}

	var summary types.WorkflowSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		fmt.Fprintln(stderr, "invalid response:", err)
		return 1
	}
	if err := renderSummary(stdout, summary); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return 0
}

func clientFlags(fs *flag.FlagSet) (addr, token *string, jsonOut *bool) {
	addr = fs.String("addr", envOrDefault("SPECGATE_ADDR", defaultAddr), "specgate API address")
	token = fs.String("token", envOrDefault("SPECGATE_TOKEN", os.Getenv("SPECGATE_DEV_TOKEN")), "bearer token")
	jsonOut = fs.Bool("json", false, "print raw JSON response")
	return addr, token, jsonOut
}

func compileRules(path string) (*rules.Compiled, error) {
	loaded := rules.Default()
	if path != "" {
		var err error
		if loaded, err = rules.LoadRules(path); err != nil {
			return nil, err
		}
	}
	return rules.Compile(loaded)
}

// reorder moves positional arguments after flags so "lint doc.md --json"
// parses the same as "lint --json doc.md".
func reorder(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(a, "-") || a == "-" {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		if !strings.Contains(a, "=") && i+1 < len(args) && takesValue(a) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return append(append(flags, "--"), positional...)
}

var boolFlags = map[string]bool{"html": true, "json": true, "no-color": true}

func takesValue(flagArg string) bool {
	return !boolFlags[strings.TrimLeft(flagArg, "-")]
}

func httpGet(client *http.Client, url string, token string) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func envOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func usage(w io.Writer) {
	fmt.Fprint(w, `specgate CLI

Usage:
  specgate lint <file> [--depth basic|structure|full] [--title TITLE] [--html] [--json] [--out DIR] [--rules PATH]
  specgate rules lint <rules_path>
  specgate status <workflow_id> [--addr URL] [--token TOKEN] [--json]
  specgate summary [--addr URL] [--token TOKEN] [--json]
`)
}
