package extract_test

import (
	"fmt"
	"strings"
	"testing"

	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/synth"
	"github.com/cockroachdb/datadriven"
)

func TestPipeline(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "extract":
				return runPlan(t, d)
			default:
				t.Fatalf("unknown command: %s", d.Cmd)
				return ""
			}
		})
	})
}

func runPlan(t *testing.T, d *datadriven.TestData) string {
	var line, col int
	d.ScanArgs(t, "line", &line)
	d.ScanArgs(t, "col", &col)

	var ex extract.Extractor
	plan, err := ex.Plan(d.Input, selectAt(line, col))
	if err != nil {
		return "error: " + extract.Message(err) + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "range: %s\n", plan.Range)
	fmt.Fprintf(&b, "text: %q\n", plan.Source)
	for _, e := range plan.Evals {
		fmt.Fprintf(&b, "eval: %q at %d:%d\n", e.Content, e.Line, e.Column)
	}
	for _, id := range plan.Identifiers {
		fmt.Fprintf(&b, "ident: %s at %d:%d\n", id.Name, id.Line, id.Column)
	}
	fmt.Fprintf(&b, "invocation: %s\n", synth.BuildInvocation(extract.DefaultComponentName, extract.Names(plan.Identifiers)))
	return b.String()
}
