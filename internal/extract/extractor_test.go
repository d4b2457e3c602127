package extract_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/position"
	"bennypowers.dev/vuextract/internal/vue/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appURI = "file:///src/App.vue"

const counterDoc = "<template><div><span>{{ count }}</span></div></template><script>let count = 0;</script>"

func selectAt(line, character int) extract.Selection {
	p := position.Position{Line: line, Character: character}
	return extract.Selection{Start: p, End: p}
}

type harness struct {
	docs   *memoryDocs
	rec    *recorder
	picker *fixedPicker
	oracle *slowOracle
	ex     *extract.Extractor
}

func newHarness(doc, path string, types map[string]string, order ...string) *harness {
	docs := newMemoryDocs(appURI, doc)
	rec := &recorder{docs: docs}
	picker := &fixedPicker{path: path}
	rank := map[string]int{}
	for i, name := range order {
		rank[name] = i
	}
	oracle := &slowOracle{types: types, order: rank}
	return &harness{
		docs:   docs,
		rec:    rec,
		picker: picker,
		oracle: oracle,
		ex: &extract.Extractor{
			Documents: docs,
			Types:     oracle,
			Edits:     rec,
			Files:     rec,
			Paths:     picker,
			Notifier:  rec,
		},
	}
}

func TestExtractEndToEnd(t *testing.T) {
	h := newHarness(counterDoc, "/src/Counter.vue", map[string]string{"count": "number"}, "count")

	res, err := h.ex.Run(context.Background(), extract.Request{URI: appURI, Selection: selectAt(0, 15)})
	require.NoError(t, err)
	require.False(t, res.Cancelled)

	assert.Equal(t, extract.CodeRange{StartLine: 0, StartColumn: 15, EndLine: 0, EndColumn: 39}, res.Range)
	assert.Equal(t, []extract.EvalDefinition{{Content: "count", Line: 0, Column: 25}}, res.Evals)
	assert.Equal(t, []extract.IdentifierDefinition{{Name: "count", Line: 1, Column: 25}}, res.Identifiers)
	assert.Equal(t, "Counter", res.Name)
	assert.Equal(t, `<Counter :count="count" />`, res.Invocation)

	require.Len(t, h.oracle.queries, 1)
	assert.Equal(t, extract.IdentifierDefinition{Name: "count", Line: 1, Column: 25}, h.oracle.queries[0])

	assert.Equal(t,
		`<template><div><Counter :count="count" /></div></template><script>let count = 0;</script>`,
		h.docs.get(appURI))

	assert.Equal(t, "<template>\n"+
		"<span>{{ count }}</span>\n"+
		"</template>\n\n"+
		"<script lang=\"ts\" setup>\n"+
		"import { defineProps } from 'vue';\n\n"+
		"interface Props {\n"+
		"  count: number;\n"+
		"}\n\n"+
		"defineProps<Props>()\n\n"+
		"</script>\n", h.rec.files["/src/Counter.vue"])

	assert.Equal(t, []string{"replace 0:15-0:39", "create /src/Counter.vue"}, h.rec.events)
	assert.Empty(t, h.rec.notes)

	assert.Equal(t, extract.PickRequest{
		DocumentURI: appURI,
		Extension:   ".vue",
		Suggested:   "NewComponent.vue",
	}, h.picker.last)
}

func TestExtractBindingOrderIgnoresCompletionOrder(t *testing.T) {
	doc := "<template>\n  <p>{{ a }} {{ b }} {{ c }}</p>\n</template>\n"
	h := newHarness(doc, "/src/Abc.vue", map[string]string{"a": "A", "c": "C"}, "a", "b", "c")

	res, err := h.ex.Run(context.Background(), extract.Request{URI: appURI, Selection: selectAt(1, 2)})
	require.NoError(t, err)

	require.Len(t, res.Bindings, 3)
	assert.Equal(t, "a", res.Bindings[0].Name)
	assert.Equal(t, "A", *res.Bindings[0].Type)
	assert.Equal(t, "b", res.Bindings[1].Name)
	assert.Nil(t, res.Bindings[1].Type)
	assert.Equal(t, "c", res.Bindings[2].Name)
	assert.Equal(t, "C", *res.Bindings[2].Type)

	assert.Contains(t, res.Source, "  a: A;\n  b: any;\n  c: C;\n")
	assert.Equal(t, `<Abc :a="a" :b="b" :c="c" />`, res.Invocation)
	assert.Equal(t, "<template>\n  <Abc :a=\"a\" :b=\"b\" :c=\"c\" />\n</template>\n", h.docs.get(appURI))
}

func TestExtractCancelled(t *testing.T) {
	h := newHarness(counterDoc, "", nil)

	res, err := h.ex.Run(context.Background(), extract.Request{URI: appURI, Selection: selectAt(0, 15)})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, h.rec.events, "cancel has no side effects and no message")
	assert.Equal(t, counterDoc, h.docs.get(appURI))
}

func TestExtractStaleDocument(t *testing.T) {
	h := newHarness(counterDoc, "/src/Counter.vue", nil)
	h.docs.onRead = func(n int, d *memoryDocs) {
		if n == 1 {
			d.set(appURI, counterDoc+"\n")
		}
	}

	_, err := h.ex.Run(context.Background(), extract.Request{URI: appURI, Selection: selectAt(0, 15)})
	require.ErrorIs(t, err, extract.ErrStaleDocument)
	assert.Equal(t, []string{"notify error"}, h.rec.events)
	assert.Equal(t, counterDoc+"\n", h.docs.get(appURI))
}

func TestExtractReportsErrors(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		selection extract.Selection
		message   string
	}{
		{
			name:      "template syntax error",
			doc:       "<template><p>{{ a </p></template>",
			selection: selectAt(0, 10),
			message:   "Vuextract: Parsing failed: Interpolation end sign was not found (1:4)",
		},
		{
			name:      "selection starts mid-text",
			doc:       "<template><p>hello world</p></template>",
			selection: selectAt(0, 16),
			message:   "Vuextract: No element found in selection",
		},
		{
			name:      "selection on an attribute",
			doc:       `<template><p id="x">hi</p></template>`,
			selection: selectAt(0, 13),
			message:   "Vuextract: No element found in selection",
		},
		{
			name:      "no template block",
			doc:       "<script setup></script>",
			selection: selectAt(0, 0),
			message:   "Vuextract: Parsing failed: No <template> block found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.doc, "/src/X.vue", nil)
			_, err := h.ex.Run(context.Background(), extract.Request{URI: appURI, Selection: tt.selection})
			require.Error(t, err)

			require.Len(t, h.rec.notes, 1)
			assert.Equal(t, tt.message, h.rec.notes[0].message)
			assert.Equal(t, extract.SeverityError, h.rec.notes[0].severity)
			assert.Equal(t, []string{"notify error"}, h.rec.events, "document untouched")
			assert.Equal(t, tt.doc, h.docs.get(appURI))
			assert.Empty(t, h.oracle.queries, "no type queries after a synchronous failure")
		})
	}
}

func TestExtractSyntaxErrorIsTyped(t *testing.T) {
	h := newHarness("<template><p>{{ a </p></template>", "/src/X.vue", nil)
	_, err := h.ex.Run(context.Background(), extract.Request{URI: appURI, Selection: selectAt(0, 10)})
	var syntaxErr *template.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestExtractReplacesBeforeCreating(t *testing.T) {
	h := newHarness(counterDoc, "/src/Counter.vue", nil)
	h.rec.files = map[string]string{"/src/Counter.vue": "existing"}

	_, err := h.ex.Run(context.Background(), extract.Request{URI: appURI, Selection: selectAt(0, 15)})
	require.ErrorIs(t, err, extract.ErrFileExists)
	assert.Equal(t, []string{"replace 0:15-0:39", "notify error"}, h.rec.events)
	assert.Equal(t, "existing", h.rec.files["/src/Counter.vue"])
}

func TestExtractExplicitName(t *testing.T) {
	h := newHarness(counterDoc, "/src/widget.vue", nil)
	res, err := h.ex.Run(context.Background(), extract.Request{URI: appURI, Selection: selectAt(0, 15), Name: "count-badge"})
	require.NoError(t, err)
	assert.Equal(t, `<CountBadge :count="count" />`, res.Invocation)
}

// countingPicker tracks how many extractions are past planning at once
type countingPicker struct {
	inFlight atomic.Int32
	max      atomic.Int32
}

func (p *countingPicker) Pick(context.Context, extract.PickRequest) (string, bool, error) {
	n := p.inFlight.Add(1)
	for {
		m := p.max.Load()
		if n <= m || p.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	p.inFlight.Add(-1)
	return "", false, nil
}

func TestExtractSerializesPerDocument(t *testing.T) {
	h := newHarness(counterDoc, "", nil)
	picker := &countingPicker{}
	h.ex.Paths = picker

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.ex.Run(context.Background(), extract.Request{URI: appURI, Selection: selectAt(0, 15)})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), picker.max.Load())
}

func TestPlan(t *testing.T) {
	var ex extract.Extractor
	plan, err := ex.Plan(counterDoc, selectAt(0, 15))
	require.NoError(t, err)
	assert.Equal(t, "<span>{{ count }}</span>", plan.Source)
	assert.Equal(t, []string{"count"}, extract.Names(plan.Identifiers))

	_, err = ex.Plan(counterDoc, selectAt(0, 14))
	assert.ErrorIs(t, err, extract.ErrNoSelectionMatch)
}

func TestPlanLeadingUnicodeSpace(t *testing.T) {
	var ex extract.Extractor
	doc := "<template>\n  <p>\u00a0hi {{ a }}</p>\n</template>"

	plan, err := ex.Plan(doc, selectAt(1, 6))
	require.NoError(t, err)
	assert.Equal(t, "hi", plan.Source)
	assert.Equal(t, extract.CodeRange{StartLine: 1, StartColumn: 6, EndLine: 1, EndColumn: 8}, plan.Range)

	_, err = ex.Plan(doc, selectAt(1, 5))
	assert.ErrorIs(t, err, extract.ErrNoSelectionMatch)

	plan, err = ex.Plan("<template><p>{{\u00a0a }}</p></template>", selectAt(0, 13))
	require.NoError(t, err)
	assert.Equal(t, []extract.IdentifierDefinition{{Name: "a", Line: 1, Column: 17}}, plan.Identifiers)
}

func TestPreview(t *testing.T) {
	ex := extract.Extractor{DefaultName: "counter-badge"}
	p, err := ex.Preview(counterDoc, selectAt(0, 15))
	require.NoError(t, err)
	assert.Equal(t, `<CounterBadge :count="count" />`, p.Invocation)
	assert.Equal(t, extract.CodeRange{StartLine: 0, StartColumn: 15, EndLine: 0, EndColumn: 39}, p.Range)

	static, err := ex.Preview("<template><div><p>hi</p></div></template>", selectAt(0, 15))
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", static.Source)
	assert.Empty(t, static.Identifiers)
	assert.NotNil(t, static.Identifiers, "renders as an empty JSON array")
	assert.Equal(t, "<CounterBadge />", static.Invocation)
}

func TestExtractSharedLocksSerializeAcrossExtractors(t *testing.T) {
	h := newHarness(counterDoc, "", nil)
	picker := &countingPicker{}
	locks := &extract.Locks{}

	var wg sync.WaitGroup
	for range 3 {
		ex := &extract.Extractor{
			Documents: h.docs,
			Edits:     h.rec,
			Files:     h.rec,
			Paths:     picker,
			Notifier:  h.rec,
			Locks:     locks,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ex.Run(context.Background(), extract.Request{URI: appURI, Selection: selectAt(0, 15)})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), picker.max.Load())
}
