package synth

import (
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"
)

const (
	// FallbackType is declared for props whose type could not be resolved
	FallbackType = "any"
	// DefaultScriptLang is the lang attribute of the generated script block
	DefaultScriptLang = "ts"
	// Extension is the file extension of generated components
	Extension = ".vue"
)

// Binding is a prop of the generated component. A nil Type renders as the
// fallback type.
type Binding struct {
	Name string  `json:"name"`
	Type *string `json:"type"`
}

// Generator renders invocations and component sources. The zero value uses
// FallbackType and DefaultScriptLang.
type Generator struct {
	FallbackType string
	ScriptLang   string
}

func (g Generator) fallback() string {
	if g.FallbackType == "" {
		return FallbackType
	}
	return g.FallbackType
}

func (g Generator) scriptLang() string {
	if g.ScriptLang == "" {
		return DefaultScriptLang
	}
	return g.ScriptLang
}

// Invocation renders a self-closing tag for the component, binding each
// identifier to a kebab-case prop of the same name.
func (g Generator) Invocation(name string, identifiers []string) string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(strcase.ToCamel(name))
	for _, id := range identifiers {
		b.WriteString(" :")
		b.WriteString(strcase.ToKebab(id))
		b.WriteString(`="`)
		b.WriteString(id)
		b.WriteString(`"`)
	}
	b.WriteString(" />")
	return b.String()
}

// ComponentSource renders a single-file component whose template is
// content, verbatim, and whose script declares one prop per binding in the
// given order.
func (g Generator) ComponentSource(name, content string, bindings []Binding) string {
	var b strings.Builder
	b.WriteString("<template>\n")
	b.WriteString(content)
	b.WriteString("\n</template>\n\n")

	if g.scriptLang() == "js" {
		b.WriteString("<script setup>\n")
		b.WriteString("import { defineProps } from 'vue';\n\n")
		b.WriteString("defineProps([\n")
		for _, binding := range bindings {
			b.WriteString("  '")
			b.WriteString(binding.Name)
			b.WriteString("',\n")
		}
		b.WriteString("])\n\n")
		b.WriteString("</script>\n")
		return b.String()
	}

	b.WriteString(`<script lang="`)
	b.WriteString(g.scriptLang())
	b.WriteString("\" setup>\n")
	b.WriteString("import { defineProps } from 'vue';\n\n")
	b.WriteString("interface Props {\n")
	for _, binding := range bindings {
		t := g.fallback()
		if binding.Type != nil {
			t = *binding.Type
		}
		b.WriteString("  ")
		b.WriteString(binding.Name)
		b.WriteString(": ")
		b.WriteString(t)
		b.WriteString(";\n")
	}
	b.WriteString("}\n\n")
	b.WriteString("defineProps<Props>()\n\n")
	b.WriteString("</script>\n")
	return b.String()
}

// BuildInvocation renders an invocation with the default generator
func BuildInvocation(name string, identifiers []string) string {
	return Generator{}.Invocation(name, identifiers)
}

// BuildComponentSource renders a component source with the default generator
func BuildComponentSource(name, content string, bindings []Binding) string {
	return Generator{}.ComponentSource(name, content, bindings)
}

// ComponentName derives the component name from the file it is saved to
func ComponentName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Extension)
}

// SuggestedFile returns the file name offered for a new component
func SuggestedFile(name string) string {
	return strcase.ToCamel(name) + Extension
}
