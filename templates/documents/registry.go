package documents

import (
	"sort"

	"doc_builder_app_go/models"
)

// Built-in template ids
const (
	TemplateClassic = "classic"
	TemplateModern  = "modern"
	TemplatePolicy  = "policy"
)

var renderers = map[string]Renderer{
	TemplateClassic: Classic,
	TemplateModern:  Modern,
	TemplatePolicy:  Policy,
}

// categoryDefaults picks a template when the document names none
var categoryDefaults = map[string]string{
	models.CategoryGeneral:   TemplateClassic,
	models.CategoryPlumbing:  TemplateClassic,
	models.CategoryRoofing:   TemplateClassic,
	models.CategoryLegal:     TemplateModern,
	models.CategoryMedical:   TemplateModern,
	models.CategoryInsurance: TemplatePolicy,
}

// Lookup resolves a template id, falling back to the category default and
// then to classic. It returns the id actually used.
func Lookup(templateID, category string) (string, Renderer) {
	if r, ok := renderers[templateID]; ok {
		return templateID, r
	}
	if id, ok := categoryDefaults[category]; ok {
		return id, renderers[id]
	}
	return TemplateClassic, renderers[TemplateClassic]
}

// Names lists the registered template ids
func Names() []string {
	names := make([]string, 0, len(renderers))
	for id := range renderers {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}
