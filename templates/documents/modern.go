package documents

import (
	"doc_builder_app_go/models"

	"github.com/a-h/templ"
)

var modernColumns = []Column{
	{Title: "columns.service", Class: "col-name", Cell: nameCell},
	{Title: "columns.hours_units", Class: "col-qty", Cell: textCell(func(i ItemView) string { return i.Quantity })},
	{Title: "columns.rate", Class: "col-price", Cell: textCell(func(i ItemView) string { return i.UnitPrice })},
	{Title: "columns.amount", Class: "col-amount", Cell: textCell(func(i ItemView) string { return i.Amount })},
}

// Modern is the professional-services layout (legal, medical)
func Modern(p PageProps) templ.Component {
	return pageFrame(p, TemplateModern, join(
		PageHeader(p, nil),
		ClientDetails(p, clientHeading(p.Document.Category)),
		CategoryPreview(p, "blocks.matter_details"),
		ItemsTable(p, modernColumns),
		Footer(p, nil),
	))
}

func clientHeading(category string) string {
	if category == models.CategoryMedical {
		return "blocks.patient"
	}
	return "blocks.client"
}
