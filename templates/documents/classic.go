package documents

import "github.com/a-h/templ"

var classicColumns = []Column{
	{Title: "columns.item", Class: "col-name", Cell: nameCell},
	{Title: "columns.qty", Class: "col-qty", Cell: textCell(func(i ItemView) string { return i.Quantity })},
	{Title: "columns.unit_price", Class: "col-price", Cell: textCell(func(i ItemView) string { return i.UnitPrice })},
	{Title: "columns.amount", Class: "col-amount", Cell: textCell(func(i ItemView) string { return i.Amount })},
}

// Classic is the default trades layout (plumbing, roofing, general)
func Classic(p PageProps) templ.Component {
	return pageFrame(p, TemplateClassic, join(
		PageHeader(p, nil),
		ClientDetails(p, "blocks.bill_to"),
		CategoryPreview(p, "blocks.job_details"),
		ItemsTable(p, classicColumns),
		Footer(p, nil),
	))
}
