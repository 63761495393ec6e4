package report

import (
	"fmt"
	"html/template"
	"os"

	"f0oster/adaudit/enumeration"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>adaudit report - {{.Domain}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
h1 { margin-bottom: 0; }
.meta { color: #666; margin-bottom: 2em; }
.bar { background: #2a7ae2; color: white; padding: 2px 6px; white-space: nowrap; }
.skipped { color: #b00; }
table { border-collapse: collapse; margin-top: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
</style>
</head>
<body>
<h1>adaudit report</h1>
<p class="meta">{{.Domain}} via {{.Endpoint}} &mdash; run {{.RunID}}</p>

{{range .Rows}}
<div>
  <p>{{.Category}} ({{.Count}}){{if .Skipped}} <span class="skipped">skipped: {{.Skipped}}</span>{{end}}</p>
  <div class="bar" style="width: {{.Width}}%">{{.Count}}</div>
</div>
{{end}}

<table>
<tr><th>Category</th><th>Subject</th><th>Related</th></tr>
{{range .Records}}
<tr><td>{{.Category}}</td><td>{{.Subject}}</td><td>{{.Related}}</td></tr>
{{end}}
</table>
</body>
</html>
`))

type htmlRow struct {
	Category enumeration.Category
	Count    int
	Width    int
	Skipped  string
}

type htmlReport struct {
	Domain   string
	Endpoint string
	RunID    string
	Rows     []htmlRow
	Records  []enumeration.Record
}

// WriteHTML emits the hypertext report: per-category bars scaled to the
// largest count, plus the full findings table.
func WriteHTML(aggregate *enumeration.Aggregate, path string) error {
	max := 0
	for _, category := range enumeration.Categories() {
		if n := aggregate.Count(category); n > max {
			max = n
		}
	}

	data := htmlReport{
		Domain:   aggregate.Domain,
		Endpoint: aggregate.Endpoint,
		RunID:    aggregate.RunID.String(),
		Records:  aggregate.Records,
	}
	for _, category := range enumeration.Categories() {
		count := aggregate.Count(category)
		width := 2
		if max > 0 {
			width = 2 + count*98/max
		}
		data.Rows = append(data.Rows, htmlRow{
			Category: category,
			Count:    count,
			Width:    width,
			Skipped:  aggregate.Failures[category],
		})
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer file.Close()

	if err := htmlTemplate.Execute(file, data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
