// internal/workers/communication/send-grant-digest/templates.go
package sendgrantdigest

import (
	"bytes"
	htmltemplate "html/template"
	"strconv"
	"strings"
	"text/template"
	"time"

	"spark-workers/internal/grants"
)

var funcs = map[string]interface{}{
	"funding":  formatFunding,
	"deadline": formatDeadline,
	"inc":      func(i int) int { return i + 1 },
}

var textTmpl = template.Must(template.New("text").Funcs(funcs).Parse(
	`Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

Here are the funding programs that best fit {{if .IdeaName}}"{{.IdeaName}}"{{else}}your business idea{{end}}:
{{range $i, $g := .Grants}}
{{inc $i}}. {{$g.Name}} (match {{$g.MatchScore}}%)
   {{funding $g.Grant}}{{with deadline $g.Grant}} | deadline {{.}}{{end}}
{{- range $g.MatchReasons}}
   - {{.}}{{end}}
{{- if $g.URL}}
   {{$g.URL}}{{end}}
{{end}}
Good luck,
The Spark team
`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(
	`<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
<p>Here are the funding programs that best fit {{if .IdeaName}}<strong>{{.IdeaName}}</strong>{{else}}your business idea{{end}}:</p>
<ol>
{{- range .Grants}}
<li><strong>{{if .URL}}<a href="{{.URL}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}</strong> &middot; match {{.MatchScore}}%<br>
{{funding .Grant}}{{with deadline .Grant}} &middot; deadline {{.}}{{end}}
<ul>{{range .MatchReasons}}<li>{{.}}</li>{{end}}</ul></li>
{{- end}}
</ol>
<p>Good luck,<br>The Spark team</p>
`))

type digestData struct {
	Name     string
	IdeaName string
	Grants   []grants.MatchedGrant
}

func renderDigest(d digestData) (subject, text, html string, err error) {
	subject = "Your top grant matches"
	if d.IdeaName != "" {
		subject += " for " + d.IdeaName
	}

	var tb, hb bytes.Buffer
	if err := textTmpl.Execute(&tb, d); err != nil {
		return "", "", "", err
	}
	if err := htmlTmpl.Execute(&hb, d); err != nil {
		return "", "", "", err
	}
	return subject, tb.String(), hb.String(), nil
}

// deadlineSMS stays short enough for a single segment in most cases.
func deadlineSMS(upcoming []grants.MatchedGrant) string {
	parts := make([]string, 0, len(upcoming))
	for _, g := range upcoming {
		parts = append(parts, g.Name+" ("+g.Deadline.Format("Jan 2")+")")
	}
	noun := "deadline"
	if len(upcoming) > 1 {
		noun = "deadlines"
	}
	return "Spark: grant " + noun + " coming up: " + strings.Join(parts, ", ")
}

func formatFunding(g grants.Grant) string {
	switch {
	case g.FundingMin != nil && g.FundingMax != nil:
		return "$" + thousands(*g.FundingMin) + " to $" + thousands(*g.FundingMax)
	case g.FundingMax != nil:
		return "up to $" + thousands(*g.FundingMax)
	case g.FundingMin != nil:
		return "from $" + thousands(*g.FundingMin)
	}
	return "amount varies"
}

func formatDeadline(g grants.Grant) string {
	if g.Deadline == nil {
		return ""
	}
	return g.Deadline.UTC().Format(time.DateOnly)
}

func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
