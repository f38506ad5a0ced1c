package http

import (
	"fmt"
	"html"
	"html/template"
	"strings"
)

// renderMarkdown converts the subset of markdown the summarizer emits
// (headings, bold, bullet lists) into HTML. Input is escaped first, so the
// stored content can never inject markup.
func renderMarkdown(md string) template.HTML {
	var sb strings.Builder
	inList := false

	flushList := func() {
		if inList {
			sb.WriteString("</ul>\n")
			inList = false
		}
	}

	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		escaped := html.EscapeString(trimmed)
		escaped = boldPattern(escaped)

		switch {
		case strings.HasPrefix(trimmed, "### "):
			flushList()
			sb.WriteString("<h3>" + strings.TrimPrefix(escaped, "### ") + "</h3>\n")
		case strings.HasPrefix(trimmed, "## "):
			flushList()
			sb.WriteString("<h2>" + strings.TrimPrefix(escaped, "## ") + "</h2>\n")
		case strings.HasPrefix(trimmed, "# "):
			flushList()
			sb.WriteString("<h1>" + strings.TrimPrefix(escaped, "# ") + "</h1>\n")
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			if !inList {
				sb.WriteString("<ul>\n")
				inList = true
			}
			sb.WriteString("<li>" + escaped[2:] + "</li>\n")
		case trimmed == "":
			flushList()
		default:
			flushList()
			sb.WriteString("<p>" + escaped + "</p>\n")
		}
	}
	flushList()
	return template.HTML(sb.String())
}

// boldPattern rewrites **text** spans into <strong> tags. Runs on already
// escaped text.
func boldPattern(s string) string {
	var sb strings.Builder
	for {
		start := strings.Index(s, "**")
		if start < 0 {
			break
		}
		end := strings.Index(s[start+2:], "**")
		if end < 0 {
			break
		}
		sb.WriteString(s[:start])
		sb.WriteString("<strong>")
		sb.WriteString(s[start+2 : start+2+end])
		sb.WriteString("</strong>")
		s = s[start+2+end+2:]
	}
	sb.WriteString(s)
	return sb.String()
}

var reportPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #f0f2f5; margin: 0; }
.container { max-width: 720px; margin: 0 auto; padding: 24px 16px; }
.card { background: #fff; border-radius: 12px; padding: 32px; box-shadow: 0 1px 4px rgba(0,0,0,.1); }
.header { border-bottom: 2px solid #25d366; padding-bottom: 16px; margin-bottom: 24px; }
.header h1 { margin: 0; color: #075e54; font-size: 1.5em; }
.meta { color: #667781; font-size: .9em; margin-top: 8px; }
.content h1, .content h2, .content h3 { color: #075e54; }
.content ul { padding-left: 24px; }
.content p { line-height: 1.6; }
.footer { text-align: center; color: #667781; font-size: .8em; margin-top: 24px; }
</style>
</head>
<body>
<div class="container">
<div class="card">
<div class="header">
<h1>{{.Title}}</h1>
<div class="meta">{{.Subtitle}}</div>
</div>
<div class="content">{{.Body}}</div>
</div>
<div class="footer">Gerado automaticamente</div>
</div>
</body>
</html>
`))

type reportPageData struct {
	Title    string
	Subtitle string
	Body     template.HTML
}

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #f0f2f5;
display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
.card { background: #fff; border-radius: 12px; padding: 40px; text-align: center;
box-shadow: 0 1px 4px rgba(0,0,0,.1); }
h1 { color: #075e54; }
p { color: #667781; }
</style>
</head>
<body>
<div class="card">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</div>
</body>
</html>
`))

type errorPageData struct {
	Title   string
	Message string
}

func summarySubtitle(groupName, date string, messageCount int) string {
	return fmt.Sprintf("%s · %s · %d mensagens", groupName, date, messageCount)
}
