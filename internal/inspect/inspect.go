// Package inspect lints generated documents for the problems that show
// up most often in model output: missing titles, images without alt
// text, dead placeholder links, inline event handlers, and unbalanced
// tags. Reports are published alongside previews so authors see issues
// without leaving the studio.
package inspect

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Severity ranks a finding. Warnings point at real defects, infos at
// rough edges a prototype can live with.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Problem is a single finding from one check.
type Problem struct {
	Severity Severity `json:"severity"`
	Check    string   `json:"check"`
	Message  string   `json:"message"`
}

// Report summarizes one inspection pass over a bundled document.
type Report struct {
	Title    string    `json:"title"`
	Problems []Problem `json:"problems"`
}

// Summary renders the problem counts in log-friendly form.
func (r Report) Summary() string {
	var warnings, infos int
	for _, p := range r.Problems {
		switch p.Severity {
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			infos++
		}
	}
	if warnings == 0 && infos == 0 {
		return "no problems"
	}
	return fmt.Sprintf("%d warnings, %d infos", warnings, infos)
}

// HasWarnings reports whether any finding is warning-severity.
func (r Report) HasWarnings() bool {
	for _, p := range r.Problems {
		if p.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Inspect runs every check against a document and returns the combined
// report. It never fails; an unparseable document is itself a finding.
func Inspect(doc string) Report {
	var report Report
	add := func(severity Severity, check, format string, args ...any) {
		report.Problems = append(report.Problems, Problem{
			Severity: severity,
			Check:    check,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	trimmed := strings.TrimSpace(doc)
	if trimmed == "" {
		add(SeverityWarning, "empty", "document is empty")
		return report
	}

	if !strings.HasPrefix(strings.ToLower(trimmed), "<!doctype") {
		add(SeverityInfo, "doctype", "document has no doctype declaration")
	}

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		add(SeverityWarning, "parse", "document could not be parsed: %v", err)
		return report
	}

	report.Title = strings.TrimSpace(parsed.Find("head title").First().Text())
	if report.Title == "" {
		add(SeverityWarning, "title", "document has no title")
	}

	if parsed.Find(`head meta[name="viewport"]`).Length() == 0 {
		add(SeverityInfo, "viewport", "document has no viewport meta tag")
	}

	parsed.Find("img").Each(func(_ int, s *goquery.Selection) {
		if alt, ok := s.Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
			add(SeverityWarning, "img-alt", "image %q has no alt text", s.AttrOr("src", "inline"))
		}
	})

	parsed.Find("a").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if ok && strings.TrimSpace(href) != "#" && strings.TrimSpace(href) != "" {
			return
		}
		label := strings.TrimSpace(s.Text())
		if label == "" {
			label = fmt.Sprintf("link #%d", i+1)
		}
		add(SeverityInfo, "dead-link", "link %q points nowhere", label)
	})

	parsed.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			for _, attr := range node.Attr {
				if strings.HasPrefix(attr.Key, "on") && len(attr.Key) > 2 {
					add(SeverityWarning, "inline-handler", "inline %s handler on <%s>", attr.Key, node.Data)
				}
			}
		}
	})

	seenIDs := map[string][]string{}
	parsed.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id := s.AttrOr("id", "")
		if id == "" {
			return
		}
		seenIDs[id] = append(seenIDs[id], goquery.NodeName(s))
	})
	for id, tags := range seenIDs {
		if len(tags) > 1 {
			add(SeverityWarning, "duplicate-id", "id %q is used by %d elements", id, len(tags))
		}
	}

	// html.Parse repairs broken nesting silently, so balance is checked
	// on the raw token stream instead of the parsed tree.
	for _, tag := range unclosedTags(doc) {
		add(SeverityWarning, "unclosed-tag", "unclosed <%s> tag", tag)
	}

	return report
}

// voidElements never take an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// optionalEndTags may legally omit their end tag, so they are excluded
// from balance tracking.
var optionalEndTags = map[string]bool{
	"html": true, "head": true, "body": true, "p": true, "li": true,
	"dt": true, "dd": true, "option": true, "optgroup": true,
	"thead": true, "tbody": true, "tfoot": true, "tr": true,
	"td": true, "th": true, "caption": true, "colgroup": true,
}

// unclosedTags tokenizes the document and returns start tags that were
// never closed, outermost first. Stray end tags are ignored.
func unclosedTags(doc string) []string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var open []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return open
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] || optionalEndTags[tag] {
				continue
			}
			open = append(open, tag)
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] == tag {
					open = append(open[:i], open[i+1:]...)
					break
				}
			}
		}
	}
}
