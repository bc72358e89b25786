package inspect

import (
	"strings"
	"testing"
)

const cleanDoc = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Recipe Box</title>
<style>body { margin: 0; }</style>
</head>
<body>
<header><h1>Recipe Box</h1></header>
<main>
<img src="hero.png" alt="A stack of recipe cards">
<a href="/recipes">Browse recipes</a>
</main>
<script>console.log("ready");</script>
</body>
</html>`

func countProblems(r Report, check string) int {
	var n int
	for _, p := range r.Problems {
		if p.Check == check {
			n++
		}
	}
	return n
}

func findProblem(r Report, check string) (Problem, bool) {
	for _, p := range r.Problems {
		if p.Check == check {
			return p, true
		}
	}
	return Problem{}, false
}

func TestInspectCleanDocument(t *testing.T) {
	report := Inspect(cleanDoc)

	if len(report.Problems) != 0 {
		t.Errorf("Inspect() found %d problems in clean document: %+v", len(report.Problems), report.Problems)
	}
	if report.Title != "Recipe Box" {
		t.Errorf("Title = %q, want %q", report.Title, "Recipe Box")
	}
}

func TestInspectEmptyDocument(t *testing.T) {
	for _, doc := range []string{"", "   \n\t  "} {
		report := Inspect(doc)
		if len(report.Problems) != 1 {
			t.Fatalf("Inspect(%q) returned %d problems, want 1", doc, len(report.Problems))
		}
		p := report.Problems[0]
		if p.Check != "empty" || p.Severity != SeverityWarning {
			t.Errorf("Inspect(%q) problem = %+v, want empty/warning", doc, p)
		}
	}
}

func TestInspectChecks(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		check    string
		severity Severity
		count    int
		contains string
	}{
		{
			name:     "missing title",
			doc:      `<!DOCTYPE html><html><head></head><body><p>hi</p></body></html>`,
			check:    "title",
			severity: SeverityWarning,
			count:    1,
		},
		{
			name:     "blank title",
			doc:      `<!DOCTYPE html><html><head><title>   </title></head><body></body></html>`,
			check:    "title",
			severity: SeverityWarning,
			count:    1,
		},
		{
			name:     "image without alt",
			doc:      `<!DOCTYPE html><body><img src="good.png" alt="ok"><img src="bad.png"></body>`,
			check:    "img-alt",
			severity: SeverityWarning,
			count:    1,
			contains: "bad.png",
		},
		{
			name:     "hash link",
			doc:      `<!DOCTYPE html><body><a href="#">Sign up</a></body>`,
			check:    "dead-link",
			severity: SeverityInfo,
			count:    1,
			contains: "Sign up",
		},
		{
			name:     "empty href",
			doc:      `<!DOCTYPE html><body><a href="">More</a></body>`,
			check:    "dead-link",
			severity: SeverityInfo,
			count:    1,
		},
		{
			name:     "anchor without href",
			doc:      `<!DOCTYPE html><body><a>Later</a></body>`,
			check:    "dead-link",
			severity: SeverityInfo,
			count:    1,
		},
		{
			name:     "inline handler",
			doc:      `<!DOCTYPE html><body><button onclick="save()">Save</button></body>`,
			check:    "inline-handler",
			severity: SeverityWarning,
			count:    1,
			contains: "onclick",
		},
		{
			name:     "duplicate id",
			doc:      `<!DOCTYPE html><body><div id="app"></div><section id="app"></section></body>`,
			check:    "duplicate-id",
			severity: SeverityWarning,
			count:    1,
			contains: "app",
		},
		{
			name:     "unclosed tag",
			doc:      `<!DOCTYPE html><body><div><span>dangling</span></body>`,
			check:    "unclosed-tag",
			severity: SeverityWarning,
			count:    1,
			contains: "div",
		},
		{
			name:     "missing doctype",
			doc:      `<html><head><title>x</title></head><body></body></html>`,
			check:    "doctype",
			severity: SeverityInfo,
			count:    1,
		},
		{
			name:     "missing viewport",
			doc:      `<!DOCTYPE html><html><head><title>x</title></head><body></body></html>`,
			check:    "viewport",
			severity: SeverityInfo,
			count:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Inspect(tt.doc)
			if got := countProblems(report, tt.check); got != tt.count {
				t.Fatalf("Inspect() found %d %q problems, want %d (all: %+v)", got, tt.check, tt.count, report.Problems)
			}
			p, _ := findProblem(report, tt.check)
			if p.Severity != tt.severity {
				t.Errorf("severity = %q, want %q", p.Severity, tt.severity)
			}
			if tt.contains != "" && !strings.Contains(p.Message, tt.contains) {
				t.Errorf("message %q does not mention %q", p.Message, tt.contains)
			}
		})
	}
}

func TestUnclosedTags(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{name: "balanced", doc: `<div><span>x</span></div>`, want: nil},
		{name: "one unclosed", doc: `<div><span>x</span>`, want: []string{"div"}},
		{name: "void ignored", doc: `<br><img src="x"><hr>`, want: nil},
		{name: "optional end ignored", doc: `<p>one<p>two<li>three`, want: nil},
		{name: "nested unclosed", doc: `<div><section>`, want: []string{"div", "section"}},
		{name: "stray end tag", doc: `</div><span>x</span>`, want: nil},
		{name: "script content skipped", doc: `<script>if (a < b) { go("<div>"); }</script>`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := unclosedTags(tt.doc)
			if len(got) != len(tt.want) {
				t.Fatalf("unclosedTags() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("unclosedTags()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReportSummary(t *testing.T) {
	tests := []struct {
		name        string
		report      Report
		want        string
		hasWarnings bool
	}{
		{name: "clean", report: Report{}, want: "no problems", hasWarnings: false},
		{
			name: "mixed",
			report: Report{Problems: []Problem{
				{Severity: SeverityWarning},
				{Severity: SeverityWarning},
				{Severity: SeverityInfo},
			}},
			want:        "2 warnings, 1 infos",
			hasWarnings: true,
		},
		{
			name:        "info only",
			report:      Report{Problems: []Problem{{Severity: SeverityInfo}}},
			want:        "0 warnings, 1 infos",
			hasWarnings: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
			if got := tt.report.HasWarnings(); got != tt.hasWarnings {
				t.Errorf("HasWarnings() = %v, want %v", got, tt.hasWarnings)
			}
		})
	}
}
