package policy

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
)

// Engine post-filters untrusted generated text against the catalog. The
// filter works block by block (one block per output line) so a stripped
// anchor only disturbs the sentence it appeared in.
type Engine struct {
	byFormURL map[string]catalog.Course
}

// NewEngine indexes the catalog's enrollment form URLs for filtering.
func NewEngine(cat *catalog.Catalog) *Engine {
	byURL := make(map[string]catalog.Course)
	for _, c := range cat.Courses() {
		if c.EnrollmentFormURL != "" {
			byURL[canonicalURL(c.EnrollmentFormURL)] = c
		}
	}
	return &Engine{byFormURL: byURL}
}

// SanitizeGenerated scans generated output and strips every enrollment
// anchor whose course is not in enrollment_open state, rewriting the
// surrounding text to the "not yet open" phrasing. Form URLs that match no
// catalog course are stripped unconditionally. Returns the sanitized text
// and the number of links removed.
func (e *Engine) SanitizeGenerated(text string) (string, int) {
	lines := strings.Split(text, "\n")
	stripped := 0
	for i, line := range lines {
		var n int
		if strings.Contains(strings.ToLower(line), "<a") {
			line, n = e.sanitizeAnchorBlock(line)
			stripped += n
		}
		// The anchor pass only rules on href attributes; the text pass runs
		// on every block so bare URLs next to an anchor are caught too.
		lines[i], n = e.sanitizeBareBlock(line)
		stripped += n
	}
	return strings.Join(lines, "\n"), stripped
}

// allowsURL rules on a single URL. Non-form URLs always pass.
func (e *Engine) allowsURL(raw string) (keep bool, replacement string) {
	if !IsEnrollmentFormURL(raw) {
		return true, ""
	}
	c, ok := e.byFormURL[canonicalURL(raw)]
	if ok && c.State == catalog.StateEnrollmentOpen {
		return true, ""
	}
	if ok {
		return false, NotOpenText(&c)
	}
	return false, notOpenGeneric
}

// sanitizeAnchorBlock parses one block as an HTML fragment and rules on each
// anchor. An unparseable block is replaced wholesale rather than released.
func (e *Engine) sanitizeAnchorBlock(block string) (string, int) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(block))
	if err != nil {
		return notOpenGeneric, 1
	}

	stripped := 0
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		keep, repl := e.allowsURL(href)
		if !keep {
			sel.ReplaceWithHtml(repl)
			stripped++
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return notOpenGeneric, stripped + 1
	}
	return out, stripped
}

// sanitizeBareBlock handles form URLs the generator emitted as text. URLs
// are extracted wherever they start, so markdown wrapping or other mid-token
// embedding does not hide them.
func (e *Engine) sanitizeBareBlock(block string) (string, int) {
	if !strings.Contains(block, "http") {
		return block, 0
	}

	var out strings.Builder
	stripped := 0
	rest := block
	for {
		idx := strings.Index(rest, "http")
		if idx < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:idx])

		url := rest[idx:]
		if end := strings.IndexFunc(url, endsURL); end >= 0 {
			url = url[:end]
		}
		rest = rest[idx+len(url):]

		core := strings.TrimRight(url, ".,;:!?")
		tail := url[len(core):]
		keep, repl := e.allowsURL(core)
		if keep {
			out.WriteString(url)
			continue
		}
		out.WriteString(repl)
		out.WriteString(tail)
		stripped++
	}
	return out.String(), stripped
}

// endsURL marks characters that terminate a URL in running text, including
// the markdown and HTML delimiters that can wrap one.
func endsURL(r rune) bool {
	switch r {
	case ' ', '\t', '"', '\'', '<', '>', '(', ')', '[', ']':
		return true
	}
	return false
}
