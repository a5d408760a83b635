// Package policy owns every disclosure rule tied to a course's lifecycle
// state: whether an enrollment link may render, which lifecycle label is
// shown, and whether a turn collapses to the fixed refusal line. It also
// post-filters text produced by the generation fallback, which is treated
// as untrusted.
package policy

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
)

// Decision is the disclosure ruling for one course state.
type Decision struct {
	// AllowEnrollmentLink permits rendering the enrollment form anchor.
	AllowEnrollmentLink bool
	// ListingVisible includes the course in topic and locality listings.
	ListingVisible bool
	// RefusalOnly collapses the whole turn to the fixed refusal line.
	RefusalOnly bool
	// Label is the Spanish lifecycle label shown next to the title.
	Label string
}

// Decide returns the disclosure ruling for a lifecycle state.
func Decide(state catalog.State) Decision {
	switch state {
	case catalog.StateEnrollmentOpen:
		return Decision{AllowEnrollmentLink: true, ListingVisible: true, Label: state.Label()}
	case catalog.StateUpcoming:
		return Decision{ListingVisible: true, Label: state.Label()}
	default:
		// in_progress and finished: hidden from listings, refusal on
		// direct mention, never an enrollment link.
		return Decision{RefusalOnly: true, Label: state.Label()}
	}
}

const (
	refusalInProgress = "El curso \"%s\" se encuentra actualmente en curso y no admite nuevas inscripciones. Más información: %s"
	refusalFinished   = "El curso \"%s\" ya finalizó y no admite inscripciones. Más información: %s"
	notOpenCourse     = "La inscripción al curso \"%s\" todavía no está abierta."
	notOpenGeneric    = "La inscripción todavía no está abierta."
)

// RefusalText returns the fixed one-line refusal for a closed course, or ""
// when the course's state does not demand a refusal. The line carries the
// neutral reference link, never the enrollment form.
func RefusalText(c *catalog.Course) string {
	switch c.State {
	case catalog.StateInProgress:
		return fmt.Sprintf(refusalInProgress, c.Title, c.ReferenceLink())
	case catalog.StateFinished:
		return fmt.Sprintf(refusalFinished, c.Title, c.ReferenceLink())
	default:
		return ""
	}
}

// NotOpenText is the phrasing used when an enrollment link was requested or
// generated for a course whose enrollment is not open yet.
func NotOpenText(c *catalog.Course) string {
	return fmt.Sprintf(notOpenCourse, c.Title)
}

// Enrollment forms are only ever hosted on these domains; any URL on them is
// treated as an enrollment link for filtering purposes.
var formDomains = map[string]struct{}{
	"forms.gle":        {},
	"docs.google.com":  {},
	"forms.office.com": {},
}

// IsEnrollmentFormURL reports whether the URL targets a form-hosting domain.
func IsEnrollmentFormURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	_, ok := formDomains[host]
	return ok
}

func canonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}
