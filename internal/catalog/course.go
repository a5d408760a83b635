// Package catalog loads and validates the course catalog.
// Raw records are whitelisted into immutable Course values: free text is
// HTML-escaped and length-bounded, list fields are capped, and every course
// resolves to one of four lifecycle states.
package catalog

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// State is the course lifecycle state driving the disclosure policy.
type State string

const (
	StateEnrollmentOpen State = "enrollment_open"
	StateUpcoming       State = "upcoming"
	StateInProgress     State = "in_progress"
	StateFinished       State = "finished"
)

// ReferenceYear is the fixed year query parameter on course reference links.
const ReferenceYear = "2025"

// ParseState resolves a raw state string to one of the four known states.
// Matching is case-insensitive and accepts the Spanish synonyms used by the
// upstream data set. Unknown or empty values default to StateUpcoming.
func ParseState(raw string) State {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "enrollment_open", "inscripcion_abierta", "inscripción_abierta", "abierto":
		return StateEnrollmentOpen
	case "in_progress", "en_curso", "cursando":
		return StateInProgress
	case "finished", "finalizado", "terminado":
		return StateFinished
	case "upcoming", "proximamente", "próximamente", "proximo", "próximo":
		return StateUpcoming
	default:
		return StateUpcoming
	}
}

// Label returns the Spanish human-readable lifecycle label.
func (s State) Label() string {
	switch s {
	case StateEnrollmentOpen:
		return "Inscripción abierta"
	case StateInProgress:
		return "En curso"
	case StateFinished:
		return "Finalizado"
	default:
		return "Próximamente"
	}
}

// IsListable reports whether courses in this state may appear in topic or
// locality listings. In-progress and finished courses are always hidden.
func (s State) IsListable() bool {
	return s == StateEnrollmentOpen || s == StateUpcoming
}

// Requirements holds the enrollment prerequisites of a course.
type Requirements struct {
	AdultsOnly        bool
	DriversLicense    bool
	PrimaryComplete   bool
	SecondaryComplete bool
	Other             []string
}

// Materials lists what each side provides during the course.
type Materials struct {
	StudentProvides []string
	CourseProvides  []string
}

// Course is an immutable catalog entry. All free-text fields are already
// HTML-escaped and length-bounded; callers may render them directly.
type Course struct {
	ID               string
	Title            string
	ShortDescription string
	FullDescription  string
	Activities       string
	TotalDuration    string

	StartDate      time.Time // zero when the catalog omits it
	EndDate        time.Time
	StartDateHuman string // "2 de marzo de 2025", empty when no date
	EndDateHuman   string

	WeeklyFrequency string
	ClassHours      []string
	DaySchedule     []string

	Localities []string
	Addresses  []string

	Requirements Requirements
	Materials    Materials

	EnrollmentFormURL string
	ImageURL          string

	State State
}

// ReferenceLink returns the internal course reference path used in refusal
// and "more info" messages.
func (c *Course) ReferenceLink() string {
	return fmt.Sprintf("/curso/%s?y=%s", url.PathEscape(c.ID), ReferenceYear)
}

// HasStartDate reports whether a start date was published.
func (c *Course) HasStartDate() bool { return !c.StartDate.IsZero() }

// HasEndDate reports whether an end date was published.
func (c *Course) HasEndDate() bool { return !c.EndDate.IsZero() }

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// humanDate renders a date as Spanish prose ("2 de marzo de 2025").
func humanDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}
