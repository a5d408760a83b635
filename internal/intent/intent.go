// Package intent classifies a chat message into one of a fixed set of query
// types. Classification is state-free: it depends only on the normalized
// message and the title matcher's direct-mention result against the catalog.
//
// Rules are evaluated in a fixed priority order because the keyword patterns
// overlap: course-specific keywords are only consulted once a direct title
// mention is established, so generic questions that happen to share
// vocabulary with a course title do not misclassify.
package intent

import (
	"strings"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
	"github.com/gmaidana/cursos-chatbot-go/internal/matcher"
	"github.com/gmaidana/cursos-chatbot-go/internal/textnorm"
)

// Intent is the resolved query type for one chat turn.
type Intent string

const (
	EnrollmentLink    Intent = "enrollment_link"
	Schedule          Intent = "schedule"
	Requirements      Intent = "requirements"
	Materials         Intent = "materials"
	Location          Intent = "location"
	StartDate         Intent = "start_date"
	EndDate           Intent = "end_date"
	Duration          Intent = "duration"
	UnpublishedField  Intent = "unpublished_field"
	GeneralInfo       Intent = "general_info"
	TopicListing      Intent = "topic_listing"
	LocalityListing   Intent = "locality_listing"
	EnrollmentGeneral Intent = "enrollment_general"
	Unknown           Intent = "unknown"
)

// Result is the classification outcome.
type Result struct {
	Intent   Intent
	Course   *catalog.Course // set for course-specific intents
	Locality string          // set for LocalityListing
}

// Classifier classifies messages against a fixed catalog.
type Classifier struct {
	courses []catalog.Course
}

// New creates a classifier over the loaded catalog.
func New(cat *catalog.Catalog) *Classifier {
	return &Classifier{courses: cat.Courses()}
}

// Keyword stems matched against normalized (lowercase, accent-free) text.
// Stems match token prefixes: "inscrib" covers inscribirme, inscripción, etc.
var (
	enrollmentStems  = []string{"inscrib", "anotar", "anotarme", "apuntar", "apuntarme"}
	linkStems        = []string{"formulario", "link", "enlace"}
	scheduleStems    = []string{"horario", "cursada", "dias"}
	requirementStems = []string{"requisito", "piden", "exigen"}
	materialStems    = []string{"material", "herramienta", "traer", "llevar"}
	locationStems    = []string{"donde", "lugar", "direccion", "sede", "ubicacion", "queda"}
	startStems       = []string{"empieza", "inicia", "comienza", "arranca"}
	endStems         = []string{"termina", "finaliza"}
	durationStems    = []string{"dura", "duracion"}
	unpublishedStems = []string{"precio", "costo", "sale", "cuesta", "arancel", "cupo", "vacante", "modalidad", "virtual", "presencial"}

	topicPhrases = []string{
		"que cursos hay",
		"que cursos tienen",
		"cursos disponibles",
		"cuales cursos",
		"que cursos dan",
		"oferta de cursos",
		"lista de cursos",
	}
	requirementPhrases = []string{"hace falta", "necesito para"}
	startPhrases       = []string{"fecha de inicio", "cuando empieza"}
	endPhrases         = []string{"fecha de fin", "cuando termina"}
)

// courseRule pairs a predicate with the intent it resolves to. The slice
// order below IS the priority order; do not reorder without updating the
// classifier tests that pin it.
type courseRule struct {
	intent Intent
	match  func(q query) bool
}

var courseRules = []courseRule{
	{EnrollmentLink, func(q query) bool { return q.anyStem(enrollmentStems) || q.anyStem(linkStems) }},
	{Schedule, func(q query) bool { return q.anyStem(scheduleStems) }},
	{Requirements, func(q query) bool { return q.anyStem(requirementStems) || q.anyPhrase(requirementPhrases) }},
	{Materials, func(q query) bool { return q.anyStem(materialStems) }},
	{Location, func(q query) bool { return q.anyStem(locationStems) }},
	{StartDate, func(q query) bool { return q.anyStem(startStems) || q.anyPhrase(startPhrases) }},
	{EndDate, func(q query) bool { return q.anyStem(endStems) || q.anyPhrase(endPhrases) }},
	{Duration, func(q query) bool { return q.anyStem(durationStems) }},
	{UnpublishedField, func(q query) bool { return q.anyStem(unpublishedStems) }},
}

// Classify resolves the message to an intent. First match wins:
//  1. generic enrollment wish with no course named
//  2. "which courses are available" phrasing
//  3. "cursos en <localidad>" pattern
//  4. direct title mention + keyword ladder (default general_info)
//  5. unknown (handed to the generation fallback)
func (c *Classifier) Classify(message string) Result {
	q := newQuery(message)
	course, mentioned := matcher.FindDirectMention(c.courses, message)

	if !mentioned && q.anyStem(enrollmentStems) {
		return Result{Intent: EnrollmentGeneral}
	}

	if q.anyPhrase(topicPhrases) {
		return Result{Intent: TopicListing}
	}

	if loc := extractLocality(q.norm); loc != "" {
		return Result{Intent: LocalityListing, Locality: loc}
	}

	if mentioned {
		for _, rule := range courseRules {
			if rule.match(q) {
				return Result{Intent: rule.intent, Course: course}
			}
		}
		return Result{Intent: GeneralInfo, Course: course}
	}

	return Result{Intent: Unknown}
}

// WantsLink reports whether a short follow-up message asks for an enrollment
// link ("pasame el link"), so the last offered link can be replayed from the
// session instead of falling through to generation.
func WantsLink(message string) bool {
	q := newQuery(message)
	return q.anyStem(linkStems) || q.anyStem(enrollmentStems)
}

// query caches the normalized forms of one message.
type query struct {
	norm   string
	tokens []string
}

func newQuery(message string) query {
	norm := textnorm.Normalize(message)
	return query{norm: norm, tokens: strings.Fields(norm)}
}

func (q query) anyStem(stems []string) bool {
	for _, tok := range q.tokens {
		for _, stem := range stems {
			if strings.HasPrefix(tok, stem) {
				return true
			}
		}
	}
	return false
}

func (q query) anyPhrase(phrases []string) bool {
	padded := " " + q.norm + " "
	for _, phrase := range phrases {
		if strings.Contains(padded, " "+phrase+" ") {
			return true
		}
	}
	return false
}

// extractLocality captures the tail of a "cursos en <localidad>" pattern.
// Returns "" when the pattern is absent or the tail is empty.
func extractLocality(norm string) string {
	for _, marker := range []string{"cursos en ", "curso en "} {
		idx := strings.Index(" "+norm, " "+marker)
		if idx < 0 {
			continue
		}
		tail := strings.TrimSpace(norm[idx+len(marker):])
		if tail != "" {
			return tail
		}
	}
	return ""
}
