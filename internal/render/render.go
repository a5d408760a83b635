// Package render turns (intent, course, policy decision) into final Spanish
// response text. Every deterministic answer is produced here; only intents
// with no template fall through to the generation fallback.
package render

import (
	"fmt"
	"strings"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
	"github.com/gmaidana/cursos-chatbot-go/internal/intent"
	"github.com/gmaidana/cursos-chatbot-go/internal/policy"
	"github.com/gmaidana/cursos-chatbot-go/internal/session"
	"github.com/gmaidana/cursos-chatbot-go/internal/textnorm"
)

// Renderer renders deterministic responses against a fixed catalog.
type Renderer struct {
	cat        *catalog.Catalog
	maxListing int
}

// New creates a renderer. maxListing bounds every topic and locality listing.
func New(cat *catalog.Catalog, maxListing int) *Renderer {
	return &Renderer{cat: cat, maxListing: maxListing}
}

// Render produces the templated response for a classified message. The
// second return is false when no deterministic template applies and the turn
// must be delegated to the generation fallback.
func (r *Renderer) Render(res intent.Result) (string, bool) {
	switch res.Intent {
	case intent.EnrollmentLink:
		return r.enrollment(res.Course), true
	case intent.Schedule:
		return r.schedule(res.Course), true
	case intent.Requirements:
		return r.requirements(res.Course), true
	case intent.Materials:
		return r.materials(res.Course), true
	case intent.Location:
		return r.location(res.Course), true
	case intent.StartDate:
		return r.startDate(res.Course), true
	case intent.EndDate:
		return r.endDate(res.Course), true
	case intent.Duration:
		return r.duration(res.Course), true
	case intent.UnpublishedField:
		return r.unpublished(res.Course), true
	case intent.GeneralInfo:
		return r.generalInfo(res.Course), true
	case intent.TopicListing:
		return r.topicListing(), true
	case intent.LocalityListing:
		return r.localityListing(res.Locality), true
	case intent.EnrollmentGeneral:
		return r.enrollmentGeneral(), true
	default:
		return "", false
	}
}

// FollowUpLink replays a previously offered enrollment link. The offer's
// course is re-checked against the catalog: if it closed since the offer,
// the refusal applies instead of the stale link.
func (r *Renderer) FollowUpLink(offer session.Offer) string {
	c, ok := r.cat.ByID(offer.CourseID)
	if !ok {
		return fmt.Sprintf("El curso \"%s\" ya no figura en el catálogo.", offer.Title)
	}
	return r.enrollment(c)
}

func (r *Renderer) enrollment(c *catalog.Course) string {
	d := policy.Decide(c.State)
	if d.RefusalOnly {
		return policy.RefusalText(c)
	}
	if d.AllowEnrollmentLink && c.EnrollmentFormURL != "" {
		return fmt.Sprintf("¡Genial! Para inscribirte al \"%s\", completá este formulario: %s",
			c.Title, enrollmentAnchor(c))
	}
	if d.AllowEnrollmentLink {
		return fmt.Sprintf("La inscripción al \"%s\" está abierta, pero el formulario todavía no fue publicado. Más información: %s",
			c.Title, c.ReferenceLink())
	}
	return fmt.Sprintf("%s Más información: %s", policy.NotOpenText(c), c.ReferenceLink())
}

func (r *Renderer) schedule(c *catalog.Course) string {
	if c.WeeklyFrequency == "" && len(c.DaySchedule) == 0 && len(c.ClassHours) == 0 {
		return fmt.Sprintf("El cronograma del \"%s\" todavía no fue publicado.", c.Title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cronograma del \"%s\":", c.Title)
	if c.WeeklyFrequency != "" {
		fmt.Fprintf(&b, "\n• Frecuencia: %s", c.WeeklyFrequency)
	}
	if len(c.DaySchedule) > 0 {
		fmt.Fprintf(&b, "\n• Días: %s", strings.Join(c.DaySchedule, ", "))
	}
	if len(c.ClassHours) > 0 {
		fmt.Fprintf(&b, "\n• Horarios: %s", strings.Join(c.ClassHours, ", "))
	}
	return b.String()
}

func (r *Renderer) requirements(c *catalog.Course) string {
	var items []string
	if c.Requirements.AdultsOnly {
		items = append(items, "Ser mayor de 18 años")
	}
	if c.Requirements.DriversLicense {
		items = append(items, "Contar con licencia de conducir")
	}
	if c.Requirements.PrimaryComplete {
		items = append(items, "Primario completo")
	}
	if c.Requirements.SecondaryComplete {
		items = append(items, "Secundario completo")
	}
	items = append(items, c.Requirements.Other...)

	if len(items) == 0 {
		return fmt.Sprintf("El \"%s\" no tiene requisitos publicados.", c.Title)
	}
	return fmt.Sprintf("Requisitos para el \"%s\":\n%s", c.Title, bullets(items))
}

func (r *Renderer) materials(c *catalog.Course) string {
	if len(c.Materials.StudentProvides) == 0 && len(c.Materials.CourseProvides) == 0 {
		return fmt.Sprintf("El \"%s\" no tiene materiales publicados.", c.Title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Materiales del \"%s\":", c.Title)
	if len(c.Materials.StudentProvides) > 0 {
		fmt.Fprintf(&b, "\nTenés que traer:\n%s", bullets(c.Materials.StudentProvides))
	}
	if len(c.Materials.CourseProvides) > 0 {
		fmt.Fprintf(&b, "\nEl curso provee:\n%s", bullets(c.Materials.CourseProvides))
	}
	return b.String()
}

func (r *Renderer) location(c *catalog.Course) string {
	if len(c.Localities) == 0 && len(c.Addresses) == 0 {
		return fmt.Sprintf("La sede del \"%s\" todavía no fue publicada.", c.Title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "El \"%s\" se dicta en:", c.Title)
	if len(c.Localities) > 0 {
		fmt.Fprintf(&b, "\n• Localidades: %s", strings.Join(c.Localities, ", "))
	}
	if len(c.Addresses) > 0 {
		fmt.Fprintf(&b, "\n• Direcciones: %s", strings.Join(c.Addresses, "; "))
	}
	return b.String()
}

func (r *Renderer) startDate(c *catalog.Course) string {
	if !c.HasStartDate() {
		return fmt.Sprintf("La fecha de inicio del \"%s\" todavía no fue publicada.", c.Title)
	}
	return fmt.Sprintf("El \"%s\" empieza el %s.", c.Title, c.StartDateHuman)
}

func (r *Renderer) endDate(c *catalog.Course) string {
	if !c.HasEndDate() {
		return fmt.Sprintf("La fecha de finalización del \"%s\" todavía no fue publicada.", c.Title)
	}
	return fmt.Sprintf("El \"%s\" termina el %s.", c.Title, c.EndDateHuman)
}

func (r *Renderer) duration(c *catalog.Course) string {
	if c.TotalDuration == "" {
		return fmt.Sprintf("La duración del \"%s\" todavía no fue publicada.", c.Title)
	}
	return fmt.Sprintf("El \"%s\" tiene una duración de %s.", c.Title, c.TotalDuration)
}

func (r *Renderer) unpublished(c *catalog.Course) string {
	return fmt.Sprintf("Esa información del \"%s\" (precio, cupos o modalidad) no está publicada. Podés consultar los detalles disponibles acá: %s",
		c.Title, c.ReferenceLink())
}

func (r *Renderer) generalInfo(c *catalog.Course) string {
	d := policy.Decide(c.State)
	if d.RefusalOnly {
		return policy.RefusalText(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s", c.Title, d.Label)
	if c.ShortDescription != "" {
		fmt.Fprintf(&b, "\n%s", c.ShortDescription)
	}
	if c.HasStartDate() {
		fmt.Fprintf(&b, "\nEmpieza el %s.", c.StartDateHuman)
	}
	if len(c.Localities) > 0 {
		fmt.Fprintf(&b, "\nSe dicta en: %s.", strings.Join(c.Localities, ", "))
	}
	if d.AllowEnrollmentLink && c.EnrollmentFormURL != "" {
		fmt.Fprintf(&b, "\nInscribite acá: %s", enrollmentAnchor(c))
	} else {
		fmt.Fprintf(&b, "\nMás información: %s", c.ReferenceLink())
	}
	return b.String()
}

func (r *Renderer) topicListing() string {
	entries := r.listable(nil)
	if len(entries) == 0 {
		return "Por el momento no hay cursos publicados. Volvé a consultar pronto."
	}
	return "Estos son los cursos disponibles:\n" + strings.Join(entries, "\n")
}

func (r *Renderer) localityListing(locality string) string {
	wanted := textnorm.Normalize(locality)
	entries := r.listable(func(c *catalog.Course) bool {
		for _, loc := range c.Localities {
			if textnorm.Normalize(loc) == wanted {
				return true
			}
		}
		return false
	})

	if len(entries) > 0 {
		return fmt.Sprintf("Cursos en %s:\n%s", locality, strings.Join(entries, "\n"))
	}

	msg := fmt.Sprintf("No encontramos cursos en %s.", locality)
	if locs := r.cat.Localities(); len(locs) > 0 {
		msg += fmt.Sprintf(" Hay cursos en: %s.", strings.Join(locs, ", "))
	}
	return msg
}

func (r *Renderer) enrollmentGeneral() string {
	entries := r.listable(func(c *catalog.Course) bool {
		return c.State == catalog.StateEnrollmentOpen
	})
	if len(entries) == 0 {
		return "Por el momento no hay cursos con inscripción abierta. Volvé a consultar pronto."
	}
	return "¡Qué bueno que te quieras inscribir! Estos cursos tienen inscripción abierta, decime cuál te interesa:\n" +
		strings.Join(entries, "\n")
}

// listable renders the bounded listing entries: only listable states, capped
// at maxListing, catalog order. A "Sign up" call to action renders only for
// open courses; everything else gets the neutral reference action.
func (r *Renderer) listable(keep func(*catalog.Course) bool) []string {
	var entries []string
	for _, c := range r.cat.Courses() {
		if !c.State.IsListable() {
			continue
		}
		if keep != nil && !keep(&c) {
			continue
		}

		action := fmt.Sprintf("más info: %s", c.ReferenceLink())
		if c.State == catalog.StateEnrollmentOpen && c.EnrollmentFormURL != "" {
			action = fmt.Sprintf("inscribite: %s", enrollmentAnchor(&c))
		}
		entries = append(entries, fmt.Sprintf("• %s (%s) — %s", c.Title, c.State.Label(), action))

		if len(entries) == r.maxListing {
			break
		}
	}
	return entries
}

func enrollmentAnchor(c *catalog.Course) string {
	return fmt.Sprintf("<a href=\"%s\">Formulario de inscripción</a>", c.EnrollmentFormURL)
}

func bullets(items []string) string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = "• " + item
	}
	return strings.Join(out, "\n")
}
