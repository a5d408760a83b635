package render

import (
	"fmt"
	"strings"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
	"github.com/gmaidana/cursos-chatbot-go/internal/matcher"
	"github.com/gmaidana/cursos-chatbot-go/internal/session"
)

// PromptInput carries everything the generation fallback may see for one
// turn. History is already bounded by the session window.
type PromptInput struct {
	Message       string
	History       []session.Entry
	Hints         []matcher.Match
	IncludeClosed bool
}

const systemPreamble = `Sos el asistente de los cursos de formación laboral. Respondé siempre en español, en tono cercano y breve.

Reglas estrictas:
- Respondé únicamente con la información del catálogo de abajo. Nunca inventes cursos, fechas, sedes ni requisitos.
- Solo compartí un enlace de inscripción si el curso figura con estado "Inscripción abierta". Para los demás estados, aclará que la inscripción no está abierta.
- No menciones precios, cupos ni modalidad: esa información no está publicada.
- Si la consulta no se relaciona con los cursos, indicá amablemente que solo podés ayudar con los cursos del catálogo.`

// BuildPrompt assembles the system instructions (policy rules plus the
// disclosable catalog) and the user content (bounded history plus the
// message). Closed courses are omitted from the context unless the service
// is configured to expose them, and a form URL is only ever included for an
// open course.
func (r *Renderer) BuildPrompt(in PromptInput) (system, user string) {
	var sys strings.Builder
	sys.WriteString(systemPreamble)
	sys.WriteString("\n\nCatálogo:\n")
	for _, c := range r.cat.Courses() {
		if !in.IncludeClosed && !c.State.IsListable() {
			continue
		}
		sys.WriteString(courseContextLine(&c))
		sys.WriteByte('\n')
	}

	if len(in.Hints) > 0 {
		titles := make([]string, 0, len(in.Hints))
		for _, h := range in.Hints {
			titles = append(titles, h.Title)
		}
		fmt.Fprintf(&sys, "\nCursos más relevantes para esta consulta: %s.\n", strings.Join(titles, "; "))
	}

	var usr strings.Builder
	for _, entry := range in.History {
		role := "Usuario"
		if entry.Role == "assistant" {
			role = "Asistente"
		}
		fmt.Fprintf(&usr, "%s: %s\n", role, entry.Text)
	}
	fmt.Fprintf(&usr, "Usuario: %s", in.Message)

	return sys.String(), usr.String()
}

func courseContextLine(c *catalog.Course) string {
	parts := []string{
		fmt.Sprintf("- %s | Estado: %s", c.Title, c.State.Label()),
	}
	if c.ShortDescription != "" {
		parts = append(parts, c.ShortDescription)
	}
	if c.HasStartDate() {
		parts = append(parts, "Inicio: "+c.StartDateHuman)
	}
	if len(c.Localities) > 0 {
		parts = append(parts, "Localidades: "+strings.Join(c.Localities, ", "))
	}
	parts = append(parts, "Ficha: "+c.ReferenceLink())
	if c.State == catalog.StateEnrollmentOpen && c.EnrollmentFormURL != "" {
		parts = append(parts, "Inscripción: "+c.EnrollmentFormURL)
	}
	return strings.Join(parts, " | ")
}
