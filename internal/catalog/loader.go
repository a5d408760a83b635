package catalog

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gmaidana/cursos-chatbot-go/internal/config"
	apperrors "github.com/gmaidana/cursos-chatbot-go/internal/errors"
	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
)

// RawCourse is the on-disk catalog record. Only the whitelisted fields below
// survive into a Course; anything else in the JSON object is dropped.
type RawCourse struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	ShortDescription string   `json:"short_description"`
	FullDescription  string   `json:"full_description"`
	Activities       string   `json:"activities"`
	TotalDuration    string   `json:"total_duration"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	WeeklyFrequency  string   `json:"weekly_frequency"`
	ClassHours       []string `json:"class_hours"`
	DaySchedule      []string `json:"day_schedule"`
	Localities       []string `json:"localities"`
	Addresses        []string `json:"addresses"`
	Requirements     struct {
		AdultsOnly        bool     `json:"adults_only"`
		DriversLicense    bool     `json:"drivers_license"`
		PrimaryComplete   bool     `json:"primary_complete"`
		SecondaryComplete bool     `json:"secondary_complete"`
		Other             []string `json:"other"`
	} `json:"requirements"`
	Materials struct {
		StudentProvides []string `json:"student_provides"`
		CourseProvides  []string `json:"course_provides"`
	} `json:"materials"`
	EnrollmentFormURL string `json:"enrollment_form_url"`
	ImageURL          string `json:"image_url"`
	State             string `json:"state"`
}

// IntegrityRecorder receives validation problems found at load time.
type IntegrityRecorder interface {
	RecordCatalogIntegrityIssue(issueType string)
}

// Catalog is the immutable set of loaded courses, kept in source order.
type Catalog struct {
	courses []Course
	byID    map[string]int
}

// Load decodes a JSON array of raw records and validates each into a Course.
// Records without an id or title are dropped and counted as integrity issues;
// over-long lists are truncated. The recorder may be nil.
func Load(r io.Reader, log *logger.Logger, rec IntegrityRecorder) (*Catalog, error) {
	var raws []RawCourse
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	cat := &Catalog{byID: make(map[string]int, len(raws))}
	for i, raw := range raws {
		course, issues := validate(raw)
		for _, issue := range issues {
			if rec != nil {
				rec.RecordCatalogIntegrityIssue(issue)
			}
			log.WithModule("catalog").
				WithField("record", i).
				WithField("issue", issue).
				Warn("Catalog record issue")
		}
		if course == nil {
			continue
		}
		if _, dup := cat.byID[course.ID]; dup {
			if rec != nil {
				rec.RecordCatalogIntegrityIssue("duplicate_id")
			}
			log.WithModule("catalog").WithField("id", course.ID).Warn("Duplicate course id, keeping first")
			continue
		}
		cat.byID[course.ID] = len(cat.courses)
		cat.courses = append(cat.courses, *course)
	}

	log.WithModule("catalog").WithField("courses", len(cat.courses)).Info("Catalog loaded")
	return cat, nil
}

// LoadFromFile loads the catalog from a local JSON file.
func LoadFromFile(path string, log *logger.Logger, rec IntegrityRecorder) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", apperrors.ErrCatalogUnavailable, path, err)
	}
	defer f.Close()
	return Load(f, log, rec)
}

// Empty returns a catalog with no courses, used when the source is missing
// or malformed and the service degrades instead of failing startup.
func Empty() *Catalog {
	return &Catalog{byID: make(map[string]int)}
}

// validate whitelists one raw record into a Course.
// Returns (nil, issues) when the record must be dropped.
func validate(raw RawCourse) (*Course, []string) {
	var issues []string

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return nil, []string{"missing_id"}
	}
	title := sanitizeText(raw.Title, config.MaxTitleLength)
	if title == "" {
		return nil, []string{"empty_title"}
	}

	if ParseState(raw.State) == StateUpcoming && raw.State != "" && !isUpcomingToken(raw.State) {
		issues = append(issues, "unknown_state")
	}

	c := &Course{
		ID:                id,
		Title:             title,
		ShortDescription:  sanitizeText(raw.ShortDescription, config.MaxFieldLength),
		FullDescription:   sanitizeText(raw.FullDescription, config.MaxFieldLength),
		Activities:        sanitizeText(raw.Activities, config.MaxFieldLength),
		TotalDuration:     sanitizeText(raw.TotalDuration, config.MaxFieldLength),
		WeeklyFrequency:   sanitizeText(raw.WeeklyFrequency, config.MaxFieldLength),
		EnrollmentFormURL: sanitizeText(raw.EnrollmentFormURL, config.MaxFieldLength),
		ImageURL:          sanitizeText(raw.ImageURL, config.MaxFieldLength),
		State:             ParseState(raw.State),
	}

	c.StartDate = parseDate(raw.StartDate)
	c.EndDate = parseDate(raw.EndDate)
	c.StartDateHuman = humanDate(c.StartDate)
	c.EndDateHuman = humanDate(c.EndDate)

	var truncated bool
	c.ClassHours, truncated = capList(raw.ClassHours, config.MaxClassHours, truncated)
	c.DaySchedule, truncated = capList(raw.DaySchedule, config.MaxDaySchedule, truncated)
	c.Localities, truncated = capList(raw.Localities, config.MaxLocalities, truncated)
	c.Addresses, truncated = capList(raw.Addresses, config.MaxAddresses, truncated)
	c.Requirements.Other, truncated = capList(raw.Requirements.Other, config.MaxOtherRequirements, truncated)
	c.Materials.StudentProvides, truncated = capList(raw.Materials.StudentProvides, config.MaxMaterialsPerList, truncated)
	c.Materials.CourseProvides, truncated = capList(raw.Materials.CourseProvides, config.MaxMaterialsPerList, truncated)
	if truncated {
		issues = append(issues, "truncated_list")
	}

	c.Requirements.AdultsOnly = raw.Requirements.AdultsOnly
	c.Requirements.DriversLicense = raw.Requirements.DriversLicense
	c.Requirements.PrimaryComplete = raw.Requirements.PrimaryComplete
	c.Requirements.SecondaryComplete = raw.Requirements.SecondaryComplete

	return c, issues
}

func isUpcomingToken(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "upcoming", "proximamente", "próximamente", "proximo", "próximo":
		return true
	}
	return false
}

// sanitizeText neutralizes HTML-sensitive characters and bounds length.
// Catalog data is untrusted: it must not be able to inject markup into
// rendered answers or instructions into the generation context.
func sanitizeText(s string, maxRunes int) string {
	s = html.EscapeString(strings.TrimSpace(s))
	runes := []rune(s)
	if len(runes) > maxRunes {
		return string(runes[:maxRunes])
	}
	return s
}

// capList sanitizes each entry, drops empties, and truncates to max.
func capList(in []string, max int, alreadyTruncated bool) ([]string, bool) {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if clean := sanitizeText(s, config.MaxFieldLength); clean != "" {
			out = append(out, clean)
		}
	}
	truncated := alreadyTruncated
	if len(out) > max {
		out = out[:max]
		truncated = true
	}
	if len(out) == 0 {
		return nil, truncated
	}
	return out, truncated
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Courses returns the loaded courses in catalog order.
// The returned slice must not be mutated.
func (c *Catalog) Courses() []Course {
	return c.courses
}

// ByID returns the course with the given id.
func (c *Catalog) ByID(id string) (*Course, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.courses[i], true
}

// Len returns the number of loaded courses.
func (c *Catalog) Len() int {
	return len(c.courses)
}

// CountByState returns the number of courses per lifecycle state.
func (c *Catalog) CountByState() map[State]int {
	counts := make(map[State]int, 4)
	for i := range c.courses {
		counts[c.courses[i].State]++
	}
	return counts
}

// Localities returns the unique localities across listable courses,
// in first-seen catalog order.
func (c *Catalog) Localities() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range c.courses {
		if !c.courses[i].State.IsListable() {
			continue
		}
		for _, loc := range c.courses[i].Localities {
			if _, ok := seen[loc]; ok {
				continue
			}
			seen[loc] = struct{}{}
			out = append(out, loc)
		}
	}
	return out
}
