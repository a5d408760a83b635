// Package chat orchestrates one conversation turn: refusal check, intent
// classification, deterministic rendering, and the policy-filtered
// generation fallback, in that order.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
	apperrors "github.com/gmaidana/cursos-chatbot-go/internal/errors"
	"github.com/gmaidana/cursos-chatbot-go/internal/genai"
	"github.com/gmaidana/cursos-chatbot-go/internal/intent"
	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
	"github.com/gmaidana/cursos-chatbot-go/internal/matcher"
	"github.com/gmaidana/cursos-chatbot-go/internal/metrics"
	"github.com/gmaidana/cursos-chatbot-go/internal/policy"
	"github.com/gmaidana/cursos-chatbot-go/internal/rag"
	"github.com/gmaidana/cursos-chatbot-go/internal/render"
	"github.com/gmaidana/cursos-chatbot-go/internal/session"
	"github.com/gmaidana/cursos-chatbot-go/internal/storage"
)

// Answer paths, recorded per turn in metrics and the audit log.
const (
	PathRefusal   = "refusal"
	PathTemplate  = "template"
	PathGenerated = "generated"
)

// Generator is the slice of genai.Chain the service needs; narrowed for
// testability.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, genai.Provider, error)
	IsEnabled() bool
}

// ServiceConfig carries the per-turn knobs.
type ServiceConfig struct {
	GenerationTimeout time.Duration
	IncludeClosed     bool // expose closed courses to the generation context
	TopMatches        int  // ranked candidates handed to the generation hint
	MaxMessageLength  int  // messages longer than this are truncated (runes)
	MaxListingEntries int  // cap on topic/locality listing replies
}

// Service executes chat turns against a fixed catalog.
type Service struct {
	cat        *catalog.Catalog
	classifier *intent.Classifier
	renderer   *render.Renderer
	filter     *policy.Engine
	chain      Generator
	index      *rag.Index
	sessions   *session.Store
	db         *storage.DB // nil disables the audit log
	logger     *logger.Logger
	metrics    *metrics.Metrics
	cfg        ServiceConfig
}

// NewService wires the turn pipeline. db may be nil.
func NewService(cat *catalog.Catalog, chain Generator, index *rag.Index, sessions *session.Store,
	db *storage.DB, log *logger.Logger, m *metrics.Metrics, cfg ServiceConfig) *Service {
	listingCap := cfg.MaxListingEntries
	if listingCap <= 0 {
		listingCap = cat.Len()
	}
	return &Service{
		cat:        cat,
		classifier: intent.New(cat),
		renderer:   render.New(cat, listingCap),
		filter:     policy.NewEngine(cat),
		chain:      chain,
		index:      index,
		sessions:   sessions,
		db:         db,
		logger:     log.WithModule("chat"),
		metrics:    m,
		cfg:        cfg,
	}
}

// Reply is the outcome of one turn.
type Reply struct {
	Text     string
	Path     string
	Intent   intent.Intent
	CourseID string
	Provider string
}

// Turn runs the single-turn state machine. The direct-mention refusal check
// always runs first and cannot be overridden by any later stage.
func (s *Service) Turn(ctx context.Context, sessionKey, requestID, message string) (Reply, error) {
	message = truncateRunes(strings.TrimSpace(message), s.cfg.MaxMessageLength)
	if message == "" {
		return Reply{}, apperrors.ErrEmptyMessage
	}

	reply, err := s.resolve(ctx, sessionKey, message)
	if err != nil {
		return Reply{}, err
	}

	s.sessions.AppendTurn(sessionKey, message, reply.Text)
	s.auditTurn(ctx, sessionKey, requestID, message, reply)
	return reply, nil
}

func (s *Service) resolve(ctx context.Context, sessionKey, message string) (Reply, error) {
	// Refusal preemption: a direct mention of a closed course ends the turn
	// before classification.
	if c, ok := matcher.FindDirectMention(s.cat.Courses(), message); ok {
		if policy.Decide(c.State).RefusalOnly {
			s.metrics.RecordRefusal(string(c.State))
			return Reply{Text: policy.RefusalText(c), Path: PathRefusal, Intent: intent.GeneralInfo, CourseID: c.ID}, nil
		}
	}

	res := s.classifier.Classify(message)
	s.metrics.RecordIntent(string(res.Intent))

	// Short "pasame el link" follow-ups replay the last offered link.
	if s.wantsOfferedLink(res, message) {
		if offer, ok := s.sessions.LastOffered(sessionKey); ok {
			return Reply{Text: s.renderer.FollowUpLink(offer), Path: PathTemplate, Intent: res.Intent, CourseID: offer.CourseID}, nil
		}
	}

	if text, ok := s.renderer.Render(res); ok {
		reply := Reply{Text: text, Path: PathTemplate, Intent: res.Intent}
		if res.Course != nil {
			reply.CourseID = res.Course.ID
			s.rememberOffer(sessionKey, res)
		}
		return reply, nil
	}

	return s.generate(ctx, sessionKey, message, res)
}

// wantsOfferedLink detects follow-ups that should reuse the remembered link
// instead of listing open courses or hitting the generation fallback.
func (s *Service) wantsOfferedLink(res intent.Result, message string) bool {
	switch res.Intent {
	case intent.EnrollmentGeneral:
		return true
	case intent.Unknown:
		return intent.WantsLink(message)
	default:
		return false
	}
}

func (s *Service) rememberOffer(sessionKey string, res intent.Result) {
	c := res.Course
	if res.Intent != intent.EnrollmentLink && res.Intent != intent.GeneralInfo {
		return
	}
	if c.State != catalog.StateEnrollmentOpen || c.EnrollmentFormURL == "" {
		return
	}
	s.sessions.SetLastOffered(sessionKey, session.Offer{
		CourseID: c.ID,
		Title:    c.Title,
		FormURL:  c.EnrollmentFormURL,
	})
}

func (s *Service) generate(ctx context.Context, sessionKey, message string, res intent.Result) (Reply, error) {
	if s.chain == nil || !s.chain.IsEnabled() {
		return Reply{Text: helpText, Path: PathTemplate, Intent: res.Intent}, nil
	}

	titleMatches := matcher.TopMatches(s.cat.Courses(), message, s.cfg.TopMatches)
	keywordResults, err := s.index.Search(message, s.cfg.TopMatches)
	if err != nil {
		s.logger.WithError(err).Warn("BM25 search failed, generating without keyword hints")
	}
	hints := rag.FuseHints(titleMatches, keywordResults, s.cfg.TopMatches)

	snap := s.sessions.Snapshot(sessionKey)
	system, user := s.renderer.BuildPrompt(render.PromptInput{
		Message:       message,
		History:       snap.History,
		Hints:         hints,
		IncludeClosed: s.cfg.IncludeClosed,
	})

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	text, provider, err := s.chain.Generate(genCtx, system, user)
	if err != nil {
		s.logger.WithError(err).Error("Generation fallback failed")
		return Reply{}, apperrors.Wrap("chat", "generate",
			fmt.Errorf("%w: %w", apperrors.ErrGenerationFailed, err), "Error al generar respuesta")
	}

	// Generated output is untrusted: strip any enrollment link whose course
	// is not open before release.
	sanitized, stripped := s.filter.SanitizeGenerated(text)
	for i := 0; i < stripped; i++ {
		s.metrics.RecordLinkStripped()
	}
	if stripped > 0 {
		s.logger.WithField("stripped", stripped).Warn("Stripped enrollment links from generated output")
	}

	return Reply{Text: sanitized, Path: PathGenerated, Intent: res.Intent, Provider: provider.String()}, nil
}

func (s *Service) auditTurn(ctx context.Context, sessionKey, requestID, message string, reply Reply) {
	if s.db == nil {
		return
	}
	err := s.db.InsertTurn(ctx, storage.Turn{
		SessionKey: sessionKey,
		RequestID:  requestID,
		Message:    message,
		Response:   reply.Text,
		Intent:     string(reply.Intent),
		Path:       reply.Path,
		CourseID:   reply.CourseID,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to audit turn")
	}
}

// ActiveSessions exposes the live session count for metrics jobs.
func (s *Service) ActiveSessions() int {
	return s.sessions.Len()
}

const helpText = "No te entendí bien. Podés preguntarme qué cursos hay, los cursos de tu localidad, o los horarios, requisitos y materiales de un curso puntual."

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
