package chat

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/gmaidana/cursos-chatbot-go/internal/errors"
	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
	"github.com/gmaidana/cursos-chatbot-go/internal/metrics"
	"github.com/gmaidana/cursos-chatbot-go/internal/policy"
	"github.com/gmaidana/cursos-chatbot-go/internal/ratelimit"
)

// sessionHeader identifies the conversation; clients without it fall back to
// their IP, which merges conversations behind a shared NAT.
const sessionHeader = "X-Session-Id"

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Handler exposes the chat service over HTTP.
type Handler struct {
	service *Service
	limiter *ratelimit.PerKeyLimiter
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewHandler creates the HTTP handler. limiter may be nil to disable rate
// limiting.
func NewHandler(service *Service, limiter *ratelimit.PerKeyLimiter, log *logger.Logger, m *metrics.Metrics) *Handler {
	return &Handler{service: service, limiter: limiter, logger: log.WithModule("chat"), metrics: m}
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(c *gin.Context) {
	start := time.Now()
	requestID := uuid.NewString()
	sessionKey := h.sessionKey(c)

	if h.limiter != nil && !h.limiter.Allow(sessionKey) {
		h.metrics.RecordChat("rate_limited", "none", time.Since(start))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Demasiadas solicitudes, esperá un momento"})
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.RecordChat("bad_request", "none", time.Since(start))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Mensaje vacío"})
		return
	}

	reply, err := h.service.Turn(c.Request.Context(), sessionKey, requestID, req.Message)
	switch {
	case errors.Is(err, apperrors.ErrEmptyMessage):
		h.metrics.RecordChat("bad_request", "none", time.Since(start))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Mensaje vacío"})
		return
	case err != nil:
		h.metrics.RecordChat("error", "none", time.Since(start))
		h.logger.WithRequestID(requestID).WithError(err).Error("Chat turn failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar respuesta"})
		return
	}

	h.metrics.RecordChat("ok", reply.Path, time.Since(start))
	c.JSON(http.StatusOK, chatResponse{Message: reply.Text, RequestID: requestID})
}

// CourseDetail handles GET /curso/:id, the neutral reference target used in
// refusal and "more info" messages. Disclosure follows the same policy as
// chat: closed courses expose their label, never enrollment data.
func (h *Handler) CourseDetail(c *gin.Context) {
	course, ok := h.service.cat.ByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Curso no encontrado"})
		return
	}

	decision := policy.Decide(course.State)
	detail := gin.H{
		"id":     course.ID,
		"title":  course.Title,
		"state":  string(course.State),
		"label":  decision.Label,
		"closed": decision.RefusalOnly,
	}

	if !decision.RefusalOnly {
		detail["short_description"] = course.ShortDescription
		detail["full_description"] = course.FullDescription
		detail["activities"] = course.Activities
		detail["total_duration"] = course.TotalDuration
		detail["start_date"] = course.StartDateHuman
		detail["end_date"] = course.EndDateHuman
		detail["weekly_frequency"] = course.WeeklyFrequency
		detail["day_schedule"] = course.DaySchedule
		detail["class_hours"] = course.ClassHours
		detail["localities"] = course.Localities
		detail["addresses"] = course.Addresses
	}
	if decision.AllowEnrollmentLink && course.EnrollmentFormURL != "" {
		detail["enrollment_form_url"] = course.EnrollmentFormURL
	}

	c.JSON(http.StatusOK, detail)
}

func (h *Handler) sessionKey(c *gin.Context) string {
	if key := c.GetHeader(sessionHeader); key != "" {
		return key
	}
	return c.ClientIP()
}
