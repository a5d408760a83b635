package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
	"github.com/gmaidana/cursos-chatbot-go/internal/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T, chain Generator, limiter *ratelimit.PerKeyLimiter) *gin.Engine {
	t.Helper()
	s := testService(t, chain)
	h := NewHandler(s, limiter, logger.NewWithWriter("error", io.Discard), nil)

	router := gin.New()
	router.POST("/api/chat", h.Chat)
	router.GET("/curso/:id", h.CourseDetail)
	return router
}

func postChat(router *gin.Engine, sessionID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatEmptyMessage(t *testing.T) {
	router := testRouter(t, &fakeChain{reply: "hola"}, nil)

	for _, body := range []string{`{"message": ""}`, `{"message": "   "}`, `{}`, `no-json`} {
		w := postChat(router, "s1", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
		assert.JSONEq(t, `{"error": "Mensaje vacío"}`, w.Body.String())
	}
}

func TestChatTemplateAnswer(t *testing.T) {
	router := testRouter(t, &fakeChain{}, nil)

	w := postChat(router, "s1", `{"message": "¿qué cursos hay?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "Curso de Costura")
	assert.NotEmpty(t, resp.RequestID)

	// The answer travels in the "message" field of the body.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw, "message")
}

func TestChatGenerationFailure(t *testing.T) {
	router := testRouter(t, &fakeChain{err: errors.New("providers down")}, nil)

	w := postChat(router, "s1", `{"message": "contame algo sobre cocina regional"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "Error al generar respuesta"}`, w.Body.String())
}

func TestChatRateLimited(t *testing.T) {
	limiter := ratelimit.NewPerKeyLimiter(ratelimit.PerKeyLimiterConfig{
		MaxTokens:     1,
		RefillRate:    0.001,
		CleanupPeriod: time.Minute,
	})
	defer limiter.Stop()

	router := testRouter(t, &fakeChain{}, limiter)

	w := postChat(router, "s1", `{"message": "¿qué cursos hay?"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postChat(router, "s1", `{"message": "¿qué cursos hay?"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// A different session keeps its own bucket.
	w = postChat(router, "s2", `{"message": "¿qué cursos hay?"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCourseDetailOpenCourse(t *testing.T) {
	router := testRouter(t, &fakeChain{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/curso/1?y=2025", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var detail map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "Curso de Costura", detail["title"])
	assert.Equal(t, "https://forms.gle/abc123", detail["enrollment_form_url"])
	assert.Equal(t, false, detail["closed"])
}

func TestCourseDetailClosedCourseHidesEnrollment(t *testing.T) {
	router := testRouter(t, &fakeChain{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/curso/42", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var detail map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "Curso de Gastronomía", detail["title"])
	assert.Equal(t, "Finalizado", detail["label"])
	assert.Equal(t, true, detail["closed"])
	assert.NotContains(t, detail, "enrollment_form_url")
	assert.NotContains(t, detail, "short_description")
}

func TestCourseDetailNotFound(t *testing.T) {
	router := testRouter(t, &fakeChain{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/curso/999", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
