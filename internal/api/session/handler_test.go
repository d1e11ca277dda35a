package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/nelson-backend/internal/config"
	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/formatter"
	"github.com/futig/nelson-backend/internal/pkg/validator"
	"github.com/futig/nelson-backend/internal/repository"
	sessionuc "github.com/futig/nelson-backend/internal/usecase/session"
)

type fixture struct {
	router http.Handler
	repo   *repository.SessionMemory
}

func newFixture() *fixture {
	repo := repository.NewSessionMemory()
	uc := sessionuc.NewUsecase(repo, formatter.NewFactory(), entity.Corpus{
		Name:      "Nelson Textbook of Pediatrics",
		ShortName: "Nelson",
		Edition:   "22nd Edition",
	})
	h := NewHandler(uc, validator.NewValidator(config.ValidationConfig{
		MaxQueryLength:  100,
		MaxTitleLength:  20,
		MaxHistoryTurns: 10,
	}))

	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return &fixture{router: r, repo: repo}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func (f *fixture) create(t *testing.T, title string) *entity.Session {
	t.Helper()
	rec := f.do(http.MethodPost, "/sessions", `{"title":"`+title+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var session entity.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	return &session
}

func TestHandler_CreateSession(t *testing.T) {
	f := newFixture()

	t.Run("with title", func(t *testing.T) {
		session := f.create(t, "Fever")
		assert.Equal(t, "Fever", session.Title)
		assert.NotEmpty(t, session.ID)
	})

	t.Run("empty body", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/sessions", "")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), sessionuc.DefaultTitle)
	})

	t.Run("title too long", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/sessions", `{"title":"a title well beyond twenty characters"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_ListSessions(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	f.create(t, "one")
	f.create(t, "two")

	rec = f.do(http.MethodGet, "/sessions?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []entity.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	assert.Len(t, sessions, 1)

	rec = f.do(http.MethodGet, "/sessions?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetMessages(t *testing.T) {
	f := newFixture()
	session := f.create(t, "Croup")
	_, err := f.repo.AppendMessage(t.Context(), &entity.Message{SessionID: session.ID, Role: entity.RoleUser, Content: "barking cough?"})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/sessions/"+session.ID+"/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []entity.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "barking cough?", msgs[0].Content)

	t.Run("invalid id", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/sessions/nope/messages", "").Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/sessions/6f1c1f4e-8a0b-4a4e-9d8e-2f1f2d0c9b11/messages", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_ExportTranscript(t *testing.T) {
	f := newFixture()
	session := f.create(t, "Croup")

	t.Run("defaults to markdown", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/sessions/"+session.ID+"/export", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), session.ID+".md")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "# Croup"))
	})

	t.Run("pdf", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/sessions/"+session.ID+"/export?format=pdf", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
	})

	t.Run("unsupported format", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/sessions/"+session.ID+"/export?format=html", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_DeleteSession(t *testing.T) {
	f := newFixture()
	session := f.create(t, "temp")

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/sessions/"+session.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/sessions/"+session.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/sessions/"+session.ID, "").Code)
}
