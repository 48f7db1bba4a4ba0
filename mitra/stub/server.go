// mitra/stub/server.go
package stub

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"mitra/mitra/types"
)

// Server is a self-contained stand-in for the real backend, implementing the
// client's wire contract with demo fixtures and a canned answer pipeline.
// It exists for offline development and for end-to-end tests; it performs no
// real inference or transcription.
type Server struct {
	secret string
	users  []DemoUser
	store  *memoryStore
}

func NewServer(secret string) *Server {
	return &Server{
		secret: secret,
		users:  demoUsers(),
		store:  newMemoryStore(),
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/auth/login", s.handleLogin)

	r.Group(func(gr chi.Router) {
		gr.Use(s.authMiddleware)

		gr.Group(func(tr chi.Router) {
			tr.Use(requireRole(types.RoleTeacher))
			tr.Post("/teacher/query", s.handleQuery)
			tr.Post("/teacher/query-voice", s.handleQueryVoice)
			tr.Get("/teacher/sessions", s.handleSessions)
		})

		gr.Group(func(cr chi.Router) {
			cr.Use(requireRole(types.RoleCRP))
			cr.Get("/crp/teachers", s.handleCRPTeachers)
			cr.Get("/crp/teacher/{teacher_id}/chats", s.handleCRPTeacherChats)
			cr.Get("/crp/analytics", s.handleCRPAnalytics)
		})
	})

	return r
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, u := range s.users {
		if u.Email == req.Email && u.Password == req.Password {
			token, err := s.mintToken(u.ID, u.Role)
			if err != nil {
				writeDetail(w, http.StatusInternalServerError, "token error")
				return
			}
			writeJSON(w, http.StatusOK, types.LoginResponse{
				AccessToken: token,
				UserID:      u.ID,
				Name:        u.Name,
				Email:       u.Email,
				Role:        u.Role,
				CRPID:       u.CRPID,
			})
			return
		}
	}
	writeDetail(w, http.StatusUnauthorized, "incorrect email or password")
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	teacherID := r.Context().Value(userIDKey).(string)
	var req types.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QueryText == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "query_text is required")
		return
	}
	writeJSON(w, http.StatusOK, s.runExchange(teacherID, req.SessionID, req.QueryText, "text"))
}

// stubTranscript stands in for real speech-to-text.
const stubTranscript = "Voice question (transcription stubbed)"

func (s *Server) handleQueryVoice(w http.ResponseWriter, r *http.Request) {
	teacherID := r.Context().Value(userIDKey).(string)
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "audio file is required")
		return
	}
	defer file.Close()
	audio, err := io.ReadAll(file)
	if err != nil || len(audio) == 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "audio file is empty")
		return
	}
	sessionID := r.FormValue("session_id")
	writeJSON(w, http.StatusOK, s.runExchange(teacherID, sessionID, stubTranscript, "voice"))
}

// runExchange assigns the session identity (create vs. continue) and stores
// the exchange the way the real backend persists chat history.
func (s *Server) runExchange(teacherID, sessionID, queryText, sourceType string) types.QueryResponse {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	cls := classify(queryText)
	s.store.append(teacherID, sessionID, types.StoredMessage{
		QueryText:        queryText,
		AnswerText:       cls.Answer,
		DetectedTopic:    cls.Topic,
		QuerySentiment:   cls.Sentiment,
		DetectedLanguage: cls.Language,
		SourceType:       sourceType,
		Timestamp:        time.Now(),
	})
	return types.QueryResponse{
		AnswerText:       cls.Answer,
		DetectedTopic:    cls.Topic,
		QuerySentiment:   cls.Sentiment,
		DetectedLanguage: cls.Language,
		SuggestedActions: cls.SuggestedActions,
		SessionID:        sessionID,
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	teacherID := r.Context().Value(userIDKey).(string)
	writeJSON(w, http.StatusOK, s.store.list(teacherID))
}

func (s *Server) handleCRPTeachers(w http.ResponseWriter, r *http.Request) {
	crpID := r.Context().Value(userIDKey).(string)
	teachers := make([]types.TeacherProfile, 0)
	for _, u := range s.users {
		if u.Role != types.RoleTeacher || u.CRPID != crpID {
			continue
		}
		profile := types.TeacherProfile{
			ID:       u.ID,
			Name:     u.Name,
			Email:    u.Email,
			Grade:    u.Grade,
			Subject:  u.Subject,
			Location: u.Location,
			CRPID:    u.CRPID,
		}
		for _, rec := range s.store.list(u.ID) {
			profile.TotalQueries += len(rec.Messages)
		}
		teachers = append(teachers, profile)
	}
	writeJSON(w, http.StatusOK, teachers)
}

func (s *Server) handleCRPTeacherChats(w http.ResponseWriter, r *http.Request) {
	crpID := r.Context().Value(userIDKey).(string)
	teacherID := chi.URLParam(r, "teacher_id")
	for _, u := range s.users {
		if u.ID == teacherID && u.Role == types.RoleTeacher {
			if u.CRPID != crpID {
				writeDetail(w, http.StatusForbidden, "teacher not assigned to this CRP")
				return
			}
			writeJSON(w, http.StatusOK, s.store.list(teacherID))
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "teacher not found")
}

func (s *Server) handleCRPAnalytics(w http.ResponseWriter, r *http.Request) {
	crpID := r.Context().Value(userIDKey).(string)
	var teacherIDs []string
	for _, u := range s.users {
		if u.Role == types.RoleTeacher && u.CRPID == crpID {
			teacherIDs = append(teacherIDs, u.ID)
		}
	}
	messages := s.store.allMessages(teacherIDs)

	topicCounts := make(map[string]int)
	analytics := types.CRPAnalytics{
		CRPID:                 crpID,
		TotalTeachers:         len(teacherIDs),
		TotalQueries:          len(messages),
		SentimentDistribution: make(map[string]int),
		LanguageDistribution:  make(map[string]int),
	}
	for _, m := range messages {
		topicCounts[m.DetectedTopic]++
		analytics.SentimentDistribution[m.QuerySentiment]++
		analytics.LanguageDistribution[m.DetectedLanguage]++
	}
	for topic, count := range topicCounts {
		analytics.TopTopics = append(analytics.TopTopics, types.TopicCount{Topic: topic, Count: count})
	}
	writeJSON(w, http.StatusOK, analytics)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDetail mirrors the real backend's error body shape.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
