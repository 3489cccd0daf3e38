// Package server exposes the single-page chat UI over HTTP: the page itself,
// the context file upload, the streamed chat endpoint, and the transcript dump.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/comigor/filechat/internal/agent"
	"github.com/comigor/filechat/internal/contextfile"
	"github.com/comigor/filechat/internal/logger"
	"github.com/comigor/filechat/internal/session"
)

const sessionCookie = "filechat_session"

// Uploads beyond this size are rejected before decoding.
const maxUploadBytes = 8 << 20

// Server wires the session store and the render loop to HTTP handlers.
type Server struct {
	store *session.Store
	loop  *agent.Loop
	tmpl  *template.Template
}

// New creates a Server. The page template is parsed once at startup.
func New(store *session.Store, loop *agent.Loop) *Server {
	return &Server{
		store: store,
		loop:  loop,
		tmpl:  template.Must(template.New("page").Parse(pageTemplate)),
	}
}

// Register sets up all HTTP handlers on the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/transcript", s.handleTranscript)
}

// sessionFor returns the session bound to the request cookie, creating a new
// session (and setting the cookie) when none exists yet.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess := s.store.Get(c.Value); sess != nil {
			return sess
		}
	}
	sess := s.store.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
	})
	logger.L.Info("session created", "session", sess.ID)
	return sess
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	sess := s.sessionFor(w, r)
	_, hasContext := sess.Context()

	data := struct {
		Turns      []session.Turn
		HasContext bool
	}{
		Turns:      sess.Turns(),
		HasContext: hasContext,
	}
	if err := s.tmpl.Execute(w, data); err != nil {
		logger.L.Error("failed to render page", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleUpload replaces the session's context blob with the decoded file.
// Decode failures are reported to the user; the session continues unchanged.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.sessionFor(w, r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(data) > maxUploadBytes {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	if err := s.loop.LoadContext(sess, data); err != nil {
		var decodeErr *contextfile.DecodeError
		if errors.As(err, &decodeErr) {
			writeJSONError(w, http.StatusUnprocessableEntity, decodeErr.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	logger.L.Info("context file uploaded", "session", sess.ID, "filename", header.Filename)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "filename": header.Filename})
}

// handleChat processes one submission and relays the model's fragments as
// Server-Sent Events. A terminal "done" event carries the full reply; an
// "error" event reports an inference failure without ending the session.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.sessionFor(w, r)

	message := r.FormValue("message")
	if message == "" {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.L.Error("streaming unsupported by response writer")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	reply, err := s.loop.Process(r.Context(), sess, message, func(fragment string) {
		writeSSE(w, "message", map[string]string{"content": fragment})
		flusher.Flush()
	})
	if err != nil {
		writeSSE(w, "error", map[string]string{"error": err.Error()})
		flusher.Flush()
		return
	}
	writeSSE(w, "done", map[string]string{"content": reply})
	flusher.Flush()
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	writeJSON(w, http.StatusOK, map[string]any{"turns": sess.Turns()})
}

// writeSSE frames one event. Payloads are JSON-encoded so fragment newlines
// survive the data: framing.
func writeSSE(w io.Writer, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Warn("failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
