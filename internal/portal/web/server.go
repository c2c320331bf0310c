// Package web serves the configuration form of the captive portal.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/credentials"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/portal"
)

const (
	// DefaultAddr is where the form is served on a device
	DefaultAddr = ":80"

	// RequestTimeout bounds how long a handler waits for the supervisor's tick
	RequestTimeout = 5 * time.Second

	shutdownTimeout = 2 * time.Second
)

// probePaths are the connectivity checks phones and laptops make after joining a network
var probePaths = []string{
	"/generate_204",
	"/gen_204",
	"/hotspot-detect.html",
	"/library/test/success.html",
	"/connecttest.txt",
	"/ncsi.txt",
	"/success.txt",
}

// StatusFunc returns a JSON-encodable status document for GET /status
type StatusFunc func() any

// Server is the portal's HTTP form server. It implements portal.FormServer.
type Server struct {
	Addr   string
	status StatusFunc

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// Option configures a Server
type Option func(*Server)

// WithStatus exposes a status document at GET /status
func WithStatus(f StatusFunc) Option {
	return func(s *Server) {
		s.status = f
	}
}

// NewServer creates a form server for addr
func NewServer(addr string, opts ...Option) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{Addr: addr}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens on Addr and serves b until Stop
func (s *Server) Start(b portal.Backend) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(b),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Portal HTTP server failed", zap.Error(err))
		}
	}()

	s.srv = srv
	s.listener = ln
	logging.Info("Portal form listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down within a bounded time
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.srv.Shutdown(ctx)
	s.srv = nil
	s.listener = nil
	return err
}

// URL returns the base URL of the running server, or ""
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

// Handler builds the router for b
func (s *Server) Handler(b portal.Backend) http.Handler {
	h := &handlers{backend: b, status: s.status}

	router := httprouter.New()
	router.GET("/", h.index)
	router.POST("/save", h.save)
	router.POST("/delete", h.remove)
	router.GET("/networks", h.networks)
	if s.status != nil {
		router.GET("/status", h.statusDoc)
	}
	for _, p := range probePaths {
		router.GET(p, redirectHome)
	}
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		redirectHome(w, r, nil)
	})

	return logRequests(router)
}

// StatusCode maps a portal or store error to the HTTP status returned to the form
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case credentials.IsValidationError(err):
		return http.StatusBadRequest
	case credentials.IsCapacityExceeded(err):
		return http.StatusConflict
	case credentials.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, portal.ErrPortalInactive),
		errors.Is(err, portal.ErrPortalClosed),
		errors.Is(err, portal.ErrPortalBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text shown to the user for err
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, portal.ErrPortalInactive), errors.Is(err, portal.ErrPortalClosed):
		return "The setup portal has closed."
	case errors.Is(err, portal.ErrPortalBusy):
		return "The device is busy, please try again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The device did not answer in time, please try again."
	default:
		return credentials.ShortMessage(err)
	}
}

type handlers struct {
	backend portal.Backend
	status  StatusFunc
}

type pageData struct {
	Networks []string
	Message  string
	Error    bool
	Capacity int
}

func (h *handlers) render(w http.ResponseWriter, code int, data pageData) {
	data.Networks = h.backend.Networks()
	data.Capacity = h.backend.Capacity()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := formPage.Execute(w, data); err != nil {
		logging.Debug("Form render failed", zap.Error(err))
	}
}

// reply answers a form post with the page, or with JSON for API clients
func (h *handlers) reply(w http.ResponseWriter, r *http.Request, code int, data pageData) {
	if !wantsJSON(r) {
		h.render(w, code, data)
		return
	}
	body := apiReply{Message: data.Message}
	if data.Error {
		body.Error = data.Message
		body.Message = ""
	}
	writeJSON(w, code, body)
}

// apiReply is the JSON body of /save and /delete
type apiReply struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.render(w, http.StatusOK, pageData{})
}

func (h *handlers) save(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		h.reply(w, r, http.StatusBadRequest, pageData{Message: "Malformed form submission.", Error: true})
		return
	}
	ssid := r.PostFormValue("ssid")

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	err := h.backend.Save(ctx, ssid, r.PostFormValue("password"))
	if err != nil {
		h.reply(w, r, StatusCode(err), pageData{Message: Message(err), Error: true})
		return
	}
	h.reply(w, r, http.StatusOK, pageData{
		Message: fmt.Sprintf("Saved %s. The device is now connecting; this page will stop responding.", ssid),
	})
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		h.reply(w, r, http.StatusBadRequest, pageData{Message: "Malformed form submission.", Error: true})
		return
	}
	ssid := r.PostFormValue("ssid")

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	if err := h.backend.Delete(ctx, ssid); err != nil {
		h.reply(w, r, StatusCode(err), pageData{Message: Message(err), Error: true})
		return
	}
	h.reply(w, r, http.StatusOK, pageData{Message: fmt.Sprintf("Removed %s.", ssid)})
}

func (h *handlers) networks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]any{
		"networks": h.backend.Networks(),
		"capacity": h.backend.Capacity(),
		"active":   h.backend.Active(),
	})
}

func (h *handlers) statusDoc(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, h.status())
}

func redirectHome(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	target := "http://" + r.Host + "/"
	if r.Host == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("JSON encode failed", zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.code)
	})
}

var formPage = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>WiFi setup</title>
<style>
body { font-family: sans-serif; max-width: 28em; margin: 2em auto; padding: 0 1em; }
input { width: 100%; padding: .5em; margin: .25em 0 1em; box-sizing: border-box; }
button { padding: .5em 1em; }
.msg { padding: .75em; background: #e8f5e9; }
.err { background: #ffebee; }
li form { display: inline; }
</style>
</head>
<body>
<h1>WiFi setup</h1>
{{if .Message}}<p class="msg{{if .Error}} err{{end}}">{{.Message}}</p>{{end}}
<form method="post" action="/save">
<label>Network name<input name="ssid" maxlength="32" required></label>
<label>Password<input name="password" type="password" minlength="8" maxlength="64" required></label>
<button type="submit">Save and connect</button>
</form>
<h2>Saved networks ({{len .Networks}}/{{.Capacity}})</h2>
{{if .Networks}}<ul>
{{range .Networks}}<li>{{.}} <form method="post" action="/delete"><input type="hidden" name="ssid" value="{{.}}"><button type="submit">Remove</button></form></li>
{{end}}</ul>{{else}}<p>None yet.</p>{{end}}
</body>
</html>
`))
