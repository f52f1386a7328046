// Package web expone RoadSphere por HTTP: la página, la API JSON y el stream
// de frames de la escena por websocket.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/logger"
	"github.com/PhelGc/roadsphere/internal/session"
)

//go:embed page.html
var pageFS embed.FS

// Config opciones del servidor web
type Config struct {
	Addr           string
	SessionCookie  string
	UploadMaxBytes int64
}

// Server servidor HTTP de RoadSphere
type Server struct {
	config   Config
	sessions *session.Manager
	logger   *zap.Logger
	page     *template.Template
	upgrader websocket.Upgrader
	server   *http.Server

	// baseCtx acota la vida de las animaciones iniciadas desde HTTP
	baseCtx context.Context
}

// NewServer crea el servidor con sus rutas
func NewServer(config Config, sessions *session.Manager, log *zap.Logger) *Server {
	if config.SessionCookie == "" {
		config.SessionCookie = "roadsphere_session"
	}
	if config.UploadMaxBytes <= 0 {
		config.UploadMaxBytes = 10 << 20
	}

	s := &Server{
		config:   config,
		sessions: sessions,
		logger:   logger.OrNop(log),
		page:     template.Must(template.ParseFS(pageFS, "page.html")),
		baseCtx:  context.Background(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 32 * 1024,
	}
	s.server = &http.Server{
		Addr:              config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler devuelve el mux con todas las rutas
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/analysis", s.handleAnalysis)
	mux.HandleFunc("GET /api/analysis.yaml", s.handleAnalysisYAML)

	mux.HandleFunc("GET /api/copilot", s.handleCopilot)
	mux.HandleFunc("POST /api/copilot", s.handleCopilotSend)

	mux.HandleFunc("GET /api/scene", s.handleScene)
	mux.HandleFunc("PUT /api/scene", s.handleSceneConfig)
	mux.HandleFunc("GET /api/scene.svg", s.handleSceneSVG)
	mux.HandleFunc("POST /api/scene/weather", s.handleSceneWeather)
	mux.HandleFunc("POST /api/scene/vehicles", s.handleAddVehicle)
	mux.HandleFunc("POST /api/scene/pedestrians", s.handleAddPedestrian)
	mux.HandleFunc("POST /api/scene/package", s.handleApplyPackage)
	mux.HandleFunc("POST /api/scene/animation/{action}", s.handleAnimation)
	mux.HandleFunc("GET /ws/scene", s.handleSceneStream)

	mux.HandleFunc("POST /api/knowledge/upload", s.handleUpload)
	mux.HandleFunc("POST /api/knowledge/build", s.handleBuild)
	mux.HandleFunc("POST /api/knowledge/query", s.handleQuery)
	mux.HandleFunc("DELETE /api/knowledge", s.handleClearKnowledge)

	return s.recoverer(mux)
}

// Start sirve hasta que ctx se cancela y luego apaga el servidor
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Servidor HTTP iniciado", zap.String("addr", s.config.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Apagando servidor HTTP...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Error en apagado del servidor HTTP", zap.Error(err))
		if err := s.server.Close(); err != nil {
			s.logger.Warn("Error forzando cierre del servidor HTTP", zap.Error(err))
		}
	}
	s.logger.Info("Servidor HTTP detenido")
	return nil
}

// sessionFor obtiene la sesión de la cookie o crea una nueva y fija la cookie
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(s.config.SessionCookie); err == nil {
		id = c.Value
	}

	sess, created := s.sessions.Get(id)
	if created || sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     s.config.SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("Panic en handler",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec))
				s.writeJSONError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Error escribiendo respuesta", zap.Error(err))
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
