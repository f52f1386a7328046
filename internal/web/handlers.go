package web

import (
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/PhelGc/roadsphere/internal/copilot"
	"github.com/PhelGc/roadsphere/internal/knowledge"
	"github.com/PhelGc/roadsphere/internal/scenario"
	"github.com/PhelGc/roadsphere/internal/scene"
)

const (
	msgPackageApplied = "AI Package Applied! Safety interventions from your last analysis have been activated."
	msgNoPackage      = "No previous analysis found. Please analyze a scenario first on the Scenario & Results page."
	msgTooLarge       = "CSV file is too large."
)

type pageData struct {
	View          *scenario.View
	Context       *copilot.Summary
	Transcript    []copilot.Message
	SceneSVG      template.HTML
	Scene         scene.Config
	SceneTypes    []scene.SceneType
	Weathers      []scene.Weather
	Weather       scene.Weather
	UploadMaxSize int64
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	ctx := r.Context()

	data := pageData{
		Transcript:    sess.Copilot.Transcript(),
		SceneSVG:      template.HTML(sess.Scene.Draw().SVG()),
		Scene:         sess.Scene.Config(),
		SceneTypes:    scene.SceneTypes,
		Weathers:      []scene.Weather{scene.WeatherNone, scene.WeatherRain, scene.WeatherFog, scene.WeatherSnow},
		Weather:       sess.Scene.Weather(),
		UploadMaxSize: s.config.UploadMaxBytes,
	}
	if v, ok := sess.Scenario.Restore(ctx); ok {
		data.View = &v
	}
	if summary, ok := sess.Copilot.Context(ctx); ok {
		data.Context = &summary
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("Error ejecutando plantilla", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "roadsphere",
		"sessions":  s.sessions.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// --- Escenario ---

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	var form scenario.Form
	if err := decodeJSON(w, r, &form); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid scenario form")
		return
	}

	view, err := sess.Scenario.Submit(r.Context(), form)
	if errors.Is(err, scenario.ErrBusy) {
		s.writeJSONError(w, http.StatusConflict, "Analysis already in progress.")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, scenario.ErrorMessage)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	view, ok := sess.Scenario.Restore(r.Context())
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no previous analysis")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAnalysisYAML(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	result, ok := sess.Gateway.LoadAnalysis(r.Context())
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no previous analysis")
		return
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="analysis.yaml"`)
	_, _ = w.Write(data)
}

// --- Copiloto ---

type copilotResponse struct {
	Context    *copilot.Summary  `json:"context,omitempty"`
	Transcript []copilot.Message `json:"transcript"`
}

func (s *Server) handleCopilot(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	resp := copilotResponse{Transcript: sess.Copilot.Transcript()}
	if summary, ok := sess.Copilot.Context(r.Context()); ok {
		resp.Context = &summary
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCopilotSend(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid message")
		return
	}

	reply, ok := sess.Copilot.Send(r.Context(), req.Message)
	if !ok {
		// Mensaje vacío: no hay nada que agregar al historial
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

// --- Escena ---

type sceneResponse struct {
	Config    scene.Config  `json:"config"`
	Weather   scene.Weather `json:"weather"`
	Animating bool          `json:"animating"`
	SVG       string        `json:"svg"`
}

func (s *Server) writeScene(w http.ResponseWriter, sc *scene.Scene, d scene.Drawing) {
	s.writeJSON(w, http.StatusOK, sceneResponse{
		Config:    sc.Config(),
		Weather:   sc.Weather(),
		Animating: sc.Animating(),
		SVG:       d.SVG(),
	})
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	sc := s.sessionFor(w, r).Scene
	s.writeScene(w, sc, sc.Draw())
}

func (s *Server) handleSceneSVG(w http.ResponseWriter, r *http.Request) {
	sc := s.sessionFor(w, r).Scene
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = io.WriteString(w, sc.Draw().SVG())
}

func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sc := s.sessionFor(w, r).Scene

	var cfg scene.Config
	if err := decodeJSON(w, r, &cfg); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid scene config")
		return
	}
	t, err := scene.ParseSceneType(string(cfg.Type))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg.Type = t
	s.writeScene(w, sc, sc.SetConfig(cfg))
}

func (s *Server) handleSceneWeather(w http.ResponseWriter, r *http.Request) {
	sc := s.sessionFor(w, r).Scene

	var req struct {
		Weather string `json:"weather"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid weather")
		return
	}
	weather, err := scene.ParseWeather(req.Weather)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeScene(w, sc, sc.SetWeather(weather))
}

func (s *Server) handleAddVehicle(w http.ResponseWriter, r *http.Request) {
	sc := s.sessionFor(w, r).Scene
	s.writeJSON(w, http.StatusCreated, sc.AddVehicle())
}

func (s *Server) handleAddPedestrian(w http.ResponseWriter, r *http.Request) {
	sc := s.sessionFor(w, r).Scene
	s.writeJSON(w, http.StatusCreated, sc.AddPedestrian())
}

func (s *Server) handleApplyPackage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	if _, err := sess.ApplyPackage(r.Context()); err != nil {
		if errors.Is(err, scene.ErrNoAnalysis) {
			s.writeJSONError(w, http.StatusConflict, msgNoPackage)
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": msgPackageApplied,
		"config":  sess.Scene.Config(),
		"svg":     sess.Scene.Draw().SVG(),
	})
}

func (s *Server) handleAnimation(w http.ResponseWriter, r *http.Request) {
	sc := s.sessionFor(w, r).Scene

	switch r.PathValue("action") {
	case "start":
		sc.StartAnimation(s.baseCtx)
	case "stop":
		sc.StopAnimation()
	default:
		s.writeJSONError(w, http.StatusNotFound, "unknown animation action")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"animating": sc.Animating()})
}

// --- Datos CSV ---

type uploadResponse struct {
	Columns int             `json:"columns"`
	Rows    int             `json:"rows"`
	Preview knowledge.Table `json:"preview"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	if r.ContentLength > s.config.UploadMaxBytes {
		s.writeJSONError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.UploadMaxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSONError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		s.writeJSONError(w, http.StatusBadRequest, knowledge.MsgNoFile)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Error reading file. Please try again.")
		return
	}

	ds, err := sess.Knowledge.Upload(header.Filename, content)
	if err != nil {
		s.writeValidation(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, uploadResponse{
		Columns: len(ds.Headers),
		Rows:    len(ds.Rows),
		Preview: knowledge.TablePreview(ds),
	})
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	records, msg, err := sess.Knowledge.Build(r.Context())
	if err != nil {
		s.writeValidation(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"records": len(records), "message": msg})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	var req struct {
		Question string `json:"question"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid query")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"answer": sess.Knowledge.Query(r.Context(), req.Question)})
}

func (s *Server) handleClearKnowledge(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	if err := sess.Knowledge.Clear(r.Context()); err != nil {
		s.logger.Error("Error borrando datos CSV", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": knowledge.MsgCleared})
}

func (s *Server) writeValidation(w http.ResponseWriter, err error) {
	var ve *knowledge.ValidationError
	if errors.As(err, &ve) {
		s.writeJSONError(w, http.StatusBadRequest, ve.Message)
		return
	}
	s.logger.Error("Error en datos CSV", zap.Error(err))
	s.writeJSONError(w, http.StatusInternalServerError, err.Error())
}
