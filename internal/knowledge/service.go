package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/logger"
	"github.com/PhelGc/roadsphere/internal/storage"
)

// Mensajes mostrados al usuario
const (
	MsgNoFile        = "Please select a CSV file first."
	MsgNotCSV        = "Please select a valid CSV file."
	MsgTooShort      = "CSV file must contain at least a header row and one data row."
	MsgNoRows        = "No valid data found in CSV file."
	MsgNoData        = "No data available. Please upload a CSV file first."
	MsgEmptyQuery    = "Please enter a query."
	MsgNoKnowledge   = "Please upload data and build knowledge base first."
	MsgCleared       = "Knowledge base cleared."
	msgBuiltTemplate = "Knowledge base built with %d records. You can now query your data."
)

// ValidationError error de entrada con mensaje para el usuario
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Querier responde preguntas sobre una vista previa del dataset
type Querier interface {
	QueryDataset(ctx context.Context, question, preview string) string
}

// Service mantiene el dataset cargado de una sesión y su base de conocimiento
type Service struct {
	mu      sync.Mutex
	dataset *Dataset
	gateway *storage.Gateway
	ai      Querier
	logger  *zap.Logger
}

// NewService crea el servicio de una sesión
func NewService(gateway *storage.Gateway, ai Querier, log *zap.Logger) *Service {
	return &Service{gateway: gateway, ai: ai, logger: logger.OrNop(log)}
}

// Upload valida y parsea un archivo CSV. filename vacío significa que no se
// eligió archivo.
func (s *Service) Upload(filename string, content []byte) (*Dataset, error) {
	if filename == "" {
		return nil, &ValidationError{Message: MsgNoFile}
	}
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil, &ValidationError{Message: MsgNotCSV}
	}

	ds, err := ParseCSV(string(content))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.dataset = ds
	s.mu.Unlock()

	s.logger.Info("CSV cargado",
		zap.String("file", filename),
		zap.Int("columns", len(ds.Headers)),
		zap.Int("rows", len(ds.Rows)))
	return ds, nil
}

// Dataset devuelve el dataset cargado o nil
func (s *Service) Dataset() *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset
}

// Build genera la base de conocimiento del dataset cargado y la guarda
func (s *Service) Build(ctx context.Context) ([]Record, string, error) {
	ds := s.Dataset()
	if ds == nil {
		return nil, "", &ValidationError{Message: MsgNoData}
	}

	records := BuildKnowledgeBase(ds)
	if err := s.gateway.Save(ctx, storage.KeyKnowledgeBase, records); err != nil {
		return nil, "", fmt.Errorf("error guardando base de conocimiento: %w", err)
	}
	return records, fmt.Sprintf(msgBuiltTemplate, len(records)), nil
}

// Records base de conocimiento guardada; vacía si no existe
func (s *Service) Records(ctx context.Context) []Record {
	var records []Record
	if !s.gateway.Load(ctx, storage.KeyKnowledgeBase, &records) {
		return nil
	}
	return records
}

// Clear borra la base de conocimiento guardada y olvida el CSV cargado
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.dataset = nil
	s.mu.Unlock()

	if err := s.gateway.Delete(ctx, storage.KeyKnowledgeBase); err != nil {
		return fmt.Errorf("error borrando base de conocimiento: %w", err)
	}
	s.logger.Info("Base de conocimiento borrada")
	return nil
}

// Query pregunta al modelo sobre el dataset. Sin pregunta o sin base de
// conocimiento devuelve la guía correspondiente sin llamar al modelo.
func (s *Service) Query(ctx context.Context, question string) string {
	if strings.TrimSpace(question) == "" {
		return MsgEmptyQuery
	}
	if len(s.Records(ctx)) == 0 {
		return MsgNoKnowledge
	}

	// Una base guardada sin CSV en memoria solo aporta la cabecera vacía
	preview := DataPreview(&Dataset{})
	if ds := s.Dataset(); ds != nil {
		preview = DataPreview(ds)
	}
	return s.ai.QueryDataset(ctx, strings.TrimSpace(question), preview)
}
