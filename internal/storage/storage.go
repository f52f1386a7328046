package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/evaluator"
	"github.com/PhelGc/roadsphere/internal/logger"
)

// Claves conocidas por sesión
const (
	KeyLastAnalysis  = "lastAnalysis"
	KeyKnowledgeBase = "customKnowledgeBase"
)

// ErrNotFound se devuelve cuando la clave no existe
var ErrNotFound = errors.New("clave no encontrada")

// Backend es un almacén clave/valor con espacios de nombres (uno por sesión)
type Backend interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	Close() error
}

// Gateway envuelve un Backend para un espacio de nombres y serializa en JSON.
// Los lectores tratan datos ausentes o corruptos como inexistentes.
type Gateway struct {
	backend   Backend
	namespace string
	logger    *zap.Logger
}

// NewGateway crea un Gateway para el espacio de nombres dado
func NewGateway(backend Backend, namespace string, log *zap.Logger) *Gateway {
	return &Gateway{
		backend:   backend,
		namespace: namespace,
		logger:    logger.OrNop(log),
	}
}

// Save serializa v y reemplaza el valor anterior de key
func (g *Gateway) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error serializando %s: %w", key, err)
	}
	if err := g.backend.Put(ctx, g.namespace, key, data); err != nil {
		return fmt.Errorf("error guardando %s: %w", key, err)
	}
	return nil
}

// Load decodifica key en v. Devuelve false si no existe o no se puede leer.
func (g *Gateway) Load(ctx context.Context, key string, v any) bool {
	data, err := g.backend.Get(ctx, g.namespace, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			g.logger.Warn("Error leyendo storage", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		g.logger.Warn("Dato corrupto en storage, se ignora", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete borra key; no falla si no existe
func (g *Gateway) Delete(ctx context.Context, key string) error {
	if err := g.backend.Delete(ctx, g.namespace, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("error borrando %s: %w", key, err)
	}
	return nil
}

// SaveAnalysis guarda el último análisis, sobrescribiendo el anterior
func (g *Gateway) SaveAnalysis(ctx context.Context, result evaluator.AnalysisResult) error {
	return g.Save(ctx, KeyLastAnalysis, result)
}

// LoadAnalysis devuelve el último análisis guardado, si existe
func (g *Gateway) LoadAnalysis(ctx context.Context) (*evaluator.AnalysisResult, bool) {
	var result evaluator.AnalysisResult
	if !g.Load(ctx, KeyLastAnalysis, &result) {
		return nil, false
	}
	result = result.Normalize()
	return &result, true
}
