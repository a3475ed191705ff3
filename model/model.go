// Package model - Model-Interface, Registrierung und Gewichte
//
// Dieses Paket definiert das Model-Interface und stellt Funktionen
// zur Initialisierung, zum Laden und zum Speichern von Modellen bereit.
//
// Hauptkomponenten:
// - Model: Interface fuer alle Modell-Architekturen
// - Register: Registriert Modell-Konstruktoren nach model_type
// - New: Erstellt ein Modell aus config.json-Daten
// - Load: Laedt Konfiguration und Gewichte aus einem Modellverzeichnis

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lingoforge/qwen2mt/fs/safetensors"
	"github.com/lingoforge/qwen2mt/kvcache"
	"github.com/lingoforge/qwen2mt/ml"
)

// Fehler-Definitionen
var (
	ErrUnsupportedModel = errors.New("model not supported")
	ErrMissingWeight    = errors.New("missing weight")
	ErrWeightShape      = errors.New("weight shape mismatch")
	ErrNonFinite        = errors.New("non-finite weight")
)

// Model definiert das Interface fuer spezifische Modell-Architekturen
type Model interface {
	// Forward maps token ids [B, L] to logits [B, L, vocab]. caches is nil
	// or holds one cache per layer.
	Forward(ctx *ml.Context, inputs *ml.Tensor, caches []kvcache.Cache) *ml.Tensor

	// NewCaches returns one empty cache per layer.
	NewCaches() []kvcache.Cache

	// Parameters enumerates every weight under its checkpoint name.
	Parameters() *ml.Parameters

	ModelType() string
}

// Validator ist ein optionales Interface fuer Post-Load-Validierung.
// Load ruft Validate nach dem Laden der Gewichte auf.
type Validator interface {
	Validate() error
}

// Constructor builds a model from raw config.json bytes. A nil rng yields
// zero weights that are expected to be loaded afterwards.
type Constructor func(config []byte, rng *ml.RNG) (Model, error)

// models speichert registrierte Modell-Konstruktoren
var models = make(map[string]Constructor)

// Register registriert einen Modell-Konstruktor fuer einen model_type
func Register(name string, f Constructor) {
	if _, ok := models[name]; ok {
		panic("model: model already registered")
	}

	models[name] = f
}

// New erstellt ein Modell anhand des model_type in config
func New(config []byte, rng *ml.RNG) (Model, error) {
	var header struct {
		ModelType string `json:"model_type"`
	}
	if err := json.Unmarshal(config, &header); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	f, ok := models[header.ModelType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, header.ModelType)
	}
	return f(config, rng)
}

// Load liest config.json und die safetensors-Gewichte aus dir
func Load(dir string) (Model, error) {
	config, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, err
	}

	m, err := New(config, nil)
	if err != nil {
		return nil, err
	}

	weights, err := safetensors.OpenDir(dir)
	if err != nil {
		return nil, err
	}
	defer weights.Close()

	if err := LoadWeights(m, weights); err != nil {
		return nil, err
	}

	if validator, ok := m.(Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, err
		}
	}

	return m, nil
}
