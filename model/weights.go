// Package model - Laden und Speichern von Gewichten
//
// Dieses Modul enthaelt:
// - WeightSource: Quelle benannter Tensoren (z.B. safetensors.Dir)
// - LoadWeights: Kopiert Tensoren in die Parameter eines Modells
// - SaveWeights: Schreibt alle Parameter als safetensors-Datei

package model

import (
	"fmt"
	"log/slog"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/lingoforge/qwen2mt/fs/safetensors"
	"github.com/lingoforge/qwen2mt/logutil"
	"github.com/lingoforge/qwen2mt/ml"
)

// WeightSource provides named tensors as float32.
type WeightSource interface {
	Names() []string
	Floats(name string) ([]float32, []int, error)
}

// LoadWeights fills every parameter of m from src. A parameter missing from
// src is an error; tensors in src that m does not use are logged and skipped.
func LoadWeights(m Model, src WeightSource) error {
	params := m.Parameters()

	for name, t := range params.All() {
		data, shape, err := src.Floats(name)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMissingWeight, name, err)
		}
		if !slices.Equal(shape, t.Shape()) {
			return fmt.Errorf("%w: %s has shape %v, model expects %v", ErrWeightShape, name, shape, t.Shape())
		}
		copy(t.Data(), data)
		logutil.Trace("loaded tensor", "name", name, "shape", shape)
	}

	for _, name := range src.Names() {
		if _, ok := params.Get(name); !ok {
			slog.Warn("unused tensor in weights", "name", name)
		}
	}
	return nil
}

// SaveWeights writes every parameter of m to path in dtype.
func SaveWeights(m Model, path string, dtype ml.DType) error {
	tensors := orderedmap.New[string, safetensors.Tensor]()
	for name, t := range m.Parameters().All() {
		tensors.Set(name, safetensors.Tensor{Shape: t.Shape(), Data: t.Data()})
	}

	if err := safetensors.Save(path, tensors, dtype, map[string]string{"model_type": m.ModelType()}); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	slog.Info("saved weights", "path", path, "tensors", tensors.Len(), "dtype", dtype)
	return nil
}
