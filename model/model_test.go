package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lingoforge/qwen2mt/fs/safetensors"
	"github.com/lingoforge/qwen2mt/kvcache"
	"github.com/lingoforge/qwen2mt/ml"
)

type fakeModel struct {
	params *ml.Parameters
}

func (f *fakeModel) Forward(*ml.Context, *ml.Tensor, []kvcache.Cache) *ml.Tensor { return nil }
func (f *fakeModel) NewCaches() []kvcache.Cache                                 { return nil }
func (f *fakeModel) Parameters() *ml.Parameters                                 { return f.params }
func (f *fakeModel) ModelType() string                                          { return "fake" }

type mapSource map[string]safetensors.Tensor

func (m mapSource) Names() []string {
	var names []string
	for name := range m {
		names = append(names, name)
	}
	return names
}

func (m mapSource) Floats(name string) ([]float32, []int, error) {
	t, ok := m[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", safetensors.ErrNotFound, name)
	}
	return t.Data, t.Shape, nil
}

func newFake() *fakeModel {
	p := ml.NewParameters()
	p.Set("w", ml.Zeros(2, 2))
	p.Set("b", ml.Zeros(2))
	return &fakeModel{params: p}
}

func TestLoadWeights(t *testing.T) {
	m := newFake()
	src := mapSource{
		"w":     {Shape: []int{2, 2}, Data: []float32{1, 2, 3, 4}},
		"b":     {Shape: []int{2}, Data: []float32{5, 6}},
		"extra": {Shape: []int{1}, Data: []float32{7}},
	}
	if err := LoadWeights(m, src); err != nil {
		t.Fatal(err)
	}

	w, _ := m.params.Get("w")
	if diff := cmp.Diff([]float32{1, 2, 3, 4}, w.Floats()); diff != "" {
		t.Errorf("w (-erwartet +erhalten):\n%s", diff)
	}
}

func TestLoadWeightsErrors(t *testing.T) {
	cases := []struct {
		name string
		src  mapSource
		want error
	}{
		{"missing", mapSource{"w": {Shape: []int{2, 2}, Data: make([]float32, 4)}}, ErrMissingWeight},
		{"shape", mapSource{"w": {Shape: []int{4}, Data: make([]float32, 4)}, "b": {Shape: []int{2}, Data: make([]float32, 2)}}, ErrWeightShape},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if err := LoadWeights(newFake(), tt.src); !errors.Is(err, tt.want) {
				t.Errorf("erwartet %v, erhalten %v", tt.want, err)
			}
		})
	}
}

func TestNewUnsupported(t *testing.T) {
	if _, err := New([]byte(`{"model_type":"llama"}`), nil); !errors.Is(err, ErrUnsupportedModel) {
		t.Errorf("erwartet ErrUnsupportedModel, erhalten %v", err)
	}
	if _, err := New([]byte(`not json`), nil); err == nil {
		t.Error("erwartet Fehler fuer ungueltiges JSON")
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	Register("twice", func([]byte, *ml.RNG) (Model, error) { return newFake(), nil })
	defer func() {
		if recover() == nil {
			t.Error("erwartet panic bei doppelter Registrierung")
		}
	}()
	Register("twice", func([]byte, *ml.RNG) (Model, error) { return newFake(), nil })
}
