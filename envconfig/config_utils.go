// config_utils.go - Zahlen-Getter und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - Uint/Uint64/Float: typisierte Getter mit Default-Wert und Warnung bei Fehlern
// - EnvVar: Name, aktueller Wert und Beschreibung einer Variable
// - AsMap: Alle Variablen fuer die Hilfe-Ausgabe der CLI
package envconfig

import (
	"log/slog"
	"strconv"
)

// getter liest key mit parse. Leere Werte liefern def, ungueltige ebenfalls mit Warnung.
func getter[T any](key string, def T, parse func(string) (T, error)) func() T {
	return func() T {
		s := Var(key)
		if s == "" {
			return def
		}
		v, err := parse(s)
		if err != nil {
			slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", def)
			return def
		}
		return v
	}
}

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return getter(key, defaultValue, func(s string) (uint, error) {
		n, err := strconv.ParseUint(s, 10, 0)
		return uint(n), err
	})
}

// Uint64 gibt eine Funktion zurueck, die einen uint64 mit Default-Wert liest
func Uint64(key string, defaultValue uint64) func() uint64 {
	return getter(key, defaultValue, func(s string) (uint64, error) {
		return strconv.ParseUint(s, 10, 64)
	})
}

// Float gibt eine Funktion zurueck, die einen float32 mit Default-Wert liest
func Float(key string, defaultValue float32) func() float32 {
	return getter(key, defaultValue, func(s string) (float32, error) {
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err
	})
}

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Variablen mit aktuellem Wert und Beschreibung zurueck
func AsMap() map[string]EnvVar {
	vars := []EnvVar{
		{"QWEN2MT_DEBUG", LogLevel(), "Show additional debug information (e.g. QWEN2MT_DEBUG=1)"},
		{"QWEN2MT_SEED", Var("QWEN2MT_SEED"), "Seed for shuffling and sampling (default: time based)"},
		{"QWEN2MT_OUTPUT", Output(), "Path of the fine-tuned weights (default \"fine-tuned.safetensors\")"},
		{"QWEN2MT_SAVE_DTYPE", SaveDType(), "Data type of saved weights: f32, f16 or bf16 (default: f32)"},
		{"QWEN2MT_BATCH_SIZE", BatchSize(), "Examples per optimizer step (default: 8)"},
		{"QWEN2MT_CONTEXT_SIZE", ContextSize(), "Fixed context length of a training example (default: 192)"},
		{"QWEN2MT_LEARNING_RATE", LearningRate(), "AdamW learning rate (default: 2e-5)"},
		{"QWEN2MT_WEIGHT_DECAY", WeightDecay(), "AdamW weight decay (default: 0.01)"},
		{"QWEN2MT_EPOCHS", Epochs(), "Passes over the dataset (default: 1)"},
		{"QWEN2MT_CHUNK_SIZE", ChunkSize(), "Rows read and shuffled together (default: 1024)"},
		{"QWEN2MT_MAX_ROWS", MaxRows(), "Stop training after this many rows (default: 0 = all)"},
		{"QWEN2MT_TEMPERATURE", Temperature(), "Sampling temperature (default: 0.9)"},
		{"QWEN2MT_MAX_TOKENS", MaxTokens(), "Maximum number of generated tokens (default: 256)"},
	}

	ret := make(map[string]EnvVar, len(vars))
	for _, v := range vars {
		ret[v.Name] = v
	}
	return ret
}
