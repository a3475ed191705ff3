// config.go - Haupt-Konfigurationsfunktionen fuer qwen2mt
//
// Dieses Modul enthaelt:
// - LogLevel: Gibt Log-Level zurueck (QWEN2MT_DEBUG)
// - Seed: Gibt den Zufalls-Seed zurueck (QWEN2MT_SEED)
// - Output: Gibt den Pfad der Ausgabe-Gewichte zurueck (QWEN2MT_OUTPUT)
// - SaveDType: Gibt den Speicher-Datentyp zurueck (QWEN2MT_SAVE_DTYPE)
// - Var: Liest und bereinigt eine Environment-Variable
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: Trainings- und Sampling-Hyperparameter
// - config_utils.go: Zahlen-Getter und AsMap
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via QWEN2MT_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("QWEN2MT_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Seed gibt den Seed fuer Initialisierung, Shuffle und Sampling zurueck
// Konfigurierbar via QWEN2MT_SEED
// Default: 0 = aus der aktuellen Zeit abgeleitet
func Seed() uint64 {
	if s := Var("QWEN2MT_SEED"); s != "" {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil && n != 0 {
			return n
		}
		slog.Warn("invalid environment variable, using time based seed", "key", "QWEN2MT_SEED", "value", s)
	}

	return uint64(time.Now().UnixNano())
}

// Output gibt den Pfad fuer die feinjustierten Gewichte zurueck
// Konfigurierbar via QWEN2MT_OUTPUT
// Default: fine-tuned.safetensors
func Output() string {
	if s := Var("QWEN2MT_OUTPUT"); s != "" {
		return s
	}

	return "fine-tuned.safetensors"
}

// SaveDType gibt den Datentyp zurueck, in dem Gewichte gespeichert werden
// Konfigurierbar via QWEN2MT_SAVE_DTYPE (f32, f16, bf16)
// Default: f32
func SaveDType() string {
	switch s := strings.ToLower(Var("QWEN2MT_SAVE_DTYPE")); s {
	case "", "f32", "float32":
		return "f32"
	case "f16", "float16":
		return "f16"
	case "bf16", "bfloat16":
		return "bf16"
	default:
		slog.Warn("invalid environment variable, using default", "key", "QWEN2MT_SAVE_DTYPE", "value", s, "default", "f32")
		return "f32"
	}
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
