// Package models - Registriert alle unterstuetzten Modell-Architekturen
package models

import (
	_ "github.com/lingoforge/qwen2mt/model/models/qwen2"
)
