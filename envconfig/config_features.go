// config_features.go - Trainings- und Sampling-Hyperparameter
//
// Dieses Modul enthaelt:
// - Trainings-Parameter (Batch-Groesse, Kontext, Lernrate, Epochen)
// - Dataset-Parameter (Chunk-Groesse, maximale Zeilen)
// - Sampling-Parameter (Temperatur, maximale Token)
package envconfig

// =============================================================================
// Trainings-Parameter
// =============================================================================

var (
	// BatchSize setzt die Anzahl Beispiele pro Optimierungsschritt
	BatchSize = Uint("QWEN2MT_BATCH_SIZE", 8)

	// ContextSize setzt die feste Kontextlaenge eines Trainingsbeispiels
	ContextSize = Uint("QWEN2MT_CONTEXT_SIZE", 128+64)

	// LearningRate setzt die feste Lernrate fuer AdamW
	LearningRate = Float("QWEN2MT_LEARNING_RATE", 2e-5)

	// WeightDecay setzt den entkoppelten Gewichtszerfall fuer AdamW
	WeightDecay = Float("QWEN2MT_WEIGHT_DECAY", 0.01)

	// Epochs setzt die Anzahl Durchlaeufe ueber das Dataset
	Epochs = Uint("QWEN2MT_EPOCHS", 1)
)

// =============================================================================
// Dataset-Parameter
// =============================================================================

var (
	// ChunkSize setzt die Anzahl Zeilen, die gemeinsam gelesen und gemischt werden
	ChunkSize = Uint("QWEN2MT_CHUNK_SIZE", 1024)

	// MaxRows begrenzt die Anzahl trainierter Zeilen (0 = alle)
	MaxRows = Uint64("QWEN2MT_MAX_ROWS", 0)
)

// =============================================================================
// Sampling-Parameter
// =============================================================================

var (
	// Temperature skaliert die Logits vor dem Sampling
	Temperature = Float("QWEN2MT_TEMPERATURE", 0.9)

	// MaxTokens begrenzt die Anzahl generierter Token
	MaxTokens = Uint("QWEN2MT_MAX_TOKENS", 256)
)
