package ir

// Version constants for IR schema and engine.
const (
	// IRVersion is the declaration IR schema version.
	IRVersion = "1"

	// EngineVersion is the spinql engine version.
	EngineVersion = "0.1.0"
)
