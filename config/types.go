package config

// Rent prices account storage on the local ledger.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// Log selects verbosity and an optional rotated log file.
type Log struct {
	Level      string
	Env        string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Telemetry configures OTLP trace export.
type Telemetry struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Insecure    bool
	// Headers uses the OTEL_EXPORTER_OTLP_HEADERS format: k=v,k2=v2.
	Headers string
}

// Gateway configures the REST facade handlers.
type Gateway struct {
	RequestsPerSecond float64
	Burst             int
	// MinPlanPriceSOL is the cheapest plan the facade accepts, in SOL.
	MinPlanPriceSOL string
	MaxRetries      uint
	// Tokens maps API tokens to the keys a creator signs and gets paid with.
	Tokens map[string]TokenKeys
}

type TokenKeys struct {
	Owner string
	Payto string
}
