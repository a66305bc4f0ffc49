package config

// Output defaults.
const (
	DefaultOutputFormat = FormatTable
	DefaultOutputColor  = true
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Tree defaults.
const (
	DefaultMonoid    = "sum"
	DefaultMaxLeaves = 1 << 20
)

// MCP server defaults.
const (
	DefaultMCPMaxTrees    = 64
	DefaultMCPMetricsAddr = ""
	DefaultMCPStateDir    = ""
	DefaultMCPStateFormat = FormatYAML
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 0.0
)
