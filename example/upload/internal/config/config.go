package config

const (
	// Mock API configuration
	APIAddr         = ":8780"
	APIBaseURL      = "http://localhost:8780"
	RequestIDHeader = "Request-Id"

	// Server configuration
	MetricsPort = ":2112"

	// OpenTelemetry configuration
	ServiceName    = "formwire-upload-example"
	ServiceVersion = "0.1.0"

	// Body construction
	Charset = "UTF-8"

	// Operation intervals
	UploadInterval = 5 // seconds
)
