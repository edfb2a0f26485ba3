package telemetry

// Config selects and configures the trace exporter for an Engine process.
// Exactly one of JaegerURL or OTLP.Host should be set; OTLP takes priority
// when both are present.
type Config struct {
	// JaegerURL is the collector endpoint for the Jaeger exporter.
	JaegerURL string `yaml:"jaegerUrl"`
	// OTLP configures the OTLP/HTTP exporter.
	OTLP OTLP `yaml:"otlp"`
	// Package names the service for resource attribution.
	Package string `yaml:"package"`
	// ID identifies this particular service instance.
	ID string `yaml:"id"`
}

// OTLP configures an OTLP/HTTP trace exporter.
type OTLP struct {
	// Host is the exporter endpoint, without scheme or trailing slash.
	Host string `yaml:"host"`
	// Secure enables TLS for the OTLP connection.
	Secure bool `yaml:"secure"`
}
