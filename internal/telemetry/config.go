package telemetry

// Config controls trace export. It mirrors the telemetry section of the
// dittoauth configuration file plus the build-time service identity.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector address, host:port.
	Endpoint string
	Insecure bool

	// SampleRate is the fraction of root spans kept, from 0 to 1.
	SampleRate float64
}

// DefaultConfig returns tracing disabled with a local collector endpoint.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "dittoauth",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
