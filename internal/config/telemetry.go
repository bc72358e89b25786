package config

// TelemetryConfig controls OTLP trace export. Disabled by default; when
// enabled, spans are sent to the collector at Endpoint over OTLP HTTP.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	Environment string `mapstructure:"environment" json:"environment"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
