package config

// Config holds voltread settings.
// Loaded from ./config.yaml or ~/.voltread/config.yaml, with
// VOLTREAD_* environment variables and CLI flags layered on top.
type Config struct {
	// Model is the chat model name as known to the endpoint.
	Model string `mapstructure:"model" yaml:"model"`

	// APIKey authenticates against the endpoint (supports ${ENV_VAR} syntax).
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// BaseURL points at any OpenAI-compatible endpoint. Empty means the
	// SDK default.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Temperature for the model, 0.0 to 2.0.
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// DPI for PDF page rasterization.
	DPI int `mapstructure:"dpi" yaml:"dpi"`

	// BatchSize is the number of pages sent to the model per batch.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// OutputDir is where run directories are created.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model:       "gpt-4o",
		APIKey:      "${OPENAI_API_KEY}",
		Temperature: 1.0,
		DPI:         400,
		BatchSize:   3,
		OutputDir:   "runs/",
	}
}
