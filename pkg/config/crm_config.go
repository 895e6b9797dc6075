package config

// CRMConfig points the engine at the CRM backend that owns side effects
// (mail, tasks, entity updates). An empty BaseURL means no backend is
// configured and collaborators fall back to logging.
type CRMConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

const defaultCRMTimeoutSeconds = 10

func applyCRMDefaults(config *CRMConfig) {
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = defaultCRMTimeoutSeconds
	}
}
