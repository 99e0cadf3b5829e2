package internal

// Option configures the application before Run or RunMCP starts it.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig supplies the validated configuration. Required; both entry
// points fail without it.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
