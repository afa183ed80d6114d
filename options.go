package weakevent

// Option configures a Manager.
type Option func(*settings)

type settings struct {
	registry    *Registry
	logger      Logger
	config      Config
	panicLogger PanicLogger
}

// WithRegistry sets the registry used by name based subscriptions.
func WithRegistry(r *Registry) Option {
	return func(s *settings) {
		s.registry = r
	}
}

func WithLogger(l Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.config = cfg
	}
}

// WithPanicLogger sets where recovered panics go when Config.RecoverPanics is
// enabled. Defaults to the manager logger.
func WithPanicLogger(p PanicLogger) Option {
	return func(s *settings) {
		s.panicLogger = p
	}
}
