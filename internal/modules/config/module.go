package config

import "go.uber.org/fx"

// sections exposes the config blocks that constructors take by value,
// e.g. session.NewGate(config.Session).
type sections struct {
	fx.Out

	Session Session
	Tracing Tracing
}

func splitSections(c *Config) sections {
	return sections{Session: c.Session, Tracing: c.Tracing}
}

func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
			splitSections,
		),
	)
}
