package config

// Features toggles optional behaviour. Everything defaults to the plain
// public deployment: open premium endpoint, metrics on, mail off unless
// SendGrid is configured.
type Features struct {
	RequirePremium bool `yaml:"require_premium" env:"REQUIRE_PREMIUM" env-default:"false"`
	MetricsEnabled bool `yaml:"metrics_enabled" env:"METRICS_ENABLED" env-default:"true"`
	NotifyEnabled  bool `yaml:"notify_enabled" env:"NOTIFY_ENABLED" env-default:"true"`
}
