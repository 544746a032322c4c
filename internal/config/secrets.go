package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	out.Database = cfg.Database
	redact(&out.Database.DSN)
	redact(&out.Database.Password)

	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.S3.EvidenceSecret)

	out.Server = cfg.Server
	redact(&out.Server.APIKey)

	out.Notify = cfg.Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
