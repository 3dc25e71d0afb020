package config

import "fmt"

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Governance.KeyPassword)
	redact(&out.Governance.RawPrivateKey)
	redact(&out.Archive.SealSecret)
	redact(&out.Database.DSN)
	redact(&out.Database.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// API keys are secrets themselves; keep the principals visible.
	if cfg.Server.APIKeys != nil {
		out.Server.APIKeys = make(map[string]string, len(cfg.Server.APIKeys))
		i := 0
		for _, principal := range cfg.Server.APIKeys {
			i++
			out.Server.APIKeys[fmt.Sprintf("%s%d", redacted, i)] = principal
		}
	}

	// Copy slices and maps so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}
	if cfg.Oracle.Feeds != nil {
		out.Oracle.Feeds = make(map[string]string, len(cfg.Oracle.Feeds))
		for k, v := range cfg.Oracle.Feeds {
			out.Oracle.Feeds[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
