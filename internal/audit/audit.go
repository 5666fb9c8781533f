// Package audit provides a structured audit logger for CLI command invocations
// and login attempts. Entries record what was configured and who tried to
// authenticate without exposing secret values or passwords.
//
// Secrets are logged as presence/absence only.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// secretEnvKeys lists environment variable names whose values must never be
// logged. Only presence ("set") or absence ("unset") is recorded.
var secretEnvKeys = map[string]bool{
	"JWT_SECRET":           true,
	"OPENROUTER_KEY":       true,
	"OPENAI_API_KEY":       true,
	"AZURE_OPENAI_API_KEY": true,
	"GOOGLE_API_KEY":       true,
	"ARK_API_KEY":          true,
	"EMBEDDING_API_KEY":    true,
	"QDRANT_API_KEY":       true,
	"LANGFUSE_PUBLIC_KEY":  true,
	"LANGFUSE_SECRET_KEY":  true,
}

// LogCommandStart emits a structured audit log entry when a CLI command begins.
// It records the command name, config file source, and sanitised environment.
func LogCommandStart(log *slog.Logger, command string, configPath string) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	}

	for _, key := range auditKeys {
		attrs = append(attrs, slog.String(key, SanitiseKey(key, os.Getenv(key))))
	}

	log.LogAttrs(context.TODO(), slog.LevelInfo, "audit: command start", attrs...)
}

// LogLogin records a login attempt. The password is never passed in. Failed
// attempts are logged at WARN so brute-force activity stands out.
func LogLogin(ctx context.Context, log *slog.Logger, username, remoteAddr string, err error) {
	attrs := []slog.Attr{
		slog.String("username", username),
		slog.String("remote_addr", remoteAddr),
	}
	if err != nil {
		attrs = append(attrs, slog.String("outcome", "rejected"), slog.String("reason", err.Error()))
		log.LogAttrs(ctx, slog.LevelWarn, "audit: login", attrs...)
		return
	}
	attrs = append(attrs, slog.String("outcome", "accepted"))
	log.LogAttrs(ctx, slog.LevelInfo, "audit: login", attrs...)
}

// auditKeys is the ordered list of env vars included in every command
// start entry. Values of keys in secretEnvKeys are reduced to set/unset.
var auditKeys = []string{
	"JWT_SECRET",
	"JWT_ALGORITHM",
	"JWT_EXPIRATION_SECONDS",
	"ROLERAG_CREDENTIALS_FILE",
	"ROLERAG_HISTORY_DB",
	"VECTOR_DIR",
	"INDEX_BACKEND",
	"MODEL_PROVIDER",
	"OPENROUTER_KEY",
	"OPENROUTER_MODEL",
	"OLLAMA_HOST",
	"OLLAMA_MODEL",
	"OPENAI_API_KEY",
	"OPENAI_MODEL",
	"AZURE_OPENAI_API_KEY",
	"AZURE_OPENAI_ENDPOINT",
	"AZURE_OPENAI_DEPLOYMENT",
	"GOOGLE_API_KEY",
	"GEMINI_MODEL",
	"ARK_API_KEY",
	"ARK_MODEL",
	"EMBEDDING_PROVIDER",
	"EMBEDDING_MODEL",
	"EMBEDDING_API_KEY",
	"QDRANT_HOST",
	"QDRANT_PORT",
	"QDRANT_API_KEY",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"LANGFUSE_PUBLIC_KEY",
	"LANGFUSE_SECRET_KEY",
}

// SanitiseKey returns "set" or "unset" for known secret keys, or the actual
// value for non-secret keys. This is safe to use in log messages.
func SanitiseKey(key, value string) string {
	if secretEnvKeys[key] {
		return presence(value)
	}
	return valOrUnset(value)
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// sanitiseConfigPath returns the config path or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	// Redact home directory for privacy in logs.
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
