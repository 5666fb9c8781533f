package tracing

import (
	"testing"

	"github.com/54b3r/rolerag/internal/logging"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("LANGFUSE_HOST", "")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "")
	t.Setenv("LANGFUSE_SECRET_KEY", "")

	cfg := FromEnv()
	if cfg.Host != defaultHost {
		t.Errorf("host: want %q, got %q", defaultHost, cfg.Host)
	}
	if cfg.Enabled() {
		t.Error("tracing must be disabled without keys")
	}
}

func TestFromEnv_Enabled(t *testing.T) {
	t.Setenv("LANGFUSE_HOST", "https://cloud.langfuse.com")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk-lf-1")
	t.Setenv("LANGFUSE_SECRET_KEY", "sk-lf-1")

	cfg := FromEnv()
	if !cfg.Enabled() || cfg.Host != "https://cloud.langfuse.com" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestEnabled_RequiresBothKeys(t *testing.T) {
	t.Parallel()
	if (Config{PublicKey: "pk"}).Enabled() {
		t.Error("public key alone must not enable tracing")
	}
	if (Config{SecretKey: "sk"}).Enabled() {
		t.Error("secret key alone must not enable tracing")
	}
}

func TestSetup_DisabledIsNoop(t *testing.T) {
	t.Parallel()
	flush, enabled := Setup(Config{}, logging.Discard())
	if enabled {
		t.Error("expected tracing disabled")
	}
	flush()
}
