package embedding

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/helioscale/sdkdex/internal/config"
	"github.com/helioscale/sdkdex/internal/domain"
)

func testConfig() config.EmbeddingConfig {
	return config.EmbeddingConfig{
		Remote: config.RemoteProviderConfig{
			APIKey: "k", BaseURL: "http://remote", Model: "remote-model", BatchSize: 16,
		},
		Local: config.LocalProviderConfig{BaseURL: "http://local", Model: "local-model"},
	}
}

func TestProvider_CachedPerName(t *testing.T) {
	f := NewFactory(testConfig(), zap.NewNop())

	a, err := f.Provider("local")
	if err != nil {
		t.Fatalf("Provider(local): %v", err)
	}
	b, err := f.Provider("local")
	if err != nil {
		t.Fatalf("Provider(local) second call: %v", err)
	}
	if a != b {
		t.Error("providers must be constructed once and reused")
	}
}

func TestProvider_UnknownName(t *testing.T) {
	f := NewFactory(testConfig(), zap.NewNop())
	if _, err := f.Provider("quantum"); !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestProvider_MissingAPIKeySurfacesOnSelection(t *testing.T) {
	cfg := testConfig()
	cfg.Remote.APIKey = ""
	f := NewFactory(cfg, zap.NewNop())

	// Construction of the factory itself never fails; selecting the remote
	// provider does.
	if _, err := f.Provider("remote"); !errors.Is(err, domain.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestRemoteConfiguredAndModel(t *testing.T) {
	f := NewFactory(testConfig(), zap.NewNop())
	if !f.RemoteConfigured() {
		t.Error("RemoteConfigured should be true with an api key")
	}
	if got := f.Model("remote"); got != "remote-model" {
		t.Errorf("Model(remote) = %q", got)
	}
	if got := f.Model("local"); got != "local-model" {
		t.Errorf("Model(local) = %q", got)
	}
	if got := f.BatchSize("remote"); got != 16 {
		t.Errorf("BatchSize(remote) = %d", got)
	}
	if got := f.BatchSize("local"); got != 1 {
		t.Errorf("BatchSize(local) = %d, want 1", got)
	}
}
