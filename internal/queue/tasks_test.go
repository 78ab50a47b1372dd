package queue

import (
	"encoding/json"
	"testing"

	"github.com/fireguard-store/storefront/internal/config"
)

func TestNewCartMigrateLegacyTask(t *testing.T) {
	task, err := NewCartMigrateLegacyTask(CartMigrateLegacyPayload{Key: "sid:cart"})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != TaskCartMigrateLegacy {
		t.Fatalf("unexpected task type %s", task.Type())
	}
	var payload CartMigrateLegacyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if payload.Key != "sid:cart" {
		t.Fatalf("unexpected key %s", payload.Key)
	}
}

func TestDisabledClientIsNoop(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueCartMigrateLegacy(CartMigrateLegacyPayload{Key: "cart"}); err != nil {
		t.Fatalf("enqueue on disabled client failed: %v", err)
	}
	if err := client.EnqueueCatalogWarmLocale(CatalogWarmLocalePayload{Locale: "ru"}, 0); err != nil {
		t.Fatalf("enqueue on disabled client failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt %+v", opt)
	}
	if cfg.Concurrency != 10 || cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("unexpected server config %+v", cfg)
	}
}
