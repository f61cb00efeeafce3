package libgraph

import (
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cm, err := NewConfigManager()
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}

	config, err := cm.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Timezone != "Asia/Jerusalem" {
		t.Errorf("Expected default timezone 'Asia/Jerusalem', got '%s'", config.Timezone)
	}

	if config.Browser != "chrome" {
		t.Errorf("Expected default browser 'chrome', got '%s'", config.Browser)
	}

	if len(config.Scopes) != 1 || config.Scopes[0] != "https://graph.microsoft.com/.default" {
		t.Errorf("Expected default scopes, got %v", config.Scopes)
	}
}

func TestConfigSaveLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cm, err := NewConfigManager()
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}

	saved := &Config{
		TenantID: "tenant-123",
		ClientID: "client-456",
		Timezone: "Pacific/Auckland",
		Browser:  "chrome",
	}
	if err := cm.Save(saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := cm.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.TenantID != "tenant-123" {
		t.Errorf("Expected tenant 'tenant-123', got '%s'", loaded.TenantID)
	}

	if loaded.Timezone != "Pacific/Auckland" {
		t.Errorf("Expected saved timezone to survive, got '%s'", loaded.Timezone)
	}
}

func TestNewAuthenticatorRequiresRegistration(t *testing.T) {
	_, err := NewAuthenticator(&Config{})
	if err == nil {
		t.Error("Expected error when client_id and tenant_id are missing")
	}
}
