package api

import (
	"testing"
)

func TestInitTLS(t *testing.T) {
	tests := []struct {
		name      string
		cert, key string
		enabled   bool
	}{
		{"no env vars", "", "", false},
		{"only cert", "/path/to/cert.pem", "", false},
		{"only key", "", "/path/to/key.pem", false},
		{"both set", "/path/to/cert.pem", "/path/to/key.pem", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("INTPHYS_TLS_CERT", tt.cert)
			t.Setenv("INTPHYS_TLS_KEY", tt.key)
			defer SetTLSConfigForTest(nil)

			InitTLS()
			if IsTLSEnabled() != tt.enabled {
				t.Fatalf("enabled = %v, want %v", IsTLSEnabled(), tt.enabled)
			}
			if tt.enabled {
				cfg := GetTLSConfig()
				if cfg.CertFile != tt.cert || cfg.KeyFile != tt.key {
					t.Errorf("config = %+v", cfg)
				}
			}
		})
	}
}

func TestLoadTLSConfig_NotEnabled(t *testing.T) {
	SetTLSConfigForTest(nil)

	if LoadTLSConfig() != nil {
		t.Error("LoadTLSConfig should return nil when TLS is not enabled")
	}
}

func TestLoadTLSConfig_InvalidFiles(t *testing.T) {
	SetTLSConfigForTest(&TLSConfig{
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
	})
	defer SetTLSConfigForTest(nil)

	if LoadTLSConfig() != nil {
		t.Error("LoadTLSConfig should return nil when cert files don't exist")
	}
}
