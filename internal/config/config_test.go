package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origDir); err != nil {
			t.Errorf("failed to restore working directory: %v", err)
		}
	})
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `data:
  dir: /var/lib/romgraph

display:
  hash_length: 12
`
	configPath := filepath.Join(tmpDir, DefaultConfigFile+"."+DefaultConfigType)
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	chdir(t, tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Data.Dir != "/var/lib/romgraph" {
		t.Errorf("Data.Dir = %q, want %q", cfg.Data.Dir, "/var/lib/romgraph")
	}
	if cfg.Display.HashLength != 12 {
		t.Errorf("Display.HashLength = %d, want 12", cfg.Display.HashLength)
	}
	if got, want := cfg.DBPath(), filepath.Join("/var/lib/romgraph", "romgraph.db"); got != want {
		t.Errorf("DBPath() = %q, want %q", got, want)
	}
	if got, want := cfg.DiffsDir(), filepath.Join("/var/lib/romgraph", "diffs"); got != want {
		t.Errorf("DiffsDir() = %q, want %q", got, want)
	}
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Data.Dir != ".romgraph" {
		t.Errorf("Data.Dir = %q, want %q", cfg.Data.Dir, ".romgraph")
	}
	if cfg.Display.HashLength != 16 {
		t.Errorf("Display.HashLength = %d, want 16", cfg.Display.HashLength)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "no data dir",
			cfg:     Config{Display: DisplayConfig{HashLength: 16}},
			wantErr: true,
			errMsg:  "data directory",
		},
		{
			name:    "hash length too short",
			cfg:     Config{Data: DataConfig{Dir: ".romgraph"}, Display: DisplayConfig{HashLength: 2}},
			wantErr: true,
			errMsg:  "hash_length",
		},
		{
			name:    "hash length too long",
			cfg:     Config{Data: DataConfig{Dir: ".romgraph"}, Display: DisplayConfig{HashLength: 128}},
			wantErr: true,
			errMsg:  "hash_length",
		},
		{
			name: "valid config",
			cfg:  Config{Data: DataConfig{Dir: ".romgraph"}, Display: DisplayConfig{HashLength: 16}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Validate() error = nil, want error containing %q", tt.errMsg)
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %q, want error containing %q", err, tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}
