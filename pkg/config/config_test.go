package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_TOKEN", "abc")
	p := writeFile(t, "port: 9000\ntoken: ${SAMPLE_TOKEN}\n")

	s := sample{Name: "default", Port: 1}
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "default" || s.Port != 9000 || s.Token != "abc" {
		t.Errorf("got = %+v", s)
	}
}

func TestLoad_Errors(t *testing.T) {
	s := sample{Port: 1}
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &s); err == nil {
		t.Error("missing file should fail")
	}
	if err := Load(writeFile(t, "port: [\n"), &s); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("bad yaml err = %v", err)
	}
	if err := Load(writeFile(t, "port: 0\n"), &s); err == nil || !strings.Contains(err.Error(), "validation") {
		t.Errorf("invalid config err = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Port: 1}
	loaded, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	if err != nil || loaded {
		t.Errorf("missing file: loaded = %v, err = %v", loaded, err)
	}

	loaded, err = LoadOptional(writeFile(t, "port: 42\n"), &s)
	if err != nil || !loaded || s.Port != 42 {
		t.Errorf("existing file: loaded = %v, err = %v, port = %d", loaded, err, s.Port)
	}

	bad := sample{}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &bad); err == nil {
		t.Error("defaults should still be validated")
	}
}
