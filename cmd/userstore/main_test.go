package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nuln/userstore"
)

func writeTestConfig(t *testing.T) (configPath, baseDir string) {
	t.Helper()
	dir := t.TempDir()
	baseDir = filepath.Join(dir, "store")
	configPath = filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: "error"
storage:
  base_dir: "` + baseDir + `"
gateway:
  id: "seagrid"
  data_store_hostname: "gw.example.org"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath, baseDir
}

func TestRun_PutListSizeRemove(t *testing.T) {
	configPath, baseDir := writeTestConfig(t)
	local := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(local, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(configPath, "put", "alice", []string{local}, &out); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(out.String(), "airavata-dp://") {
		t.Errorf("put output = %q, want product URI", out.String())
	}
	stored := filepath.Join(baseDir, "alice", userstore.StagingDir, "input.txt")
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("stored file: %v", err)
	}

	out.Reset()
	if err := run(configPath, "ls", "alice", []string{userstore.StagingDir}, &out); err != nil {
		t.Fatalf("ls: %v", err)
	}
	if !strings.Contains(out.String(), "input.txt") {
		t.Errorf("ls output = %q, want input.txt", out.String())
	}

	out.Reset()
	if err := run(configPath, "du", "alice", nil, &out); err != nil {
		t.Fatalf("du: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "5" {
		t.Errorf("du = %q, want 5", got)
	}

	if err := run(configPath, "rm", "alice", []string{"tmp/input.txt"}, &out); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if _, err := os.Stat(stored); !os.IsNotExist(err) {
		t.Errorf("file still present after rm: %v", err)
	}

	err := run(configPath, "rm", "alice", []string{"tmp/input.txt"}, &out)
	if !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("second rm error = %v, want ErrNotFound", err)
	}
}

func TestRun_Directories(t *testing.T) {
	configPath, baseDir := writeTestConfig(t)
	var out bytes.Buffer

	if err := run(configPath, "mkdir", "alice", []string{"proj/exp"}, &out); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if info, err := os.Stat(filepath.Join(baseDir, "alice", "proj", "exp")); err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}
	if err := run(configPath, "rmdir", "alice", []string{"proj"}, &out); err != nil {
		t.Fatalf("rmdir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(baseDir, "alice", "proj")); !os.IsNotExist(err) {
		t.Errorf("directory still present after rmdir: %v", err)
	}

	err := run(configPath, "mkdir", "alice", []string{"../bob"}, &out)
	if !errors.Is(err, userstore.ErrInvalidPath) {
		t.Errorf("mkdir outside root error = %v, want ErrInvalidPath", err)
	}
}

func TestRun_ArgumentErrors(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	tests := []struct {
		command string
		args    []string
		want    string
	}{
		{"mkdir", nil, "mkdir: expected <path>"},
		{"rmdir", []string{"a", "b"}, "rmdir: expected <path>"},
		{"put", nil, "put: expected <local-file> [dir]"},
		{"put", []string{"a", "b", "c"}, "put: expected <local-file> [dir]"},
		{"rm", nil, "rm: expected <path>"},
		{"chmod", nil, `unknown command "chmod"`},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			var out bytes.Buffer
			err := run(configPath, tt.command, "alice", tt.args, &out)
			if err == nil || err.Error() != tt.want {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRun_MissingConfig(t *testing.T) {
	var out bytes.Buffer
	if err := run(filepath.Join(t.TempDir(), "absent.yaml"), "ls", "alice", nil, &out); err == nil {
		t.Error("expected error for missing config file")
	}
}
