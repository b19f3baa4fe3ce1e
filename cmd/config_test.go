package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xolan/hark/internal/osutil"
)

type mockPathProvider struct {
	configDir string
	env       map[string]string
}

func (m *mockPathProvider) UserConfigDir() (string, error) {
	return m.configDir, nil
}

func (m *mockPathProvider) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (m *mockPathProvider) LookupEnv(key string) (string, bool) {
	v, ok := m.env[key]
	return v, ok
}

func useProvider(t *testing.T, env map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	osutil.SetProvider(&mockPathProvider{configDir: dir, env: env})
	t.Cleanup(osutil.ResetProvider)
	return dir
}

func TestShowConfig_Defaults(t *testing.T) {
	configDir := useProvider(t, nil)
	env := &testEnv{}
	useDeps(t, env)

	showConfig()

	if env.stderr.Len() > 0 {
		t.Fatalf("Unexpected stderr output: %s", env.stderr.String())
	}
	output := env.stdout.String()
	for _, want := range []string{
		"Configuration for hark",
		"No config file (using defaults)",
		"Timezone:        Local",
		"Storage:         jsonl (" + env.path + ")",
		"Provider:        openai",
		"Model:           (provider default)",
		"Timeout:         1m0s",
		"API key:         not set (HARK_API_KEY)",
		"Capture command: ffmpeg",
		filepath.Join(configDir, "hark", "hark.log"),
		"hark config --init",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestShowConfig_MasksAPIKey(t *testing.T) {
	useProvider(t, map[string]string{"HARK_API_KEY": "sk-test-123456"})
	env := &testEnv{}
	useDeps(t, env)

	showConfig()

	output := env.stdout.String()
	if !strings.Contains(output, "API key:         ****3456 (HARK_API_KEY)") {
		t.Errorf("Expected masked key, got:\n%s", output)
	}
	if strings.Contains(output, "sk-test-123456") {
		t.Error("API key printed in full")
	}
}

func TestInitConfig(t *testing.T) {
	useProvider(t, nil)
	env := &testEnv{}
	useDeps(t, env)

	initConfig()

	configPath := filepath.Join(filepath.Dir(env.path), "config.toml")
	if !strings.Contains(env.stdout.String(), "Created "+configPath) {
		t.Errorf("Expected creation message, got: %s", env.stdout.String())
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Expected config file: %v", err)
	}
	if !strings.Contains(string(data), "[transcription]") {
		t.Errorf("Expected sample config, got:\n%s", data)
	}

	// a second init refuses to overwrite
	initConfig()
	if env.exitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", env.exitCode)
	}
	if !strings.Contains(env.stderr.String(), "already exists") {
		t.Errorf("Expected already exists error, got: %s", env.stderr.String())
	}
}
