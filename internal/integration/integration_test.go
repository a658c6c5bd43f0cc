//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	repoRoot         string
	integrationBin   string
	integrationCache string
)

func TestMain(m *testing.M) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		fmt.Fprintln(os.Stderr, "integration: resolve current file")
		os.Exit(1)
	}
	repoRoot = filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))

	tmpDir, err := os.MkdirTemp("", "daybook-integration-bin-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration: create temp dir: %v\n", err)
		os.Exit(1)
	}

	integrationCache = filepath.Join(tmpDir, "gocache")
	if err := os.MkdirAll(integrationCache, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "integration: create gocache: %v\n", err)
		os.Exit(1)
	}

	integrationBin = filepath.Join(tmpDir, "daybook")
	buildCmd := exec.Command("go", "build", "-o", integrationBin, "./cmd/daybook")
	buildCmd.Dir = repoRoot
	buildCmd.Env = append(os.Environ(), "GOCACHE="+integrationCache)
	if output, err := buildCmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "integration: build cli: %v\n%s\n", err, string(output))
		os.Exit(1)
	}

	code := m.Run()
	_ = os.RemoveAll(tmpDir)
	os.Exit(code)
}

type cliHarness struct {
	home  string
	extra []string
}

type cliResult struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()
	return &cliHarness{home: t.TempDir()}
}

func (h *cliHarness) env() []string {
	env := []string{
		"DAYBOOK_HOME=" + h.home,
		"GOCACHE=" + integrationCache,
	}
	return append(env, h.extra...)
}

func (h *cliHarness) run(stdin string, args ...string) cliResult {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, integrationBin, args...)
	cmd.Dir = h.home
	cmd.Env = append(os.Environ(), h.env()...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := cliResult{
		stdout: stdout.String(),
		stderr: strings.TrimSpace(stderr.String()),
		err:    err,
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.exitCode = 0
	case errors.As(err, &exitErr):
		res.exitCode = exitErr.ExitCode()
	default:
		res.exitCode = -1
	}
	return res
}

func requireSuccess(t *testing.T, res cliResult, command ...string) string {
	t.Helper()
	require.NoError(t, res.err, "command failed: %s\nstderr:\n%s", strings.Join(command, " "), res.stderr)
	return res.stdout
}

func TestIntegrationInitCreatesFilesUnderHome(t *testing.T) {
	h := newHarness(t)

	out := requireSuccess(t, h.run("", "--json", "init"), "init")
	var payload struct {
		Paths struct {
			StorePath string `json:"store_path"`
			KeyPath   string `json:"key_path"`
			BackupDir string `json:"backup_dir"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.Equal(t, filepath.Join(h.home, "productivity.db"), payload.Paths.StorePath)
	require.Equal(t, filepath.Join(h.home, "key.bin"), payload.Paths.KeyPath)
	require.Equal(t, filepath.Join(h.home, "backups"), payload.Paths.BackupDir)
	require.FileExists(t, payload.Paths.StorePath)
	require.FileExists(t, payload.Paths.KeyPath)
}

func TestIntegrationTokenSurvivesRestart(t *testing.T) {
	h := newHarness(t)

	token := strings.TrimSpace(requireSuccess(t, h.run("meeting at noon", "key", "encrypt"), "key encrypt"))
	plain := requireSuccess(t, h.run("", "key", "decrypt", token), "key decrypt")
	require.Equal(t, "meeting at noon", plain)

	other := newHarness(t)
	res := other.run("", "key", "decrypt", token)
	require.Error(t, res.err)
	require.Equal(t, 5, res.exitCode)
	require.Empty(t, res.stdout)
}

func TestIntegrationBackupRetention(t *testing.T) {
	h := newHarness(t)
	h.extra = []string{"DAYBOOK_BACKUP_RETAIN=2"}

	requireSuccess(t, h.run("", "init"), "init")
	for i := 0; i < 3; i++ {
		requireSuccess(t, h.run("", "backup", "create"), "backup create")
		time.Sleep(1100 * time.Millisecond)
	}

	out := requireSuccess(t, h.run("", "--json", "backup", "ls"), "backup ls")
	var entries []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	require.Greater(t, entries[0].Name, entries[1].Name)
}

func TestIntegrationCorruptKeyIsNeverReplaced(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, os.WriteFile(filepath.Join(h.home, "key.bin"), []byte("not-thirty-two-bytes"), 0o600))
	res := h.run("", "status")
	require.Error(t, res.err)
	require.Equal(t, 7, res.exitCode)
	require.Contains(t, strings.ToLower(res.stderr), "corrupt")

	data, err := os.ReadFile(filepath.Join(h.home, "key.bin"))
	require.NoError(t, err)
	require.Equal(t, "not-thirty-two-bytes", string(data))
}

func TestIntegrationConcurrentCommandsShareOneKey(t *testing.T) {
	h := newHarness(t)
	requireSuccess(t, h.run("", "init"), "init")

	var wg sync.WaitGroup
	fingerprints := make(chan string, 5)
	errCh := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := h.run("", "--json", "key", "status")
			if res.err != nil {
				errCh <- fmt.Errorf("exit=%d stderr=%s", res.exitCode, res.stderr)
				return
			}
			var status struct {
				Fingerprint string `json:"fingerprint"`
			}
			if err := json.Unmarshal([]byte(res.stdout), &status); err != nil {
				errCh <- err
				return
			}
			fingerprints <- status.Fingerprint
		}()
	}
	wg.Wait()
	close(errCh)
	close(fingerprints)
	for err := range errCh {
		require.NoError(t, err)
	}

	seen := map[string]struct{}{}
	for fp := range fingerprints {
		seen[fp] = struct{}{}
	}
	require.Len(t, seen, 1)
}
