package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/kjk/dumpbuf/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMain(m *testing.M) {
	log.Output = io.Discard
	os.Exit(m.Run())
}

// isolate config and log files from the user running tests
func testEnv(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("DUMPBUF_REMOTE_KIND", "")
	return filepath.Join(dir, "db.txt")
}

func runCmd(t *testing.T, dbPath string, args ...string) (string, int) {
	t.Helper()
	var buf bytes.Buffer
	if dbPath != "" {
		args = append([]string{"--db", dbPath}, args...)
	}
	code := run(args, &buf)
	return buf.String(), code
}

func runOK(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	out, code := runCmd(t, dbPath, args...)
	require.Equal(t, 0, code, "args: %v, output: %s", args, out)
	return out
}

func runFail(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	out, code := runCmd(t, dbPath, args...)
	require.Equal(t, 1, code, "args: %v, output: %s", args, out)
	assert.True(t, strings.HasPrefix(out, "[ERROR]: "), "output: %s", out)
	return out
}

func TestScenario(t *testing.T) {
	db := testEnv(t)

	out := runOK(t, db, "add", "shell", "echo", "hi")
	assert.Equal(t, "Added record with key \"shell\"\n", out)
	assert.FileExists(t, db)

	out = runOK(t, db, "get", "shell")
	assert.Equal(t, "echo hi\n", out)

	runFail(t, db, "add", "shell", "other")
	out = runOK(t, db, "get", "shell")
	assert.Equal(t, "echo hi\n", out)

	out = runOK(t, db, "list", "--keys-only")
	assert.Equal(t, "[shell]\n", out)
	out = runOK(t, db, "list")
	assert.Equal(t, "[{ key: shell, value: echo hi }]\n", out)

	out = runOK(t, db, "rm", "shell")
	assert.Equal(t, "Removed record with key \"shell\"\n", out)
	out = runFail(t, db, "get", "shell")
	assert.Contains(t, out, "not found")
	out = runOK(t, db, "list")
	assert.Equal(t, "[]\n", out)

	d, err := os.ReadFile(db)
	require.NoError(t, err)
	assert.Empty(t, d)
}

func TestAddValueWithFlags(t *testing.T) {
	db := testEnv(t)
	runOK(t, db, "add", "ls", "ls", "-la", "--color=auto")
	out := runOK(t, db, "get", "ls")
	assert.Equal(t, "ls -la --color=auto\n", out)

	d, err := os.ReadFile(db)
	require.NoError(t, err)
	assert.Equal(t, "ls|>!<|ls -la --color=auto|<!>|\n", string(d))
}

func TestAddRejectsEmptyKey(t *testing.T) {
	db := testEnv(t)
	out := runFail(t, db, "add", "", "v")
	assert.Contains(t, out, "key must not be empty")
	assert.Equal(t, "[]\n", runOK(t, db, "list", "--keys-only"))

	// every key that can be added can be removed
	runOK(t, db, "add", "k", "v")
	out = runOK(t, db, "rm", "k")
	assert.Equal(t, "Removed record with key \"k\"\n", out)
}

func TestAddRejectsReservedSequence(t *testing.T) {
	db := testEnv(t)
	runFail(t, db, "add", "k", "a|<!>|b")
	runFail(t, db, "add", "k|>!<|", "v")
	runFail(t, db, "add", "only-key")
}

func TestRm(t *testing.T) {
	db := testEnv(t)
	runOK(t, db, "add", "a", "1")
	runOK(t, db, "add", "b", "2")

	out := runFail(t, db, "rm")
	assert.Contains(t, out, "invalid query")
	out = runFail(t, db, "rm", "a", "--all")
	assert.Contains(t, out, "invalid query")
	runFail(t, db, "rm", "missing")

	out = runOK(t, db, "rm", "--all")
	assert.Equal(t, "All records were removed!\n", out)
	out = runOK(t, db, "list", "--keys-only")
	assert.Equal(t, "[]\n", out)
}

func TestListFormats(t *testing.T) {
	db := testEnv(t)
	runOK(t, db, "add", "b", "2")
	runOK(t, db, "add", "a", "1")

	out := runOK(t, db, "list", "--keys-only")
	assert.Equal(t, "[a, b]\n", out)

	out = runOK(t, db, "list", "--format", "json")
	var records []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Equal(t, []map[string]string{
		{"key": "a", "value": "1"},
		{"key": "b", "value": "2"},
	}, records)

	out = runOK(t, db, "list", "--keys-only", "--format", "yaml")
	var keys []string
	require.NoError(t, yaml.Unmarshal([]byte(out), &keys))
	assert.Equal(t, []string{"a", "b"}, keys)

	out = runOK(t, db, "list", "--format", "toon")
	assert.Contains(t, out, "key")
	assert.Contains(t, out, "value")

	runFail(t, db, "list", "--format", "xml")
}

func TestExec(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	t.Setenv("SHELL", "/bin/sh")
	db := testEnv(t)
	runOK(t, db, "add", "hello", "echo", "hello", "&&", "echo", "world")
	out := runOK(t, db, "exec", "hello")
	assert.Equal(t, "hello\nworld\n", out)

	runFail(t, db, "exec", "missing")
	runOK(t, db, "add", "fails", "exit", "3")
	runFail(t, db, "exec", "fails")
}

// runnerFunc runs command lines stored with exec
type runnerFunc func(ctx context.Context, cmdLine string) error

func (f runnerFunc) Run(ctx context.Context, cmdLine string) error {
	return f(ctx, cmdLine)
}

func TestExecCommandCanModifyDatabase(t *testing.T) {
	db := testEnv(t)
	runOK(t, db, "add", "remember", "dumpbuf", "add", "nested", "value")

	var buf bytes.Buffer
	var ran []string
	a := &app{stdout: &buf}
	a.runner = runnerFunc(func(ctx context.Context, cmdLine string) error {
		ran = append(ran, cmdLine)
		// what the stored command would do when run by the shell
		runOK(t, db, "add", "nested", "value")
		return nil
	})
	code := runApp(a, []string{"--db", db, "exec", "remember"})
	require.Equal(t, 0, code, "output: %s", buf.String())
	assert.Equal(t, []string{"dumpbuf add nested value"}, ran)

	assert.Equal(t, "value\n", runOK(t, db, "get", "nested"))
	assert.Equal(t, "[nested, remember]\n", runOK(t, db, "list", "--keys-only"))
}

func TestExportImport(t *testing.T) {
	db := testEnv(t)
	dir := filepath.Dir(db)
	runOK(t, db, "add", "a", "1")
	runOK(t, db, "add", "b", "2")

	path := filepath.Join(dir, "export.zst")
	out := runOK(t, db, "export", path)
	assert.Equal(t, "Exported 2 records to "+path+"\n", out)

	runOK(t, db, "rm", "a")
	runOK(t, db, "add", "b", "changed")
	out = runOK(t, db, "import", path)
	assert.Equal(t, "Imported 1 records, skipped 1 existing\n", out)
	assert.Equal(t, "changed\n", runOK(t, db, "get", "b"))

	out = runOK(t, db, "import", "--replace", path)
	assert.Equal(t, "Imported 2 records, skipped 0 existing\n", out)
	assert.Equal(t, "2\n", runOK(t, db, "get", "b"))

	// database file of another installation
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(other, []byte("c|>!<|3|<!>|\n"), 0644))
	runOK(t, db, "import", other)
	assert.Equal(t, "[a, b, c]\n", runOK(t, db, "list", "--keys-only"))

	runFail(t, db, "import", filepath.Join(dir, "missing.txt"))
}

func TestDiff(t *testing.T) {
	db := testEnv(t)
	dir := filepath.Dir(db)
	runOK(t, db, "add", "a", "1")
	runOK(t, db, "add", "b", "2")
	path := filepath.Join(dir, "export.br")
	runOK(t, db, "export", path)

	out := runOK(t, db, "diff", path)
	assert.Equal(t, "No differences\n", out)

	runOK(t, db, "rm", "a")
	runOK(t, db, "add", "c", "3")
	out = runOK(t, db, "diff", path)
	assert.Contains(t, out, "-c|>!<|3|<!>|")
	assert.Contains(t, out, "+a|>!<|1|<!>|")
	assert.NotContains(t, out, "+b|>!<|2|<!>|")
}

func TestConfigFile(t *testing.T) {
	db := testEnv(t)
	cfgPath := filepath.Join(filepath.Dir(db), "config.yaml")
	cfg := "db_path: " + db + "\nlog_dir: \"\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	runOK(t, "", "--config", cfgPath, "add", "k", "v")
	assert.FileExists(t, db)
	assert.Equal(t, "v\n", runOK(t, db, "get", "k"))

	runFail(t, "", "--config", filepath.Join(filepath.Dir(db), "missing.yaml"), "list")
}

func TestBackupNotConfigured(t *testing.T) {
	db := testEnv(t)
	out := runFail(t, db, "backup", "push")
	assert.Contains(t, out, "remote is not configured")
}

func TestMalformedDatabase(t *testing.T) {
	db := testEnv(t)
	require.NoError(t, os.WriteFile(db, []byte("no separator|<!>|\n"), 0600))
	runFail(t, db, "list")
	d, err := os.ReadFile(db)
	require.NoError(t, err)
	assert.Equal(t, "no separator|<!>|\n", string(d))
}
