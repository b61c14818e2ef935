package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/redislist/internal/config"
)

func TestListCommands(t *testing.T) {
	mr := startRedis(t)
	run := func(args ...string) string {
		t.Helper()
		out, err := execute(t, append([]string{"--addr", mr.Addr(), "list"}, args...)...)
		require.NoError(t, err, "list %v", args)
		return out
	}

	assert.Equal(t, "OK\n", run("push", "pets", "Cat", "Dog", "Home"))
	assert.Equal(t, "OK\n", run("push", "--head", "pets", "Ant", "Bee"))
	assert.Equal(t, "OK\n", run("insert", "pets", "3", "Bird", "Fish"))
	assert.Equal(t, "Ant\nBee\nCat\nBird\nFish\nDog\nHome\n", run("range", "pets"))
	assert.Equal(t, "Bee\nCat\n", run("range", "pets", "1", "2"))

	assert.Equal(t, "Fish\n", run("get", "pets", "4"))
	assert.Equal(t, "Fish\n", run("set", "pets", "4", "Eel"))
	assert.Equal(t, "Bird\n", run("remove-at", "pets", "3"))
	assert.Equal(t, "true\n", run("remove", "pets", "Ant"))
	assert.Equal(t, "false\n", run("remove", "pets", "Ant"))
	assert.Equal(t, "2\n", run("index-of", "pets", "Eel"))
	assert.Equal(t, "-1\n", run("last-index-of", "pets", "Ant"))
	assert.Equal(t, "Home\n", run("pop", "pets"))
	assert.Equal(t, "Bee\n", run("pop", "--head", "pets"))
	assert.Equal(t, "3\n", run("len", "pets"))

	assert.Equal(t, "OK\n", run("sort", "pets"))
	got, err := mr.List("pets")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cat", "Dog", "Eel"}, got)

	assert.Equal(t, "OK\n", run("clear", "pets"))
	assert.False(t, mr.Exists("pets"))
	assert.Equal(t, "0\n", run("len", "pets"))
}

func TestListCommand_OutOfRange(t *testing.T) {
	mr := startRedis(t)
	_, err := mr.Push("pets", "Cat", "Dog")
	require.NoError(t, err)

	out, err := execute(t, "--addr", mr.Addr(), "list", "get", "pets", "7")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error [E101]: get: index 7 out of range for size 2\n", out)
}

func TestListCommand_PopEmpty(t *testing.T) {
	mr := startRedis(t)

	out, err := execute(t, "--addr", mr.Addr(), "list", "pop", "pets")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E102]")
}

func TestListCommand_BadIndex(t *testing.T) {
	mr := startRedis(t)

	out, err := execute(t, "--addr", mr.Addr(), "list", "get", "pets", "first")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
	assert.Contains(t, out, `invalid argument "first"`)
}

func TestListCommand_JSON(t *testing.T) {
	mr := startRedis(t)
	_, err := mr.Push("pets", "Cat", "Dog", "Home")
	require.NoError(t, err)

	out, err := execute(t, "--addr", mr.Addr(), "--format", "json", "list", "len", "pets")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"result":3}}`, out)

	out, err = execute(t, "--addr", mr.Addr(), "--format", "json", "list", "range", "pets")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"result":["Cat","Dog","Home"]}}`, out)

	out, err = execute(t, "--addr", mr.Addr(), "--format", "json", "list", "get", "pets", "3")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeOutOfRange, resp.Error.Code)
}

func TestMapCommands(t *testing.T) {
	mr := startRedis(t)
	run := func(args ...string) (string, error) {
		return execute(t, append([]string{"--addr", mr.Addr(), "map"}, args...)...)
	}

	out, err := run("put", "counts", "apples", "879")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	out, err = run("put", "counts", "apples", "880")
	require.NoError(t, err)
	assert.Equal(t, "879\n", out)

	_, err = run("put", "counts", "oranges", "5713")
	require.NoError(t, err)

	out, err = run("get", "counts", "apples")
	require.NoError(t, err)
	assert.Equal(t, "880\n", out)

	out, err = run("entries", "counts")
	require.NoError(t, err)
	assert.Equal(t, "apples=880\noranges=5713\n", out)

	out, err = run("remove", "counts", "apples")
	require.NoError(t, err)
	assert.Equal(t, "880\n", out)

	out, err = run("get", "counts", "apples")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `field "apples" not found`)

	out, err = execute(t, "--addr", mr.Addr(), "--format", "json", "map", "entries", "counts")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"result":[{"field":"oranges","value":"5713"}]}}`, out)
}

func TestDemoCommand_Golden(t *testing.T) {
	mr := startRedis(t)

	out, err := execute(t, "--addr", mr.Addr(), "demo", "--key", "demo")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "demo", []byte(out))
	assert.Empty(t, mr.Keys(), "demo deletes everything it creates")
}

func TestDemoCommand_JSON(t *testing.T) {
	mr := startRedis(t)

	out, err := execute(t, "--addr", mr.Addr(), "--format", "json", "demo")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []DemoStep `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 14)
	assert.Equal(t, `Last index of "Dog": 4`, resp.Data[5].Action)
	assert.Equal(t, "{oranges=5713, tangerines=179, tomatoes=482}", resp.Data[12].Content)
}

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestScenarioCommand(t *testing.T) {
	mr := startRedis(t)

	out, err := execute(t, "--addr", mr.Addr(), "scenario",
		"../harness/testdata/scenarios/pets.yaml",
		"../harness/testdata/scenarios/bounds.yaml",
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ pets\n")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestScenarioCommand_Failure(t *testing.T) {
	mr := startRedis(t)
	path := writeScenario(t, t.TempDir(), "wrong.yaml", `name: wrong
description: "Expects the wrong head element"
key: "cli:wrong"
initial: [a, b]
steps:
  - op: get
    index: 0
    expect:
      result: b
`)

	out, err := execute(t, "--addr", mr.Addr(), "scenario", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong\n")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestScenarioCommand_LoadError(t *testing.T) {
	mr := startRedis(t)

	out, err := execute(t, "--addr", mr.Addr(), "--format", "json", "scenario", "does-not-exist.yaml")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
}

func TestScenarioCommand_UpdateThenCompareGolden(t *testing.T) {
	mr := startRedis(t)
	dir := t.TempDir()
	src, err := os.ReadFile("../harness/testdata/scenarios/pets.yaml")
	require.NoError(t, err)
	path := writeScenario(t, dir, "pets.yaml", string(src))

	_, err = execute(t, "--addr", mr.Addr(), "scenario", "--update", path)
	require.NoError(t, err)

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "pets.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/pets.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(golden))

	_, err = execute(t, "--addr", mr.Addr(), "scenario", path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "pets.golden"), []byte("{}"), 0644))
	out, err := execute(t, "--addr", mr.Addr(), "scenario", path)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match")
}

func TestHistoryCommand(t *testing.T) {
	mr := startRedis(t)
	t.Setenv(config.EnvJournal, filepath.Join(t.TempDir(), "journal.db"))

	_, err := execute(t, "--addr", mr.Addr(), "list", "push", "pets", "Cat", "Dog")
	require.NoError(t, err)
	_, err = execute(t, "--addr", mr.Addr(), "list", "remove-at", "pets", "0")
	require.NoError(t, err)
	_, err = execute(t, "--addr", mr.Addr(), "map", "put", "counts", "apples", "1")
	require.NoError(t, err)

	out, err := execute(t, "history", "pets")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `pets add_all ["Cat" "Dog"] mod=1`)
	assert.Contains(t, lines[1], "pets remove_at @0 mod=1")

	out, err = execute(t, "--format", "json", "history", "--limit", "1")
	require.NoError(t, err)
	var resp struct {
		Data []struct {
			Key   string `json:"key"`
			Op    string `json:"op"`
			Field string `json:"field"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "counts", resp.Data[0].Key)
	assert.Equal(t, "map.put", resp.Data[0].Op)
	assert.Equal(t, "apples", resp.Data[0].Field)
}

func TestHistoryCommand_NoJournal(t *testing.T) {
	clearEnv(t)

	out, err := execute(t, "history")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestMetricsCommand(t *testing.T) {
	mr := startRedis(t)

	out, err := execute(t, "--addr", mr.Addr(), "metrics", "--key", "m")
	require.NoError(t, err)
	assert.Contains(t, out, `redislist_operations_total{op="add_all",outcome="ok"} 1`+"\n")
	assert.Contains(t, out, `redislist_operation_duration_seconds_count{op="remove_at"} 1`+"\n")
	assert.Contains(t, out, `redislist_txn_attempts_total{result="committed"}`)
	assert.Contains(t, out, `redislist_operations_total{op="map_put",outcome="ok"} 1`+"\n")
	assert.Empty(t, mr.Keys())
}

func TestBenchCommand(t *testing.T) {
	mr := startRedis(t)

	out, err := execute(t, "--addr", mr.Addr(), "--format", "json", "bench",
		"--key", "bench", "--workers", "4", "--ops", "10", "--size", "4")
	require.NoError(t, err)

	var resp struct {
		Data BenchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "bench", resp.Data.Key)
	assert.Equal(t, 4, resp.Data.Workers)
	assert.Equal(t, int64(40), resp.Data.Committed+resp.Data.Timeouts)
	assert.False(t, mr.Exists("bench"))
}

func TestBenchCommand_InvalidParameters(t *testing.T) {
	mr := startRedis(t)

	out, err := execute(t, "--addr", mr.Addr(), "bench", "--workers", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
