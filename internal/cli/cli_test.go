package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"outliner-cli/internal/server"
	"outliner-cli/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// isolate keeps the user's config file and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"OUTLINER_SERVER_URL", "OUTLINER_PAGE", "OUTLINER_DATA_DIR", "OUTLINER_FORMAT", "OUTLINER_CONFIG"} {
		t.Setenv(k, "")
	}
}

type cliRunner struct {
	t    *testing.T
	base []string
}

func (r cliRunner) run(args ...string) map[string]any {
	r.t.Helper()
	stdout, stderr, err := runCLI(r.t, append(append([]string{}, r.base...), args...))
	require.NoError(r.t, err, "outliner %v\nstderr:\n%s", args, stderr)
	var env map[string]any
	require.NoError(r.t, json.Unmarshal(stdout, &env), "stdout:\n%s", stdout)
	require.Contains(r.t, env, "data")
	return env
}

func (r cliRunner) fail(args ...string) string {
	r.t.Helper()
	_, stderr, err := runCLI(r.t, append(append([]string{}, r.base...), args...))
	require.Error(r.t, err, "expected outliner %v to fail", args)
	return string(stderr)
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	require.True(t, ok, "data is %T", env["data"])
	return m
}

func treeDepths(t *testing.T, env map[string]any) map[string]float64 {
	t.Helper()
	rows, _ := dataMap(t, env)["rows"].([]any)
	out := map[string]float64{}
	for _, r := range rows {
		m := r.(map[string]any)
		out[m["content"].(string)] = m["depth"].(float64)
	}
	return out
}

func TestCLI_OutlineEditing(t *testing.T) {
	isolate(t)
	r := cliRunner{t: t, base: []string{"--data-dir", t.TempDir(), "--page", "Inbox"}}

	r.fail("notes", "list")

	page := r.run("pages", "create", "Inbox")
	pageID, _ := dataMap(t, page)["id"].(string)
	require.NotEmpty(t, pageID)

	a := dataMap(t, r.run("notes", "add", "alpha"))
	aID := a["id"].(string)
	assert.Equal(t, "alpha", a["content"])
	b := dataMap(t, r.run("notes", "add", "beta"))
	bID := b["id"].(string)
	r.run("notes", "add-child", aID, "alpha one")

	r.run("notes", "indent", bID)
	assert.Equal(t, map[string]float64{"alpha": 0, "alpha one": 1, "beta": 1}, treeDepths(t, r.run("notes", "tree")))

	r.run("notes", "outdent", bID)
	assert.Equal(t, map[string]float64{"alpha": 0, "alpha one": 1, "beta": 0}, treeDepths(t, r.run("notes", "tree")))

	stderr := r.fail("notes", "indent", aID)
	assert.Contains(t, stderr, "nothing to change")

	sib := dataMap(t, r.run("notes", "add-sibling", aID, "between"))
	assert.Equal(t, "between", sib["content"])

	r.run("notes", "edit", bID, "")
	del := dataMap(t, r.run("notes", "delete", bID))
	assert.Equal(t, bID, del["deleted"])

	stderr = r.fail("notes", "delete", aID)
	assert.Contains(t, stderr, "not empty")

	stderr = r.fail("notes", "edit", "note-missing", "x")
	assert.Contains(t, stderr, "note not found")

	check := dataMap(t, r.run("notes", "check"))
	assert.Empty(t, check["issues"])

	stdout, _, err := runCLI(t, append(append([]string{}, r.base...), "export"))
	require.NoError(t, err)
	assert.Equal(t, "# Inbox\n\n- alpha\n  - alpha one\n- between\n", string(stdout))
}

func TestCLI_PagesList(t *testing.T) {
	isolate(t)
	r := cliRunner{t: t, base: []string{"--data-dir", t.TempDir()}}
	r.run("pages", "create", "One")
	r.run("pages", "create", "Two")

	pages, _ := r.run("pages", "list")["data"].([]any)
	var titles []string
	for _, p := range pages {
		titles = append(titles, p.(map[string]any)["title"].(string))
	}
	assert.ElementsMatch(t, []string{"One", "Two"}, titles)

	r.fail("pages", "create", "  ")
}

func TestCLI_RemoteServer(t *testing.T) {
	isolate(t)
	db, err := store.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	srv, err := server.NewServer(server.ServerConfig{Addr: "127.0.0.1:0"}, db, logrus.NewEntry(log))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	r := cliRunner{t: t, base: []string{"--server", ts.URL}}
	r.run("pages", "create", "Shared")
	a := dataMap(t, r.run("notes", "add", "over http"))
	r.run("notes", "add-child", a["id"].(string), "nested")

	notes, err := db.ListNotes(context.Background(), dataMap(t, r.run("notes", "tree"))["page"].(map[string]any)["id"].(string))
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, map[string]float64{"over http": 0, "nested": 1}, treeDepths(t, r.run("notes", "tree")))

	stderr := cliRunner{t: t, base: r.base}.fail("serve")
	assert.Contains(t, stderr, "server_url is set")
}

func TestCLI_FormatsAndConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	_, _, err := runCLI(t, []string{"--data-dir", dir, "pages", "create", "Inbox"})
	require.NoError(t, err)

	stdout, _, err := runCLI(t, []string{"--data-dir", dir, "--format", "edn", "pages", "list"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(stdout)), "{:data"), string(stdout))

	stdout, _, err = runCLI(t, []string{"--data-dir", dir, "--format", "yaml", "pages", "list"})
	require.NoError(t, err)
	assert.Contains(t, string(stdout), "title: Inbox")

	stdout, _, err = runCLI(t, []string{"--data-dir", dir, "config"})
	require.NoError(t, err)
	assert.Contains(t, string(stdout), "data_dir: "+dir)
	assert.Contains(t, string(stdout), "debounce: 750ms")

	_, stderr, err := runCLI(t, []string{"--data-dir", dir, "--format", "xml", "pages", "list"})
	require.Error(t, err)
	assert.Contains(t, string(stderr), "unknown format")
}

func TestCLI_Docs(t *testing.T) {
	isolate(t)
	r := cliRunner{t: t, base: []string{"--data-dir", t.TempDir()}}
	topics, _ := dataMap(t, r.run("docs"))["topics"].([]any)
	titles := map[string]any{}
	for _, tp := range topics {
		m := tp.(map[string]any)
		titles[m["name"].(string)] = m["title"]
	}
	assert.Equal(t, "Keys", titles["keys"])

	stdout, _, err := runCLI(t, []string{"--data-dir", t.TempDir(), "docs", "keys", "--raw"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(stdout), "# Keys"))

	got := dataMap(t, r.run("docs", "ord"))
	assert.Equal(t, "ordering", got["topic"])
	assert.Equal(t, "Ordering", got["title"])

	r.fail("docs", "nope")
}
