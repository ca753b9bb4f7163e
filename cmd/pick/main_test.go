package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/pick/internal/datasource"
	"github.com/vanderheijden86/pick/pkg/config"
	"github.com/vanderheijden86/pick/pkg/history"
	"github.com/vanderheijden86/pick/pkg/hooks"
	"github.com/vanderheijden86/pick/pkg/ui"
)

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Sources = []config.Source{
		{Name: "hosts", Path: "/etc/pick/hosts.txt"},
		{Name: "users", Path: "/srv/users.db", Format: "sqlite", Query: "SELECT name FROM users"},
	}
	return cfg
}

func TestResolveSources_Defaults(t *testing.T) {
	cfg := testConfig()

	got, err := resolveSources(cfg, nil, cliSourceOptions{}, true)
	if err != nil {
		t.Fatalf("piped stdin: %v", err)
	}
	if len(got) != 1 || got[0].Path != datasource.StdinPath {
		t.Errorf("expected stdin source, got %+v", got)
	}

	got, err = resolveSources(cfg, nil, cliSourceOptions{}, false)
	if err != nil {
		t.Fatalf("configured sources: %v", err)
	}
	if len(got) != 2 || got[1].Format != datasource.FormatSQLite || got[1].Query == "" {
		t.Errorf("expected both configured sources, got %+v", got)
	}

	if _, err := resolveSources(config.DefaultConfig(), nil, cliSourceOptions{}, false); err == nil {
		t.Error("expected error with no source at all")
	}
}

func TestResolveSources_NamesAndPaths(t *testing.T) {
	cfg := testConfig()
	cli := cliSourceOptions{Format: "ndjson", Field: "name"}

	got, err := resolveSources(cfg, []string{"HOSTS", "./people.log"}, cli, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(got))
	}
	// Configured sources keep their own settings.
	if got[0].Name != "hosts" || got[0].Format != "" || got[0].Field != "" {
		t.Errorf("configured source picked up CLI options: %+v", got[0])
	}
	if got[1].Path != "./people.log" || got[1].Format != datasource.FormatJSONL || got[1].Field != "name" {
		t.Errorf("unexpected path source: %+v", got[1])
	}

	if _, err := resolveSources(cfg, []string{"x.txt"}, cliSourceOptions{Format: "xml"}, false); err == nil {
		t.Error("expected unknown format error")
	}
}

func TestHistoryKeyAndTitle(t *testing.T) {
	one := []datasource.Source{{Path: "/tmp/fruit.json"}}
	two := []datasource.Source{{Name: "hosts"}, {Path: datasource.StdinPath}}

	if got := historyKey(one); got != "fruit.json" {
		t.Errorf("historyKey(one) = %q", got)
	}
	if got := historyKey(two); got != "hosts+stdin" {
		t.Errorf("historyKey(two) = %q", got)
	}
	if got := sourceTitle(one); got != "fruit.json" {
		t.Errorf("sourceTitle(one) = %q", got)
	}
	if got := sourceTitle(two); got != "2 sources" {
		t.Errorf("sourceTitle(two) = %q", got)
	}
}

func TestWatchablePath(t *testing.T) {
	tests := []struct {
		sources []datasource.Source
		want    string
	}{
		{nil, ""},
		{[]datasource.Source{{Path: datasource.StdinPath}}, ""},
		{[]datasource.Source{{Path: "-"}, {Path: "a.txt"}, {Path: "b.txt"}}, "a.txt"},
	}
	for _, tt := range tests {
		if got := watchablePath(tt.sources); got != tt.want {
			t.Errorf("watchablePath(%+v) = %q, want %q", tt.sources, got, tt.want)
		}
	}
}

func TestWriteResult(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := ui.Result{Selected: true, Value: "Avocado", Source: "fruit", SelectedAt: at}

	var plain bytes.Buffer
	if err := writeResult(&plain, res, false); err != nil {
		t.Fatal(err)
	}
	if plain.String() != "Avocado\n" {
		t.Errorf("plain output = %q", plain.String())
	}

	var out bytes.Buffer
	if err := writeResult(&out, res, true); err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if got["value"] != "Avocado" || got["source"] != "fruit" || got["selected_at"] != "2026-03-01T12:00:00Z" {
		t.Errorf("unexpected JSON: %v", got)
	}
}

func TestWriteHistory(t *testing.T) {
	var empty bytes.Buffer
	if err := writeHistory(&empty, nil, true); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(empty.String()) != "[]" {
		t.Errorf("empty JSON history = %q", empty.String())
	}

	var none bytes.Buffer
	if err := writeHistory(&none, nil, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(none.String(), "No selections") {
		t.Errorf("empty table = %q", none.String())
	}

	entries := []history.Entry{
		{ID: 2, Source: "hosts", Value: "db-1", SelectedAt: time.Now()},
		{ID: 1, Source: "fruit", Value: "Banana", SelectedAt: time.Now()},
	}
	var table bytes.Buffer
	if err := writeHistory(&table, entries, false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(table.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %q", table.String())
	}
	if !strings.Contains(lines[0], "hosts") || !strings.HasSuffix(lines[0], "db-1") {
		t.Errorf("unexpected first row %q", lines[0])
	}
}

func TestPrintHistoryFiltersBySource(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, v := range []string{"Apple", "Banana"} {
		if _, err := store.Record(ctx, "fruit", v); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.Record(ctx, "hosts", "db-1"); err != nil {
		t.Fatal(err)
	}
	store.Close()

	var out bytes.Buffer
	if code := printHistory(&out, cfg, "fruit", 10, true); code != exitSelected {
		t.Fatalf("exit code %d", code)
	}
	var entries []history.Entry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 2 || entries[0].Value != "Banana" {
		t.Errorf("expected newest fruit first, got %+v", entries)
	}
}

func TestPruneHistoryKeepsLimit(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, v := range []string{"a", "b", "c"} {
		if _, err := store.Record(ctx, "letters", v); err != nil {
			t.Fatal(err)
		}
	}
	pruneHistory(store, 1)

	entries, err := store.Recent(ctx, "letters", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Value != "c" {
		t.Errorf("expected only newest entry, got %+v", entries)
	}
}

func TestLoadHooksMergesProjectAndConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".pick"), 0o755); err != nil {
		t.Fatal(err)
	}
	local := "hooks:\n  on-select:\n    - name: local\n      command: echo local\n"
	if err := os.WriteFile(filepath.Join(dir, ".pick", "hooks.yaml"), []byte(local), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg := testConfig()
	cfg.Hooks = hooks.HooksByPhase{OnSelect: []hooks.Hook{{Name: "global", Command: "echo global"}}}
	got, err := loadHooks(cfg)
	if err != nil {
		t.Fatalf("loadHooks: %v", err)
	}
	if got == nil || len(got.Hooks.OnSelect) != 2 {
		t.Fatalf("expected local and global hooks, got %+v", got)
	}
	if got.Hooks.OnSelect[0].Name != "local" || got.Hooks.OnSelect[1].Name != "global" {
		t.Errorf("order = %s, %s", got.Hooks.OnSelect[0].Name, got.Hooks.OnSelect[1].Name)
	}

	t.Chdir(t.TempDir())
	if got, err := loadHooks(testConfig()); err != nil || got != nil {
		t.Errorf("no hooks anywhere: got %+v, %v; want nil, nil", got, err)
	}
}

func TestAutocloseDelay(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"abc", 0},
		{"-5", 0},
		{"0", 0},
		{"250", 250 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := autocloseDelay(tt.in); got != tt.want {
			t.Errorf("autocloseDelay(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWizardAnswersApply(t *testing.T) {
	cfg := testConfig()
	a := answersFrom(cfg)
	if a.SourceName != "hosts" || !a.Mouse || !a.History {
		t.Fatalf("answers not seeded from config: %+v", a)
	}

	a.Prompt = "$ "
	a.SourcePath = "/data/fruit.yaml"
	a.SourceName = ""
	a.Format = "yaml"
	a.Field = " name "
	a.Mouse = false

	got := a.apply(cfg)
	if got.UI.Prompt != "$ " || got.MouseEnabled() || !got.HistoryEnabled() {
		t.Errorf("ui settings not applied: %+v", got.UI)
	}
	if len(got.Sources) != 2 {
		t.Fatalf("expected first source replaced, got %+v", got.Sources)
	}
	if s := got.Sources[0]; s.Name != "fruit" || s.Field != "name" || s.Format != "yaml" {
		t.Errorf("unexpected new source: %+v", s)
	}
	if got.Sources[1].Name != "users" {
		t.Errorf("second source should be kept, got %+v", got.Sources[1])
	}

	// No path: sources stay untouched.
	a.SourcePath = "  "
	if got := a.apply(config.DefaultConfig()); len(got.Sources) != 0 {
		t.Errorf("expected no sources, got %+v", got.Sources)
	}
}

func TestHistoryFilterMatchesRecordedKey(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.History.Path = filepath.Join(dir, "history.db")
	fruitPath := filepath.Join(dir, "fruit.txt")

	// A picker run over the file records under historyKey of its sources.
	sources, err := resolveSources(cfg, []string{fruitPath}, cliSourceOptions{}, false)
	if err != nil {
		t.Fatal(err)
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := store.Record(ctx, historyKey(sources), "Banana"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Record(ctx, "hosts", "db-1"); err != nil {
		t.Fatal(err)
	}
	store.Close()

	tests := []struct {
		args []string
		want []string
	}{
		{[]string{fruitPath}, []string{"Banana"}},
		{[]string{"HOSTS"}, []string{"db-1"}},
		{nil, []string{"db-1", "Banana"}},
	}
	for _, tt := range tests {
		key, err := historyFilter(cfg, tt.args, cliSourceOptions{})
		if err != nil {
			t.Fatalf("historyFilter(%v): %v", tt.args, err)
		}
		var out bytes.Buffer
		if code := printHistory(&out, cfg, key, 10, true); code != exitSelected {
			t.Fatalf("exit code %d", code)
		}
		var entries []history.Entry
		if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		var got []string
		for _, e := range entries {
			got = append(got, e.Value)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("history for %v (key %q) = %v, want %v", tt.args, key, got, tt.want)
		}
	}

	if _, err := historyFilter(cfg, []string{"x.txt"}, cliSourceOptions{Format: "xml"}); err == nil {
		t.Error("expected unknown format error")
	}
}

func TestBinaryHistoryJSON(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	tmpDir := t.TempDir()
	bin := filepath.Join(tmpDir, "bin", "pick")
	build := exec.Command("go", "build", "-C", repoRoot(t), "-o", bin, "./cmd/pick")
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("go build failed: %v\n%s", err, out)
	}

	stateDir := filepath.Join(tmpDir, "state")
	run := func(args ...string) string {
		t.Helper()
		args = append([]string{"--history", "--json", "--config", filepath.Join(tmpDir, "missing.yaml")}, args...)
		cmd := exec.Command(bin, args...)
		cmd.Env = append(os.Environ(), "XDG_STATE_HOME="+stateDir, "PICK_METRICS=0")
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			t.Fatalf("pick %v failed: %v\n%s", args, err, stderr.String())
		}
		return strings.TrimSpace(string(out))
	}

	if out := run(); out != "[]" {
		t.Errorf("expected empty JSON list, got %q", out)
	}

	// Written the way a picker run over fruit.txt records it.
	store, err := history.Open(filepath.Join(stateDir, "pick", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Record(context.Background(), "fruit.txt", "Avocado"); err != nil {
		t.Fatal(err)
	}
	store.Close()

	out := run("--source", filepath.Join(tmpDir, "fruit.txt"))
	if !strings.Contains(out, `"value": "Avocado"`) {
		t.Errorf("expected the recorded selection, got %q", out)
	}
	if out := run("other.txt"); out != "[]" {
		t.Errorf("expected no entries for another source, got %q", out)
	}
}

func repoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find go.mod above %s", dir)
		}
		dir = parent
	}
}
