package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr-karan/sparkq/internal/config"
	"github.com/mr-karan/sparkq/internal/registry"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var buf bytes.Buffer
	app := newApp("test", "none", "today", &buf)
	err := app.command().Run(context.Background(), append([]string{"sparkq"}, args...))
	return buf.String(), err
}

func TestGenerateCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "partitioned single field",
			args: []string{"generate", "-t", "creative_event", "-f", "cid AS cid", "-s", "2024-01-01", "-e", "2024-01-02", "--tz", "0"},
			want: "SELECT\n  cid AS cid\nFROM\n  creative_event_2024010100_2024010200\n",
		},
		{
			name: "distinct with canned and field conditions",
			args: []string{
				"generate", "-t", "creative_event", "-f", "cid", "-f", "crid",
				"-w", "@clicks", "-w", "country = us",
				"-s", "2024-03-10-05", "-e", "2024-03-10-07", "--tz", "8", "--distinct",
			},
			want: "SELECT DISTINCT\n  cid AS cid,\n  BYTES2STR(crid) AS crid\nFROM\n  creative_event_2024030921_2024030923\nWHERE\n  event_type = 'click'\n  AND country = 'us'\n",
		},
		{
			name: "no time range",
			args: []string{"generate", "-t", "creative_event", "-f", "cid"},
			want: "SELECT\n  cid AS cid\nFROM\n  creative_event\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("output =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestGenerateCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown table", []string{"generate", "-t", "nope", "-f", "cid"}},
		{"bad field row", []string{"generate", "-t", "creative_event", "-f", "arms[action_id]"}},
		{"end before start", []string{"generate", "-t", "creative_event", "-s", "2024-01-02", "-e", "2024-01-01"}},
		{"bad offset", []string{"generate", "-t", "creative_event", "--tz", "abc"}},
		{"bad output format", []string{"generate", "-t", "creative_event", "-o", "yaml"}},
		{"last with start", []string{"generate", "-t", "creative_event", "--last", "6h", "-s", "2024-01-01"}},
		{"bad last", []string{"generate", "-t", "creative_event", "--last", "90m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("run() expected error")
			}
		})
	}
}

func TestGenerateCommandLast(t *testing.T) {
	got, err := run(t, "generate", "-t", "creative_event", "-f", "cid", "--last", "6h")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(got, "creative_event_") || strings.Contains(got, "\n  creative_event\n") {
		t.Errorf("output = %q, want a partitioned table", got)
	}
}

func TestGenerateCommandJSON(t *testing.T) {
	got, err := run(t, "generate", "-t", "creative_event", "-f", "cid", "-o", "json", "--lint")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var out struct {
		SQL      string   `json:"sql"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", got, err)
	}
	if out.SQL != "SELECT\n  cid AS cid\nFROM\n  creative_event" {
		t.Errorf("sql = %q", out.SQL)
	}
	if out.Warnings == nil || len(out.Warnings) != 0 {
		t.Errorf("warnings = %v, want empty", out.Warnings)
	}
}

func TestJoinCommand(t *testing.T) {
	got, err := run(t,
		"join", "-t", "imp_join_all2", "-t2", "creative_event", "--type", "left", "--on", "oid",
		"-f", "cid", "--field2", "event_type",
		"-w", "@bid_win", "--where2", "event_type = click",
		"-s", "2024-01-01", "-e", "2024-01-02", "--tz", "8",
	)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	want := "SELECT\n" +
		"  t1.cid AS cid,\n" +
		"  t2.event_type AS event_type\n" +
		"FROM\n" +
		"  imp_join_all2_2023123116_2024010116 t1\n" +
		"LEFT OUTER JOIN\n" +
		"  creative_event_2023123116_2024010116 t2\n" +
		"ON CID2OID(t1.cid) = CID2OID(t2.cid)\n" +
		"WHERE\n" +
		"  t1.is_external IS NULL AND t1.win_time IS NOT NULL\n" +
		"  AND t2.event_type = 'click'\n"
	if got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestJoinCommandDefaultsOn(t *testing.T) {
	got, err := run(t, "join", "-t", "creative_event", "-t2", "creative_quality", "-f", "cid")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(got, "INNER JOIN") || !strings.Contains(got, "ON t1.cid = t2.cid") {
		t.Errorf("output = %s", got)
	}
}

func TestJoinCommandErrors(t *testing.T) {
	if _, err := run(t, "join", "-t", "creative_event", "-t2", "creative_quality", "--type", "cross"); err == nil {
		t.Error("expected error for unknown join type")
	}
	if _, err := run(t, "join", "-t", "creative_event", "-t2", "creative_quality", "--on", "no_such_field"); err == nil {
		t.Error("expected error for unknown join field")
	}
}

func TestQuickCommand(t *testing.T) {
	list, err := run(t, "quick", "-o", "json")
	if err != nil {
		t.Fatalf("run(list) error = %v", err)
	}
	var rows []map[string]string
	if err := json.Unmarshal([]byte(list), &rows); err != nil {
		t.Fatalf("invalid JSON %q: %v", list, err)
	}
	keys := map[string]bool{}
	for _, r := range rows {
		keys[r["KEY"]] = true
	}
	if !keys["distinct_type_all"] || !keys["distinct_country_all"] {
		t.Errorf("quick listing keys = %v", keys)
	}

	if _, err := run(t, "quick", "distinct_type_all"); err == nil {
		t.Error("expected error without a time range")
	}
	if _, err := run(t, "quick", "no_such_query", "-s", "2024-01-01", "-e", "2024-01-02"); err == nil {
		t.Error("expected error for an unknown key")
	}
	if _, err := run(t, "quick", "distinct_type_all", "-s", "2024-01-01", "-e", "2024-01-02", "--tz", "abc"); err == nil {
		t.Error("expected error for a bad offset")
	}

	got, err := run(t, "quick", "distinct_type_all", "-s", "2024-01-01", "-e", "2024-01-02", "--tz", "0")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(got, "creative_perf_event_2024010100_2024010200") || !strings.Contains(got, "UNION") {
		t.Errorf("quick output = %s", got)
	}
}

func TestValidateCommand(t *testing.T) {
	got, err := run(t, "validate", "-s", "2024-01-01", "-e", "2024-01-02")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(got, "valid") {
		t.Errorf("output = %q", got)
	}

	got, err = run(t, "validate", "-s", "2024-01-02", "-e", "2024-01-01")
	if err == nil {
		t.Error("expected error for reversed range")
	}
	if !strings.Contains(got, "invalid:") {
		t.Errorf("output = %q", got)
	}
}

func TestTablesCommand(t *testing.T) {
	got, err := run(t, "tables", "show", "creative_event", "-o", "json")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(got, `"crid"`) {
		t.Errorf("tables show output = %s", got)
	}

	got, err = run(t, "tables", "join-keys", "imp_join_all2", "creative_event")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(got, "oid") {
		t.Errorf("join-keys output = %s", got)
	}

	if _, err := run(t, "tables", "show", "nope"); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestConfigSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if _, err := run(t, "--config", path, "config", "set", "defaults.timezone", "9"); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}

	if err := config.Default().SaveTo(path); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--config", path, "config", "set", "defaults.timezone", "9"); err != nil {
		t.Fatalf("config set error = %v", err)
	}
	if _, err := run(t, "--config", path, "config", "set", "defaults.timezone", "x"); err == nil {
		t.Error("expected error for a bad offset")
	}
	if _, err := run(t, "--config", path, "config", "set", "no.such", "1"); err == nil {
		t.Error("expected error for an unknown key")
	}

	cfg, err := config.Load(config.LoadOptions{ConfigPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Defaults.Timezone != "9" {
		t.Errorf("timezone = %q, want 9", cfg.Defaults.Timezone)
	}

	got, err := run(t, "--config", path, "generate", "-t", "creative_event", "-f", "cid", "-s", "2024-01-01", "-e", "2024-01-02")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(got, "creative_event_2023123115_2024010115") {
		t.Errorf("config offset not applied: %s", got)
	}
}

func TestFormQuery(t *testing.T) {
	reg, err := registry.Default()
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := reg.Table("creative_event")
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]registry.FieldItem{}
	for _, f := range tbl.Fields("") {
		byName[f.Name] = f
	}

	q := formQuery("creative_event", []string{"oid", "crid"}, byName, []string{"clicks"}, "2024-01-01", "2024-01-02", "0", false)
	if len(q.Fields) != 2 || !q.Fields[0].IsCustom || !q.Fields[1].IsBinary {
		t.Errorf("fields = %+v", q.Fields)
	}
	if len(q.Conditions) != 1 || q.Conditions[0].ConditionType != "clicks" {
		t.Errorf("conditions = %+v", q.Conditions)
	}
}

func TestVersionCommand(t *testing.T) {
	got, err := run(t, "version")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(got, "test") || !strings.Contains(got, "none") {
		t.Errorf("output = %q", got)
	}
}
