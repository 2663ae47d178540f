package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/cps-dct/internal/adapters/cps/spec"
	"github.com/csg33k/cps-dct/internal/config"
	"github.com/csg33k/cps-dct/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CPS_WORKDIR", "CPS_INDEX_URL", "DB_PATH", "PORT",
		"LOG_LEVEL", "LOG_FORMAT", "CPS_WORKERS", "CPS_LAYOUT_CONFIG",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	c, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "cpsbm", c.WorkDir)
	assert.Empty(t, c.IndexURL)
	assert.Equal(t, "cpsdct.db", c.DBPath)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.Equal(t, 1, c.Workers)
	assert.Empty(t, c.LayoutConfig)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CPS_WORKDIR", "/tmp/cps")
	t.Setenv("CPS_WORKERS", "4")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cps", c.WorkDir)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"workers not a number": {"CPS_WORKERS", "many"},
		"workers zero":         {"CPS_WORKERS", "0"},
		"bad format":           {"LOG_FORMAT", "xml"},
		"bad level":            {"LOG_LEVEL", "loud"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := config.FromEnv()
			require.Error(t, err)
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	c := &config.Config{LogFormat: "json", LogLevel: "warn", Workers: 1, WorkDir: "x"}
	var buf bytes.Buffer
	log := c.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown", "year", "15")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"year":"15"`)
}

// ---------------------------------------------------------------------------
// Layout file
// ---------------------------------------------------------------------------

func TestLoadLayout_EmptyPathIsDefault(t *testing.T) {
	l, err := config.LoadLayout("")
	require.NoError(t, err)
	assert.Equal(t, spec.KeepVars, l.Keep)
	assert.Equal(t, spec.StringVars, l.StringFields)

	tok, ok := l.YearRule.Token("jan10dd.txt")
	require.True(t, ok)
	assert.Equal(t, "11", tok)
}

func TestParseLayout_ExtendsDefaults(t *testing.T) {
	src := `
keep          = concat(defaults.keep, ["PEAFEVER"])
string_fields = distinct(concat(defaults.string_fields, ["HRHHID"]))
`
	l, err := config.ParseLayout([]byte(src), "cps.hcl")
	require.NoError(t, err)

	assert.Len(t, l.Keep, len(spec.KeepVars)+1)
	assert.Equal(t, "PEAFEVER", l.Keep[len(l.Keep)-1])
	assert.Equal(t, spec.StringVars, l.StringFields)
	assert.True(t, l.KeepSet().Contains("PEAFEVER"))
	assert.Equal(t, domain.String, l.TypeHints().For("GTCBSA"))
	assert.Equal(t, domain.Numeric, l.TypeHints().For("PEAFEVER"))
}

func TestParseLayout_Overrides(t *testing.T) {
	src := `
keep          = ["PEAGE", "HRHHID"]
string_fields = ["HRHHID"]

year_token {
  pattern = "2[0-9]"
  remap   = { "20" = "21" }
}

links {
  index  = "http://localhost/index.html"
  data   = "pub\\.zip$"
  layout = "layout\\.txt$"
  layout_file = "^layout_[0-9]+\\.txt$"
}
`
	l, err := config.ParseLayout([]byte(src), "cps.hcl")
	require.NoError(t, err)

	assert.Equal(t, []string{"PEAGE", "HRHHID"}, l.Keep)
	assert.Equal(t, "http://localhost/index.html", l.IndexURL)
	assert.True(t, l.DataPattern.MatchString("https://x/jan25pub.zip"))
	assert.True(t, l.LayoutPattern.MatchString("https://x/layout.txt"))
	assert.True(t, l.LayoutFile.MatchString("layout_20.txt"))
	assert.False(t, l.LayoutFile.MatchString("jan20dd.txt"))

	tok, ok := l.YearRule.Token("jan20.txt")
	require.True(t, ok)
	assert.Equal(t, "21", tok)
}

func TestParseLayout_Errors(t *testing.T) {
	tests := map[string]string{
		"syntax":        `keep = [`,
		"unknown attr":  `colour = "blue"`,
		"wrong type":    `keep = "PEAGE"`,
		"bad regex":     "year_token {\n pattern = \"[\"\n}",
		"bad link expr": "links {\n data = \"(\"\n}",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.ParseLayout([]byte(src), "bad.hcl")
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), "bad.hcl"), "error should name the file: %v", err)
		})
	}
}

func TestParseLayout_IndexURLFallback(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no links block", `keep = ["PEAGE"]`, spec.IndexURL},
		{"links without index", "links {\n data = \"pub\\\\.zip$\"\n}", spec.IndexURL},
		{"links index", "links {\n index = \"https://example.invalid/x.html\"\n}", "https://example.invalid/x.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := config.ParseLayout([]byte(tt.src), "cps.hcl")
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.IndexURL)
		})
	}
}

func TestDefaultLayout_LayoutFile(t *testing.T) {
	l := config.DefaultLayout()
	for _, name := range []string{"jan10dd.txt", "January_2015_Record_Layout.txt", "september_2017_record_layout.TXT"} {
		assert.True(t, l.LayoutFile.MatchString(name), name)
	}
	for _, name := range []string{"notes_15.txt", "2010_2011.txt", "jan15pub.dat", "readme.txt"} {
		assert.False(t, l.LayoutFile.MatchString(name), name)
	}
}

func TestLoadLayout_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`keep = ["PEAGE"]`), 0o644))

	l, err := config.LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"PEAGE"}, l.Keep)

	_, err = config.LoadLayout(filepath.Join(t.TempDir(), "missing.hcl"))
	require.Error(t, err)
}

func TestLoadLayout_ExampleFile(t *testing.T) {
	l, err := config.LoadLayout(filepath.Join("..", "..", "layout.example.hcl"))
	require.NoError(t, err)
	assert.Contains(t, l.Keep, "PEAFEVER")
	assert.Len(t, l.Keep, len(config.DefaultLayout().Keep)+2)

	year, ok := l.YearRule.Token("jan10dd.txt")
	assert.True(t, ok)
	assert.Equal(t, "11", year)
	assert.True(t, l.DataPattern.MatchString("https://host/basic/2015/jan15pub.zip"))
}
