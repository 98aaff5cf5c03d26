package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/riksdag-client/internal/testutil"
	"github.com/Sternrassler/riksdag-client/pkg/logging"
	"github.com/Sternrassler/riksdag-client/pkg/riksdag"
)

// run executes the CLI against fake and returns stdout.
func run(t *testing.T, fake *testutil.FakeRiksdag, args ...string) (string, error) {
	t.Helper()
	t.Setenv("RIKSDAG_REQUESTS_PER_SECOND", "0")
	t.Setenv("RIKSDAG_RETRY_BACKOFF", "1ms")

	httpClient := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	root := newRootCmd(riksdag.WithHTTPClient(httpClient))

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--base-url", fake.URL(), "--log-format", "json"}, args...))

	err := root.Execute()
	return stdout.String(), err
}

func jsonLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), "line %q", line)
		records = append(records, rec)
	}
	return records
}

func TestMotionsCommand_JSON(t *testing.T) {
	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetDocuments(testutil.MotionHits("H9", 30), 20)

	out, err := run(t, fake, "motions", "-q", "klimat", "--session", "2021/22", "--limit", "3")
	require.NoError(t, err)

	records := jsonLines(t, out)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, "mot", rec["kind"])
		assert.Equal(t, "H9"+string(rune('1'+i)), rec["id"])
	}

	require.Equal(t, 1, fake.RequestCount())
	q := fake.Requests()[0].Query
	assert.Equal(t, "mot", q.Get("doktyp"))
	assert.Equal(t, "klimat", q.Get("sok"))
	assert.Equal(t, "2021/22", q.Get("rm"))
}

func TestDocumentsCommand_AllPages(t *testing.T) {
	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetDocuments(testutil.MotionHits("H9", 45), 20)

	out, err := run(t, fake, "documents")
	require.NoError(t, err)

	assert.Len(t, jsonLines(t, out), 45)
	assert.Equal(t, []int{1, 2, 3}, fake.PagesRequested("dokumentlista"))
}

func TestDocumentsCommand_CSVByAuthor(t *testing.T) {
	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetDocuments(testutil.MotionHits("H9", 2), 20)

	out, err := run(t, fake, "documents", "--format", "csv", "--by", "author")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,doc_id,date,title,subtitle,author,party"))
	assert.Contains(t, lines[1], "Anna Andersson")
}

func TestDocumentsCommand_Where(t *testing.T) {
	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetDocuments(testutil.MotionHits("H9", 12), 20)

	out, err := run(t, fake, "documents", "--where", `id == "H911" || id == "H92"`)
	require.NoError(t, err)

	records := jsonLines(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, "H92", records[0]["id"])
	assert.Equal(t, "H911", records[1]["id"])
}

func TestDocumentsCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown filter", args: []string{"documents", "--filter", "colour=red"}, wantErr: "colour"},
		{name: "malformed filter", args: []string{"documents", "--filter", "party"}, wantErr: "name=value"},
		{name: "bad predicate", args: []string{"documents", "--where", "title =="}, wantErr: "compile"},
		{name: "bad format", args: []string{"documents", "--format", "xml"}, wantErr: "unknown output format"},
		{name: "bad layout", args: []string{"documents", "--format", "csv", "--by", "party"}, wantErr: "layout"},
		{name: "negative limit", args: []string{"documents", "--limit", "-1"}, wantErr: "limit"},
		{name: "bad log level", args: []string{"--log-level", "loud", "documents"}, wantErr: "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeRiksdag()
			defer fake.Close()
			fake.SetDocuments(testutil.MotionHits("H9", 5), 20)

			_, err := run(t, fake, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Zero(t, fake.RequestCount())
		})
	}
}

func TestDocumentsCommand_UpstreamError(t *testing.T) {
	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetResponse("dokumentlista", testutil.NewServerErrorResponse())

	_, err := run(t, fake, "documents")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestPersonsCommand(t *testing.T) {
	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetPersons(testutil.PersonHits(3), 20)

	out, err := run(t, fake, "persons", "--filter", "party=S")
	require.NoError(t, err)

	records := jsonLines(t, out)
	require.Len(t, records, 3)
	assert.Equal(t, "person", records[0]["kind"])
	assert.Equal(t, "S", fake.Requests()[0].Query.Get("parti"))
}

func TestVotesCommand(t *testing.T) {
	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetVotes(testutil.VoteHits("6F2B", 4), 20)

	out, err := run(t, fake, "votes", "--where", `party == "M"`, "-n", "2")
	require.NoError(t, err)

	records := jsonLines(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, "votering", records[0]["kind"])
	assert.Equal(t, "6F2B/0001", records[0]["id"])
}

func TestTextCommand(t *testing.T) {
	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetHandler("dokument/H9023456.text", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Motion till riksdagen"))
	})

	out, err := run(t, fake, "text", "H9023456")
	require.NoError(t, err)
	assert.Equal(t, "Motion till riksdagen", out)
}

func TestDocumentURL(t *testing.T) {
	tests := []struct {
		base string
		arg  string
		want string
	}{
		{base: "https://data.riksdagen.se", arg: "H9023456", want: "https://data.riksdagen.se/dokument/H9023456"},
		{base: "https://data.riksdagen.se/", arg: "H9023456", want: "https://data.riksdagen.se/dokument/H9023456"},
		{base: "https://data.riksdagen.se", arg: "//data.riksdagen.se/dokument/X", want: "//data.riksdagen.se/dokument/X"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, documentURL(tt.base, tt.arg))
		})
	}
}

func TestLoadSettings_Precedence(t *testing.T) {
	t.Setenv("RIKSDAG_MAX_RESULTS", "500")
	t.Setenv("RIKSDAG_BASE_URL", "https://env.example")

	path := filepath.Join(t.TempDir(), "riksdag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://file.example
timeout: 10s
cache_ttl: 1m
log:
  level: debug
  format: console
`), 0o600))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("base-url", "", "")
	fs.String("redis-url", "", "")
	fs.String("metrics-addr", "", "")
	fs.String("log-level", "", "")
	fs.String("log-format", "", "")
	require.NoError(t, fs.Parse([]string{"--metrics-addr", ":9100"}))

	s, err := loadSettings(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example", s.API.BaseURL, "file overrides env")
	assert.Equal(t, 500, s.API.MaxResults, "env fills keys the file omits")
	assert.Equal(t, 10*time.Second, s.API.Timeout)
	assert.Equal(t, time.Minute, s.API.CacheTTL)
	assert.Equal(t, logging.LevelDebug, s.Log.Level)
	assert.Equal(t, logging.FormatConsole, s.Log.Format)
	assert.Equal(t, ":9100", s.MetricsAddr)

	require.NoError(t, fs.Set("base-url", "https://flag.example"))
	s, err = loadSettings(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example", s.API.BaseURL, "flag overrides file")
}

func TestLoadSettings_MissingFile(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	_, err := loadSettings(filepath.Join(t.TempDir(), "nope.yaml"), fs)
	assert.ErrorContains(t, err, "error reading config")
}
