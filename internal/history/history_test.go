package history

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toast/internal/notify"
)

func tempStore(t *testing.T, maxEntries int) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	s, err := Open(path, maxEntries)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id, title string) Record {
	return Record{
		ID:          id,
		AppName:     "test",
		Title:       title,
		Position:    "bottom-right",
		Urgency:     1,
		UrgencyName: "normal",
		Timestamp:   time.Now().Unix(),
	}
}

func TestOpen_WritesSchemaHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	s, err := Open(path, 0)
	require.NoError(t, err)
	defer s.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	first := strings.SplitN(string(data), "\n", 2)[0]
	assert.Contains(t, first, `"toast_schema_version":1`)
}

func TestAppendAndLoad(t *testing.T) {
	s := tempStore(t, 0)

	r := record("01ABC", "build done")
	r.Body = "all green"
	r.Actions = []notify.Action{{Key: "open", Label: "Open"}}
	r.ExpireTimeout = 5000

	require.NoError(t, s.Append(r))
	require.NoError(t, s.Append(record("01ABD", "second")))

	records, err := s.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "01ABC", records[0].ID)
	assert.Equal(t, "build done", records[0].Title)
	assert.Equal(t, "all green", records[0].Body)
	assert.Equal(t, 5000, records[0].ExpireTimeout)
	require.Len(t, records[0].Actions, 1)
	assert.Equal(t, "open", records[0].Actions[0].Key)
	assert.Equal(t, "second", records[1].Title)
	assert.Equal(t, 2, s.Count())
}

func TestOpen_CountsExistingRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	s, err := Open(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Append(record("a", "one")))
	require.NoError(t, s.Append(record("b", "two")))
	require.NoError(t, s.Close())

	s2, err := Open(path, 0)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, 2, s2.Count())
}

func TestLoad_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	s, err := Open(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Append(record("a", "one")))
	require.NoError(t, s.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s2, err := Open(path, 0)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Append(record("b", "two")))

	records, err := s2.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "one", records[0].Title)
	assert.Equal(t, "two", records[1].Title)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"toast_schema_version":99,"created_at":1}`+"\n"), 0600))

	_, err := Open(path, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestClear(t *testing.T) {
	s := tempStore(t, 0)
	require.NoError(t, s.Append(record("a", "one")))
	require.NoError(t, s.Clear())

	records, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, s.Count())

	// The store still accepts appends after a clear
	require.NoError(t, s.Append(record("b", "two")))
	records, err = s.Load()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestPrune_ByAge(t *testing.T) {
	s := tempStore(t, 0)

	old := record("a", "old")
	old.Timestamp = time.Now().Add(-72 * time.Hour).Unix()
	require.NoError(t, s.Append(old))
	require.NoError(t, s.Append(record("b", "fresh")))

	removed, err := s.Prune(48*time.Hour, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records, err := s.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].Title)
}

func TestPrune_Keep(t *testing.T) {
	s := tempStore(t, 0)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(record(fmt.Sprintf("id-%d", i), fmt.Sprintf("n-%d", i))))
	}

	removed, err := s.Prune(0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	records, err := s.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "n-3", records[0].Title)
	assert.Equal(t, "n-4", records[1].Title)
}

func TestPrune_NothingToRemove(t *testing.T) {
	s := tempStore(t, 0)
	require.NoError(t, s.Append(record("a", "one")))

	removed, err := s.Prune(48*time.Hour, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestAppend_CompactsPastCap(t *testing.T) {
	s := tempStore(t, 10)

	for i := 1; i <= 80; i++ {
		require.NoError(t, s.Append(record(fmt.Sprintf("id-%d", i), fmt.Sprintf("n-%d", i))))
	}

	records, err := s.Load()
	require.NoError(t, err)
	// Compaction fired at 75 appends, keeping the newest 10; five more
	// records landed afterwards
	require.Len(t, records, 15)
	assert.Equal(t, "n-66", records[0].Title)
	assert.Equal(t, "n-80", records[14].Title)
}

func TestClosedStore(t *testing.T) {
	s := tempStore(t, 0)
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Append(record("a", "one")), ErrStoreClosed)
	_, err := s.Load()
	require.ErrorIs(t, err, ErrStoreClosed)
}

func TestNewRecord(t *testing.T) {
	n := &notify.Notification{
		AppName:   "mail",
		Title:     "new message",
		Body:      "hello",
		Graphic:   notify.GraphicInformation,
		Position:  notify.TopRight,
		Urgency:   notify.UrgencyCritical,
		HideAfter: 5 * time.Second,
		Created:   time.Unix(1735000000, 0),
		Actions:   []notify.Action{{Key: "reply", Label: "Reply"}},
	}

	r := NewRecord("01XYZ", n)
	assert.Equal(t, "01XYZ", r.ID)
	assert.Equal(t, "mail", r.AppName)
	assert.Equal(t, "new message", r.Title)
	assert.Equal(t, "top-right", r.Position)
	assert.Equal(t, 2, r.Urgency)
	assert.Equal(t, "critical", r.UrgencyName)
	assert.Equal(t, int64(1735000000), r.Timestamp)
	assert.Equal(t, 5000, r.ExpireTimeout)
	require.Len(t, r.Actions, 1)
}

func TestNewest(t *testing.T) {
	records := []Record{record("a", "first"), record("b", "second"), record("c", "third")}
	newest := Newest(records)

	assert.Equal(t, "third", newest[0].Title)
	assert.Equal(t, "first", newest[2].Title)
	// Input untouched
	assert.Equal(t, "first", records[0].Title)
}

func TestFormat_Table(t *testing.T) {
	var buf bytes.Buffer
	records := []Record{record("a", "build done")}
	records[0].Body = "line one\nline two"

	require.NoError(t, Format(&buf, records, FormatTable, false))
	out := buf.String()
	assert.Contains(t, out, "build done")
	assert.Contains(t, out, "normal")
	// Multi-line bodies collapse into the cell
	assert.Contains(t, out, "line one line two")
}

func TestFormat_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Format(&buf, []Record{record("a", "hello")}, FormatJSON, false))
	assert.Contains(t, buf.String(), `"title": "hello"`)
}

func TestFormat_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Format(&buf, []Record{record("a", "hello")}, FormatYAML, false))
	assert.Contains(t, buf.String(), "title: hello")
}

func TestFormat_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Format(&buf, nil, "xml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "toolong...", truncate("toolongvalue", 10))
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		hasError bool
	}{
		{"0", 0, false},
		{"", 0, false},
		{"1h", time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"48h", 48 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"invalid", 0, true},
		{"xd", 0, true},
		{"xw", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseAge(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}
