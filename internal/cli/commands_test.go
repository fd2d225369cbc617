package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeData(t *testing.T, out string, data any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, data))
}

func TestInitCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")

	out, err := execute(t, "init", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog ready: "+db)
	assert.Contains(t, out, "PATIENT")
	assert.Contains(t, out, "INSTANCE")

	out, err = execute(t, "init", "--db", db, "--format", "json")
	require.NoError(t, err)
	var res InitResult
	decodeData(t, out, &res)
	assert.Equal(t, "sqlite3", res.Driver)
	assert.Equal(t, "standard", res.Model)
	assert.Len(t, res.Tables, 4)
	assert.Greater(t, res.Tables["INSTANCE"], 5)
}

func TestInsertCommand(t *testing.T) {
	c := newCatalog(t)

	t.Run("reinsert is idempotent", func(t *testing.T) {
		out, err := c.run(t, "insert", "--format", "json",
			"--file", c.files[0],
			"--set", "PatientID=P1",
			"--set", "StudyInstanceUID=1.2.1",
			"--set", "SeriesInstanceUID=1.2.1.1",
			"--set", "SOPInstanceUID=1.2.1.1.1")
		require.NoError(t, err)

		var objs []InsertedObject
		decodeData(t, out, &objs)
		require.Len(t, objs, 1)
		assert.Empty(t, objs[0].Created)
		assert.Len(t, objs[0].Keys, 4)
	})

	t.Run("new series", func(t *testing.T) {
		out, err := c.run(t, "insert", "--reference", "referenced",
			"--set", "PatientID=P1",
			"--set", "StudyInstanceUID=1.2.1",
			"--set", "SeriesInstanceUID=1.2.1.2",
			"--set", "SOPInstanceUID=1.2.1.2.1")
		require.NoError(t, err)
		assert.Equal(t, "✓ Filed 1 object(s), 2 new row(s)\n", out)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := c.run(t, "insert")
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		_, err = c.run(t, "insert", "--set", "NoSuchKeyword=1")
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		_, err = c.run(t, "insert", "--reference", "borrowed", "--set", "PatientID=P2")
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		_, err = c.run(t, "insert", filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestQueryCommand_Text(t *testing.T) {
	c := newCatalog(t)

	out, err := c.run(t, "query", "study",
		"--set", "PatientID=P1",
		"--set", "StudyDate=",
		"--set", "ModalitiesInStudy=")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "query_studies", []byte(out))
}

func TestQueryCommand_JSON(t *testing.T) {
	c := newCatalog(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "date range",
			args: []string{"study", "--set", "PatientID=P1", "--set", "StudyDate=20030716-"},
			want: []string{"1.2.2"},
		},
		{
			name: "wildcard",
			args: []string{"study", "--set", "PatientID=P1", "--set", "StudyDescription=CT*"},
			want: []string{"1.2.1"},
		},
		{
			name: "relational series by modality",
			args: []string{"series", "--relational", "--set", "Modality=CT"},
			want: []string{"1.2.1.1"},
		},
		{
			name: "study root",
			args: []string{"series", "--root", "study", "--set", "StudyInstanceUID=1.2.2"},
			want: []string{"1.2.2.1"},
		},
		{
			name: "limit",
			args: []string{"study", "--limit", "1", "--set", "PatientID=P1"},
			want: []string{"1.2.1"},
		},
		{
			name: "person name",
			args: []string{"patient", "--set", "PatientName=doe^john"},
			want: []string{"P1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.run(t, append([]string{"query", "--format", "json"}, tt.args...)...)
			require.NoError(t, err)

			var res QueryOutput
			decodeData(t, out, &res)
			var got []string
			for _, m := range res.Matches {
				assert.Equal(t, res.Level, m.Level)
				assert.NotEmpty(t, m.Key)
				got = append(got, m.Attributes[uniqueKeyOf(res.Level)])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func uniqueKeyOf(level string) string {
	switch level {
	case "PATIENT":
		return "PatientID"
	case "STUDY":
		return "StudyInstanceUID"
	case "SERIES":
		return "SeriesInstanceUID"
	default:
		return "SOPInstanceUID"
	}
}

func TestQueryCommand_Errors(t *testing.T) {
	c := newCatalog(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown level", []string{"query", "frame"}, ExitCommandError},
		{"unknown root", []string{"query", "study", "--root", "series"}, ExitCommandError},
		{"malformed set", []string{"query", "study", "--set", "PatientID"}, ExitCommandError},
		{"missing pinned key", []string{"query", "series", "--set", "Modality=CT"}, ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
		})
	}
}

func TestRetrieveCommand(t *testing.T) {
	c := newCatalog(t)

	out, err := c.run(t, "retrieve", "study", "--set", "PatientID=P1", "--set", "StudyInstanceUID=1.2.1")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("1.2.1.1.1\tC\t%s\n", c.files[0]))
	assert.Contains(t, out, fmt.Sprintf("1.2.1.1.2\tR\t%s\n", c.files[1]))
	assert.Contains(t, out, "2 object(s)")

	out, err = c.run(t, "retrieve", "series", "--format", "json",
		"--set", "PatientID=P1", "--set", "StudyInstanceUID=1.2.2", "--set", "SeriesInstanceUID=1.2.2.1")
	require.NoError(t, err)
	var objs []RetrievedObject
	decodeData(t, out, &objs)
	require.Len(t, objs, 1)
	assert.Equal(t, c.files[2], objs[0].Path)
	assert.Equal(t, "1.2.840.10008.5.1.4.1.1.4", objs[0].SOPClassUID)

	_, err = c.run(t, "retrieve", "series", "--set", "SeriesInstanceUID=1.2.2.1")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDeleteCommand(t *testing.T) {
	c := newCatalog(t)

	out, err := c.run(t, "delete", "study", "1.2.1", "--format", "json")
	require.NoError(t, err)
	var res DeleteOutput
	decodeData(t, out, &res)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, []string{c.files[0]}, res.Files)

	assert.NoFileExists(t, c.files[0])
	assert.FileExists(t, c.files[1])

	out, err = c.run(t, "query", "study", "--format", "json", "--set", "PatientID=P1")
	require.NoError(t, err)
	var q QueryOutput
	decodeData(t, out, &q)
	assert.Len(t, q.Matches, 1)

	out, err = c.run(t, "delete", "study", "9.9.9")
	require.NoError(t, err)
	assert.Equal(t, "✓ Deleted 0 row(s), 0 file(s)\n", out)
}

func TestDeleteCommand_RowOnly(t *testing.T) {
	c := newCatalog(t)

	_, err := c.run(t, "delete", "series", "1.2.2.1", "--row-only")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = c.run(t, "delete", "series", "no-such-key", "--pk", "--row-only")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err := c.run(t, "show", "series", "1.2.2.1", "--format", "json")
	require.NoError(t, err)
	var shown ShowOutput
	decodeData(t, out, &shown)
	require.Len(t, shown.Rows, 1)
	key := shown.Rows[0].String("LOCAL_PRIMARY_KEY")

	out, err = c.run(t, "delete", "series", key, "--pk", "--row-only")
	require.NoError(t, err)
	assert.Equal(t, "✓ Deleted 1 row(s), 0 file(s)\n", out)
	assert.FileExists(t, c.files[2])
}

func TestShowCommand(t *testing.T) {
	c := newCatalog(t)

	t.Run("all rows", func(t *testing.T) {
		out, err := c.run(t, "show", "study")
		require.NoError(t, err)
		assert.Contains(t, out, "STUDYINSTANCEUID=1.2.1")
		assert.Contains(t, out, "STUDYINSTANCEUID=1.2.2")
		assert.Contains(t, out, "2 row(s) in STUDY")
	})

	t.Run("natural key with every column", func(t *testing.T) {
		out, err := c.run(t, "show", "study", "1.2.2", "--all")
		require.NoError(t, err)
		assert.Contains(t, out, "STUDYDESCRIPTION=MRBRAIN")
		assert.Contains(t, out, "1 row(s) in STUDY")
	})

	t.Run("ancestor attribute", func(t *testing.T) {
		out, err := c.run(t, "show", "instance", "--ancestor", "study", "--where", "STUDYINSTANCEUID=1.2.1", "--format", "json")
		require.NoError(t, err)
		var res ShowOutput
		decodeData(t, out, &res)
		assert.Equal(t, "INSTANCE", res.Table)
		assert.Equal(t, "SOPINSTANCEUID", res.NaturalKey)
		assert.Len(t, res.Rows, 2)
	})

	t.Run("column and parent", func(t *testing.T) {
		out, err := c.run(t, "show", "series", "1.2.1.1", "--format", "json")
		require.NoError(t, err)
		var res ShowOutput
		decodeData(t, out, &res)
		require.Len(t, res.Rows, 1)
		series := res.Rows[0].String("LOCAL_PRIMARY_KEY")

		out, err = c.run(t, "show", "series", "--pk", series, "--column", "Modality")
		require.NoError(t, err)
		assert.Equal(t, "CT\n", out)

		out, err = c.run(t, "show", "instance", "--parent", series)
		require.NoError(t, err)
		assert.Contains(t, out, "2 row(s) in INSTANCE")
	})

	t.Run("flag errors", func(t *testing.T) {
		_, err := c.run(t, "show", "series", "--column", "MODALITY")
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		_, err = c.run(t, "show", "series", "--ancestor", "study")
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestExportRestoreCommands(t *testing.T) {
	c := newCatalog(t)
	dir := t.TempDir()
	manifest := filepath.Join(dir, "manifest.parquet")
	dump := filepath.Join(dir, "catalog.pbd")

	out, err := c.run(t, "export", "--manifest", manifest, "--dump", dump, "--format", "json")
	require.NoError(t, err)
	var exp ExportOutput
	decodeData(t, out, &exp)
	assert.Equal(t, 3, exp.ManifestObjects)
	assert.Equal(t, 8, exp.DumpRecords)
	assert.FileExists(t, manifest)
	assert.FileExists(t, dump)

	_, err = c.run(t, "export")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	_, err = c.run(t, "export", "--manifest", manifest, "--compression", "lzma")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	restored := filepath.Join(dir, "restored.db")
	out, err = execute(t, "restore", dump, "--db", restored, "--format", "json")
	require.NoError(t, err)
	var res RestoreOutput
	decodeData(t, out, &res)
	assert.Equal(t, 8, res.Records)
	assert.Equal(t, 3, res.Objects)
	assert.Zero(t, res.Orphans)
	assert.Equal(t, map[string]int{"PATIENT": 1, "STUDY": 2, "SERIES": 2, "INSTANCE": 3}, res.Created)

	out, err = execute(t, "stats", "--db", restored, "--format", "json")
	require.NoError(t, err)
	var stats StatsOutput
	decodeData(t, out, &stats)
	assert.Equal(t, 3, stats.Objects)
	assert.Equal(t, int64(6000), stats.StoredSize)
	assert.Equal(t, 2, stats.Rows["STUDY"])
}

func TestStatsCommand_Metrics(t *testing.T) {
	c := newCatalog(t)
	cfgPath := filepath.Join(t.TempDir(), "dcmindex.yaml")
	cfg := fmt.Sprintf("database:\n  dsn: %s\ntelemetry:\n  metrics: true\n", c.db)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	out, err := execute(t, "stats", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	var stats StatsOutput
	decodeData(t, out, &stats)
	assert.Equal(t, map[string]int{"PATIENT": 1, "STUDY": 2, "SERIES": 2, "INSTANCE": 3}, stats.Rows)
	assert.GreaterOrEqual(t, stats.Metrics["dcmindex_operations_total"], 1.0)

	out, err = execute(t, "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "3 object(s), 6.0 kB stored")
	assert.Contains(t, out, "dcmindex_operations_total")
}

func TestConfigErrors(t *testing.T) {
	_, err := execute(t, "stats", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "stats", "--db", filepath.Join(t.TempDir(), "x.db"), "--driver", "oracle")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
