package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/testutil"
)

func TestManifest(t *testing.T) {
	s := createTestStore(t)
	file := writeFile(t, t.TempDir(), "a.dcm", 42)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), file, Copied)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.2", "1.2.3.2.1"), "/elsewhere/b.dcm", Referenced)
	ctx := context.Background()

	entries, err := s.Manifest(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// patient, study, series and instance each took one clock tick
	assert.True(t, entries[0].InsertedAt.Equal(testutil.Epoch.Add(3*time.Millisecond)), "got %s", entries[0].InsertedAt)
	entries[0].InsertedAt = time.Time{}
	assert.Equal(t, ManifestEntry{
		Key: "pk-000004",
		UIDs: map[model.Level]string{
			model.Patient:  "P1",
			model.Study:    "1.2.3",
			model.Series:   "1.2.3.1",
			model.Instance: "1.2.3.1.1",
		},
		Path:              file,
		Reference:         Copied,
		SOPClassUID:       testutil.CTImageStorage,
		TransferSyntaxUID: testutil.ExplicitVRLittle,
		FileSize:          42,
	}, entries[0])
	assert.Equal(t, "1.2.3.2", entries[1].UIDs[model.Series])
	assert.Zero(t, entries[1].FileSize, "missing files have no size")

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.Level]int{
		model.Patient:  1,
		model.Study:    1,
		model.Series:   2,
		model.Instance: 2,
	}, counts)
}

func TestManifest_Empty(t *testing.T) {
	s := createTestStore(t)

	entries, err := s.Manifest(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestParseCount(t *testing.T) {
	n, err := parseCount([]string{"12"})
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = parseCount(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = parseCount([]string{"twelve"})
	assert.ErrorContains(t, err, `malformed count "twelve"`)
}
