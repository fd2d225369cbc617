package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/testutil"
)

func TestInsert_Idempotent(t *testing.T) {
	s := createTestStore(t)
	obj := testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1")

	first := insert(t, s, obj, "", Referenced)
	second := insert(t, s, obj, "", Referenced)

	assert.Equal(t, 4, first.Created())
	assert.Equal(t, 0, second.Created())
	assert.Equal(t, first.Key(model.Instance), second.Key(model.Instance))
	for _, level := range s.Model().Levels() {
		assert.Equal(t, 1, countRows(t, s, level), "level %s", level)
	}
}

func TestInsert_ConcurrentWithQueries(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	const numInserters = 16
	const numQueriers = 2
	sops := []string{"1.2.3.1.1", "1.2.3.1.2", "1.2.3.1.3", "1.2.3.1.4"}

	errs := make(chan error, numInserters+numQueriers*10)
	var wg sync.WaitGroup
	wg.Add(numInserters + numQueriers)
	for i := 0; i < numInserters; i++ {
		go func(i int) {
			defer wg.Done()
			obj := testutil.Object("P1", "1.2.3", "1.2.3.1", sops[i%len(sops)])
			if _, err := s.Insert(ctx, obj, "", Referenced); err != nil {
				errs <- fmt.Errorf("insert %d: %w", i, err)
			}
		}(i)
	}
	for i := 0; i < numQueriers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c, err := s.OpenQuery(ctx, Request{
					Attributes: dict.AttributeSet{
						dict.TagPatientID:                     "P1",
						dict.TagStudyInstanceUID:              "",
						dict.TagNumberOfStudyRelatedInstances: "",
					},
					Level: model.Study,
				})
				if err != nil {
					errs <- fmt.Errorf("open query: %w", err)
					continue
				}
				for {
					_, ok, err := c.Next(ctx)
					if err != nil {
						errs <- fmt.Errorf("next: %w", err)
						break
					}
					if !ok {
						break
					}
				}
				c.Close()
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, countRows(t, s, model.Patient))
	assert.Equal(t, 1, countRows(t, s, model.Study))
	assert.Equal(t, 1, countRows(t, s, model.Series))
	assert.Equal(t, len(sops), countRows(t, s, model.Instance))

	results := query(t, s, Request{
		Attributes: attrs(t, "PatientID", "P1", "StudyInstanceUID", "", "NumberOfStudyRelatedInstances", ""),
		Level:      model.Study,
	})
	require.Len(t, results, 1)
	assert.Equal(t, "4", results[0].Attributes.Value(dict.TagNumberOfStudyRelatedInstances))
}

func TestInsert_SharedParents(t *testing.T) {
	s := createTestStore(t)

	a := insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)
	b := insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.2"), "", Referenced)

	assert.Equal(t, []LevelKey{
		{Level: model.Patient, Key: "pk-000001", Created: true},
		{Level: model.Study, Key: "pk-000002", Created: true},
		{Level: model.Series, Key: "pk-000003", Created: true},
		{Level: model.Instance, Key: "pk-000004", Created: true},
	}, a.Levels)
	assert.Equal(t, []LevelKey{
		{Level: model.Patient, Key: "pk-000001"},
		{Level: model.Study, Key: "pk-000002"},
		{Level: model.Series, Key: "pk-000003"},
		{Level: model.Instance, Key: "pk-000005", Created: true},
	}, b.Levels)
}

func TestInsert_ExactOrNull(t *testing.T) {
	s := createTestStore(t)
	nameless := func(sop string) dict.AttributeSet {
		return testutil.With(testutil.Object("P1", "1.2.3", "1.2.3.1", sop),
			map[dict.Tag]string{dict.TagPatientName: ""})
	}

	a := insert(t, s, nameless("1.2.3.1.1"), "", Referenced)
	b := insert(t, s, nameless("1.2.3.1.2"), "", Referenced)
	assert.Equal(t, a.Key(model.Patient), b.Key(model.Patient), "missing name matches the NULL row")

	// A named patient with the same ID is a different row.
	c := insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.3"), "", Referenced)
	assert.NotEqual(t, a.Key(model.Patient), c.Key(model.Patient))
	assert.Equal(t, 2, countRows(t, s, model.Patient))

	// And the nameless object still finds the NULL row, not the named one.
	d := insert(t, s, nameless("1.2.3.1.4"), "", Referenced)
	assert.Equal(t, a.Key(model.Patient), d.Key(model.Patient))
}

func TestInsert_NeverOverwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)
	changed := testutil.With(testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.2"),
		map[dict.Tag]string{dict.TagStudyDescription: "MRHEAD"})
	insert(t, s, changed, "", Referenced)

	desc, err := s.FindColumn(ctx, model.Study, first.Key(model.Study), "STUDYDESCRIPTION")
	require.NoError(t, err)
	assert.Equal(t, "CTHEAD", desc)
}

func TestInsert_StoresColumns(t *testing.T) {
	s := createTestStore(t)
	file := writeFile(t, t.TempDir(), "img.dcm", 1234)
	obj := testutil.With(testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), map[dict.Tag]string{
		dict.TagPatientName:  "Müller^Hans",
		dict.TagStudyDate:    "2003.07.15",
		dict.TagSeriesNumber: " 7 ",
		dict.TagRows:         "not-a-number",
	})
	res := insert(t, s, obj, file, Copied)
	ctx := context.Background()

	patient, err := s.FindRow(ctx, model.Patient, res.Key(model.Patient))
	require.NoError(t, err)
	assert.Equal(t, "Müller^Hans", patient["PATIENTNAME"])
	assert.Equal(t, "MULLER^HANS", patient["CANON_PATIENTNAME"])
	assert.Equal(t, "M460^H520", patient["PHONETIC_PATIENTNAME"])
	assert.Equal(t, testutil.Epoch.UnixMilli(), patient["INSERTION_TIME"])
	assert.Nil(t, patient["LOCAL_PARENT_REFERENCE"], "root rows have no parent column")

	study, err := s.FindRow(ctx, model.Study, res.Key(model.Study))
	require.NoError(t, err)
	assert.Equal(t, res.Key(model.Patient), study["LOCAL_PARENT_REFERENCE"])
	assert.Equal(t, "20030715", study["STUDYDATE"])
	combined, ok := study[model.ColStudyDateTime].(time.Time)
	require.True(t, ok, "combined date-time is a timestamp, got %T", study[model.ColStudyDateTime])
	assert.True(t, combined.Equal(time.Date(2003, 7, 15, 10, 15, 0, 0, time.UTC)), "got %s", combined)

	series, err := s.FindRow(ctx, model.Series, res.Key(model.Series))
	require.NoError(t, err)
	assert.Equal(t, int64(7), series["SERIESNUMBER"])

	inst, err := s.FindRow(ctx, model.Instance, res.Key(model.Instance))
	require.NoError(t, err)
	assert.Equal(t, file, inst["LOCAL_FILE"])
	assert.Equal(t, "C", inst["LOCAL_FILE_REFERENCE_TYPE"])
	assert.Equal(t, int64(1234), inst[model.ColFileSize])
	assert.Equal(t, 2.5, inst["SLICETHICKNESS"])
	assert.Equal(t, int64(0), inst[model.ColLossyCompressed])
	assert.Nil(t, inst["ROWS"], "unconvertible numbers are stored as NULL")
}

func TestInsert_DefaultsToCopied(t *testing.T) {
	s := createTestStore(t)
	res := insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "x.dcm", "")

	ref, err := s.FindColumn(context.Background(), model.Instance, res.Key(model.Instance), "LOCAL_FILE_REFERENCE_TYPE")
	require.NoError(t, err)
	assert.Equal(t, string(Copied), ref)
}

func TestInsert_Concatenation(t *testing.T) {
	s := createTestStore(t, withModel(model.WithConcatenation()))

	plain := insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)
	assert.Len(t, plain.Levels, 4)
	assert.Equal(t, "", plain.Key(model.Concatenation))

	concat := testutil.With(testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.2"), map[dict.Tag]string{
		dict.TagConcatenationUID:           "1.2.3.1.9",
		dict.TagInConcatenationNumber:      "1",
		dict.TagInConcatenationTotalNumber: "2",
	})
	res := insert(t, s, concat, "", Referenced)
	require.Len(t, res.Levels, 5)
	assert.Equal(t, plain.Key(model.Series), res.Key(model.Series))

	ctx := context.Background()
	inst, err := s.FindRow(ctx, model.Instance, res.Key(model.Instance))
	require.NoError(t, err)
	assert.Equal(t, res.Key(model.Concatenation), inst["LOCAL_PARENT_REFERENCE"])
	assert.Equal(t, int64(1), inst["INCONCATENATIONNUMBER"])

	cat, err := s.FindRow(ctx, model.Concatenation, res.Key(model.Concatenation))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.1.9", cat["CONCATENATIONUID"])
	assert.Equal(t, plain.Key(model.Series), cat["LOCAL_PARENT_REFERENCE"])
}

func TestParseFileReference(t *testing.T) {
	for in, want := range map[string]FileReference{
		"C": Copied, "copied": Copied, "R": Referenced, "referenced": Referenced,
	} {
		got, err := ParseFileReference(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFileReference("moved")
	assert.Error(t, err)
}
