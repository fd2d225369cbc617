package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/testutil"
)

// seedDates files one study per date, each with its own patient.
func seedDates(t *testing.T, s *Store, dates ...string) {
	t.Helper()
	for i, date := range dates {
		uid := "1.2." + string(rune('1'+i))
		insert(t, s, testutil.With(testutil.Object("P"+date, uid, uid+".1", uid+".1.1"),
			map[dict.Tag]string{dict.TagStudyDate: date}), "", Referenced)
	}
}

func studyDates(results []*Result) []string {
	out := []string{}
	for _, r := range results {
		out = append(out, r.Attributes.Value(dict.TagStudyDate))
	}
	return out
}

func TestQuery_DateRange(t *testing.T) {
	s := createTestStore(t)
	seedDates(t, s, "20030715", "20030801", "20030601")

	tests := []struct {
		value string
		want  []string
	}{
		{"20030701-20030728", []string{"20030715"}},
		{"20030728-", []string{"20030801"}},
		{"-20030728", []string{"20030715", "20030601"}},
		{"20030801", []string{"20030801"}},
		{"", []string{"20030715", "20030801", "20030601"}},
		{"2003*", []string{"20030715", "20030801", "20030601"}},
		{"200307??", []string{"20030715", "20030801", "20030601"}},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := query(t, s, Request{
				Attributes: attrs(t, "StudyDate", tt.value),
				Level:      model.Study,
				Root:       model.RootStudy,
			})
			assert.ElementsMatch(t, tt.want, studyDates(got))
		})
	}
}

func TestQuery_DateTimePair(t *testing.T) {
	s := createTestStore(t)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)

	hit := query(t, s, Request{
		Attributes: attrs(t, "StudyDate", "20030715", "StudyTime", "1000-1100"),
		Level:      model.Study,
		Root:       model.RootStudy,
	})
	require.Len(t, hit, 1)
	assert.Equal(t, "101500", hit[0].Attributes.Value(dict.TagStudyTime))

	miss := query(t, s, Request{
		Attributes: attrs(t, "StudyDate", "20030715", "StudyTime", "1100-"),
		Level:      model.Study,
		Root:       model.RootStudy,
	})
	assert.Empty(t, miss)
}

func TestQuery_HierarchicalPinning(t *testing.T) {
	s := createTestStore(t)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)
	ctx := context.Background()

	_, err := s.OpenQuery(ctx, Request{
		Attributes: attrs(t, "PatientID", "P1", "SeriesInstanceUID", ""),
		Level:      model.Series,
	})
	require.Error(t, err)
	assert.True(t, IsModelMismatch(err))
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "StudyInstanceUID", se.Attribute)

	got := query(t, s, Request{
		Attributes: attrs(t, "PatientID", "P1", "StudyInstanceUID", "1.2.3", "SeriesInstanceUID", ""),
		Level:      model.Series,
	})
	require.Len(t, got, 1)
	assert.Equal(t, "1.2.3.1", got[0].Attributes.Value(dict.TagSeriesInstanceUID))

	// Wildcards cannot pin a level.
	_, err = s.OpenQuery(ctx, Request{
		Attributes: attrs(t, "PatientID", "P1", "StudyInstanceUID", "1.2.*"),
		Level:      model.Series,
	})
	assert.True(t, IsModelMismatch(err))

	// Relational queries need no keys.
	got = query(t, s, Request{
		Attributes: attrs(t, "Modality", "CT", "SOPInstanceUID", ""),
		Level:      model.Instance,
		Relational: true,
	})
	require.Len(t, got, 1)
}

func TestQuery_UnknownLevel(t *testing.T) {
	s := createTestStore(t)
	_, err := s.OpenQuery(context.Background(), Request{Level: model.Concatenation})
	require.Error(t, err)
	assert.True(t, IsModelMismatch(err))
}

func TestQuery_PatientLevelUnderStudyRoot(t *testing.T) {
	s := createTestStore(t)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)
	insert(t, s, testutil.Object("P2", "1.2.4", "1.2.4.1", "1.2.4.1.1"), "", Referenced)

	for _, relational := range []bool{false, true} {
		c, err := s.OpenQuery(context.Background(), Request{
			Attributes: attrs(t, "PatientID", "P1"),
			Level:      model.Patient,
			Root:       model.RootStudy,
			Relational: relational,
		})
		require.Error(t, err)
		assert.Nil(t, c)
		assert.True(t, IsModelMismatch(err), "got %v", err)
	}
}

func TestQuery_Wildcards(t *testing.T) {
	s := createTestStore(t)
	for i, desc := range []string{"CTHEAD", "MRHEAD", "100%_SURE", "100XYSURE"} {
		uid := "1.2." + string(rune('1'+i))
		insert(t, s, testutil.With(testutil.Object("P1", uid, uid+".1", uid+".1.1"),
			map[dict.Tag]string{dict.TagStudyDescription: desc}), "", Referenced)
	}

	tests := []struct {
		value string
		want  []string
	}{
		{"CT*", []string{"CTHEAD"}},
		{"?RHEAD", []string{"MRHEAD"}},
		{"100%*", []string{"100%_SURE"}},
		{"100_SURE", nil},
		{"100%_SURE", []string{"100%_SURE"}},
		{"*HEAD", []string{"CTHEAD", "MRHEAD"}},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := query(t, s, Request{
				Attributes: attrs(t, "StudyDescription", tt.value),
				Level:      model.Study,
				Root:       model.RootStudy,
			})
			var descs []string
			for _, r := range got {
				descs = append(descs, r.Attributes.Value(dict.TagStudyDescription))
			}
			assert.ElementsMatch(t, tt.want, descs)
		})
	}
}

func TestQuery_PersonNames(t *testing.T) {
	s := createTestStore(t)
	insert(t, s, testutil.With(testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"),
		map[dict.Tag]string{dict.TagPatientName: "Müller^Hans"}), "", Referenced)
	insert(t, s, testutil.Object("P2", "1.2.4", "1.2.4.1", "1.2.4.1.1"), "", Referenced)

	for _, name := range []string{"Müller^Hans", "MULLER^HANS", "Hans^Müller", "Mueller^Hans", "mül*"} {
		t.Run(name, func(t *testing.T) {
			got := query(t, s, Request{
				Attributes: attrs(t, "PatientName", name, "PatientID", ""),
				Level:      model.Patient,
			})
			require.Len(t, got, 1)
			assert.Equal(t, "P1", got[0].Attributes.Value(dict.TagPatientID))
			assert.Equal(t, "Müller^Hans", got[0].Attributes.Value(dict.TagPatientName))
		})
	}

	got := query(t, s, Request{Attributes: attrs(t, "PatientName", "Smith^Jane"), Level: model.Patient})
	assert.Empty(t, got)
}

func TestQuery_TwoInstancesEndToEnd(t *testing.T) {
	s := createTestStore(t)
	a := insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.2"), "", Referenced)

	studies := query(t, s, Request{
		Attributes: attrs(t, "PatientID", "P1", "StudyInstanceUID", "", "StudyDate", ""),
		Level:      model.Study,
	})
	require.Len(t, studies, 1)
	assert.Equal(t, a.Key(model.Study), studies[0].Key)
	assert.Equal(t, "20030715", studies[0].Attributes.Value(dict.TagStudyDate))

	instances := query(t, s, Request{
		Attributes: attrs(t, "PatientID", "P1", "StudyInstanceUID", "1.2.3", "SeriesInstanceUID", "1.2.3.1", "SOPInstanceUID", ""),
		Level:      model.Instance,
	})
	require.Len(t, instances, 2)
	assert.Equal(t, "1.2.3.1.1", instances[0].Attributes.Value(dict.TagSOPInstanceUID))
	assert.Equal(t, "1.2.3.1.2", instances[1].Attributes.Value(dict.TagSOPInstanceUID))
	for _, r := range instances {
		assert.Equal(t, a.Key(model.Series), r.Keys[model.Series])
		assert.Equal(t, a.Key(model.Study), r.Keys[model.Study])
		assert.Equal(t, a.Key(model.Patient), r.Keys[model.Patient])
		assert.Equal(t, "1.2.3.1", r.Attributes.Value(dict.TagSeriesInstanceUID))
	}
}

func TestQuery_Synthetics(t *testing.T) {
	s := createTestStore(t)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.2"), "", Referenced)
	insert(t, s, testutil.With(testutil.Object("P1", "1.2.3", "1.2.3.2", "1.2.3.2.1"),
		map[dict.Tag]string{dict.TagModality: "MR"}), "", Referenced)

	got := query(t, s, Request{
		Attributes: attrs(t,
			"StudyInstanceUID", "",
			"NumberOfStudyRelatedSeries", "",
			"NumberOfStudyRelatedInstances", "",
			"ModalitiesInStudy", ""),
		Level: model.Study,
		Root:  model.RootStudy,
	})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].Attributes.Value(dict.TagNumberOfStudyRelatedSeries))
	assert.Equal(t, "3", got[0].Attributes.Value(dict.TagNumberOfStudyRelatedInstances))
	assert.Equal(t, `CT\MR`, got[0].Attributes.Value(dict.TagModalitiesInStudy))

	got = query(t, s, Request{
		Attributes: attrs(t, "ModalitiesInStudy", "MR"),
		Level:      model.Study,
		Root:       model.RootStudy,
	})
	require.Len(t, got, 1)
	assert.Equal(t, `CT\MR`, got[0].Attributes.Value(dict.TagModalitiesInStudy), "the full set is returned")

	got = query(t, s, Request{
		Attributes: attrs(t, "ModalitiesInStudy", `US\XA`),
		Level:      model.Study,
		Root:       model.RootStudy,
	})
	assert.Empty(t, got, "rows without an intersecting modality are skipped")
}

func TestCursor_UnmatchedOptionalKeys(t *testing.T) {
	s := createTestStore(t)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)
	ctx := context.Background()

	req := attrs(t, "PatientID", "P1")
	req[dict.NewTag(0x0019, 0x1010)] = "private"
	c, err := s.OpenQuery(ctx, Request{Attributes: req, Level: model.Patient})
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.UnmatchedOptionalKeysPresent(), "computed lazily")
	_, ok, err := c.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, c.UnmatchedOptionalKeysPresent())
	assert.Equal(t, []dict.Tag{dict.NewTag(0x0019, 0x1010)}, c.Unmatched())

	clean := query(t, s, Request{Attributes: attrs(t, "PatientID", "P1"), Level: model.Patient})
	require.Len(t, clean, 1)
}

func TestCursor_Close(t *testing.T) {
	s := createTestStore(t)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)
	ctx := context.Background()

	c, err := s.OpenQuery(ctx, Request{Attributes: attrs(t, "PatientID", ""), Level: model.Patient})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, _, err = c.Next(ctx)
	assert.Error(t, err)

	// A mutation after an abandoned cursor proceeds.
	insert(t, s, testutil.Object("P2", "1.2.4", "1.2.4.1", "1.2.4.1.1"), "", Referenced)
}

func TestQuery_UIDList(t *testing.T) {
	s := createTestStore(t)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.2"), "", Referenced)
	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.3"), "", Referenced)

	got := query(t, s, Request{
		Attributes: attrs(t, "PatientID", "P1", "StudyInstanceUID", "1.2.3", "SeriesInstanceUID", "1.2.3.1",
			"SOPInstanceUID", `1.2.3.1.1\1.2.3.1.3`),
		Level: model.Instance,
	})
	require.Len(t, got, 2)
	assert.Equal(t, "1.2.3.1.3", got[1].Attributes.Value(dict.TagSOPInstanceUID))
}
