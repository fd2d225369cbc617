package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/testutil"
)

func TestOpen_CreatesSchema(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t, []string{"INSTANCE", "PATIENT", "SERIES", "STUDY"}, s.Catalog().Tables())
	assert.True(t, s.Catalog().HasColumn("PATIENT", "CANON_PATIENTNAME"))
	assert.True(t, s.Catalog().HasColumn("INSTANCE", model.ColFileSize))
	assert.True(t, s.Catalog().HasColumn("STUDY", "USER_4"))
}

func TestOpen_ReopenKeepsRows(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	s1, err := Open(ctx, Config{DSN: dsn})
	require.NoError(t, err)
	_, err = s1.Insert(ctx, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "a.dcm", Referenced)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, Config{DSN: dsn})
	require.NoError(t, err)
	defer s2.Close()

	rows, err := s2.FindAll(ctx, model.Instance)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a.dcm", rows[0].String("LOCAL_FILE"))
}

func TestOpen_NoUserColumns(t *testing.T) {
	s := createTestStore(t, func(cfg *Config) { cfg.UserColumns = -1 })
	assert.False(t, s.Catalog().HasColumn("STUDY", "USER_1"))
}

func TestOpen_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))

	_, err = Open(ctx, Config{})
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))

	_, err = Open(ctx, Config{DSN: filepath.Join(t.TempDir(), "missing", "dir", "catalog.db")})
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
}

func TestClose_Idempotent(t *testing.T) {
	s, err := Open(context.Background(), Config{DSN: filepath.Join(t.TempDir(), "catalog.db")})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestClose_RejectsOperations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	obj := testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1")
	insert(t, s, obj, "", Referenced)
	require.NoError(t, s.Close())

	ops := map[string]func() error{
		"insert": func() error {
			_, err := s.Insert(ctx, obj, "", Referenced)
			return err
		},
		"query": func() error {
			_, err := s.OpenQuery(ctx, Request{Attributes: attrs(t, "PatientID", ""), Level: model.Patient})
			return err
		},
		"retrieve": func() error {
			_, err := s.Retrieve(ctx, RetrieveRequest{Keys: attrs(t, "PatientID", "P1"), Level: model.Patient})
			return err
		},
		"find": func() error {
			_, err := s.FindAll(ctx, model.Study)
			return err
		},
		"find by ancestor": func() error {
			_, err := s.FindAllByJoinedAncestorAttribute(ctx, model.Series, model.Patient, "PATIENTID", "P1")
			return err
		},
		"delete row": func() error {
			return s.DeleteRow(ctx, model.Instance, "pk-000004")
		},
		"delete subtree": func() error {
			_, err := s.DeleteSubtreeByNaturalKey(ctx, model.Study, "1.2.3")
			return err
		},
		"manifest": func() error {
			_, err := s.Manifest(ctx)
			return err
		},
		"counts": func() error {
			_, err := s.Counts(ctx)
			return err
		},
		"add column": func() error {
			return s.AddColumn(ctx, model.Series, "PROTOCOLNAME", dict.StorageText)
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { err = op() })
			require.Error(t, err)
			assert.True(t, IsUnableToProcess(err), "got %v", err)
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestAddColumn(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddColumn(ctx, model.Series, "PROTOCOLNAME", dict.StorageText))
	assert.True(t, s.Catalog().HasColumn("SERIES", "PROTOCOLNAME"))

	// Widening twice is a no-op.
	require.NoError(t, s.AddColumn(ctx, model.Series, "PROTOCOLNAME", dict.StorageText))

	err := s.AddColumn(ctx, model.Concatenation, "X", dict.StorageText)
	require.Error(t, err)
	assert.True(t, IsModelMismatch(err))
}

func TestStats_RecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := createTestStore(t, func(cfg *Config) { cfg.Registerer = reg })

	insert(t, s, testutil.Object("P1", "1.2.3", "1.2.3.1", "1.2.3.1.1"), "", Referenced)
	_, err := s.FindAll(context.Background(), model.Patient)
	require.NoError(t, err)

	ops := map[string]int64{}
	for _, st := range s.Stats() {
		ops[st.Op] = st.Count
	}
	assert.Equal(t, int64(1), ops["insert"])
	assert.Equal(t, int64(1), ops["find_all"])

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestError_Codes(t *testing.T) {
	inner := errors.New("disk I/O error")
	err := unableToProcess("insert", inner)

	assert.True(t, IsUnableToProcess(err))
	assert.False(t, IsModelMismatch(err))
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "UNABLE_TO_PROCESS: insert: disk I/O error", err.Error())

	mm := &Error{Code: ErrCodeModelMismatch, Message: "identifier does not match requested model", Attribute: "StudyInstanceUID"}
	assert.Equal(t, "IDENTIFIER_DOES_NOT_MATCH_MODEL: identifier does not match requested model (attribute=StudyInstanceUID)", mm.Error())
}
