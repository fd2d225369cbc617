package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dcmindex/internal/dict"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileAttributeBasic(t *testing.T) {
	v := compileString(t, `
		attribute: PatientMotherBirthName: {
			tag:   "(0010,1060)"
			vr:    "PN"
			level: "PATIENT"
		}
	`)

	attr, err := CompileAttribute(v.LookupPath(cue.ParsePath("attribute.PatientMotherBirthName")))
	require.NoError(t, err)

	assert.Equal(t, "PatientMotherBirthName", attr.Keyword)
	assert.Equal(t, dict.NewTag(0x0010, 0x1060), attr.Tag)
	assert.Equal(t, dict.VR_PN, attr.VR)
	assert.Equal(t, dict.LevelPatient, attr.Level)
	assert.Equal(t, dict.KindStored, attr.Kind)
	assert.Equal(t, "PATIENTMOTHERBIRTHNAME", attr.Column())
}

func TestCompileAttributeKinds(t *testing.T) {
	v := compileString(t, `
		attribute: NumberOfStudyRelatedFrames: {
			tag: "00201209", vr: "IS", level: "STUDY", kind: "synthetic"
		}
		attribute: MoveOriginator: {
			tag: "0000,1030", vr: "AE", level: "STUDY", kind: "bookkeeping"
		}
	`)

	synth, err := CompileAttribute(v.LookupPath(cue.ParsePath("attribute.NumberOfStudyRelatedFrames")))
	require.NoError(t, err)
	assert.Equal(t, dict.KindSynthetic, synth.Kind)
	assert.Equal(t, dict.StorageNone, synth.Storage())

	book, err := CompileAttribute(v.LookupPath(cue.ParsePath("attribute.MoveOriginator")))
	require.NoError(t, err)
	assert.Equal(t, dict.KindBookkeeping, book.Kind)
	assert.Equal(t, dict.LevelNone, book.Level, "bookkeeping attributes have no level")
}

func TestCompileAttributeErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing tag", `attribute: X: { vr: "LO", level: "STUDY" }`, "tag"},
		{"bad tag", `attribute: X: { tag: "(0010)", vr: "LO", level: "STUDY" }`, "tag"},
		{"missing vr", `attribute: X: { tag: "(0010,1060)", level: "STUDY" }`, "vr"},
		{"unknown vr", `attribute: X: { tag: "(0010,1060)", vr: "ZZ", level: "STUDY" }`, "vr"},
		{"missing level", `attribute: X: { tag: "(0010,1060)", vr: "LO" }`, "level"},
		{"unknown level", `attribute: X: { tag: "(0010,1060)", vr: "LO", level: "VISIT" }`, "level"},
		{"unknown kind", `attribute: X: { tag: "(0010,1060)", vr: "LO", level: "STUDY", kind: "virtual" }`, "kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := compileString(t, tt.src)
			_, err := CompileAttribute(v.LookupPath(cue.ParsePath("attribute.X")))
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.field, compileErr.Field)
		})
	}
}

func TestCompileAttributeWrongType(t *testing.T) {
	v := compileString(t, `attribute: X: { tag: 42, vr: "LO", level: "STUDY" }`)
	_, err := CompileAttribute(v.LookupPath(cue.ParsePath("attribute.X")))
	require.Error(t, err)
}

func TestCompileErrorString(t *testing.T) {
	err := &CompileError{Field: "vr", Message: "unknown value representation"}
	assert.Equal(t, "vr: unknown value representation", err.Error())
}

func TestCompileAttributesCollectsErrors(t *testing.T) {
	v := compileString(t, `
		attribute: Good: { tag: "(0011,0010)", vr: "LO", level: "SERIES" }
		attribute: Bad:  { tag: "(0011,0011)", vr: "??", level: "SERIES" }
	`)

	attrs, errs := CompileAttributes(v)
	require.Len(t, attrs, 1)
	assert.Equal(t, "Good", attrs[0].Keyword)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeVR, loadErr.Code)
	assert.Contains(t, loadErr.Message, "attribute.Bad")
}

func TestCompileAttributesNone(t *testing.T) {
	attrs, errs := CompileAttributes(compileString(t, `other: 1`))
	assert.Empty(t, errs)
	assert.NotNil(t, attrs)
	assert.Empty(t, attrs)
}
