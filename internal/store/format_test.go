package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/dcmindex/internal/dict"
)

func TestFormatValue(t *testing.T) {
	d := dict.Default()
	attr := func(kw string) dict.Attribute {
		a, ok := d.ByKeyword(kw)
		if !ok {
			t.Fatalf("unknown keyword %s", kw)
		}
		return a
	}
	ts := time.Date(2003, 7, 15, 10, 15, 30, 0, time.UTC)

	tests := []struct {
		name string
		attr dict.Attribute
		v    any
		want string
	}{
		{"null", attr("PatientName"), nil, ""},
		{"text", attr("PatientName"), "DOE^JOHN", "DOE^JOHN"},
		{"integer", attr("SeriesNumber"), int64(7), "7"},
		{"real", attr("SliceThickness"), 2.5, "2.5"},
		{"whole real", attr("SliceThickness"), 3.0, "3"},
		{"datetime", attr("AcquisitionDateTime"), ts, "20030715101530"},
		{"datetime fraction", attr("AcquisitionDateTime"), ts.Add(250 * time.Microsecond), "20030715101530.000250"},
		{"datetime offset", attr("AcquisitionDateTime"), ts.In(time.FixedZone("+0200", 7200)), "20030715101530"},
		{"date timestamp", attr("StudyDate"), ts, "20030715"},
		{"time timestamp", attr("StudyTime"), ts, "101530"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.attr, tt.v))
		})
	}
}
