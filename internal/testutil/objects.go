package testutil

import (
	"github.com/roach88/dcmindex/internal/dict"
)

// Well-known UIDs used by the fixtures.
const (
	CTImageStorage      = "1.2.840.10008.5.1.4.1.1.2"
	MRImageStorage      = "1.2.840.10008.5.1.4.1.1.4"
	ExplicitVRLittle    = "1.2.840.10008.1.2.1"
	JPEGBaselineProcess = "1.2.840.10008.1.2.4.50"
)

// Object returns the attributes of a CT image filed under the given
// natural keys. Callers adjust the returned set for their scenario.
func Object(patientID, studyUID, seriesUID, sopUID string) dict.AttributeSet {
	return dict.AttributeSet{
		dict.TagPatientName:       "DOE^JOHN",
		dict.TagPatientID:         patientID,
		dict.TagPatientBirthDate:  "19700101",
		dict.TagPatientSex:        "M",
		dict.TagStudyInstanceUID:  studyUID,
		dict.TagStudyDate:         "20030715",
		dict.TagStudyTime:         "101500",
		dict.TagStudyID:           "1",
		dict.TagAccessionNumber:   "A0001",
		dict.TagStudyDescription:  "CTHEAD",
		dict.TagSeriesInstanceUID: seriesUID,
		dict.TagSeriesNumber:      "1",
		dict.TagModality:          "CT",
		dict.TagSOPInstanceUID:    sopUID,
		dict.TagSOPClassUID:       CTImageStorage,
		dict.TagInstanceNumber:    "1",
		dict.TagTransferSyntaxUID: ExplicitVRLittle,
		dict.TagSliceThickness:    "2.5",
	}
}

// With returns a copy of attrs with the given overrides; an empty value
// removes the attribute.
func With(attrs dict.AttributeSet, overrides map[dict.Tag]string) dict.AttributeSet {
	out := attrs.Clone()
	for t, v := range overrides {
		if v == "" {
			delete(out, t)
			continue
		}
		out[t] = v
	}
	return out
}
