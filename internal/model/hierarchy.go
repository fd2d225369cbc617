package model

import (
	"github.com/roach88/dcmindex/internal/dict"
)

// Registered model names.
const (
	StandardName      = "standard"
	ConcatenationName = "concatenation"
)

// Derived and extra column names.
const (
	ColPatientBirthDateTime = "PATIENT_BIRTH_DATETIME"
	ColStudyDateTime        = "STUDY_DATETIME"
	ColSeriesDateTime       = "SERIES_DATETIME"
	ColContentDateTime      = "CONTENT_DATETIME"
	ColAcquisitionDateTime  = "ACQUISITION_DATETIME"
	ColLossyCompressed      = "LOSSY_COMPRESSED"
	ColFileSize             = "FILE_SIZE"
)

// lossyTransferSyntaxes are transfer syntaxes that imply lossy compression.
var lossyTransferSyntaxes = map[string]bool{
	"1.2.840.10008.1.2.4.50":  true, // JPEG baseline
	"1.2.840.10008.1.2.4.51":  true, // JPEG extended
	"1.2.840.10008.1.2.4.81":  true, // JPEG-LS near-lossless
	"1.2.840.10008.1.2.4.91":  true, // JPEG 2000
	"1.2.840.10008.1.2.4.93":  true, // JPEG 2000 Part 2
	"1.2.840.10008.1.2.4.100": true, // MPEG2
	"1.2.840.10008.1.2.4.102": true, // MPEG-4 AVC
	"1.2.840.10008.1.2.4.110": true, // JPEG XL
}

// hierarchy implements Model for a linear chain of levels in which some
// levels may be optional.
type hierarchy struct {
	name     string
	levels   []Level
	optional map[Level]bool
	// chooser picks among several child levels; nil means "the next level".
	chooser func(level Level, attrs dict.AttributeSet) Level
}

// Standard returns the PATIENT/STUDY/SERIES/INSTANCE model.
func Standard() Model {
	return &hierarchy{
		name:   StandardName,
		levels: []Level{Patient, Study, Series, Instance},
	}
}

// WithConcatenation returns the model with an optional CONCATENATION level
// between SERIES and INSTANCE. Objects carrying a ConcatenationUID are
// filed under a concatenation row, others directly under the series.
func WithConcatenation() Model {
	return &hierarchy{
		name:     ConcatenationName,
		levels:   []Level{Patient, Study, Series, Concatenation, Instance},
		optional: map[Level]bool{Concatenation: true},
		chooser: func(level Level, attrs dict.AttributeSet) Level {
			if level == Series && !attrs.Has(dict.TagConcatenationUID) {
				return Instance
			}
			return ""
		},
	}
}

func (h *hierarchy) Name() string { return h.name }

func (h *hierarchy) Levels() []Level { return append([]Level(nil), h.levels...) }

func (h *hierarchy) Has(level Level) bool {
	for _, l := range h.levels {
		if l == level {
			return true
		}
	}
	return false
}

func (h *hierarchy) Resolve(level Level) Level {
	if h.Has(level) {
		return level
	}
	if level == Concatenation {
		return Instance
	}
	return level
}

func (h *hierarchy) Parent(level Level) (Level, bool) {
	for i, l := range h.levels {
		if l == level && i > 0 {
			return h.levels[i-1], true
		}
	}
	return "", false
}

func (h *hierarchy) Optional(level Level) bool {
	return h.optional[level]
}

func (h *hierarchy) ChildLevels(level Level) []Level {
	var out []Level
	for i, l := range h.levels {
		if l != level {
			continue
		}
		for j := i + 1; j < len(h.levels); j++ {
			out = append(out, h.levels[j])
			if !h.optional[h.levels[j]] {
				break
			}
		}
	}
	return out
}

func (h *hierarchy) ChildFor(level Level, attrs dict.AttributeSet) (Level, bool) {
	if h.chooser != nil {
		if child := h.chooser(level, attrs); child != "" {
			return child, true
		}
	}
	children := h.ChildLevels(level)
	if len(children) == 0 {
		return "", false
	}
	return children[0], true
}

func (h *hierarchy) MatchKeys(level Level) []dict.Tag {
	switch level {
	case Patient:
		return []dict.Tag{dict.TagPatientID, dict.TagPatientName}
	default:
		return []dict.Tag{h.UniqueKey(level)}
	}
}

func (h *hierarchy) UniqueKey(level Level) dict.Tag {
	switch level {
	case Patient:
		return dict.TagPatientID
	case Study:
		return dict.TagStudyInstanceUID
	case Series:
		return dict.TagSeriesInstanceUID
	case Concatenation:
		return dict.TagConcatenationUID
	default:
		return dict.TagSOPInstanceUID
	}
}

func (h *hierarchy) DescriptiveKeys(level Level) []dict.Tag {
	switch level {
	case Patient:
		return []dict.Tag{dict.TagPatientName, dict.TagPatientID, dict.TagPatientBirthDate}
	case Study:
		return []dict.Tag{dict.TagStudyID, dict.TagStudyDate, dict.TagStudyDescription}
	case Series:
		return []dict.Tag{dict.TagSeriesNumber, dict.TagModality, dict.TagSeriesDescription}
	case Concatenation:
		return []dict.Tag{dict.TagConcatenationUID, dict.TagInConcatenationTotalNumber}
	default:
		return []dict.Tag{dict.TagInstanceNumber, dict.TagSOPClassUID, dict.TagImageType}
	}
}

func (h *hierarchy) DateTimePairs(level Level) []DateTimePair {
	switch level {
	case Patient:
		return []DateTimePair{{dict.TagPatientBirthDate, dict.TagPatientBirthTime, ColPatientBirthDateTime}}
	case Study:
		return []DateTimePair{{dict.TagStudyDate, dict.TagStudyTime, ColStudyDateTime}}
	case Series:
		return []DateTimePair{{dict.TagSeriesDate, dict.TagSeriesTime, ColSeriesDateTime}}
	case Instance:
		return []DateTimePair{
			{dict.TagContentDate, dict.TagContentTime, ColContentDateTime},
			{dict.TagAcquisitionDate, dict.TagAcquisitionTime, ColAcquisitionDateTime},
		}
	default:
		return nil
	}
}

func (h *hierarchy) DerivedColumns(level Level) []Derived {
	var out []Derived
	for _, pair := range h.DateTimePairs(level) {
		out = append(out, Derived{
			Column:  Column{Name: pair.Column, Storage: dict.StorageTimestamp},
			Compute: combine(pair),
		})
	}
	if level == Instance {
		// AcquisitionDateTime wins over the date/time pair when present.
		for i := range out {
			if out[i].Name == ColAcquisitionDateTime {
				pairFn := out[i].Compute
				out[i].Compute = func(attrs dict.AttributeSet) (any, bool) {
					if ts, err := dict.ParseDateTime(attrs.Value(dict.TagAcquisitionDateTime)); err == nil {
						return ts, true
					}
					return pairFn(attrs)
				}
			}
		}
		out = append(out, Derived{
			Column:  Column{Name: ColLossyCompressed, Storage: dict.StorageInteger},
			Compute: lossyCompressed,
		})
	}
	return out
}

func (h *hierarchy) ExtraColumns(level Level) []Column {
	if level == Instance {
		return []Column{{Name: ColFileSize, Storage: dict.StorageInteger}}
	}
	return nil
}

func (h *hierarchy) ExtraIndexes() []Index {
	out := []Index{
		{Patient, "PATIENTID"},
		{Study, "STUDYINSTANCEUID"},
		{Study, "ACCESSIONNUMBER"},
		{Series, "SERIESINSTANCEUID"},
	}
	if h.Has(Concatenation) {
		out = append(out, Index{Concatenation, "CONCATENATIONUID"})
	}
	return append(out, Index{Instance, "SOPINSTANCEUID"})
}

func (h *hierarchy) Synthetics() []Synthetic {
	return []Synthetic{
		{Tag: dict.TagNumberOfPatientRelatedStudies, Level: Patient, Kind: CountDescendants, Of: Study},
		{Tag: dict.TagNumberOfPatientRelatedSeries, Level: Patient, Kind: CountDescendants, Of: Series},
		{Tag: dict.TagNumberOfPatientRelatedInstance, Level: Patient, Kind: CountDescendants, Of: Instance},
		{Tag: dict.TagNumberOfStudyRelatedSeries, Level: Study, Kind: CountDescendants, Of: Series},
		{Tag: dict.TagNumberOfStudyRelatedInstances, Level: Study, Kind: CountDescendants, Of: Instance},
		{Tag: dict.TagNumberOfSeriesRelatedInstances, Level: Series, Kind: CountDescendants, Of: Instance},
		{Tag: dict.TagModalitiesInStudy, Level: Study, Kind: DistinctValues, Of: Series, Source: dict.TagModality},
		{Tag: dict.TagSOPClassesInStudy, Level: Study, Kind: DistinctValues, Of: Instance, Source: dict.TagSOPClassUID},
	}
}

func combine(pair DateTimePair) DerivedFunc {
	return func(attrs dict.AttributeSet) (any, bool) {
		date := attrs.Value(pair.Date)
		if date == "" {
			return nil, false
		}
		ts, err := dict.CombineDateTime(date, attrs.Value(pair.Time))
		if err != nil {
			return nil, false
		}
		return ts, true
	}
}

func lossyCompressed(attrs dict.AttributeSet) (any, bool) {
	switch attrs.Value(dict.TagLossyImageCompression) {
	case "01":
		return int64(1), true
	case "00":
		return int64(0), true
	}
	ts := attrs.Value(dict.TagTransferSyntaxUID)
	if ts == "" {
		return nil, false
	}
	if lossyTransferSyntaxes[ts] {
		return int64(1), true
	}
	return int64(0), true
}
