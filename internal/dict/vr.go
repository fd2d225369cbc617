package dict

// VR is a DICOM value representation.
type VR string

// Value representations known to the catalog.
const (
	VR_AE VR = "AE"
	VR_AS VR = "AS"
	VR_AT VR = "AT"
	VR_CS VR = "CS"
	VR_DA VR = "DA"
	VR_DS VR = "DS"
	VR_DT VR = "DT"
	VR_FL VR = "FL"
	VR_FD VR = "FD"
	VR_IS VR = "IS"
	VR_LO VR = "LO"
	VR_LT VR = "LT"
	VR_OB VR = "OB"
	VR_OD VR = "OD"
	VR_OF VR = "OF"
	VR_OL VR = "OL"
	VR_OV VR = "OV"
	VR_OW VR = "OW"
	VR_PN VR = "PN"
	VR_SH VR = "SH"
	VR_SL VR = "SL"
	VR_SQ VR = "SQ"
	VR_SS VR = "SS"
	VR_ST VR = "ST"
	VR_SV VR = "SV"
	VR_TM VR = "TM"
	VR_UC VR = "UC"
	VR_UI VR = "UI"
	VR_UL VR = "UL"
	VR_UN VR = "UN"
	VR_UR VR = "UR"
	VR_US VR = "US"
	VR_UT VR = "UT"
	VR_UV VR = "UV"
)

// StorageType is the column type an attribute is persisted as.
type StorageType int

const (
	// StorageNone means the attribute gets no column.
	StorageNone StorageType = iota
	StorageText
	StorageInteger
	StorageReal
	StorageTimestamp
)

func (s StorageType) String() string {
	switch s {
	case StorageText:
		return "text"
	case StorageInteger:
		return "integer"
	case StorageReal:
		return "real"
	case StorageTimestamp:
		return "timestamp"
	default:
		return "none"
	}
}

// StorageTypeFor maps a value representation onto its storage type.
//
// DA and TM stay textual: their fixed-width encodings order lexically.
// DT carries an offset and variable precision, so it is stored parsed.
func StorageTypeFor(vr VR) StorageType {
	switch vr {
	case VR_AE, VR_AS, VR_CS, VR_DA, VR_LO, VR_LT, VR_PN, VR_SH, VR_ST,
		VR_TM, VR_UC, VR_UI, VR_UR, VR_UT:
		return StorageText
	case VR_IS, VR_SL, VR_SS, VR_UL, VR_US, VR_SV, VR_UV:
		return StorageInteger
	case VR_DS, VR_FL, VR_FD:
		return StorageReal
	case VR_DT:
		return StorageTimestamp
	default:
		return StorageNone
	}
}

// IsRange reports whether values of vr use date/time range matching.
func (vr VR) IsRange() bool {
	return vr == VR_DA || vr == VR_TM || vr == VR_DT
}

// IsNumeric reports whether values of vr are stored as numbers.
func (vr VR) IsNumeric() bool {
	st := StorageTypeFor(vr)
	return st == StorageInteger || st == StorageReal
}

// Known reports whether vr is one of the value representations above.
func (vr VR) Known() bool {
	switch vr {
	case VR_AE, VR_AS, VR_AT, VR_CS, VR_DA, VR_DS, VR_DT, VR_FL, VR_FD,
		VR_IS, VR_LO, VR_LT, VR_OB, VR_OD, VR_OF, VR_OL, VR_OV, VR_OW,
		VR_PN, VR_SH, VR_SL, VR_SQ, VR_SS, VR_ST, VR_SV, VR_TM, VR_UC,
		VR_UI, VR_UL, VR_UN, VR_UR, VR_US, VR_UT, VR_UV:
		return true
	}
	return false
}
