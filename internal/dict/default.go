package dict

import "sync"

// Well-known tags referenced by the catalog itself.
var (
	TagSpecificCharacterSet = NewTag(0x0008, 0x0005)
	TagImageType            = NewTag(0x0008, 0x0008)
	TagSOPClassUID          = NewTag(0x0008, 0x0016)
	TagSOPInstanceUID       = NewTag(0x0008, 0x0018)
	TagStudyDate            = NewTag(0x0008, 0x0020)
	TagSeriesDate           = NewTag(0x0008, 0x0021)
	TagAcquisitionDate      = NewTag(0x0008, 0x0022)
	TagContentDate          = NewTag(0x0008, 0x0023)
	TagAcquisitionDateTime  = NewTag(0x0008, 0x002A)
	TagStudyTime            = NewTag(0x0008, 0x0030)
	TagSeriesTime           = NewTag(0x0008, 0x0031)
	TagAcquisitionTime      = NewTag(0x0008, 0x0032)
	TagContentTime          = NewTag(0x0008, 0x0033)
	TagAccessionNumber      = NewTag(0x0008, 0x0050)
	TagQueryRetrieveLevel   = NewTag(0x0008, 0x0052)
	TagRetrieveAETitle      = NewTag(0x0008, 0x0054)
	TagInstanceAvailability = NewTag(0x0008, 0x0056)
	TagModality             = NewTag(0x0008, 0x0060)
	TagModalitiesInStudy    = NewTag(0x0008, 0x0061)
	TagSOPClassesInStudy    = NewTag(0x0008, 0x0062)
	TagManufacturer         = NewTag(0x0008, 0x0070)
	TagInstitutionName      = NewTag(0x0008, 0x0080)
	TagReferringPhysician   = NewTag(0x0008, 0x0090)
	TagStudyDescription     = NewTag(0x0008, 0x1030)
	TagSeriesDescription    = NewTag(0x0008, 0x103E)
	TagPerformingPhysician  = NewTag(0x0008, 0x1050)
	TagReferencedImageSeq   = NewTag(0x0008, 0x1140)

	TagPatientName      = NewTag(0x0010, 0x0010)
	TagPatientID        = NewTag(0x0010, 0x0020)
	TagIssuerOfPatient  = NewTag(0x0010, 0x0021)
	TagPatientBirthDate = NewTag(0x0010, 0x0030)
	TagPatientBirthTime = NewTag(0x0010, 0x0032)
	TagPatientSex       = NewTag(0x0010, 0x0040)
	TagPatientAge       = NewTag(0x0010, 0x1010)
	TagPatientSize      = NewTag(0x0010, 0x1020)
	TagPatientWeight    = NewTag(0x0010, 0x1030)
	TagPatientComments  = NewTag(0x0010, 0x4000)

	TagBodyPartExamined = NewTag(0x0018, 0x0015)
	TagSliceThickness   = NewTag(0x0018, 0x0050)

	TagStudyInstanceUID               = NewTag(0x0020, 0x000D)
	TagSeriesInstanceUID              = NewTag(0x0020, 0x000E)
	TagStudyID                        = NewTag(0x0020, 0x0010)
	TagSeriesNumber                   = NewTag(0x0020, 0x0011)
	TagInstanceNumber                 = NewTag(0x0020, 0x0013)
	TagNumberOfPatientRelatedStudies  = NewTag(0x0020, 0x1200)
	TagNumberOfPatientRelatedSeries   = NewTag(0x0020, 0x1202)
	TagNumberOfPatientRelatedInstance = NewTag(0x0020, 0x1204)
	TagNumberOfStudyRelatedSeries     = NewTag(0x0020, 0x1206)
	TagNumberOfStudyRelatedInstances  = NewTag(0x0020, 0x1208)
	TagNumberOfSeriesRelatedInstances = NewTag(0x0020, 0x1209)
	TagConcatenationUID               = NewTag(0x0020, 0x9161)
	TagInConcatenationNumber          = NewTag(0x0020, 0x9162)
	TagInConcatenationTotalNumber     = NewTag(0x0020, 0x9163)

	TagNumberOfFrames        = NewTag(0x0028, 0x0008)
	TagRows                  = NewTag(0x0028, 0x0010)
	TagColumns               = NewTag(0x0028, 0x0011)
	TagLossyImageCompression = NewTag(0x0028, 0x2110)

	TagTransferSyntaxUID = NewTag(0x0002, 0x0010)
	TagPixelData         = NewTag(0x7FE0, 0x0010)
)

func stored(t Tag, keyword string, vr VR, level Level) Attribute {
	return Attribute{Tag: t, Keyword: keyword, VR: vr, Level: level, Kind: KindStored}
}

func synthetic(t Tag, keyword string, vr VR, level Level) Attribute {
	return Attribute{Tag: t, Keyword: keyword, VR: vr, Level: level, Kind: KindSynthetic}
}

func bookkeeping(t Tag, keyword string, vr VR) Attribute {
	return Attribute{Tag: t, Keyword: keyword, VR: vr, Kind: KindBookkeeping}
}

// DefaultAttributes is the built-in attribute table.
var DefaultAttributes = []Attribute{
	bookkeeping(TagSpecificCharacterSet, "SpecificCharacterSet", VR_CS),
	bookkeeping(TagQueryRetrieveLevel, "QueryRetrieveLevel", VR_CS),
	bookkeeping(TagRetrieveAETitle, "RetrieveAETitle", VR_AE),
	bookkeeping(TagInstanceAvailability, "InstanceAvailability", VR_CS),

	stored(TagPatientName, "PatientName", VR_PN, LevelPatient),
	stored(TagPatientID, "PatientID", VR_LO, LevelPatient),
	stored(TagIssuerOfPatient, "IssuerOfPatientID", VR_LO, LevelPatient),
	stored(TagPatientBirthDate, "PatientBirthDate", VR_DA, LevelPatient),
	stored(TagPatientBirthTime, "PatientBirthTime", VR_TM, LevelPatient),
	stored(TagPatientSex, "PatientSex", VR_CS, LevelPatient),
	stored(TagPatientComments, "PatientComments", VR_LT, LevelPatient),
	synthetic(TagNumberOfPatientRelatedStudies, "NumberOfPatientRelatedStudies", VR_IS, LevelPatient),
	synthetic(TagNumberOfPatientRelatedSeries, "NumberOfPatientRelatedSeries", VR_IS, LevelPatient),
	synthetic(TagNumberOfPatientRelatedInstance, "NumberOfPatientRelatedInstances", VR_IS, LevelPatient),

	stored(TagStudyInstanceUID, "StudyInstanceUID", VR_UI, LevelStudy),
	stored(TagStudyID, "StudyID", VR_SH, LevelStudy),
	stored(TagStudyDate, "StudyDate", VR_DA, LevelStudy),
	stored(TagStudyTime, "StudyTime", VR_TM, LevelStudy),
	stored(TagAccessionNumber, "AccessionNumber", VR_SH, LevelStudy),
	stored(TagReferringPhysician, "ReferringPhysicianName", VR_PN, LevelStudy),
	stored(TagStudyDescription, "StudyDescription", VR_LO, LevelStudy),
	stored(TagPatientAge, "PatientAge", VR_AS, LevelStudy),
	stored(TagPatientSize, "PatientSize", VR_DS, LevelStudy),
	stored(TagPatientWeight, "PatientWeight", VR_DS, LevelStudy),
	synthetic(TagModalitiesInStudy, "ModalitiesInStudy", VR_CS, LevelStudy),
	synthetic(TagSOPClassesInStudy, "SOPClassesInStudy", VR_UI, LevelStudy),
	synthetic(TagNumberOfStudyRelatedSeries, "NumberOfStudyRelatedSeries", VR_IS, LevelStudy),
	synthetic(TagNumberOfStudyRelatedInstances, "NumberOfStudyRelatedInstances", VR_IS, LevelStudy),

	stored(TagSeriesInstanceUID, "SeriesInstanceUID", VR_UI, LevelSeries),
	stored(TagSeriesNumber, "SeriesNumber", VR_IS, LevelSeries),
	stored(TagModality, "Modality", VR_CS, LevelSeries),
	stored(TagSeriesDate, "SeriesDate", VR_DA, LevelSeries),
	stored(TagSeriesTime, "SeriesTime", VR_TM, LevelSeries),
	stored(TagSeriesDescription, "SeriesDescription", VR_LO, LevelSeries),
	stored(TagBodyPartExamined, "BodyPartExamined", VR_CS, LevelSeries),
	stored(TagManufacturer, "Manufacturer", VR_LO, LevelSeries),
	stored(TagInstitutionName, "InstitutionName", VR_LO, LevelSeries),
	stored(TagPerformingPhysician, "PerformingPhysicianName", VR_PN, LevelSeries),
	synthetic(TagNumberOfSeriesRelatedInstances, "NumberOfSeriesRelatedInstances", VR_IS, LevelSeries),

	stored(TagConcatenationUID, "ConcatenationUID", VR_UI, LevelConcatenation),
	stored(TagInConcatenationTotalNumber, "InConcatenationTotalNumber", VR_US, LevelConcatenation),

	stored(TagSOPInstanceUID, "SOPInstanceUID", VR_UI, LevelInstance),
	stored(TagSOPClassUID, "SOPClassUID", VR_UI, LevelInstance),
	stored(TagTransferSyntaxUID, "TransferSyntaxUID", VR_UI, LevelInstance),
	stored(TagInstanceNumber, "InstanceNumber", VR_IS, LevelInstance),
	stored(TagImageType, "ImageType", VR_CS, LevelInstance),
	stored(TagContentDate, "ContentDate", VR_DA, LevelInstance),
	stored(TagContentTime, "ContentTime", VR_TM, LevelInstance),
	stored(TagAcquisitionDate, "AcquisitionDate", VR_DA, LevelInstance),
	stored(TagAcquisitionTime, "AcquisitionTime", VR_TM, LevelInstance),
	stored(TagAcquisitionDateTime, "AcquisitionDateTime", VR_DT, LevelInstance),
	stored(TagInConcatenationNumber, "InConcatenationNumber", VR_US, LevelInstance),
	stored(TagRows, "Rows", VR_US, LevelInstance),
	stored(TagColumns, "Columns", VR_US, LevelInstance),
	stored(TagNumberOfFrames, "NumberOfFrames", VR_IS, LevelInstance),
	stored(TagSliceThickness, "SliceThickness", VR_DS, LevelInstance),
	stored(TagLossyImageCompression, "LossyImageCompression", VR_CS, LevelInstance),
	stored(TagReferencedImageSeq, "ReferencedImageSequence", VR_SQ, LevelInstance),
	stored(TagPixelData, "PixelData", VR_OW, LevelInstance),
}

var (
	defaultOnce sync.Once
	defaultDict *Dictionary
)

// Default returns the built-in dictionary.
func Default() *Dictionary {
	defaultOnce.Do(func() {
		defaultDict = MustNewDictionary(DefaultAttributes...)
	})
	return defaultDict
}
