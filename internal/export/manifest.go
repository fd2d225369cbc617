// Package export writes the catalog out of the relational store: a Parquet
// manifest of every stored object and a length-delimited protobuf dump of
// every row, which Restore can replay into another catalog.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/store"
)

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionGzip
)

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) (CompressionType, error) {
	switch s {
	case "snappy":
		return CompressionSnappy, nil
	case "zstd", "":
		return CompressionZstd, nil
	case "gzip":
		return CompressionGzip, nil
	case "none":
		return CompressionNone, nil
	default:
		return CompressionZstd, fmt.Errorf("unknown compression %q", s)
	}
}

func codec(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// ManifestRow is one stored object in Parquet form.
type ManifestRow struct {
	Key               string `parquet:"key,zstd"`
	PatientID         string `parquet:"patient_id,optional,zstd"`
	StudyInstanceUID  string `parquet:"study_instance_uid,zstd"`
	SeriesInstanceUID string `parquet:"series_instance_uid,zstd"`
	ConcatenationUID  string `parquet:"concatenation_uid,optional,zstd"`
	SOPInstanceUID    string `parquet:"sop_instance_uid,zstd"`
	SOPClassUID       string `parquet:"sop_class_uid,optional,zstd"`
	TransferSyntaxUID string `parquet:"transfer_syntax_uid,optional,zstd"`
	Path              string `parquet:"path,optional,zstd"`
	Reference         string `parquet:"reference"`
	FileSize          int64  `parquet:"file_size"`
	InsertedAtMs      int64  `parquet:"inserted_at_ms"`
}

// EntryToRow converts a manifest entry to a ManifestRow.
func EntryToRow(e *store.ManifestEntry) ManifestRow {
	return ManifestRow{
		Key:               e.Key,
		PatientID:         e.UIDs[model.Patient],
		StudyInstanceUID:  e.UIDs[model.Study],
		SeriesInstanceUID: e.UIDs[model.Series],
		ConcatenationUID:  e.UIDs[model.Concatenation],
		SOPInstanceUID:    e.UIDs[model.Instance],
		SOPClassUID:       e.SOPClassUID,
		TransferSyntaxUID: e.TransferSyntaxUID,
		Path:              e.Path,
		Reference:         string(e.Reference),
		FileSize:          e.FileSize,
		InsertedAtMs:      e.InsertedAt.UnixMilli(),
	}
}

// RowToEntry converts a ManifestRow back to a manifest entry.
func RowToEntry(r *ManifestRow) store.ManifestEntry {
	e := store.ManifestEntry{
		Key:               r.Key,
		UIDs:              map[model.Level]string{},
		Path:              r.Path,
		Reference:         store.FileReference(r.Reference),
		SOPClassUID:       r.SOPClassUID,
		TransferSyntaxUID: r.TransferSyntaxUID,
		FileSize:          r.FileSize,
		InsertedAt:        time.UnixMilli(r.InsertedAtMs).UTC(),
	}
	for level, v := range map[model.Level]string{
		model.Patient:       r.PatientID,
		model.Study:         r.StudyInstanceUID,
		model.Series:        r.SeriesInstanceUID,
		model.Concatenation: r.ConcatenationUID,
		model.Instance:      r.SOPInstanceUID,
	} {
		if v != "" {
			e.UIDs[level] = v
		}
	}
	return e
}

// WriteManifest writes entries as Parquet to w.
func WriteManifest(w io.Writer, entries []store.ManifestEntry, ct CompressionType) error {
	rows := make([]ManifestRow, len(entries))
	for i := range entries {
		rows[i] = EntryToRow(&entries[i])
	}

	writer := parquet.NewGenericWriter[ManifestRow](w, parquet.Compression(codec(ct)))
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// WriteManifestFile writes entries to a Parquet file at path.
func WriteManifestFile(path string, entries []store.ManifestEntry, ct CompressionType) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := WriteManifest(f, entries, ct); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadManifestFile reads every entry of a Parquet manifest.
func ReadManifestFile(path string) ([]store.ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[ManifestRow](f)
	defer reader.Close()

	rows := make([]ManifestRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	entries := make([]store.ManifestEntry, n)
	for i := 0; i < n; i++ {
		entries[i] = RowToEntry(&rows[i])
	}
	return entries, nil
}
