package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/schema"
	"github.com/roach88/dcmindex/internal/store"
)

// MaxRecordSize bounds one dumped row.
const MaxRecordSize = 16 << 20

// Record is one dumped row.
type Record struct {
	Level model.Level
	Row   store.Row
}

// Dump writes every row of st, root level first and by primary key within
// a level, as length-delimited google.protobuf.Struct messages:
//
//	{"level": "STUDY", "row": {"STUDYINSTANCEUID": "1.2.3", ...}}
//
// Attribute columns are written in their DICOM string form; the other
// columns keep their native type, timestamps as RFC 3339.
func Dump(ctx context.Context, st *store.Store, w io.Writer) (int, error) {
	d := st.Dictionary()
	n := 0
	for _, level := range st.Model().Levels() {
		rows, err := st.FindAll(ctx, level)
		if err != nil {
			return n, fmt.Errorf("dump %s: %w", level, err)
		}
		for _, row := range rows {
			msg, err := recordMessage(d, level, row)
			if err != nil {
				return n, fmt.Errorf("dump %s %s: %w", level, row.String(schema.ColPrimaryKey), err)
			}
			if _, err := protodelim.MarshalTo(w, msg); err != nil {
				return n, fmt.Errorf("write record: %w", err)
			}
			n++
		}
	}
	return n, nil
}

func recordMessage(d *dict.Dictionary, level model.Level, row store.Row) (*structpb.Struct, error) {
	fields := make(map[string]any, len(row))
	for column, v := range row {
		fields[column] = dumpValue(d, column, v)
	}
	rowStruct, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"level": structpb.NewStringValue(string(level)),
		"row":   structpb.NewStructValue(rowStruct),
	}}, nil
}

func dumpValue(d *dict.Dictionary, column string, v any) any {
	if v == nil {
		return nil
	}
	if a, ok := d.ByColumn(column); ok && a.Storage() != dict.StorageNone {
		return store.FormatValue(a, v)
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

// ReadDump reads every record written by Dump.
func ReadDump(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	opts := protodelim.UnmarshalOptions{MaxSize: MaxRecordSize}

	records := []Record{}
	for {
		msg := &structpb.Struct{}
		if err := opts.UnmarshalFrom(br, msg); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return nil, fmt.Errorf("read record %d: %w", len(records)+1, err)
		}
		rec, err := decodeRecord(msg)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
}

func decodeRecord(msg *structpb.Struct) (Record, error) {
	level := msg.GetFields()["level"].GetStringValue()
	if level == "" {
		return Record{}, errors.New("missing level")
	}
	rowStruct := msg.GetFields()["row"].GetStructValue()
	if rowStruct == nil {
		return Record{}, errors.New("missing row")
	}

	row := make(store.Row, len(rowStruct.GetFields()))
	for column, v := range rowStruct.AsMap() {
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			v = int64(f)
		}
		row[column] = v
	}
	return Record{Level: model.Level(level), Row: row}, nil
}
