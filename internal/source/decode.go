package source

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/valyala/fastjson"

	"github.com/coffersTech/topicview/internal/model"
)

var parserPool fastjson.ParserPool

// DecodeFetchResult decodes a fetch payload. It accepts the envelope form
// {"error":..., "hasTimeout":..., "messages":[...]} as well as anything
// DecodeRecords accepts.
func DecodeFetchResult(data []byte) (model.FetchResult, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		// not a single JSON document, try JSON lines
		recs, lerr := decodeLines(data)
		if lerr != nil {
			return model.FetchResult{}, fmt.Errorf("decoding fetch result: %w", err)
		}
		return model.FetchResult{Messages: recs}, nil
	}

	if v.Type() == fastjson.TypeObject && (v.Exists("messages") || v.Exists("error")) {
		res := model.FetchResult{
			Error:      string(v.GetStringBytes("error")),
			HasTimeout: v.GetBool("hasTimeout"),
		}
		for i, m := range v.GetArray("messages") {
			rec, err := decodeRecord(m)
			if err != nil {
				return model.FetchResult{}, fmt.Errorf("message %d: %w", i, err)
			}
			res.Messages = append(res.Messages, rec)
		}
		return res, nil
	}

	recs, err := decodeValue(v)
	if err != nil {
		return model.FetchResult{}, err
	}
	return model.FetchResult{Messages: recs}, nil
}

// DecodeRecords decodes a JSON array of records, a single record or JSON
// lines with one record per line.
func DecodeRecords(data []byte) ([]model.RawRecord, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return decodeLines(data)
	}
	return decodeValue(v)
}

func decodeValue(v *fastjson.Value) ([]model.RawRecord, error) {
	// Handle batch (Array) or single (Object)
	if v.Type() == fastjson.TypeArray {
		arr, _ := v.Array()
		recs := make([]model.RawRecord, 0, len(arr))
		for i, val := range arr {
			rec, err := decodeRecord(val)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			recs = append(recs, rec)
		}
		return recs, nil
	}
	rec, err := decodeRecord(v)
	if err != nil {
		return nil, err
	}
	return []model.RawRecord{rec}, nil
}

func decodeLines(data []byte) ([]model.RawRecord, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	var recs []model.RawRecord
	for n, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		v, err := p.ParseBytes(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		rec, err := decodeRecord(v)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

var errNotObject = errors.New("record is not a JSON object")

// decodeRecord reads either the flat record shape or the broker shape, where
// timestamp and offset sit under "message" and the payload is "value".
func decodeRecord(v *fastjson.Value) (model.RawRecord, error) {
	if v.Type() != fastjson.TypeObject {
		return model.RawRecord{}, errNotObject
	}

	meta := v
	if m := v.Get("message"); m != nil && m.Type() == fastjson.TypeObject {
		meta = m
	}

	rec := model.RawRecord{
		Offset: textField(meta.Get("offset")),
		Key:    textField(v.Get("key")),
		Topic:  textField(v.Get("topic")),
	}

	// A malformed timestamp or partition spoils only this record's field.
	ts, err := int64Field(meta.Get("timestamp"))
	if err != nil {
		slog.Warn("record timestamp is not numeric", "error", err, "topic", rec.Topic, "offset", rec.Offset)
		ts = model.InvalidTimestamp
	}
	rec.TimestampMillis = ts

	partition, err := int64Field(v.Get("partition"))
	if err == nil && (partition < 0 || partition > math.MaxInt32) {
		err = fmt.Errorf("%d out of range", partition)
	}
	if err != nil {
		slog.Warn("record partition is not valid", "error", err, "topic", rec.Topic, "offset", rec.Offset)
		rec.Partition = model.InvalidPartition
	} else {
		rec.Partition = int32(partition)
	}

	payload := v.Get("value")
	if payload == nil {
		payload = v.Get("payload")
	}
	rec.Payload = textField(payload)

	if st := v.Get("schemaType"); st != nil && st.Type() == fastjson.TypeObject {
		rec.SchemaType = &model.SchemaType{Name: string(st.GetStringBytes("name"))}
	}
	return rec, nil
}

// textField returns strings unquoted and any other JSON value in its encoded
// form. Missing and null fields are empty.
func textField(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	switch v.Type() {
	case fastjson.TypeNull:
		return ""
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	default:
		return string(v.MarshalTo(nil))
	}
}

// int64Field accepts a JSON number or a numeric string. Missing means zero.
func int64Field(v *fastjson.Value) (int64, error) {
	if v == nil {
		return 0, nil
	}
	switch v.Type() {
	case fastjson.TypeNull:
		return 0, nil
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return floatToInt64(f)
	case fastjson.TypeString:
		s := string(v.GetStringBytes())
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		return floatToInt64(f)
	default:
		return 0, fmt.Errorf("unexpected %s", v.Type())
	}
}

func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%g out of range", f)
	}
	return int64(f), nil
}
