package engine

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/coffersTech/topicview/internal/model"
	"github.com/coffersTech/topicview/internal/pkg/payload"
)

// System field names. They are the row keys of the fixed columns and are
// listed in the order they appear in every row.
const (
	FieldTimestamp = "timestamp"
	FieldOffset    = "offset"
	FieldValue     = "value"
	FieldType      = "type"
	FieldKey       = "key"
	FieldTopic     = "topic"
	FieldPartition = "partition"
)

// InvalidOffset is stored when a record's offset is not a base-10 integer.
// Broker offsets are never negative, so it cannot collide with a real one.
const InvalidOffset int64 = -1

var systemFields = [...]string{
	FieldTimestamp,
	FieldOffset,
	FieldValue,
	FieldType,
	FieldKey,
	FieldTopic,
	FieldPartition,
}

// IsSystemField reports whether name is one of the fixed row fields.
func IsSystemField(name string) bool {
	for _, f := range systemFields {
		if f == name {
			return true
		}
	}
	return false
}

// Fixed holds the record metadata every row carries regardless of payload.
type Fixed struct {
	Timestamp int64
	Offset    int64
	Value     string // payload exactly as delivered
	Type      string
	Key       string
	Topic     string
	Partition int32
}

// object lays the fixed fields out in system order with value standing in for
// the value field.
func (f Fixed) object(value payload.Value) *payload.Object {
	o := payload.NewObject()
	o.Set(FieldTimestamp, payload.Int(f.Timestamp))
	o.Set(FieldOffset, payload.Int(f.Offset))
	o.Set(FieldValue, value)
	o.Set(FieldType, payload.String(f.Type))
	o.Set(FieldKey, payload.String(f.Key))
	o.Set(FieldTopic, payload.String(f.Topic))
	o.Set(FieldPartition, payload.Int(int64(f.Partition)))
	return o
}

// RawProjection is the export and full-text view of a row: the fixed fields
// under their display names plus the decoded payload (or the raw string when
// decoding failed). It never feeds column discovery.
type RawProjection struct {
	Timestamp int64         `json:"Timestamp"`
	Offset    int64         `json:"Offset"`
	Value     payload.Value `json:"Value"`
	Type      string        `json:"Type"`
	Key       string        `json:"Key"`
	Topic     string        `json:"Topic"`
	Partition int32         `json:"Partition"`
}

// Row is the display form of one record. Fixed keeps the typed metadata; the
// effective field set is the merge of the fixed fields with the payload's
// top-level keys and is what columns, filters and visibility read.
type Row struct {
	Fixed Fixed
	Raw   RawProjection

	fields    *payload.Object
	dynamic   []string
	overrides []string
	parseErr  error
}

// Get resolves a column field (possibly a dotted path) against the effective
// fields.
func (r *Row) Get(field string) (payload.Value, bool) {
	return r.fields.Lookup(field)
}

// Lookup is Get under the name the filter evaluator expects.
func (r *Row) Lookup(path string) (payload.Value, bool) {
	return r.Get(path)
}

// Range walks the effective top-level fields in order.
func (r *Row) Range(fn func(name string, v payload.Value) bool) {
	r.fields.Range(fn)
}

// Value returns the effective value field.
func (r *Row) Value() payload.Value {
	v, _ := r.fields.Get(FieldValue)
	return v
}

// DynamicKeys lists the payload keys merged onto the row.
func (r *Row) DynamicKeys() []string {
	return append([]string(nil), r.dynamic...)
}

// Overrides lists the system fields a payload key replaced.
func (r *Row) Overrides() []string {
	return append([]string(nil), r.overrides...)
}

// ParseError is the payload decoding error, if any. It is kept for batch
// statistics and is never shown to the user.
func (r *Row) ParseError() error {
	return r.parseErr
}

// MarshalJSON encodes the effective fields.
func (r *Row) MarshalJSON() ([]byte, error) {
	return r.fields.MarshalJSON()
}

// MergeFields overlays dynamic onto fixed and returns the effective field
// set. Payload keys win: a dynamic key equal to a fixed key replaces the fixed
// value in place and is reported in overridden. Neither input is modified.
func MergeFields(fixed, dynamic *payload.Object) (merged *payload.Object, overridden []string) {
	merged = fixed.Clone()
	dynamic.Range(func(k string, v payload.Value) bool {
		if _, ok := fixed.Get(k); ok {
			overridden = append(overridden, k)
		}
		merged.Set(k, v)
		return true
	})
	return merged, overridden
}

// Projector turns raw records into rows.
type Projector struct {
	logger *slog.Logger
}

// NewProjector returns a projector that reports undecodable payloads and
// offsets to logger (slog.Default when nil).
func NewProjector(logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{logger: logger}
}

// Project builds the row for rec and returns the decoded payload alongside
// it so callers can aggregate the schema without decoding twice. When the
// payload is not JSON the returned value is the raw string and the row gets no
// dynamic fields.
func (p *Projector) Project(rec model.RawRecord) (*Row, payload.Value) {
	fixed := Fixed{
		Timestamp: rec.TimestampMillis,
		Offset:    p.parseOffset(rec),
		Value:     rec.Payload,
		Key:       rec.Key,
		Topic:     rec.Topic,
		Partition: rec.Partition,
	}
	if rec.SchemaType != nil {
		fixed.Type = rec.SchemaType.Name
	}

	row := &Row{Fixed: fixed}

	var value payload.Value
	parsed, err := payload.Parse(rec.Payload)
	if err != nil {
		p.logger.Warn("row value is not json encoded",
			"error", err,
			"value", rec.Payload,
			"topic", rec.Topic,
			"partition", rec.Partition,
			"offset", rec.Offset,
		)
		row.parseErr = err
		value = payload.String(rec.Payload)
	} else {
		value = parsed
	}

	row.Raw = RawProjection{
		Timestamp: fixed.Timestamp,
		Offset:    fixed.Offset,
		Value:     value,
		Type:      fixed.Type,
		Key:       fixed.Key,
		Topic:     fixed.Topic,
		Partition: fixed.Partition,
	}

	base := fixed.object(value)
	if obj, ok := value.(*payload.Object); ok {
		row.fields, row.overrides = MergeFields(base, obj)
		row.dynamic = obj.Keys()
	} else {
		row.fields = base
	}
	return row, value
}

func (p *Projector) parseOffset(rec model.RawRecord) int64 {
	off, err := strconv.ParseInt(strings.TrimSpace(rec.Offset), 10, 64)
	if err != nil {
		p.logger.Warn("record offset is not numeric",
			"offset", rec.Offset,
			"topic", rec.Topic,
			"partition", rec.Partition,
		)
		return InvalidOffset
	}
	return off
}
