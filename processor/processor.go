// Package processor decodes raw records into attribute maps.
package processor

import "github.com/thisisjab/rulezilla/entity"

// RecordProcessor turns a raw record into fields. Processors are chained: each
// one receives the fields produced so far and returns the fields to pass on.
// Implementations must be safe for concurrent use.
type RecordProcessor interface {
	Name() string
	Process(raw entity.RawRecord, fields map[string]any) (map[string]any, error)
}

var (
	_ RecordProcessor = (*JSONRecordProcessor)(nil)
	_ RecordProcessor = (*LuaRecordProcessor)(nil)
)
