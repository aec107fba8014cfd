package engine

import (
	"context"

	"github.com/thisisjab/rulezilla/entity"
)

// RecordSource is an interface that defines the contract for record sources (providers).
type RecordSource interface {
	Name() string
	Provide(ctx context.Context, records chan<- entity.RawRecord) error
	ProcessorNames() []string
}

// RecordProcessor decodes a raw record into fields, given the fields decoded by previous processors.
type RecordProcessor interface {
	Process(raw entity.RawRecord, fields map[string]any) (map[string]any, error)
}
