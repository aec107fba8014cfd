package processor

import (
	"errors"
	"fmt"

	"github.com/thisisjab/rulezilla/entity"
	"github.com/valyala/fastjson"
)

type JSONRecordProcessorConfig struct {
	Name string `yaml:"-"`
	// Flatten turns nested objects into dotted keys: {"user": {"age": 3}} becomes "user.age".
	Flatten bool `yaml:"flatten"`
	// Separator joins flattened keys. Defaults to ".".
	Separator string `yaml:"separator"`
	// Fields, when set, keeps only the listed top level (or flattened) keys.
	Fields []string `yaml:"fields"`
}

// JSONRecordProcessor decodes a JSON object per record. Numbers become
// float64, so they compare against numeric rule literals.
type JSONRecordProcessor struct {
	cfg    JSONRecordProcessorConfig
	keep   map[string]struct{}
	parser fastjson.ParserPool
}

// NewJSONRecordProcessor creates a new instance of JSONRecordProcessor.
func NewJSONRecordProcessor(cfg JSONRecordProcessorConfig) (*JSONRecordProcessor, error) {
	if cfg.Separator == "" {
		cfg.Separator = "."
	}

	var keep map[string]struct{}
	if len(cfg.Fields) > 0 {
		keep = make(map[string]struct{}, len(cfg.Fields))
		for _, f := range cfg.Fields {
			keep[f] = struct{}{}
		}
	}

	return &JSONRecordProcessor{cfg: cfg, keep: keep}, nil
}

func (p *JSONRecordProcessor) Name() string {
	return p.cfg.Name
}

// Process parses the raw data and merges the object's fields over fields.
func (p *JSONRecordProcessor) Process(raw entity.RawRecord, fields map[string]any) (map[string]any, error) {
	parser := p.parser.Get()
	defer p.parser.Put(parser)

	v, err := parser.ParseBytes(raw.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	obj, err := v.Object()
	if err != nil {
		return nil, errors.New("record is not a json object")
	}

	out := make(map[string]any, obj.Len()+len(fields))
	for k, val := range fields {
		out[k] = val
	}

	p.collect(out, "", obj)

	return out, nil
}

func (p *JSONRecordProcessor) collect(out map[string]any, prefix string, obj *fastjson.Object) {
	obj.Visit(func(key []byte, v *fastjson.Value) {
		name := string(key)
		if prefix != "" {
			name = prefix + p.cfg.Separator + name
		}

		if p.cfg.Flatten && v.Type() == fastjson.TypeObject {
			nested, _ := v.Object()
			p.collect(out, name, nested)
			return
		}

		if p.keep != nil {
			if _, ok := p.keep[name]; !ok {
				return
			}
		}

		out[name] = convertJSONValue(v)
	})
}

// convertJSONValue copies v out of the parser's memory, which is reused once
// the parser goes back to the pool.
func convertJSONValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeNumber:
		return v.GetFloat64()
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeArray:
		arr, _ := v.Array()
		items := make([]any, len(arr))
		for i, item := range arr {
			items[i] = convertJSONValue(item)
		}
		return items
	case fastjson.TypeObject:
		obj, _ := v.Object()
		m := make(map[string]any, obj.Len())
		obj.Visit(func(key []byte, item *fastjson.Value) {
			m[string(key)] = convertJSONValue(item)
		})
		return m
	default:
		return nil
	}
}
