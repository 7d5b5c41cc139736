package schemafile

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/blockfield/internal/domain"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

// fileDTO is the on-disk layout of a schema file.
type fileDTO struct {
	Blocks []blockDTO `yaml:"blocks"`
}

type blockDTO struct {
	Name       string         `yaml:"name"`
	Attributes []attributeDTO `yaml:"attributes"`
}

type attributeDTO struct {
	Key       string `yaml:"key"`
	Type      string `yaml:"type"`
	Default   any    `yaml:"default"`
	Persisted *bool  `yaml:"persisted"` // default true
}

func (b blockDTO) toDomain() (schema.Block, error) {
	attrs := make([]schema.Attribute, 0, len(b.Attributes))
	for _, a := range b.Attributes {
		attr, err := a.toDomain()
		if err != nil {
			return schema.Block{}, fmt.Errorf("block %q: %w", b.Name, err)
		}
		attrs = append(attrs, attr)
	}
	return schema.NewBlock(b.Name, attrs...)
}

func (a attributeDTO) toDomain() (schema.Attribute, error) {
	kind, err := value.ParseKind(a.Type)
	if err != nil {
		return schema.Attribute{}, fmt.Errorf("attribute %q: %w: %w", a.Key, domain.ErrInvalidSchema, err)
	}

	def, err := defaultValue(a.Default)
	if err != nil {
		return schema.Attribute{}, fmt.Errorf("attribute %q: default: %w: %w", a.Key, domain.ErrInvalidSchema, err)
	}
	if !def.IsNull() {
		coerced, ok := value.Coerce(def, kind)
		if !ok {
			return schema.Attribute{}, fmt.Errorf("attribute %q: default %s is not a %s: %w",
				a.Key, def, kind, domain.ErrInvalidSchema)
		}
		def = coerced
	}

	persisted := true
	if a.Persisted != nil {
		persisted = *a.Persisted
	}
	return schema.NewAttribute(a.Key, kind, def, persisted)
}

// defaultValue converts a decoded YAML default. Scalars YAML resolves to
// types with no attribute counterpart (timestamps, integers beyond int64,
// non-string map keys) are rejected instead of becoming null.
func defaultValue(x any) (value.Value, error) {
	switch t := x.(type) {
	case nil:
		return value.NullValue(), nil
	case string:
		return value.StringOf(t), nil
	case bool:
		return value.BoolOf(t), nil
	case int:
		return value.NumberOf(float64(t)), nil
	case int64:
		return value.NumberOf(float64(t)), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return value.Value{}, fmt.Errorf("number %v is not finite", t)
		}
		return value.NumberOf(t), nil
	case []any:
		items := make([]value.Value, len(t))
		for i, e := range t {
			v, err := defaultValue(e)
			if err != nil {
				return value.Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return value.ListOf(items...), nil
	case map[string]any:
		fields := make(map[string]value.Value, len(t))
		for k, e := range t {
			v, err := defaultValue(e)
			if err != nil {
				return value.Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = v
		}
		return value.ObjectOf(fields), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported value %v (%T)", t, t)
	}
}
