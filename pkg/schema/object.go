package schema

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Field types accepted in a descriptor. "any" (or an empty type) skips the
// type check and passes the value through.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeUUID    = "uuid"
	TypeEmail   = "email"
	TypeURL     = "url"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeAny     = "any"
)

// Options configures descriptor compilation.
type Options struct {
	// Coerce enables string-to-typed coercion for number, integer and
	// boolean fields ("42" -> 42, "true" -> true). Off by default.
	Coerce bool
}

// fieldSpec is one compiled field entry.
type fieldSpec struct {
	Type      string
	Required  bool
	MinLength int
	MaxLength int
	Min       *float64
	Max       *float64
	Enum      []interface{}
	Pattern   *regexp.Regexp
}

// ObjectDescriptor validates flat JSON objects against a field table.
// The raw descriptor is kept verbatim for the discovery endpoints.
type ObjectDescriptor struct {
	raw    map[string]interface{}
	fields map[string]*fieldSpec
	order  []string
	coerce bool
}

// ParseObject compiles a raw JSON descriptor of the form
//
//	{"fields": {"title": {"type": "string", "required": true}, ...}}
//
// into an ObjectDescriptor. Field entries may carry minLength, maxLength,
// min, max, enum and pattern constraints.
func ParseObject(raw map[string]interface{}, opts Options) (*ObjectDescriptor, error) {
	fieldsRaw, ok := raw["fields"]
	if !ok {
		return nil, fmt.Errorf("schema: descriptor has no \"fields\" entry")
	}
	fieldMap, ok := fieldsRaw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("schema: \"fields\" must be an object")
	}

	d := &ObjectDescriptor{
		raw:    raw,
		fields: make(map[string]*fieldSpec, len(fieldMap)),
		coerce: opts.Coerce,
	}
	for name, entry := range fieldMap {
		entryMap, ok := entry.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("schema: field %q must be an object", name)
		}
		spec, err := parseFieldSpec(name, entryMap)
		if err != nil {
			return nil, err
		}
		d.fields[name] = spec
		d.order = append(d.order, name)
	}
	// JSON object keys carry no order; sort for deterministic reporting.
	sort.Strings(d.order)
	return d, nil
}

func parseFieldSpec(name string, entry map[string]interface{}) (*fieldSpec, error) {
	spec := &fieldSpec{Type: TypeAny}
	if t, ok := entry["type"].(string); ok && t != "" {
		switch t {
		case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeUUID,
			TypeEmail, TypeURL, TypeArray, TypeObject, TypeAny:
			spec.Type = t
		default:
			return nil, fmt.Errorf("schema: field %q has unknown type %q", name, t)
		}
	}
	if req, ok := entry["required"].(bool); ok {
		spec.Required = req
	}
	if v, ok := entry["minLength"].(float64); ok {
		spec.MinLength = int(v)
	}
	if v, ok := entry["maxLength"].(float64); ok {
		spec.MaxLength = int(v)
	}
	if v, ok := entry["min"].(float64); ok {
		m := v
		spec.Min = &m
	}
	if v, ok := entry["max"].(float64); ok {
		m := v
		spec.Max = &m
	}
	if v, ok := entry["enum"].([]interface{}); ok {
		spec.Enum = v
	}
	if p, ok := entry["pattern"].(string); ok && p != "" {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("schema: field %q has invalid pattern: %w", name, err)
		}
		spec.Pattern = re
	}
	return spec, nil
}

// JSONDescriptor returns the raw descriptor exactly as it was parsed.
func (d *ObjectDescriptor) JSONDescriptor() map[string]interface{} {
	return d.raw
}

// Validate checks payload against the field table. Unknown payload fields
// pass through to the normalized payload untouched.
func (d *ObjectDescriptor) Validate(payload map[string]interface{}) *Result {
	res := &Result{
		Invalid:    map[string]string{},
		Normalized: make(map[string]interface{}, len(payload)),
	}
	for k, v := range payload {
		if _, known := d.fields[k]; !known {
			res.Normalized[k] = v
		}
	}
	for _, name := range d.order {
		spec := d.fields[name]
		value, present := payload[name]
		if !present || value == nil {
			if spec.Required {
				res.Missing = append(res.Missing, name)
			}
			continue
		}
		normalized, reason := d.checkField(spec, value)
		if reason != "" {
			res.Invalid[name] = reason
			continue
		}
		res.Normalized[name] = normalized
	}
	return res
}

// checkField returns the (possibly coerced) value and an empty reason on
// success, or the violation reason.
func (d *ObjectDescriptor) checkField(spec *fieldSpec, value interface{}) (interface{}, string) {
	switch spec.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, "must be a string"
		}
		return s, d.applyRules(s, spec.stringRules())
	case TypeUUID:
		s, ok := value.(string)
		if !ok {
			return nil, "must be a string"
		}
		return s, d.applyRules(s, []validation.Rule{is.UUID})
	case TypeEmail:
		s, ok := value.(string)
		if !ok {
			return nil, "must be a string"
		}
		return s, d.applyRules(s, []validation.Rule{is.EmailFormat})
	case TypeURL:
		s, ok := value.(string)
		if !ok {
			return nil, "must be a string"
		}
		return s, d.applyRules(s, []validation.Rule{is.URL})
	case TypeNumber:
		f, ok := d.toNumber(value)
		if !ok {
			return nil, "must be a number"
		}
		return f, d.applyRules(f, spec.numberRules())
	case TypeInteger:
		f, ok := d.toNumber(value)
		if !ok || f != math.Trunc(f) {
			return nil, "must be an integer"
		}
		return f, d.applyRules(f, spec.numberRules())
	case TypeBoolean:
		b, ok := d.toBool(value)
		if !ok {
			return nil, "must be a boolean"
		}
		return b, ""
	case TypeArray:
		if _, ok := value.([]interface{}); !ok {
			return nil, "must be an array"
		}
		return value, ""
	case TypeObject:
		if _, ok := value.(map[string]interface{}); !ok {
			return nil, "must be an object"
		}
		return value, ""
	default:
		return value, ""
	}
}

func (d *ObjectDescriptor) applyRules(value interface{}, rules []validation.Rule) string {
	if len(rules) == 0 {
		return ""
	}
	if err := validation.Validate(value, rules...); err != nil {
		return err.Error()
	}
	return ""
}

func (s *fieldSpec) stringRules() []validation.Rule {
	var rules []validation.Rule
	if s.MinLength > 0 || s.MaxLength > 0 {
		rules = append(rules, validation.Length(s.MinLength, s.MaxLength))
	}
	if len(s.Enum) > 0 {
		rules = append(rules, validation.In(s.Enum...))
	}
	if s.Pattern != nil {
		rules = append(rules, validation.Match(s.Pattern))
	}
	return rules
}

func (s *fieldSpec) numberRules() []validation.Rule {
	var rules []validation.Rule
	if s.Min != nil {
		rules = append(rules, validation.Min(*s.Min))
	}
	if s.Max != nil {
		rules = append(rules, validation.Max(*s.Max))
	}
	if len(s.Enum) > 0 {
		rules = append(rules, validation.In(s.Enum...))
	}
	return rules
}

func (d *ObjectDescriptor) toNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		if d.coerce {
			f, err := strconv.ParseFloat(v, 64)
			if err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func (d *ObjectDescriptor) toBool(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		if d.coerce {
			b, err := strconv.ParseBool(v)
			if err == nil {
				return b, true
			}
		}
	}
	return false, false
}
