package schema

import (
	"encoding/json"
	"reflect"
	"testing"
)

func mustParse(t *testing.T, raw string, opts Options) *ObjectDescriptor {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	d, err := ParseObject(m, opts)
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}
	return d
}

const todoCreateSchema = `{
	"fields": {
		"title":   {"type": "string", "required": true, "minLength": 1, "maxLength": 200},
		"user_id": {"type": "uuid", "required": true}
	}
}`

func TestValidate_MissingRequiredFields(t *testing.T) {
	d := mustParse(t, todoCreateSchema, Options{})

	res := d.Validate(map[string]interface{}{"title": "x"})
	if res.OK() {
		t.Fatal("expected validation failure")
	}
	if !reflect.DeepEqual(res.Missing, []string{"user_id"}) {
		t.Errorf("Missing = %v, want [user_id]", res.Missing)
	}
	if len(res.Invalid) != 0 {
		t.Errorf("Invalid = %v, want empty", res.Invalid)
	}
}

func TestValidate_AllRequiredMissing(t *testing.T) {
	d := mustParse(t, todoCreateSchema, Options{})

	res := d.Validate(map[string]interface{}{})
	if !reflect.DeepEqual(res.Missing, []string{"title", "user_id"}) {
		t.Errorf("Missing = %v, want [title user_id]", res.Missing)
	}
}

func TestValidate_InvalidTypeAndFormat(t *testing.T) {
	d := mustParse(t, todoCreateSchema, Options{})

	res := d.Validate(map[string]interface{}{
		"title":   42.0,
		"user_id": "not-a-uuid",
	})
	if res.OK() {
		t.Fatal("expected validation failure")
	}
	if len(res.Missing) != 0 {
		t.Errorf("Missing = %v, want empty", res.Missing)
	}
	if res.Invalid["title"] != "must be a string" {
		t.Errorf("title reason = %q", res.Invalid["title"])
	}
	if res.Invalid["user_id"] == "" {
		t.Error("expected reason for user_id")
	}
}

func TestValidate_AcceptsAndNormalizes(t *testing.T) {
	d := mustParse(t, todoCreateSchema, Options{})

	res := d.Validate(map[string]interface{}{
		"title":   "write spec",
		"user_id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"extra":   "passes through",
	})
	if !res.OK() {
		t.Fatalf("expected success, missing=%v invalid=%v", res.Missing, res.Invalid)
	}
	if res.Normalized["title"] != "write spec" {
		t.Errorf("title = %v", res.Normalized["title"])
	}
	if res.Normalized["extra"] != "passes through" {
		t.Error("unknown fields must pass through")
	}
}

func TestValidate_NumberBoundsAndEnum(t *testing.T) {
	d := mustParse(t, `{
		"fields": {
			"count":  {"type": "integer", "min": 0, "max": 10},
			"status": {"type": "string", "enum": ["open", "done"]}
		}
	}`, Options{})

	res := d.Validate(map[string]interface{}{"count": 3.0, "status": "open"})
	if !res.OK() {
		t.Fatalf("expected success, got invalid=%v", res.Invalid)
	}

	res = d.Validate(map[string]interface{}{"count": 42.0, "status": "stale"})
	if res.Invalid["count"] == "" {
		t.Error("expected out-of-range reason for count")
	}
	if res.Invalid["status"] == "" {
		t.Error("expected enum reason for status")
	}

	res = d.Validate(map[string]interface{}{"count": 1.5})
	if res.Invalid["count"] != "must be an integer" {
		t.Errorf("count reason = %q", res.Invalid["count"])
	}
}

func TestValidate_CoercionDisabledByDefault(t *testing.T) {
	d := mustParse(t, `{"fields": {"count": {"type": "number"}, "done": {"type": "boolean"}}}`, Options{})

	res := d.Validate(map[string]interface{}{"count": "42", "done": "true"})
	if res.Invalid["count"] != "must be a number" {
		t.Errorf("count reason = %q", res.Invalid["count"])
	}
	if res.Invalid["done"] != "must be a boolean" {
		t.Errorf("done reason = %q", res.Invalid["done"])
	}
}

func TestValidate_CoercionEnabled(t *testing.T) {
	d := mustParse(t, `{"fields": {"count": {"type": "number"}, "done": {"type": "boolean"}}}`, Options{Coerce: true})

	res := d.Validate(map[string]interface{}{"count": "42", "done": "true"})
	if !res.OK() {
		t.Fatalf("expected success, got invalid=%v", res.Invalid)
	}
	if res.Normalized["count"] != 42.0 {
		t.Errorf("count = %v, want coerced 42", res.Normalized["count"])
	}
	if res.Normalized["done"] != true {
		t.Errorf("done = %v, want coerced true", res.Normalized["done"])
	}
}

func TestJSONDescriptor_Verbatim(t *testing.T) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(todoCreateSchema), &m); err != nil {
		t.Fatal(err)
	}
	d, err := ParseObject(m, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d.JSONDescriptor(), m) {
		t.Error("JSONDescriptor must return the raw descriptor verbatim")
	}
}

func TestParseObject_Rejects(t *testing.T) {
	cases := []string{
		`{}`,
		`{"fields": "nope"}`,
		`{"fields": {"a": {"type": "tuple"}}}`,
		`{"fields": {"a": {"type": "string", "pattern": "("}}}`,
	}
	for _, raw := range cases {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			t.Fatal(err)
		}
		if _, err := ParseObject(m, Options{}); err == nil {
			t.Errorf("ParseObject(%s) should fail", raw)
		}
	}
}
