// Package schema implements payload validation descriptors.
//
// A Descriptor is an abstract validation capability: any engine that can
// check a payload and report missing/invalid fields, and that can emit its
// raw descriptor for discovery endpoints, satisfies it. The concrete
// implementation in this package compiles a JSON field table into
// ozzo-validation rules.
package schema

// Result is the outcome of validating a payload against a descriptor.
// Missing holds required fields absent from the payload; Invalid maps
// present-but-violating fields to a human-readable reason. Normalized is
// the accepted payload, with coerced values when coercion is enabled.
type Result struct {
	Missing    []string
	Invalid    map[string]string
	Normalized map[string]interface{}
}

// OK reports whether the payload was accepted.
func (r *Result) OK() bool {
	return len(r.Missing) == 0 && len(r.Invalid) == 0
}

// Valid returns a trivially successful Result carrying the payload as-is.
// Used when an action declares no validation descriptor.
func Valid(payload map[string]interface{}) *Result {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Result{
		Invalid:    map[string]string{},
		Normalized: payload,
	}
}

// Descriptor validates payloads and exposes its raw JSON form.
// Validate must be pure: it inspects only the descriptor and the payload.
type Descriptor interface {
	Validate(payload map[string]interface{}) *Result
	JSONDescriptor() map[string]interface{}
}
