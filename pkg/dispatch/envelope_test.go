package dispatch

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/restrpc/gateway/pkg/registry"
)

// roundtrip marshals an envelope and decodes it back into a generic map,
// checking what a client actually sees on the wire.
func roundtrip(t *testing.T, env *Envelope) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestEnvelope_Success(t *testing.T) {
	m := roundtrip(t, Success(map[string]interface{}{"id": "1"}))
	if m["status"] != true {
		t.Errorf("status = %v", m["status"])
	}
	if m["data"].(map[string]interface{})["id"] != "1" {
		t.Errorf("data = %v", m["data"])
	}

	m = roundtrip(t, SuccessMessage("created", nil))
	if m["status"] != true || m["message"] != "created" {
		t.Errorf("envelope = %v", m)
	}
	if data, present := m["data"]; !present || data != nil {
		t.Errorf("data = %v, want explicit null", data)
	}
}

func TestEnvelope_NotFoundShapes(t *testing.T) {
	err := registry.NewError(registry.ErrCodeServiceNotFound, "Service 'billing' not found")
	m := roundtrip(t, FromRegistryError(err))
	if m["status"] != false || m["message"] != "Service 'billing' not found" {
		t.Errorf("envelope = %v", m)
	}
	data := m["data"].(map[string]interface{})
	if data["code"] != "SERVICE_NOT_FOUND" {
		t.Errorf("data = %v", data)
	}
	if _, present := data["availableActions"]; present {
		t.Errorf("service-not-found must not list actions, got %v", data)
	}

	err = registry.NewError(registry.ErrCodeActionNotFound, "Action 'destroy' not found in service 'todos'")
	err.Details = []string{"create", "list"}
	m = roundtrip(t, FromRegistryError(err))
	if m["message"] != "Action 'destroy' not found in service 'todos'" {
		t.Errorf("message = %v", m["message"])
	}
	data = m["data"].(map[string]interface{})
	if data["code"] != "ACTION_NOT_FOUND" {
		t.Errorf("code = %v", data["code"])
	}
	if !reflect.DeepEqual(data["availableActions"], []interface{}{"create", "list"}) {
		t.Errorf("availableActions = %v", data["availableActions"])
	}

	// A nil action list still serializes as [], never null.
	err = registry.NewError(registry.ErrCodeActionNotFound, "Action 'x' not found in service 'empty'")
	err.Details = []string(nil)
	m = roundtrip(t, FromRegistryError(err))
	data = m["data"].(map[string]interface{})
	if !reflect.DeepEqual(data["availableActions"], []interface{}{}) {
		t.Errorf("availableActions = %v, want []", data["availableActions"])
	}

	err = registry.NewError(registry.ErrCodeVersionNotFound, "API version 'v9' not found")
	m = roundtrip(t, FromRegistryError(err))
	if m["data"].(map[string]interface{})["code"] != "VERSION_NOT_FOUND" {
		t.Errorf("data = %v", m["data"])
	}
}

func TestEnvelope_Unauthorized(t *testing.T) {
	m := roundtrip(t, Unauthorized("missing or invalid credential"))
	if m["status"] != false || m["message"] != "Unauthorized" {
		t.Errorf("envelope = %v", m)
	}
	data := m["data"].(map[string]interface{})
	if data["code"] != "UNAUTHORIZED" || data["reason"] != "missing or invalid credential" {
		t.Errorf("data = %v", data)
	}
}

func TestEnvelope_InvalidPayload(t *testing.T) {
	m := roundtrip(t, InvalidPayload([]string{"user_id"}, map[string]string{"title": "must be a string"}))
	if m["message"] != "invalid request format" {
		t.Errorf("message = %v", m["message"])
	}
	data := m["data"].(map[string]interface{})
	if !reflect.DeepEqual(data["missing"], []interface{}{"user_id"}) {
		t.Errorf("missing = %v", data["missing"])
	}
	invalid := data["invalid"].(map[string]interface{})
	if invalid["title"] != "must be a string" {
		t.Errorf("invalid = %v", invalid)
	}

	// Nil inputs serialize as empty collections, never null.
	m = roundtrip(t, InvalidPayload(nil, nil))
	data = m["data"].(map[string]interface{})
	if !reflect.DeepEqual(data["missing"], []interface{}{}) {
		t.Errorf("missing = %v, want []", data["missing"])
	}
	if !reflect.DeepEqual(data["invalid"], map[string]interface{}{}) {
		t.Errorf("invalid = %v, want {}", data["invalid"])
	}
}

func TestEnvelope_Internal(t *testing.T) {
	m := roundtrip(t, Internal("req-9"))
	if m["message"] != "Internal server error" {
		t.Errorf("message = %v", m["message"])
	}
	data := m["data"].(map[string]interface{})
	if data["code"] != "INTERNAL_ERROR" || data["requestId"] != "req-9" {
		t.Errorf("data = %v", data)
	}
}
