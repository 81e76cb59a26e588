// Package api exposes the gateway's HTTP surface: four read-only discovery
// endpoints and the single action dispatch endpoint per service, all under
// /{base}/{apiVersion}/services.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/restrpc/gateway/pkg/auth"
	"github.com/restrpc/gateway/pkg/dispatch"
	"github.com/restrpc/gateway/pkg/discovery"
	"github.com/restrpc/gateway/pkg/events"
	"github.com/restrpc/gateway/pkg/registry"
	"github.com/restrpc/gateway/pkg/store"
)

const logPrefix = "api:router"

// maxMultipartMemory bounds in-memory buffering of multipart uploads.
const maxMultipartMemory = 32 << 20

// Options wires the router's collaborators. Store and Publisher are
// optional; nil disables idempotent replay and dispatch events.
type Options struct {
	BaseURL    string
	Dispatcher *dispatch.Dispatcher
	Responder  *discovery.Responder
	Store      store.Store
	Publisher  events.Publisher
}

type router struct {
	dispatcher *dispatch.Dispatcher
	responder  *discovery.Responder
	store      store.Store
	publisher  events.Publisher
}

// NewRouter builds the gateway's HTTP router. The literal schema route is
// registered before the {serviceName} route so "schema" never resolves as
// a service name.
func NewRouter(opts Options) *mux.Router {
	rt := &router{
		dispatcher: opts.Dispatcher,
		responder:  opts.Responder,
		store:      opts.Store,
		publisher:  opts.Publisher,
	}
	if rt.publisher == nil {
		rt.publisher = &events.NoOpPublisher{}
	}

	base := strings.Trim(opts.BaseURL, "/")
	prefix := "/" + base + "/{apiVersion}"

	r := mux.NewRouter()
	r.HandleFunc(prefix+"/services", rt.handleListServices).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/services/schema", rt.handleSchema).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/services/{serviceName}", rt.handleServiceDetail).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/services/{serviceName}/{actionName}", rt.handleActionDetail).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/services/{serviceName}", rt.handleInvoke).Methods(http.MethodPost)
	return r
}

// invokeBody is the POST request body. resourceId is optional.
type invokeBody struct {
	Action     string                 `json:"action"`
	Payload    map[string]interface{} `json:"payload"`
	ResourceID string                 `json:"resourceId"`
}

// UploadedFile is one multipart file part, surfaced to handlers under the
// payload "files" key. Data is never serialized back to clients.
type UploadedFile struct {
	FieldName   string `json:"fieldName"`
	FileName    string `json:"fileName"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

func (rt *router) handleListServices(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	services, err := rt.responder.ListServices(vars["apiVersion"])
	if err != nil {
		writeEnvelope(w, notFoundStatus(err), dispatch.FromRegistryError(err))
		return
	}
	writeEnvelope(w, http.StatusOK, dispatch.Success(services))
}

func (rt *router) handleServiceDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	detail, err := rt.responder.ServiceDetail(vars["apiVersion"], vars["serviceName"])
	if err != nil {
		writeEnvelope(w, notFoundStatus(err), dispatch.FromRegistryError(err))
		return
	}
	writeEnvelope(w, http.StatusOK, dispatch.Success(detail))
}

func (rt *router) handleActionDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	detail, err := rt.responder.ActionDetail(vars["apiVersion"], vars["serviceName"], vars["actionName"])
	if err != nil {
		writeEnvelope(w, notFoundStatus(err), dispatch.FromRegistryError(err))
		return
	}
	writeEnvelope(w, http.StatusOK, dispatch.Success(detail))
}

func (rt *router) handleSchema(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snapshot, err := rt.responder.Schema(vars["apiVersion"])
	if err != nil {
		writeEnvelope(w, notFoundStatus(err), dispatch.FromRegistryError(err))
		return
	}
	writeEnvelope(w, http.StatusOK, dispatch.Success(snapshot))
}

func (rt *router) handleInvoke(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	vars := mux.Vars(r)
	apiVersion := vars["apiVersion"]
	serviceName := vars["serviceName"]

	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	body, malformed := decodeInvokeBody(r)
	if malformed != nil {
		writeEnvelope(w, http.StatusBadRequest, malformed)
		return
	}
	if body.Action == "" {
		writeEnvelope(w, http.StatusBadRequest, dispatch.Malformed("missing action field"))
		return
	}

	dreq := &dispatch.Request{
		APIVersion: apiVersion,
		Service:    serviceName,
		Action:     body.Action,
		Payload:    body.Payload,
		ResourceID: body.ResourceID,
		Credential: auth.BearerToken(r.Header.Get("Authorization")),
		RequestID:  requestID,
	}

	key := store.Key{
		APIVersion: apiVersion,
		Service:    serviceName,
		Action:     body.Action,
		ResourceID: body.ResourceID,
	}
	if rt.store != nil && body.ResourceID != "" {
		// Replay still requires the caller to pass resolve and auth: a
		// stored protected result must never serve an unauthenticated
		// repeat.
		if denied := rt.dispatcher.Authorize(r.Context(), dreq); denied != nil {
			rt.observe(r.Context(), apiVersion, serviceName, body, denied, requestID, time.Since(start))
			writeEnvelope(w, outcomeStatus(denied.Outcome), denied.Envelope)
			return
		}
		rec, found, err := rt.store.Lookup(r.Context(), key)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - replay lookup failed requestId=%s: %v", logPrefix, requestID, err))
		} else if found {
			w.Header().Set("Idempotent-Replay", "true")
			writeEnvelope(w, http.StatusOK, rec.Envelope)
			return
		}
	}

	result := rt.dispatcher.Dispatch(r.Context(), dreq)
	duration := time.Since(start)

	// Only successful results are pinned under the resourceId; a
	// handler-shaped failure envelope stays retryable.
	if result.Outcome == dispatch.OutcomeSuccess && result.Envelope.Status && rt.store != nil && body.ResourceID != "" {
		rec := &store.Record{RequestID: requestID, Envelope: result.Envelope}
		if err := rt.store.Save(r.Context(), key, rec); err != nil {
			slog.Error(fmt.Sprintf("%s - replay save failed requestId=%s: %v", logPrefix, requestID, err))
		}
	}

	rt.observe(r.Context(), apiVersion, serviceName, body, result, requestID, duration)
	writeEnvelope(w, outcomeStatus(result.Outcome), result.Envelope)
}

// observe records metrics and publishes the dispatch event for one
// completed invoke.
func (rt *router) observe(ctx context.Context, apiVersion, serviceName string, body *invokeBody, result *dispatch.Result, requestID string, duration time.Duration) {
	outcome := result.Outcome.String()
	dispatchRequests.WithLabelValues(apiVersion, serviceName, body.Action, outcome).Inc()
	dispatchDuration.WithLabelValues(apiVersion, serviceName, body.Action).Observe(duration.Seconds())

	event := &events.DispatchEvent{
		RequestID:  requestID,
		APIVersion: apiVersion,
		Service:    serviceName,
		Action:     body.Action,
		Outcome:    outcome,
		Status:     result.Envelope.Status,
		DurationMs: duration.Milliseconds(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		ResourceID: body.ResourceID,
	}
	if result.Identity != nil {
		event.Caller = result.Identity.Subject
	}
	if err := rt.publisher.PublishDispatch(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish dispatch event requestId=%s: %v", logPrefix, requestID, err))
	}
}

// decodeInvokeBody parses a JSON or multipart request body. It returns a
// malformed-request envelope instead of an error so the caller can respond
// directly.
func decodeInvokeBody(r *http.Request) (*invokeBody, *dispatch.Envelope) {
	mediaType := r.Header.Get("Content-Type")
	if mediaType != "" {
		parsed, _, err := mime.ParseMediaType(mediaType)
		if err == nil {
			mediaType = parsed
		}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return decodeMultipartBody(r)
	}

	var body invokeBody
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxMultipartMemory))
	if err := decoder.Decode(&body); err != nil {
		return nil, dispatch.Malformed("")
	}
	return &body, nil
}

// decodeMultipartBody parses a multipart form. The action, payload and
// resourceId fields mirror the JSON body; every file part is appended to
// the payload under "files".
func decodeMultipartBody(r *http.Request) (*invokeBody, *dispatch.Envelope) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, dispatch.Malformed("")
	}

	body := &invokeBody{
		Action:     r.FormValue("action"),
		ResourceID: r.FormValue("resourceId"),
		Payload:    map[string]interface{}{},
	}
	if raw := r.FormValue("payload"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &body.Payload); err != nil {
			return nil, dispatch.Malformed("payload field is not valid JSON")
		}
	}

	var files []interface{}
	for field, headers := range r.MultipartForm.File {
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				return nil, dispatch.Malformed("")
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, dispatch.Malformed("")
			}
			files = append(files, &UploadedFile{
				FieldName:   field,
				FileName:    header.Filename,
				Size:        header.Size,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}
	if len(files) > 0 {
		body.Payload["files"] = files
	}
	return body, nil
}

// outcomeStatus maps a dispatch outcome to its HTTP status. The envelope
// carries the real result; the status is transport decoration.
func outcomeStatus(outcome dispatch.Outcome) int {
	switch outcome {
	case dispatch.OutcomeSuccess:
		return http.StatusOK
	case dispatch.OutcomeNotFound:
		return http.StatusNotFound
	case dispatch.OutcomeUnauthorized:
		return http.StatusUnauthorized
	case dispatch.OutcomeInvalidPayload:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func notFoundStatus(err *registry.Error) int {
	switch err.Code {
	case registry.ErrCodeVersionNotFound, registry.ErrCodeServiceNotFound, registry.ErrCodeActionNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeEnvelope(w http.ResponseWriter, status int, env *dispatch.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", logPrefix, err))
	}
}
