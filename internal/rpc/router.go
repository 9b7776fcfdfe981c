package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spendlog/internal/log"
)

// MaxBodyBytes caps a procedure's JSON input.
const MaxBodyBytes = 1 << 20

// Kind distinguishes read-only procedures from mutations.
type Kind int

const (
	KindQuery Kind = iota
	KindMutation
)

func (k Kind) String() string {
	if k == KindMutation {
		return "mutation"
	}
	return "query"
}

// Void marks a procedure without input or output.
type Void struct{}

type handlerFunc func(ctx context.Context, input []byte) (any, error)

type procedure struct {
	kind Kind
	call handlerFunc
}

// Router dispatches /rpc/{procedure} requests to typed procedures.
// Success responses are {"result":{"data":...}}; failures are {"error":{...}}.
type Router struct {
	procedures map[string]procedure
	logger     *log.Logger
}

func NewRouter(logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	return &Router{
		procedures: make(map[string]procedure),
		logger:     logger.WithComponent(log.ComponentRPC),
	}
}

// Query registers a read-only procedure, callable with GET or POST.
func Query[In, Out any](r *Router, name string, fn func(context.Context, In) (Out, error)) {
	r.register(name, KindQuery, wrap(fn))
}

// Mutation registers a state-changing procedure, callable with POST only.
func Mutation[In, Out any](r *Router, name string, fn func(context.Context, In) (Out, error)) {
	r.register(name, KindMutation, wrap(fn))
}

func (r *Router) register(name string, kind Kind, call handlerFunc) {
	if _, dup := r.procedures[name]; dup {
		panic(fmt.Sprintf("rpc: procedure %q registered twice", name))
	}
	r.procedures[name] = procedure{kind: kind, call: call}
}

// Kind reports how name was registered.
func (r *Router) Kind(name string) (Kind, bool) {
	p, ok := r.procedures[name]
	return p.kind, ok
}

func wrap[In, Out any](fn func(context.Context, In) (Out, error)) handlerFunc {
	return func(ctx context.Context, raw []byte) (any, error) {
		var in In
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &in); err != nil {
				return nil, decodeError(err)
			}
		}
		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		if _, ok := any(out).(Void); ok {
			return nil, nil
		}
		return out, nil
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("procedure")
	if name == "" {
		name = strings.TrimPrefix(req.URL.Path, "/rpc/")
	}
	start := time.Now()
	ctx := req.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentRPC)

	data, err := r.dispatch(w, req, name)
	if err != nil {
		rpcErr := toError(err)
		rpcErr.Procedure = name
		level := slog.LevelWarn
		if rpcErr.HTTPStatus >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogFields(ctx, level, "Procedure failed", log.NewFields().
			With(log.FieldProcedure, name).
			With(log.FieldStatusCode, rpcErr.HTTPStatus).
			With(log.FieldDuration, time.Since(start).Milliseconds()).
			WithError(err))
		writeJSON(w, rpcErr.HTTPStatus, map[string]any{"error": rpcErr})
		return
	}

	logger.DebugContext(ctx, "Procedure completed",
		log.FieldProcedure, name,
		log.FieldDuration, time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, map[string]any{"result": map[string]any{"data": data}})
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request, name string) (any, error) {
	p, ok := r.procedures[name]
	if !ok {
		return nil, newError(http.StatusNotFound, CodeNotFound, fmt.Sprintf("No procedure found on path %q", name))
	}

	var input []byte
	switch req.Method {
	case http.MethodGet:
		if p.kind == KindMutation {
			return nil, r.methodNotSupported(req.Method, p.kind)
		}
		input = []byte(req.URL.Query().Get("input"))
	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, MaxBodyBytes))
		if err != nil {
			return nil, decodeError(err)
		}
		input = body
	default:
		return nil, r.methodNotSupported(req.Method, p.kind)
	}

	if len(bytes.TrimSpace(input)) == 0 {
		input = nil
	}
	return p.call(req.Context(), input)
}

func (r *Router) methodNotSupported(method string, kind Kind) error {
	return newError(http.StatusMethodNotAllowed, CodeMethodNotSupported,
		fmt.Sprintf("Unsupported %s method for %s procedure", method, kind))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
