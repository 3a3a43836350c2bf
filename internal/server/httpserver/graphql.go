package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/gateway/admission"
	"github.com/educationelly/educationelly-graphql/internal/gateway/format"
	"github.com/educationelly/educationelly-graphql/internal/gateway/timing"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/metric"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/tracer"
)

// Request errors raised before parsing.
var (
	errMissingQuery  = domain.NewStructuralError(domain.CodeBadRequest, "GraphQL operations must contain a non-empty `query`.")
	errBadBody       = domain.NewStructuralError(domain.CodeBadRequest, "Request body is not valid JSON.")
	errBadVariables  = domain.NewStructuralError(domain.CodeBadRequest, "Variables are invalid JSON.")
	errMethod        = domain.NewStructuralError(domain.CodeMethodNotAllowed, "GraphQL only supports GET and POST requests.")
	errMutationOnGET = domain.NewStructuralError(domain.CodeMethodNotAllowed, "Can only perform a mutation operation from a POST request.")
)

// Request is a decoded GraphQL request.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// GraphQLConfig configures the GraphQL handler.
type GraphQLConfig struct {
	Schema    graphql.Schema
	Admission *admission.Controller
	Formatter *format.Formatter
	Metrics   *metric.Registry
	// Prepare is called once per request before execution, e.g. to attach
	// per-request loaders.
	Prepare func(context.Context) context.Context
}

// GraphQLHandler serves /graphql.
type GraphQLHandler struct {
	schema    graphql.Schema
	admission *admission.Controller
	formatter *format.Formatter
	metrics   *metric.Registry
	prepare   func(context.Context) context.Context
}

// NewGraphQLHandler creates the handler.
func NewGraphQLHandler(cfg GraphQLConfig) *GraphQLHandler {
	if cfg.Admission == nil {
		cfg.Admission = admission.New(cfg.Schema, admission.DefaultConfig())
	}
	if cfg.Formatter == nil {
		cfg.Formatter = format.New(format.Config{}, nil)
	}
	return &GraphQLHandler{
		schema:    cfg.Schema,
		admission: cfg.Admission,
		formatter: cfg.Formatter,
		metrics:   cfg.Metrics,
		prepare:   cfg.Prepare,
	}
}

// ServeHTTP runs parse, admission, validation and execution, each timed in
// the Server-Timing header and traced as a span.
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := timing.New()
	ctx := timing.WithTrace(r.Context(), st)

	req, status, de := decodeRequest(r)
	if de != nil {
		h.write(w, st, status, errorResponse(de))
		return
	}

	// parse
	st.Start(timing.PhaseParse)
	_, span := tracer.Start(ctx, "graphql.parse")
	doc, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{Body: []byte(req.Query), Name: "GraphQL request"}),
	})
	span.End()
	st.End(timing.PhaseParse, "")
	if err != nil {
		errs := h.formatter.Format(ctx, []gqlerrors.FormattedError{gqlerrors.FormatError(err)}, domain.CodeParseFailed)
		h.write(w, st, http.StatusBadRequest, format.Response{Errors: format.Wire(errs)})
		return
	}

	op := operation(doc, req.OperationName)
	if r.Method == http.MethodGet && op != nil && op.Operation == ast.OperationTypeMutation {
		w.Header().Set("Allow", "POST")
		h.write(w, st, http.StatusMethodNotAllowed, errorResponse(errMutationOnGET))
		return
	}

	// admission
	st.Start(timing.PhaseAdmission)
	_, span = tracer.Start(ctx, "graphql.admission")
	res, err := h.admission.Check(doc, req.OperationName, req.Variables)
	span.SetAttributes(attribute.Int("graphql.depth", res.Depth), attribute.Int("graphql.complexity", res.Complexity))
	if err != nil {
		span.SetStatus(codes.Error, admission.Reason(err))
	}
	span.End()
	st.End(timing.PhaseAdmission, "")
	if err != nil {
		h.metrics.AdmissionRejected(admission.Reason(err))
		logger.L(ctx).Warn("operation rejected", "operation", res.Operation, "reason", admission.Reason(err), "error", err)
		de, ok := domain.AsDomainError(err)
		if !ok {
			de = domain.ErrInternalServer
		}
		errs := h.formatter.Format(ctx, []gqlerrors.FormattedError{format.FromDomainError(de)}, domain.CodeQueryTooComplex)
		h.write(w, st, http.StatusBadRequest, format.Response{Errors: format.Wire(errs)})
		return
	}

	// validation
	vr := graphql.ValidateDocument(&h.schema, doc, graphql.SpecifiedRules)
	if !vr.IsValid {
		errs := h.formatter.Format(ctx, vr.Errors, domain.CodeValidationFailed)
		h.write(w, st, http.StatusBadRequest, format.Response{Errors: format.Wire(errs)})
		return
	}

	// execution
	if h.prepare != nil {
		ctx = h.prepare(ctx)
	}
	opType := "query"
	if op != nil {
		opType = op.Operation
	}
	st.Start(timing.PhaseExecution)
	execCtx, span := tracer.Start(ctx, "graphql.execute",
		traceAttrs(opType, res)...)
	result := graphql.Execute(graphql.ExecuteParams{
		Schema:        h.schema,
		AST:           doc,
		OperationName: req.OperationName,
		Args:          req.Variables,
		Context:       execCtx,
	})
	errs := h.formatter.Format(execCtx, result.Errors, domain.CodeInternalServer)
	span.End()
	st.End(timing.PhaseExecution, "")

	h.metrics.OperationExecuted(opType, len(errs) > 0)
	for _, e := range errs {
		if e.Message == format.MaskedMessage {
			h.metrics.ErrorMasked()
		}
	}

	h.write(w, st, http.StatusOK, format.Response{Data: result.Data, Errors: format.Wire(errs)})
}

// write sets Server-Timing after the body is computed and before it is
// sent.
func (h *GraphQLHandler) write(w http.ResponseWriter, st *timing.Trace, status int, resp format.Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		body, _ = json.Marshal(errorResponse(domain.ErrInternalServer))
		status = http.StatusInternalServerError
	}
	w.Header().Set(timing.HeaderName, st.Header())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func errorResponse(de *domain.DomainError) format.Response {
	return format.Response{Errors: format.Wire([]gqlerrors.FormattedError{format.FromDomainError(de)})}
}

func traceAttrs(opType string, res admission.Result) []trace.SpanStartOption {
	return []trace.SpanStartOption{trace.WithAttributes(
		attribute.String("graphql.operation.type", opType),
		attribute.String("graphql.operation.name", res.Operation),
		attribute.Int("graphql.complexity", res.Complexity),
	)}
}

// decodeRequest reads a GET query string or a POST JSON body.
func decodeRequest(r *http.Request) (Request, int, *domain.DomainError) {
	var req Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return req, http.StatusBadRequest, errBadVariables
			}
		}
	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			if isTooLarge(err) {
				return req, http.StatusRequestEntityTooLarge, errPayloadTooLarge
			}
			return req, http.StatusBadRequest, errBadBody
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return req, http.StatusBadRequest, errBadBody
		}
	default:
		return req, http.StatusMethodNotAllowed, errMethod
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, http.StatusBadRequest, errMissingQuery
	}
	return req, 0, nil
}

// operation returns the operation that will run, or nil when the name
// does not select exactly one.
func operation(doc *ast.Document, name string) *ast.OperationDefinition {
	var found *ast.OperationDefinition
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if name == "" {
			if found != nil {
				return nil
			}
			found = op
			continue
		}
		if op.Name != nil && op.Name.Value == name {
			return op
		}
	}
	return found
}
