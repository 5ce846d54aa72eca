package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/club-challenges/metrics"
	"github.com/Dosada05/club-challenges/middleware"
	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/services"
)

// Коды ошибок в extensions.code ответа.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL_SERVER_ERROR"

	codeOK = "OK"
)

var errRateLimited = errors.New("too many attempts, try again later")

// publicOperations - единственные операции, доступные без аутентификации.
var publicOperations = map[string]bool{
	"login":      true,
	"register":   true,
	"logout":     true,
	"authStatus": true,
}

type graphQLRequest struct {
	Query         string          `json:"query"`
	OperationName string          `json:"operationName"`
	Variables     json.RawMessage `json:"variables"`
}

type graphQLError struct {
	Message    string            `json:"message"`
	Extensions map[string]string `json:"extensions"`
}

type graphQLResponse struct {
	Data   interface{}    `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

// opContext - все, что нужно резолверу операции.
type opContext struct {
	ctx  context.Context
	w    http.ResponseWriter
	r    *http.Request
	vars json.RawMessage
	user *models.User
}

// bind декодирует variables запроса в dst.
func (c *opContext) bind(dst interface{}) error {
	if len(bytes.TrimSpace(c.vars)) == 0 || string(c.vars) == "null" {
		return nil
	}
	if err := json.Unmarshal(c.vars, dst); err != nil {
		return services.ValidationError(fmt.Sprintf("invalid variables: %v", err))
	}
	return nil
}

// userID вызывается только из защищенных операций, где охрана уже гарантировала пользователя.
func (c *opContext) userID() int {
	return c.user.ID
}

type resolver func(c *opContext) (interface{}, error)

type operation struct {
	resolve resolver
	// nullable: отсутствующий объект возвращается как data: null, а не как ошибка.
	nullable bool
}

// GraphQLHandler обслуживает POST /graphql: операция выбирается по operationName из единой таблицы.
type GraphQLHandler struct {
	svc          *services.Services
	limiter      *middleware.IPRateLimiter
	metrics      *metrics.Metrics
	secureCookie bool
	logger       *slog.Logger
	operations   map[string]operation
}

func NewGraphQLHandler(
	svc *services.Services,
	limiter *middleware.IPRateLimiter,
	m *metrics.Metrics,
	secureCookie bool,
	logger *slog.Logger,
) *GraphQLHandler {
	h := &GraphQLHandler{
		svc:          svc,
		limiter:      limiter,
		metrics:      m,
		secureCookie: secureCookie,
		logger:       logger,
		operations:   make(map[string]operation),
	}
	groups := []map[string]operation{
		h.authOperations(),
		h.userOperations(),
		h.clubOperations(),
		h.invitationOperations(),
		h.challengeOperations(),
		h.entryOperations(),
	}
	for _, group := range groups {
		for name, op := range group {
			h.operations[name] = op
		}
	}
	return h
}

// Operations возвращает имена всех операций таблицы.
func (h *GraphQLHandler) Operations() []string {
	names := make([]string, 0, len(h.operations))
	for name := range h.operations {
		names = append(names, name)
	}
	return names
}

func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req graphQLRequest
	if err := readJSON(w, r, &req); err != nil {
		h.writeResponse(w, r, http.StatusBadRequest, graphQLResponse{
			Errors: []graphQLError{newGraphQLError(err.Error(), CodeBadUserInput)},
		})
		return
	}

	c := &opContext{
		ctx:  r.Context(),
		w:    w,
		r:    r,
		vars: req.Variables,
		user: middleware.UserFromContext(r.Context()),
	}
	data, err := h.execute(c, req.OperationName)

	label := req.OperationName
	if _, ok := h.operations[label]; !ok {
		label = "unknown"
	}

	if err != nil {
		code := faultCode(err)
		h.logFault(r.Context(), req.OperationName, code, err)
		h.metrics.ObserveOperation(label, code, time.Since(start))
		status := http.StatusOK
		if code == CodeRateLimited {
			status = http.StatusTooManyRequests
		}
		h.writeResponse(w, r, status, graphQLResponse{
			Errors: []graphQLError{newGraphQLError(faultMessage(err, code), code)},
		})
		return
	}

	h.metrics.ObserveOperation(label, codeOK, time.Since(start))
	h.writeResponse(w, r, http.StatusOK, graphQLResponse{Data: data})
}

// execute - центральная охрана: проверка аутентификации выполняется здесь для всей таблицы,
// резолверы ее не дублируют.
func (h *GraphQLHandler) execute(c *opContext, name string) (interface{}, error) {
	if name == "" {
		return nil, services.ValidationError("operationName is required")
	}
	op, ok := h.operations[name]
	if !ok {
		return nil, services.ValidationError(fmt.Sprintf("unknown operation %q", name))
	}
	if !publicOperations[name] && c.user == nil {
		return nil, services.ErrUnauthenticated
	}

	data, err := op.resolve(c)
	if err != nil {
		if op.nullable && errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (h *GraphQLHandler) writeResponse(w http.ResponseWriter, r *http.Request, status int, resp graphQLResponse) {
	if err := writeJSON(w, status, resp, nil); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write graphql response", slog.Any("error", err))
	}
}

func (h *GraphQLHandler) logFault(ctx context.Context, op, code string, err error) {
	attrs := []any{slog.String("operation", op), slog.String("code", code), slog.Any("error", err)}
	switch code {
	case CodeInternal:
		h.logger.ErrorContext(ctx, "operation failed", attrs...)
	case CodeForbidden, CodeRateLimited:
		h.logger.WarnContext(ctx, "operation rejected", attrs...)
	default:
		h.logger.DebugContext(ctx, "operation rejected", attrs...)
	}
}

func newGraphQLError(message, code string) graphQLError {
	return graphQLError{Message: message, Extensions: map[string]string{"code": code}}
}

func faultCode(err error) string {
	if errors.Is(err, errRateLimited) {
		return CodeRateLimited
	}
	switch services.KindOf(err) {
	case services.ErrUnauthenticated:
		return CodeUnauthenticated
	case services.ErrForbidden:
		return CodeForbidden
	case services.ErrNotFound:
		return CodeNotFound
	case services.ErrConflict:
		return CodeConflict
	case services.ErrValidationFailed:
		return CodeBadUserInput
	default:
		return CodeInternal
	}
}

// faultMessage скрывает текст внутренних ошибок от клиента.
func faultMessage(err error, code string) string {
	if code == CodeInternal {
		return "internal server error"
	}
	return err.Error()
}

// requireID проверяет обязательный числовой аргумент.
func requireID(name string, id int) error {
	if id <= 0 {
		return services.ValidationError(fmt.Sprintf("%s must be a positive integer", name))
	}
	return nil
}
