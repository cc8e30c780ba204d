package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cozy-creator/brandgen/internal/app"
	"github.com/cozy-creator/brandgen/internal/result"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const Version = "0.6.0"

type ParamKind int

const (
	StringParam ParamKind = iota
	IntParam
	BoolParam
)

// Param copies a path or query parameter into a command input field.
type Param struct {
	name  string
	field string
	kind  ParamKind
	query bool
}

func Path(name, field string, kind ParamKind) Param {
	return Param{name: name, field: field, kind: kind}
}

func Query(name, field string, kind ParamKind) Param {
	return Param{name: name, field: field, kind: kind, query: true}
}

// StatusFor maps an envelope to the HTTP status that carries it.
func StatusFor(res *result.Result) int {
	if res.Success {
		return http.StatusOK
	}

	switch res.Code().Kind() {
	case result.KindNotFound:
		return http.StatusNotFound
	case result.KindValidation:
		return http.StatusBadRequest
	case result.KindConflict, result.KindResourceLimit:
		return http.StatusConflict
	case result.KindAuth:
		return http.StatusUnauthorized
	case result.KindRateLimit:
		return http.StatusTooManyRequests
	case result.KindUpstream:
		return http.StatusBadGateway
	case result.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes res with its mapped status, as msgpack when the client
// asks for it and as JSON otherwise.
func Respond(c *gin.Context, res *result.Result) {
	status := StatusFor(res)
	if !wantsMsgPack(c.GetHeader("Accept")) {
		c.JSON(status, res)
		return
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(res); err != nil {
		c.JSON(http.StatusInternalServerError, result.Internal(err))
		return
	}
	c.Data(status, binding.MIMEMSGPACK2, buf.Bytes())
}

// Abort responds with res and stops the handler chain.
func Abort(c *gin.Context, res *result.Result) {
	Respond(c, res)
	c.Abort()
}

func wantsMsgPack(header string) bool {
	return strings.Contains(header, binding.MIMEMSGPACK) || strings.Contains(header, binding.MIMEMSGPACK2)
}

// Command runs the named command with the request body as input. Listed
// params override body fields of the same name.
func Command(name string, params ...Param) gin.HandlerFunc {
	return func(c *gin.Context) {
		app := c.MustGet("app").(*app.App)

		input, err := readInput(c, params)
		if err != nil {
			Respond(c, result.Fail(result.CodeInvalidJSON, "Request body could not be parsed",
				"Send a JSON or msgpack object matching the command schema",
				result.WithDetails(err.Error())))
			return
		}

		Respond(c, app.Commands().Execute(c.Request.Context(), name, input))
	}
}

// ExecuteCommand is the generic route: POST /api/commands/:name.
func ExecuteCommand(c *gin.Context) {
	Command(c.Param("name"))(c)
}

func ListCommands(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	list := app.Commands().List()

	Respond(c, result.Success(gin.H{"commands": list, "total": len(list)},
		result.WithReasoning("%d commands available", len(list))))
}

func Health(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	status := "healthy"
	if db := app.DB(); db != nil {
		if err := db.PingContext(c.Request.Context()); err != nil {
			app.Logger.Warn("health check: database unreachable", zap.Error(err))
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      status,
		"service":     "brandgen-api",
		"version":     Version,
		"environment": app.Config().Environment,
	})
}

func readInput(c *gin.Context, params []Param) ([]byte, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)

	msgpackBody := c.ContentType() == binding.MIMEMSGPACK || c.ContentType() == binding.MIMEMSGPACK2
	if len(params) == 0 && !msgpackBody {
		// Passed through untouched so the registry reports JSON errors.
		return body, nil
	}

	fields := make(map[string]any)
	if len(body) > 0 {
		if msgpackBody {
			if err := msgpack.Unmarshal(body, &fields); err != nil {
				return nil, fmt.Errorf("invalid msgpack body: %w", err)
			}
		} else {
			dec := json.NewDecoder(bytes.NewReader(body))
			dec.UseNumber()
			if err := dec.Decode(&fields); err != nil {
				return nil, fmt.Errorf("invalid JSON body: %w", err)
			}
		}
	}

	for _, p := range params {
		var raw string
		if p.query {
			value, ok := c.GetQuery(p.name)
			if !ok {
				continue
			}
			raw = value
		} else {
			raw = c.Param(p.name)
		}
		fields[p.field] = p.convert(raw)
	}

	return json.Marshal(fields)
}

// convert leaves unparsable values as strings so the command's type
// check reports them against the field.
func (p Param) convert(raw string) any {
	switch p.kind {
	case IntParam:
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	case BoolParam:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}

	return raw
}
