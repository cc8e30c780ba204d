// Package commands is the single entry point for every operation the
// service exposes. The CLI, REST and MCP adapters all dispatch through a
// Registry and get back a result envelope.
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/cozy-creator/brandgen/internal/result"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/cozy-creator/brandgen/internal/commands")

var ErrUnknownCommand = errors.New("unknown command")

// Info describes a registered command.
type Info struct {
	Name        string `json:"name"`
	Group       string `json:"group"`
	Description string `json:"description"`
}

// FieldError is one failed input constraint, reported in error details.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

type command struct {
	info  Info
	input reflect.Type
	run   func(ctx context.Context, raw []byte) *result.Result
}

type Registry struct {
	commands map[string]*command
	order    []string
	validate *validator.Validate
	log      *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	return &Registry{
		commands: make(map[string]*command),
		validate: validate,
		log:      logger.Named("commands"),
	}
}

// register adds a command whose input decodes into I. defaults returns the
// input with every optional field pre-filled; decoded JSON overrides it.
func register[I any](r *Registry, name, description string, defaults func() I, fn func(ctx context.Context, in *I) *result.Result) {
	if _, ok := r.commands[name]; ok {
		panic(fmt.Sprintf("command %s registered twice", name))
	}

	group, _, _ := strings.Cut(name, ".")
	r.commands[name] = &command{
		info:  Info{Name: name, Group: group, Description: description},
		input: reflect.TypeOf((*I)(nil)).Elem(),
		run: func(ctx context.Context, raw []byte) *result.Result {
			in := defaults()
			if res := r.decode(raw, &in); res != nil {
				return res
			}
			return fn(ctx, &in)
		},
	}
	r.order = append(r.order, name)
}

func (r *Registry) decode(raw []byte, dst any) *result.Result {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if raw[0] != '{' {
			return result.FromTemplate(result.CodeInvalidJSON)
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(dst); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return result.FromTemplate(result.CodeValidationError, result.WithDetails([]FieldError{{
					Field:   typeErr.Field,
					Rule:    "type",
					Param:   typeErr.Type.String(),
					Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
				}}))
			}
			return result.FromTemplate(result.CodeInvalidJSON, result.WithDetails(err.Error()))
		}
		if dec.More() {
			return result.FromTemplate(result.CodeInvalidJSON, result.WithDetails("unexpected data after input object"))
		}
	}

	if err := r.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return result.Internal(err)
		}
		return result.FromTemplate(result.CodeValidationError, result.WithDetails(fieldErrors(verrs)))
	}

	return nil
}

func fieldErrors(verrs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		out = append(out, FieldError{
			Field:   field,
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: ruleMessage(fe),
		})
	}
	return out
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min", "gte":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("length must be at least %s", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("length must be at most %s", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	}
	return fmt.Sprintf("failed the '%s' rule", fe.Tag())
}

// Execute runs the named command with a JSON object input. It never
// returns nil: unknown commands, bad input and handler panics all come back
// as failed envelopes.
func (r *Registry) Execute(ctx context.Context, name string, input []byte) (res *result.Result) {
	cmd, ok := r.commands[name]
	if !ok {
		return result.Fail(result.CodeCommandNotFound, fmt.Sprintf("Unknown command '%s'", name), "")
	}

	ctx, span := tracer.Start(ctx, "command "+name)
	span.SetAttributes(
		attribute.String("command.name", name),
		attribute.String("command.user_id", UserID(ctx)),
	)
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("command panicked",
				zap.String("command", name),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			res = result.Internal(fmt.Errorf("panic: %v", rec))
		}

		span.SetAttributes(attribute.Bool("command.success", res.Success))
		if res.Failed() {
			span.SetAttributes(attribute.String("command.error_code", res.Code().String()))
			if res.Code().Kind() == result.KindInternal {
				span.SetStatus(codes.Error, res.Error.Message)
			}
		}
		span.End()
	}()

	return cmd.run(ctx, input)
}

// ExecuteValue marshals input to JSON and executes name with it.
func (r *Registry) ExecuteValue(ctx context.Context, name string, input any) *result.Result {
	raw, err := json.Marshal(input)
	if err != nil {
		return result.FromTemplate(result.CodeInvalidJSON, result.WithDetails(err.Error()))
	}
	return r.Execute(ctx, name, raw)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// List returns the registered commands in registration order.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, r.commands[name].info)
	}
	return infos
}

func (r *Registry) Describe(name string) (Info, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return cmd.info, nil
}

// Schema reflects the JSON Schema of the named command's input.
func (r *Registry) Schema(name string) (*jsonschema.Schema, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	schema := reflector.ReflectFromType(cmd.input)
	schema.Version = ""
	schema.Title = name
	schema.Description = cmd.info.Description
	return schema, nil
}
