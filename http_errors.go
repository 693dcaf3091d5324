package auth

import (
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// SuccessEnvelope is the uniform success body, data is keyed by context.
type SuccessEnvelope struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
}

// ErrorItem is a single error message
type ErrorItem struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

// ErrorBody carries the error details of ErrorEnvelope. Stack is only
// filled outside production.
type ErrorBody struct {
	StatusCode int            `json:"statusCode"`
	Token      map[string]any `json:"token,omitempty"`
	Errors     []ErrorItem    `json:"errors"`
	Stack      string         `json:"stack,omitempty"`
}

// ErrorEnvelope is the uniform error body
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// Send writes a success envelope with data stored under context
func Send(ctx router.Context, status int, context string, data any) error {
	return ctx.JSON(status, SuccessEnvelope{
		Success: true,
		Data:    map[string]any{context: data},
	})
}

// NewErrorHandler returns a fiber.ErrorHandler rendering errors as
// ErrorEnvelope. Rich errors keep their code and message, anything else
// becomes a 500 without internal detail.
func NewErrorHandler(production bool, logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		envelope := RenderError(err, production)

		if envelope.Error.StatusCode >= fiber.StatusInternalServerError {
			logger.Error("request %s %s failed: %+v", c.Method(), c.OriginalURL(), err)
		} else if !production {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				logger.Debug("request %s %s rejected: %s %s", c.Method(), c.OriginalURL(),
					richErr.TextCode, print.MaybePrettyJSON(richErr.Metadata))
			}
		}

		return c.Status(envelope.Error.StatusCode).JSON(envelope)
	}
}

// RenderError maps err to the error envelope
func RenderError(err error, production bool) ErrorEnvelope {
	body := ErrorBody{StatusCode: fiber.StatusInternalServerError}

	var fiberErr *fiber.Error
	var richErr *goerrors.Error

	switch {
	case goerrors.As(err, &richErr):
		body.StatusCode = statusFromRich(richErr)
		errCtx := ErrorContext(richErr)
		if body.StatusCode >= fiber.StatusInternalServerError && richErr.Category != goerrors.CategoryInternal {
			richErr = ErrInternal
			errCtx = ContextServer
		}

		body.Errors = errorItems(richErr, errCtx)
		if expired, _ := richErr.Metadata[MetaExpired].(bool); expired {
			body.Token = map[string]any{MetaExpired: true}
		}
	case goerrors.As(err, &fiberErr):
		body.StatusCode = fiberErr.Code
		body.Errors = []ErrorItem{{Message: fiberErr.Message, Context: ContextServer}}
	default:
		body.Errors = []ErrorItem{{Message: ErrInternal.Message, Context: ContextServer}}
	}

	// internal details never leave the process in production
	if body.StatusCode >= fiber.StatusInternalServerError && production {
		body.Errors = []ErrorItem{{Message: ErrInternal.Message, Context: ContextServer}}
	}

	if !production && err != nil {
		body.Stack = fmt.Sprintf("%+v", err)
	}

	return ErrorEnvelope{Success: false, Error: body}
}

func statusFromRich(richErr *goerrors.Error) int {
	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func errorItems(richErr *goerrors.Error, errCtx string) []ErrorItem {
	fields, _ := richErr.Metadata["fields"].(map[string]string)
	if len(fields) == 0 {
		return []ErrorItem{{Message: richErr.Message, Context: errCtx}}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]ErrorItem, 0, len(names))
	for _, name := range names {
		items = append(items, ErrorItem{
			Message: fmt.Sprintf("%s: %s", name, fields[name]),
			Context: errCtx,
		})
	}
	return items
}
