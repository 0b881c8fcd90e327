package provider

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// Error is a remote API rejection, surfaced verbatim with its status code.
// There is no automatic retry or backoff: the CLI is interactive and a human
// re-runs the command.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider rejected request: status %d", e.Status)
	}
	return fmt.Sprintf("provider rejected request: status %d: %s", e.Status, e.Body)
}

// WrapErr converts transport-level failures into the provider taxonomy
// exactly once at the adapter boundary, so raw googleapi errors never leak
// to the command layer.
func WrapErr(op string, err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := strings.TrimSpace(gerr.Body)
		if body == "" {
			body = gerr.Message
		}
		return fmt.Errorf("%s: %w", op, &Error{Status: gerr.Code, Body: body})
	}

	return fmt.Errorf("%s: %w", op, err)
}
