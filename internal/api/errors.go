package api

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks input rejected before any network call.
	ErrValidation = errors.New("validation error")
	// ErrDuplicate marks an add-to-queue refused because the URL is
	// already present, locally or server-side.
	ErrDuplicate = errors.New("duplicate")
	// ErrTransient marks a failed request with no well-formed error
	// payload. Background polls swallow these and retry next tick.
	ErrTransient = errors.New("transient failure")
	// ErrServer marks a well-formed error payload from the service. The
	// message is preserved verbatim.
	ErrServer = errors.New("server error")
	// ErrBusy marks an operation refused because a previous one is still
	// in flight.
	ErrBusy = errors.New("operation in progress")
)

// Wrap builds an error message that includes call-site context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsDuplicate reports whether err represents a duplicate-URL refusal.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "request failure"
	}
	return strings.Join(parts, ": ")
}

// errorPayload is the service's well-formed error body. A body that also
// carries a status field is job data, not an error envelope: clip status
// reports its failure message alongside status "error".
type errorPayload struct {
	Error     string `json:"error"`
	Duplicate bool   `json:"duplicate"`
	Status    string `json:"status"`
}

func (p errorPayload) toError(operation string) error {
	if p.Duplicate {
		return Wrap(ErrDuplicate, "api", operation, p.Error, nil)
	}
	return Wrap(ErrServer, "api", operation, p.Error, nil)
}
