package core

import (
	"errors"
	"fmt"

	"github.com/chainsentry/eventmonitor/pkg/rbac"
)

// ErrInvalidConfig rejects a rate-limit configuration that cannot be applied.
var ErrInvalidConfig = errors.New("invalid rate limit configuration")

// UnauthorizedError rejects an operation the caller lacks a permission for.
type UnauthorizedError struct {
	Caller     string
	Permission rbac.Permission
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("caller %s lacks permission %s", e.Caller, e.Permission)
}

// ErrUnauthorized matches any authorization failure via errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}
