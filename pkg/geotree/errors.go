package geotree

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is wrapped by construction errors that combine 2D and
// 3D operands.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// ErrNot3D is returned by operations that need a solid but were given a
// planar shape.
var ErrNot3D = errors.New("geometry is not 3D")

// ConstructionError reports an invalid parameter passed to a node constructor.
type ConstructionError struct {
	Kind    Kind
	Param   string
	Message string
	Err     error
}

func (e *ConstructionError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("geotree: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("geotree: %s: %s: %s", e.Kind, e.Param, e.Message)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

func constructionErr(k Kind, param, format string, args ...any) error {
	return &ConstructionError{Kind: k, Param: param, Message: fmt.Sprintf(format, args...)}
}

func dimensionErr(k Kind, format string, args ...any) error {
	return &ConstructionError{Kind: k, Message: fmt.Sprintf(format, args...), Err: ErrDimensionMismatch}
}
