package weakevent

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	ErrCodeSlotNotFound          = "SLOT_NOT_FOUND"
	ErrCodeUnsupportedSlotShape  = "UNSUPPORTED_SLOT_SHAPE"
	ErrCodeSlotShapeMismatch     = "SLOT_SHAPE_MISMATCH"
	ErrCodeIncompatibleCallable  = "INCOMPATIBLE_CALLABLE"
	ErrCodeSlotAttachFailed      = "SLOT_ATTACH_FAILED"
	ErrCodeSlotDetachFailed      = "SLOT_DETACH_FAILED"
	ErrCodeSlotAlreadyRegistered = "SLOT_ALREADY_REGISTERED"
)

var (
	ErrSlotNotFound = errors.New("slot not found", errors.CategoryBadInput).
			WithTextCode(ErrCodeSlotNotFound)
	ErrUnsupportedSlotShape = errors.New("unsupported slot shape", errors.CategoryValidation).
				WithTextCode(ErrCodeUnsupportedSlotShape)
	ErrSlotShapeMismatch = errors.New("slot shape mismatch", errors.CategoryBadInput).
				WithTextCode(ErrCodeSlotShapeMismatch)
	ErrIncompatibleCallable = errors.New("incompatible callable", errors.CategoryValidation).
				WithTextCode(ErrCodeIncompatibleCallable)
	ErrSlotAlreadyRegistered = errors.New("slot already registered", errors.CategoryConflict).
					WithTextCode(ErrCodeSlotAlreadyRegistered)
)

func cloneError(base *errors.Error, message string, metadata map[string]any) *errors.Error {
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func slotNotFound(name string, ownerType reflect.Type, static bool) error {
	scope := "instance"
	if static {
		scope = "type"
	}
	return cloneError(ErrSlotNotFound,
		fmt.Sprintf("slot %q does not exist in %s slots of %s", name, scope, typeName(ownerType)),
		map[string]any{
			"slot_name":  name,
			"owner_type": typeName(ownerType),
			"scope":      scope,
		})
}

func unsupportedSlotShape(name, reason string) error {
	return cloneError(ErrUnsupportedSlotShape,
		fmt.Sprintf("slot %q is not supported: %s", name, reason),
		map[string]any{
			"slot_name": name,
			"reason":    reason,
		})
}

func slotShapeMismatch(declared, actual reflect.Type) error {
	return cloneError(ErrSlotShapeMismatch,
		fmt.Sprintf("declared handler type %s does not match slot handler type %s", typeName(declared), typeName(actual)),
		map[string]any{
			"declared_shape": typeName(declared),
			"actual_shape":   typeName(actual),
		})
}

func incompatibleCallable(name string, index int, reason string) error {
	return cloneError(ErrIncompatibleCallable,
		fmt.Sprintf("callable %d cannot subscribe to slot %q: %s", index, name, reason),
		map[string]any{
			"slot_name":      name,
			"callable_index": index,
			"reason":         reason,
		})
}

func attachFailed(name string, err error) error {
	return errors.Wrap(err, errors.CategoryExternal, fmt.Sprintf("attach to slot %q failed", name)).
		WithTextCode(ErrCodeSlotAttachFailed).
		WithMetadata(map[string]any{"slot_name": name})
}

func detachFailed(name, id string, err error) error {
	return errors.Wrap(err, errors.CategoryExternal, fmt.Sprintf("detach from slot %q failed", name)).
		WithTextCode(ErrCodeSlotDetachFailed).
		WithMetadata(map[string]any{
			"slot_name":       name,
			"subscription_id": id,
		})
}

// ErrorCode returns the text code carried by err, or "".
func ErrorCode(err error) string {
	var ge *errors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// ErrorMetadata returns the metadata attached to err, or nil.
func ErrorMetadata(err error) map[string]any {
	var ge *errors.Error
	if stderrors.As(err, &ge) {
		return ge.Metadata
	}
	return nil
}

func IsSlotNotFound(err error) bool         { return ErrorCode(err) == ErrCodeSlotNotFound }
func IsUnsupportedSlotShape(err error) bool { return ErrorCode(err) == ErrCodeUnsupportedSlotShape }
func IsSlotShapeMismatch(err error) bool    { return ErrorCode(err) == ErrCodeSlotShapeMismatch }
func IsIncompatibleCallable(err error) bool { return ErrorCode(err) == ErrCodeIncompatibleCallable }

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
