package weakevent

import (
	"fmt"
	"reflect"
)

type targetPlan struct {
	target Target
	shape  CallShape
}

// slotShape checks the slot's own shape: it must be a func with no results
// and no write-only parameter.
func slotShape(d Descriptor) (CallShape, error) {
	ht := d.HandlerType()
	if ht == nil || ht.Kind() != reflect.Func {
		return CallShape{}, unsupportedSlotShape(d.Name, fmt.Sprintf("handler type %s is not a func", typeName(ht)))
	}
	shape, err := ShapeOf(ht)
	if err != nil {
		return CallShape{}, unsupportedSlotShape(d.Name, err.Error())
	}
	if err := checkSlotShape(d.Name, shape); err != nil {
		return CallShape{}, err
	}
	return shape, nil
}

func checkSlotShape(name string, shape CallShape) error {
	if !shape.IsVoid() {
		return unsupportedSlotShape(name, "weak slots cannot return a value")
	}
	if i := shape.WriteOnlyIndex(); i >= 0 {
		return unsupportedSlotShape(name, fmt.Sprintf("weak slots cannot have a write-only parameter (parameter %d)", i))
	}
	return nil
}

func checkDeclared(declared, actual reflect.Type) error {
	if declared != actual {
		return slotShapeMismatch(declared, actual)
	}
	return nil
}

// planTargets decomposes callable and validates every target before anything
// is attached.
func planTargets(name string, slot CallShape, callable Callable) ([]targetPlan, error) {
	if callable == nil {
		return nil, incompatibleCallable(name, 0, "callable is nil")
	}
	targets := callable.Targets()
	if len(targets) == 0 {
		return nil, incompatibleCallable(name, 0, "callable has no targets")
	}

	plans := make([]targetPlan, 0, len(targets))
	for i, t := range targets {
		shape, reason := t.validate()
		if reason != "" {
			return nil, incompatibleCallable(name, i, reason)
		}
		if ok, param := slot.Accepts(shape); !ok {
			if param >= 0 {
				reason = fmt.Sprintf("parameter %d: slot passes %s, method takes %s", param, slot.Params[param], shape.Params[param])
			} else {
				reason = fmt.Sprintf("slot is %s, method is %s", slot, shape)
			}
			return nil, incompatibleCallable(name, i, reason)
		}
		plans = append(plans, targetPlan{target: t, shape: shape})
	}
	return plans, nil
}
