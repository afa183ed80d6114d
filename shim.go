package weakevent

import "reflect"

// buildShim creates a func of the slot's handler type that forwards to the
// target while its receiver is alive and expires sub once it is not.
//
// The per-parameter plan is computed once; a broadcast only has to narrow
// mutable references handed to read-only callee parameters.
func buildShim(handlerType reflect.Type, slot CallShape, plan targetPlan, sub *subscription) reflect.Value {
	narrow := make([]bool, len(slot.Params))
	for i := range slot.Params {
		narrow[i] = needsNarrowing(slot.Params[i], plan.shape.Params[i])
	}

	receiver := plan.target.receiver
	method := plan.target.method
	variadic := slot.Variadic

	return reflect.MakeFunc(handlerType, func(args []reflect.Value) []reflect.Value {
		recv, ok := receiver()
		if !ok {
			sub.expire()
			return nil
		}

		in := make([]reflect.Value, 0, len(args)+1)
		in = append(in, recv)
		for i, arg := range args {
			if narrow[i] {
				arg = reflect.ValueOf(arg.Interface().(narrowable).readOnlyView())
			}
			in = append(in, arg)
		}

		sub.forward(func() {
			if variadic {
				method.CallSlice(in)
				return
			}
			method.Call(in)
		})
		return nil
	})
}
