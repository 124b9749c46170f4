package internal

import "reflect"

func ZeroValue[T any]() T {
	var nilValue T
	return nilValue
}

func InstanceTypeName(instance any) string {
	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t.Name()
}
