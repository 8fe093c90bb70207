package validator

import "reflect"

// Binding adapts a Validator to gin's binding.StructValidator interface so
// request DTOs declared with `validate:` tags get translated field messages:
//
//	binding.Validator = validator.NewBinding()
type Binding struct {
	v *Validator
}

// NewBinding returns a Binding backed by the global validator.
func NewBinding() *Binding {
	return &Binding{v: Global()}
}

// ValidateStruct validates bound request objects. Non-struct values pass
// through untouched, matching gin's default behavior.
func (b *Binding) ValidateStruct(obj interface{}) error {
	if obj == nil {
		return nil
	}

	value := reflect.ValueOf(obj)
	switch value.Kind() {
	case reflect.Ptr:
		if value.IsNil() {
			return nil
		}
		return b.ValidateStruct(value.Elem().Interface())
	case reflect.Struct:
		if verrs := b.v.ValidateStruct(obj); verrs.HasErrors() {
			return verrs
		}
		return nil
	case reflect.Slice, reflect.Array:
		for i := 0; i < value.Len(); i++ {
			if err := b.ValidateStruct(value.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// Engine returns the underlying validator engine.
func (b *Binding) Engine() interface{} {
	return b.v.Engine()
}
