package restwire

import (
	"fmt"
	"reflect"
)

// Inject assigns proxies to the fields of the struct pointed to by target
// that carry a `restwire` tag. Tagged fields must be exported endpoint
// interfaces. The tag value "optional" skips types that are not declared.
// Embedded structs are walked recursively.
//
//	type Service struct {
//	    Feeds feeds.Feeds `restwire:""`
//	}
func (r *Registry) Inject(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("restwire: inject target must be a non-nil struct pointer, got %T", target)
	}
	return r.injectStruct(rv.Elem())
}

func (r *Registry) injectStruct(sv reflect.Value) error {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		fv := sv.Field(i)

		tag, tagged := f.Tag.Lookup("restwire")
		if !tagged {
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				if err := r.injectStruct(fv); err != nil {
					return err
				}
			}
			continue
		}
		if tag == "-" {
			continue
		}
		if f.Type.Kind() != reflect.Interface {
			return fmt.Errorf("restwire: field %s.%s is %s, not an endpoint interface", st.Name(), f.Name, f.Type)
		}
		if !fv.CanSet() {
			return fmt.Errorf("restwire: field %s.%s is not settable", st.Name(), f.Name)
		}

		id := idOfType(f.Type)
		if _, ok := r.Definition(id); !ok && tag == "optional" {
			continue
		}
		proxy, err := r.Provide(id)
		if err != nil {
			return fmt.Errorf("restwire: field %s.%s: %w", st.Name(), f.Name, err)
		}
		pv := reflect.ValueOf(proxy)
		if !pv.Type().AssignableTo(f.Type) {
			return fmt.Errorf("restwire: field %s.%s: proxy %s does not implement %s", st.Name(), f.Name, pv.Type(), f.Type)
		}
		fv.Set(pv)
	}
	return nil
}
