package wizard

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/rotisserie/eris"
)

// Merge copies the set fields of patch into agg. Every set field must be
// owned by step, otherwise nothing is applied. Values are copied, never
// shared with the patch. A pointer to a zero value clears a media or
// coordinate field.
func Merge(agg *models.FormAggregate, step int, patch models.FormPatch) error {
	if step < models.FirstStep || step > models.LastStep {
		return eris.Wrapf(ErrUnknownStep, "step %d", step)
	}

	pv := reflect.ValueOf(patch)
	pt := pv.Type()

	for i := 0; i < pt.NumField(); i++ {
		if pv.Field(i).IsNil() {
			continue
		}
		sf := pt.Field(i)
		if owner := stepOf(sf); owner != step {
			return eris.Wrapf(ErrFieldNotOwned, "%s belongs to step %d", jsonName(sf), owner)
		}
	}

	av := reflect.ValueOf(agg).Elem()
	for i := 0; i < pt.NumField(); i++ {
		src := pv.Field(i)
		if src.IsNil() {
			continue
		}
		sf := pt.Field(i)
		dst := av.FieldByName(sf.Name)
		if !dst.IsValid() {
			return eris.Wrapf(ErrUnknownField, "%s", sf.Name)
		}

		switch {
		case src.Type() == dst.Type():
			if src.Elem().IsZero() {
				dst.Set(reflect.Zero(dst.Type()))
				continue
			}
			cp := reflect.New(src.Type().Elem())
			cp.Elem().Set(src.Elem())
			dst.Set(cp)
		case src.Type().Elem() == dst.Type():
			dst.Set(copyValue(src.Elem()))
		default:
			return eris.Wrapf(ErrUnknownField, "%s has mismatched type", sf.Name)
		}
	}
	return nil
}

func copyValue(v reflect.Value) reflect.Value {
	if v.Kind() != reflect.Slice || v.IsNil() {
		return v
	}
	cp := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
	reflect.Copy(cp, v)
	return cp
}

func stepOf(sf reflect.StructField) int {
	n, err := strconv.Atoi(sf.Tag.Get("step"))
	if err != nil {
		return 0
	}
	return n
}

func jsonName(sf reflect.StructField) string {
	name := strings.Split(sf.Tag.Get("json"), ",")[0]
	if name == "" {
		return sf.Name
	}
	return name
}

// FieldStep returns the step owning the json field name.
func FieldStep(field string) (int, bool) {
	pt := reflect.TypeOf(models.FormPatch{})
	for i := 0; i < pt.NumField(); i++ {
		if jsonName(pt.Field(i)) == field {
			return stepOf(pt.Field(i)), true
		}
	}
	return 0, false
}
