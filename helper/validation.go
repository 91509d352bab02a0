package helper

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidateStructIsPopulated will check if any mandatory fields in cfg are missing.
// It uses struct tags to determine which fields are mandatory and the error text to fetch.
// The error returned lists the values of the "errorTxt" tags of unset fields.
func ValidateStructIsPopulated(cfg interface{}) (err error) {
	errs := make([]string, 0)
	GetStructErrorTxt4UnsetFields(cfg, &errs)
	if len(errs) > 0 {
		err = fmt.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	return
}

// GetStructErrorTxt4UnsetFields will reflect over struct i and append the errorTxt tag of every exported
// field that is tagged mandatory:"yes" and still holds its zero value.
// Nested structs are descended into.
func GetStructErrorTxt4UnsetFields(i interface{}, errTags *[]string) {
	val := reflect.ValueOf(i)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()
	for idx := 0; idx < val.NumField(); idx++ {
		field := typ.Field(idx)
		if field.PkgPath != "" { // if the field is unexported...
			continue
		}
		f := val.Field(idx)
		switch f.Kind() {
		case reflect.Struct:
			GetStructErrorTxt4UnsetFields(f.Interface(), errTags)
		case reflect.Map, reflect.Slice, reflect.Interface, reflect.Ptr, reflect.Func:
		default:
			if f.IsZero() && field.Tag.Get("mandatory") == "yes" {
				*errTags = append(*errTags, field.Tag.Get("errorTxt"))
			}
		}
	}
}
