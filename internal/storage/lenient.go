package storage

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/noah-isme/coursekeep-go/internal/models"
)

var timeType = reflect.TypeOf(time.Time{})

// decodeLenient maps a schema-valid course document onto models.Course. Optional fields
// holding the wrong type are coerced where the meaning is clear and zeroed otherwise, so a
// record that passed validation is never lost to a decoding error.
func decodeLenient(doc interface{}) (models.Course, error) {
	var course models.Course
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(coerceField),
		Result:           &course,
	})
	if err != nil {
		return models.Course{}, err
	}
	if err := decoder.Decode(doc); err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func coerceField(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to == timeType {
		return coerceTime(data), nil
	}

	switch to.Kind() {
	case reflect.String:
		switch data.(type) {
		case string, float64, bool:
			return data, nil
		default:
			return "", nil
		}
	case reflect.Int, reflect.Int64, reflect.Float64:
		return coerceNumber(data), nil
	case reflect.Slice:
		items, ok := data.([]interface{})
		if !ok {
			return []interface{}{}, nil
		}
		if to.Elem().Kind() != reflect.Struct {
			return items, nil
		}
		objects := make([]interface{}, 0, len(items))
		for _, item := range items {
			if _, ok := item.(map[string]interface{}); ok {
				objects = append(objects, item)
			}
		}
		return objects, nil
	case reflect.Struct:
		if _, ok := data.(map[string]interface{}); !ok {
			return map[string]interface{}{}, nil
		}
	}
	return data, nil
}

// coerceTime accepts RFC 3339 strings and epoch milliseconds.
func coerceTime(data interface{}) time.Time {
	switch value := data.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
		if millis, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return time.UnixMilli(millis).UTC()
		}
	case float64:
		return time.UnixMilli(int64(value)).UTC()
	}
	return time.Time{}
}

func coerceNumber(data interface{}) float64 {
	switch value := data.(type) {
	case float64:
		return value
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}
