package config

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// secondsToDurationHookFunc lets a bare number (CHECK_INTERVAL=60) mean seconds,
// while strings like "90s" or "2m" still go through the standard duration hook.
func secondsToDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		durationType := reflect.TypeOf(time.Duration(0))
		if to != durationType || from == durationType {
			return data, nil
		}
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
		case reflect.String:
			raw := strings.TrimSpace(data.(string))
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				return time.Duration(n * float64(time.Second)), nil
			}
			return raw, nil
		}
		return data, nil
	}
}
