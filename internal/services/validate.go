package services

import (
	"encoding/json"
	"fmt"
	"regexp"

	"gorm.io/datatypes"

	"github.com/streamhub/flink-manager/internal/platform/apierr"
)

var jobNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func validateJobName(name string) error {
	if name == "" || len(name) > 100 {
		return apierr.Validation("invalid_name", fmt.Errorf("name must be 1-100 characters"))
	}
	if !jobNameRe.MatchString(name) {
		return apierr.Validation("invalid_name", fmt.Errorf("name may only contain letters, digits, '-' and '_'"))
	}
	return nil
}

func validateParallelism(parallelism int) error {
	if parallelism < 1 || parallelism > 100 {
		return apierr.Validation("invalid_parallelism", fmt.Errorf("parallelism must be between 1 and 100"))
	}
	return nil
}

func jsonColumn(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}

func stringSliceColumn(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	return jsonColumn(values)
}

func stringMapColumn(values map[string]string) datatypes.JSON {
	if values == nil {
		values = map[string]string{}
	}
	return jsonColumn(values)
}

func decodeStringSlice(raw datatypes.JSON) []string {
	var out []string
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func decodeStringMap(raw datatypes.JSON) map[string]string {
	var out map[string]string
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
