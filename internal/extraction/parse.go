package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/recrutabot/internal/utils"
)

// ErrMalformedOutput is returned when the model reply is not a JSON object.
var ErrMalformedOutput = errors.New("malformed extraction output")

var numberPattern = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)?`)

type rawFields struct {
	Name              string `mapstructure:"name"`
	DesiredRole       string `mapstructure:"desiredRole"`
	YearsOfExperience any    `mapstructure:"yearsOfExperience"`
	ExpectedSalary    string `mapstructure:"expectedSalary"`
	Location          string `mapstructure:"location"`
	LinkedInURL       string `mapstructure:"linkedinUrl"`
	Email             string `mapstructure:"email"`
}

func parseFields(raw string) (*rawFields, error) {
	cleaned := utils.ExtractJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedOutput)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	for key, value := range data {
		if list, ok := value.([]any); ok {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				if s := coerceString(item); s != "" {
					parts = append(parts, s)
				}
			}
			data[key] = strings.Join(parts, ", ")
		}
	}

	var fields rawFields
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &fields,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	return &fields, nil
}

func coerceYears(v any) float64 {
	var years float64
	switch val := v.(type) {
	case float64:
		years = val
	case int:
		years = float64(val)
	case string:
		match := numberPattern.FindString(val)
		if match == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
		if err != nil {
			return 0
		}
		years = parsed
	default:
		return 0
	}

	if math.IsNaN(years) || math.IsInf(years, 0) || years <= 0 {
		return 0
	}
	return years
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return cleanString(val)
	default:
		return cleanString(fmt.Sprintf("%v", v))
	}
}

// cleanString trims s and maps the textual null markers models tend to emit to empty.
func cleanString(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "nil", "undefined":
		return ""
	}
	return s
}
