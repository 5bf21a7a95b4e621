package catalog

import (
	"calbot/app/util/timetext"
	"fmt"
	"time"
)

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

func integerProp(description string) map[string]any {
	return map[string]any{
		"type":        "integer",
		"description": description,
	}
}

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)

	return value
}

func requiredStringArg(args map[string]any, key string) (string, error) {
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%s is required", key)
	}

	return value, nil
}

// timeArg parses an optional instant argument; absence yields the zero time.
func timeArg(args map[string]any, key string) (time.Time, error) {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		return time.Time{}, nil
	}

	t, err := timetext.Parse(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}

	return t, nil
}

func requiredTimeArg(args map[string]any, key string) (time.Time, error) {
	raw, err := requiredStringArg(args, key)
	if err != nil {
		return time.Time{}, err
	}

	t, err := timetext.Parse(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}

	return t, nil
}

// requiredIntArg accepts both float64 (JSON numbers) and int values.
func requiredIntArg(args map[string]any, key string) (int, error) {
	switch value := args[key].(type) {
	case float64:
		return int(value), nil
	case int:
		return value, nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}
