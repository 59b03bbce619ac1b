package sanitizer

// SanitizeCollection sanitises decoded JSON course documents without touching unknown fields.
// Anything other than a JSON array is coerced to an empty collection.
func SanitizeCollection(raw interface{}) []interface{} {
	items, ok := raw.([]interface{})
	if !ok {
		return []interface{}{}
	}

	cleaned := make([]interface{}, 0, len(items))
	for _, item := range items {
		cleaned = append(cleaned, SanitizeDocument(item))
	}
	return cleaned
}

// SanitizeDocument returns a deep copy of a decoded course document with its rich-text fields stripped.
// Values that are not JSON objects are returned as copies, unchanged.
func SanitizeDocument(doc interface{}) interface{} {
	course, ok := deepCopy(doc).(map[string]interface{})
	if !ok {
		return deepCopy(doc)
	}

	stripField(course, "description")

	sections, _ := course["sections"].([]interface{})
	for _, rawSection := range sections {
		section, ok := rawSection.(map[string]interface{})
		if !ok {
			continue
		}
		stripField(section, "description")

		lessons, _ := section["lessons"].([]interface{})
		for _, rawLesson := range lessons {
			lesson, ok := rawLesson.(map[string]interface{})
			if !ok {
				continue
			}
			stripField(lesson, "content")
			stripField(lesson, "description")
		}
	}

	return course
}

func stripField(doc map[string]interface{}, field string) {
	if value, ok := doc[field].(string); ok {
		doc[field] = StripMarkup(value)
	}
}

func deepCopy(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		copied := make(map[string]interface{}, len(v))
		for key, item := range v {
			copied[key] = deepCopy(item)
		}
		return copied
	case []interface{}:
		copied := make([]interface{}, len(v))
		for i, item := range v {
			copied[i] = deepCopy(item)
		}
		return copied
	default:
		return v
	}
}
