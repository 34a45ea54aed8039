package beanstalk

// Stats holds the fields of a stats, stats-tube or stats-job response.
//
// Values are string, int64, uint64 (integers above math.MaxInt64) or float64.
// Fields named name, tube and version are always strings.
type Stats map[string]any

// GetInt returns an integer field. ok is false when the field is missing, not
// an integer, or does not fit in an int64.
func (s Stats) GetInt(key string) (int64, bool) {
	switch v := s[key].(type) {
	case int64:
		return v, true
	default:
		return 0, false
	}
}

// GetUint returns a non-negative integer field.
func (s Stats) GetUint(key string) (uint64, bool) {
	switch v := s[key].(type) {
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case uint64:
		return v, true
	default:
		return 0, false
	}
}

// GetFloat returns a numeric field as a float64.
func (s Stats) GetFloat(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// GetString returns a string field.
func (s Stats) GetString(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}
