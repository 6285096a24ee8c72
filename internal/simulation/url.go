package simulation

import (
	"net/url"
	"strconv"
	"strings"
)

// URL builds the simulation embed URL for the given parameter values.
// Query parameters are emitted in catalog declaration order using each
// parameter's url_key, so the result is byte-for-byte reproducible for
// a given (simulation, params, autostart) triple. Parameters missing
// from the map fall back to the simulation's initial values.
func (s *Simulation) URL(baseURL string, params map[string]any, autostart bool) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteByte('/')
	b.WriteString(s.File)

	sep := byte('?')
	for _, p := range s.Parameters {
		v, ok := params[p.Name]
		if !ok {
			v, ok = s.InitialParams[p.Name]
			if !ok {
				continue
			}
		}
		b.WriteByte(sep)
		sep = '&'
		b.WriteString(p.URLKey)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(formatParamValue(v)))
	}

	if autostart {
		b.WriteByte(sep)
		b.WriteString("autoStart=true")
	}
	return b.String()
}

// formatParamValue renders a parameter value the way the simulation
// pages expect: integers without a decimal point, floats trimmed.
func formatParamValue(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return ""
	}
}
