package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidFilterFormat indica que el texto del filtro no es JSON válido.
// Se propaga hasta la capa HTTP, que lo traduce a una respuesta 400.
var ErrInvalidFilterFormat = errors.New("invalid filter format")

// Filter es el mapeo genérico producido por el parseo de un filtro.
// Los valores pueden ser string, float64, time.Time o un objeto de
// operador de una sola clave, ej. {"gte": time.Time}.
type Filter map[string]interface{}

// Formatos de fecha aceptados en valores de operador (ej. gte:2023-01-01).
var filterDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// BuildFilterObject convierte el valor crudo de un query param (texto JSON)
// en un Filter. No valida claves ni valores; eso es trabajo de
// ValidateFilterFields.
func BuildFilterObject(filterQuery string) (Filter, error) {
	if filterQuery == "" {
		return Filter{}, nil
	}

	var f Filter
	if err := json.Unmarshal([]byte(filterQuery), &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilterFormat, err)
	}
	if f == nil {
		// "null" deserializa a un mapa nil
		f = Filter{}
	}
	return f, nil
}

// ValidateFilterFields normaliza un filtro crudo (string con formato
// {k=v,...}, texto ya parseado o mapeo) y devuelve solo las entradas cuyas
// claves el esquema marca como consultables. Las claves rechazadas se
// descartan en silencio con un diagnóstico en el logger inyectado; el
// rechazo es una decisión de filtrado, nunca un error.
func ValidateFilterFields(raw interface{}, schema Schema, log *zap.Logger) Filter {
	parsed := stringToObject(raw, log)

	sanitized := Filter{}
	for key, value := range parsed {
		if !schema.Queryable(key) {
			log.Warn("field is not queryable, dropping from filter",
				zap.String("field", key),
			)
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

// stringToObject normaliza la entrada a un Filter.
//   - nil, "" o exactamente "{}" → Filter vacío.
//   - un mapeo ya parseado → passthrough sin cambios.
//   - string {k1=v1,k2=v2,...} → parseo por pares con coerción de tipos.
func stringToObject(raw interface{}, log *zap.Logger) Filter {
	switch v := raw.(type) {
	case nil:
		return Filter{}
	case Filter:
		if v == nil {
			return Filter{}
		}
		return v
	case map[string]interface{}:
		if v == nil {
			return Filter{}
		}
		return Filter(v)
	case string:
		if v == "" || v == "{}" {
			return Filter{}
		}
		return parsePairs(v, log)
	default:
		return Filter{}
	}
}

// parsePairs parsea el formato con llaves {k=v,k=v}. Sin escapado: una coma
// literal dentro de un valor rompe el par. Se quita UNA llave inicial y UNA
// final, no se balancean.
func parsePairs(s string, log *zap.Logger) Filter {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")

	out := Filter{}
	for _, pair := range strings.Split(s, ",") {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Los pares malformados se saltan sin error. El chequeo de valor
		// vacío va ANTES de mirar el ':' del operador.
		if !found || key == "" || value == "" {
			log.Debug("skipping malformed filter pair", zap.String("pair", pair))
			continue
		}

		if op, operand, hasOp := strings.Cut(value, ":"); hasOp {
			out[key] = operatorValue(strings.TrimSpace(op), strings.TrimSpace(operand))
			continue
		}

		// Coerción numérica explícita: "0" es numérico, no falsy.
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			out[key] = n
		} else {
			out[key] = value
		}
	}
	return out
}

// operatorValue construye el objeto de operador {op: operando}. Si el
// operando parsea como fecha (chequeo sobre el string, antes de construir
// nada) se guarda como time.Time; si no, queda como string sin convertir.
func operatorValue(op, operand string) Filter {
	if ts, ok := parseFilterDate(operand); ok {
		return Filter{op: ts}
	}
	return Filter{op: operand}
}

func parseFilterDate(s string) (time.Time, bool) {
	for _, layout := range filterDateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
