package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testSchema() Schema {
	return Schema{
		"name":     {Type: FieldString, Queryable: true},
		"status":   {Type: FieldString, Queryable: true},
		"priority": {Type: FieldNumber, Queryable: true},
		"age":      {Type: FieldNumber}, // presente pero NO consultable
	}
}

// -------------------- BuildFilterObject --------------------

func TestBuildFilterObject_Empty(t *testing.T) {
	f, err := BuildFilterObject("")
	assert.NoError(t, err)
	assert.Empty(t, f)
}

func TestBuildFilterObject_ValidJSON(t *testing.T) {
	raw := `{"name":"Bob","priority":3,"status":{"$lte":"active"}}`

	f, err := BuildFilterObject(raw)
	require.NoError(t, err)

	// Debe coincidir con lo que produce encoding/json sin más validación
	var expected map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &expected))
	assert.Equal(t, Filter(expected), f)
}

func TestBuildFilterObject_InvalidJSON(t *testing.T) {
	_, err := BuildFilterObject("{not json")
	assert.ErrorIs(t, err, ErrInvalidFilterFormat)
}

// -------------------- stringToObject --------------------

func TestStringToObject_EmptyInputs(t *testing.T) {
	log := zap.NewNop()

	assert.Empty(t, stringToObject(nil, log))
	assert.Empty(t, stringToObject("", log))
	assert.Empty(t, stringToObject("{}", log))
}

func TestStringToObject_MappingPassthrough(t *testing.T) {
	log := zap.NewNop()
	m := map[string]interface{}{"name": "Bob", "priority": float64(3)}

	out := stringToObject(m, log)
	assert.Equal(t, Filter(m), out)
}

func TestStringToObject_Pairs(t *testing.T) {
	log := zap.NewNop()

	tests := []struct {
		name     string
		input    string
		expected Filter
	}{
		{
			name:     "numeric coercion",
			input:    "{age=30}",
			expected: Filter{"age": float64(30)},
		},
		{
			name:     "zero stays numeric",
			input:    "{priority=0}",
			expected: Filter{"priority": float64(0)},
		},
		{
			name:     "string fallback",
			input:    "{name=Bob}",
			expected: Filter{"name": "Bob"},
		},
		{
			name:  "date operator value",
			input: "{createdAt=gte:2023-01-01}",
			expected: Filter{"createdAt": Filter{
				"gte": time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			}},
		},
		{
			name:     "non-date operator value stays string",
			input:    "{status=eq:active}",
			expected: Filter{"status": Filter{"eq": "active"}},
		},
		{
			name:     "multiple pairs",
			input:    "{name=Bob,age=30}",
			expected: Filter{"name": "Bob", "age": float64(30)},
		},
		{
			name:     "whitespace trimmed",
			input:    "  { name = Bob , age = 30 }  ",
			expected: Filter{"name": "Bob", "age": float64(30)},
		},
		{
			name:     "empty value skips the pair",
			input:    "{name=,age=30}",
			expected: Filter{"age": float64(30)},
		},
		{
			name:     "pair without separator is skipped",
			input:    "{garbage,age=30}",
			expected: Filter{"age": float64(30)},
		},
		{
			name:     "only first equals splits",
			input:    "{name=a=b}",
			expected: Filter{"name": "a=b"},
		},
		{
			name:     "only first colon splits",
			input:    "{status=eq:a:b}",
			expected: Filter{"status": Filter{"eq": "a:b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stringToObject(tt.input, log))
		})
	}
}

// -------------------- ValidateFilterFields --------------------

func TestValidateFilterFields_DropsUnknownAndNonQueryable(t *testing.T) {
	raw := map[string]interface{}{
		"name":   "Bob",
		"age":    float64(30), // en el esquema pero sin flag queryable
		"secret": "x",         // desconocido
	}

	out := ValidateFilterFields(raw, testSchema(), zap.NewNop())
	assert.Equal(t, Filter{"name": "Bob"}, out)
}

func TestValidateFilterFields_TimestampsAlwaysAllowed(t *testing.T) {
	raw := "{createdAt=gte:2023-01-01,updatedAt=lte:2024-01-01,secret=x}"

	out := ValidateFilterFields(raw, testSchema(), zap.NewNop())

	assert.Contains(t, out, "createdAt")
	assert.Contains(t, out, "updatedAt")
	assert.NotContains(t, out, "secret")
}

func TestValidateFilterFields_OnlyAllowListedKeys(t *testing.T) {
	out := ValidateFilterFields("{status=eq:active,notes=x,bogus=1}", testSchema(), zap.NewNop())

	for key := range out {
		assert.True(t, testSchema().Queryable(key), "unexpected key %q in sanitized filter", key)
	}
	assert.Equal(t, Filter{"status": Filter{"eq": "active"}}, out)
}

func TestValidateFilterFields_RejectionIsLoggedNotFatal(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	out := ValidateFilterFields("{secret=x,name=Bob}", testSchema(), zap.New(core))

	assert.Equal(t, Filter{"name": "Bob"}, out)

	entries := logs.FilterField(zap.String("field", "secret")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}

func TestValidateFilterFields_StringAndMappingAgree(t *testing.T) {
	fromString := ValidateFilterFields("{name=Bob,priority=2}", testSchema(), zap.NewNop())
	fromMap := ValidateFilterFields(map[string]interface{}{
		"name":     "Bob",
		"priority": float64(2),
	}, testSchema(), zap.NewNop())

	assert.Equal(t, fromString, fromMap)
}

// -------------------- Schema --------------------

func TestSchemaQueryable(t *testing.T) {
	s := testSchema()

	assert.True(t, s.Queryable("name"))
	assert.False(t, s.Queryable("age"))
	assert.False(t, s.Queryable("unknown"))
	assert.True(t, s.Queryable(FieldCreatedAt))
	assert.True(t, s.Queryable(FieldUpdatedAt))
}
