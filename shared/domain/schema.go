package domain

// ---------------- Esquema de campos ----------------

type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
	FieldBool   FieldType = "bool"
)

// Campos de timestamp siempre consultables, estén o no en el esquema.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// FieldDescriptor describe un campo del esquema. La capacidad de consulta
// es un flag explícito fijado al construir el esquema, no se infiere de la
// estructura del metadato en tiempo de filtrado.
type FieldDescriptor struct {
	Type      FieldType
	Queryable bool
}

// Schema mapea nombre de campo a su descriptor.
type Schema map[string]FieldDescriptor

// Queryable indica si un campo puede aparecer en un filtro de usuario.
// createdAt y updatedAt se permiten incondicionalmente.
func (s Schema) Queryable(field string) bool {
	if field == FieldCreatedAt || field == FieldUpdatedAt {
		return true
	}
	desc, ok := s[field]
	return ok && desc.Queryable
}
