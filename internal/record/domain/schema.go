package domain

import (
	sharedDomain "github.com/davicafu/querylab/shared/domain"
)

// NewRecordSchema construye el esquema de campos de Record. El flag
// Queryable se fija aquí, en tiempo de construcción del esquema; el
// validador de filtros no infiere nada de la forma del metadato.
func NewRecordSchema() sharedDomain.Schema {
	return sharedDomain.Schema{
		"name":     {Type: sharedDomain.FieldString, Queryable: true},
		"status":   {Type: sharedDomain.FieldString, Queryable: true},
		"priority": {Type: sharedDomain.FieldNumber, Queryable: true},
		// notes existe en el esquema pero no se expone a filtros de usuario
		"notes": {Type: sharedDomain.FieldString},
	}
}
