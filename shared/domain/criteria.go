package domain

import (
	"sort"
	"strings"
)

// ---------------- Operadores ----------------

type Operator string

const (
	OpEq    Operator = "="
	OpGt    Operator = ">"
	OpGte   Operator = ">="
	OpLt    Operator = "<"
	OpLte   Operator = "<="
	OpLike  Operator = "LIKE"
	OpILike Operator = "ILIKE"
)

type LogicalOperator string

const (
	OpAnd LogicalOperator = "AND"
	OpOr  LogicalOperator = "OR"
)

// ---------------- Criterion ----------------

// Criterion describe una condición neutral de filtrado
type Criterion struct {
	Field string
	Op    Operator
	Value interface{}
}

// ---------------- Criteria interface ----------------

// Criteria permite transformar filtros a condiciones neutrales
type Criteria interface {
	ToConditions() []Criterion
}

// ---------------- Filter → Criteria ----------------

// Nombres de operador aceptados en los filtros, con o sin '$' inicial.
var operatorByName = map[string]Operator{
	"eq":   OpEq,
	"gt":   OpGt,
	"gte":  OpGte,
	"lt":   OpLt,
	"lte":  OpLte,
	"like": OpLike,
}

// ToConditions convierte un filtro saneado a condiciones neutrales que los
// repositorios traducen a SQL/BSON. Un valor plano es igualdad; un objeto
// de operador usa el operador que nombra su clave. Un nombre de operador
// desconocido cae a igualdad sobre el operando. Las condiciones salen
// ordenadas por campo para que las consultas generadas sean estables.
func (f Filter) ToConditions() []Criterion {
	conds := make([]Criterion, 0, len(f))
	for field, value := range f {
		switch v := value.(type) {
		case Filter:
			conds = append(conds, operatorConditions(field, v)...)
		case map[string]interface{}:
			conds = append(conds, operatorConditions(field, v)...)
		default:
			conds = append(conds, Criterion{Field: field, Op: OpEq, Value: value})
		}
	}
	sort.Slice(conds, func(i, j int) bool { return conds[i].Field < conds[j].Field })
	return conds
}

func operatorConditions(field string, obj map[string]interface{}) []Criterion {
	var conds []Criterion
	for name, operand := range obj {
		op, ok := operatorByName[strings.TrimPrefix(name, "$")]
		if !ok {
			op = OpEq
		}
		conds = append(conds, Criterion{Field: field, Op: op, Value: operand})
	}
	return conds
}

var _ Criteria = Filter(nil)

// ---------------- Composite Criteria ----------------

type CompositeCriteria struct {
	Operator  LogicalOperator
	Criterias []Criteria
}

func (c CompositeCriteria) ToConditions() []Criterion {
	var all []Criterion
	for _, crit := range c.Criterias {
		all = append(all, crit.ToConditions()...)
	}
	return all
}

// ---------------- Helpers ----------------

// And crea un CompositeCriteria con operador AND
func And(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpAnd, Criterias: criterias}
}

// Or crea un CompositeCriteria con operador OR
func Or(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpOr, Criterias: criterias}
}
