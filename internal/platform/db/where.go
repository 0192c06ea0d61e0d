package db

import (
	"strconv"
	"strings"
)

// Where accumulates AND-ed filter clauses with positional arguments. Each
// clause uses "?" as the placeholder for its single argument.
type Where struct {
	clauses []string
	args    []any
}

// Add appends clause bound to arg.
func (w *Where) Add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, "("+strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(w.args)))+")")
}

// SQL renders " WHERE ..." or an empty string.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the bound arguments in placeholder order.
func (w *Where) Args() []any {
	return w.args
}

// Contains wraps s for an ILIKE substring match.
func Contains(s string) string {
	return "%" + s + "%"
}
