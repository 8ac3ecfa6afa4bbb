package script

import (
	"fmt"
	"sort"
	"strings"
)

// Value is a Python expression rendered into the generated script.
type Value interface {
	expr() string
}

type rawValue string

func (v rawValue) expr() string { return string(v) }

// Raw emits a Python expression verbatim (e.g. a host.data lookup).
func Raw(s string) Value { return rawValue(s) }

// Str emits a single-quoted Python string literal.
func Str(s string) Value { return rawValue(quotePy(s)) }

// FStr emits a Python f-string literal; interpolations use the variables
// bound in the generated script (see Builder.Assign).
func FStr(s string) Value { return rawValue("f" + quotePy(s)) }

// Bool emits a Python boolean.
func Bool(b bool) Value {
	if b {
		return rawValue("True")
	}
	return rawValue("False")
}

// Int emits a Python integer.
func Int(i int) Value { return rawValue(fmt.Sprintf("%d", i)) }

// None emits Python None.
func None() Value { return rawValue("None") }

// List emits a Python list of values.
func List(items ...Value) Value {
	exprs := make([]string, len(items))
	for i, item := range items {
		exprs[i] = item.expr()
	}
	return rawValue("[" + strings.Join(exprs, ", ") + "]")
}

// Strs emits a Python list of string literals.
func Strs(items []string) Value {
	vals := make([]Value, len(items))
	for i, item := range items {
		vals[i] = Str(item)
	}
	return List(vals...)
}

// FStrs emits a Python list of f-string literals.
func FStrs(items []string) Value {
	vals := make([]Value, len(items))
	for i, item := range items {
		vals[i] = FStr(item)
	}
	return List(vals...)
}

// quotePy renders a single-quoted Python string literal. The escape set
// covers everything config values can realistically contain.
func quotePy(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// Literal renders a plain Go value as a Python literal. Maps are rendered
// with sorted keys so output is deterministic.
func Literal(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case bool:
		if val {
			return "True"
		}
		return "False"
	case string:
		return quotePy(val)
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	case []string:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = quotePy(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case []interface{}:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = Literal(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case []map[string]interface{}:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = Literal(map[string]interface{}(item))
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = quotePy(k) + ": " + Literal(val[k])
		}
		return "{" + strings.Join(pairs, ", ") + "}"
	default:
		// Uncommon YAML scalar types fall back to their string form.
		return quotePy(fmt.Sprintf("%v", val))
	}
}
