package script

import (
	"fmt"
	"strings"
)

// Arg is a keyword argument to a pyinfra operation call.
type Arg struct {
	Name  string
	Value Value
}

// KV builds a keyword argument.
func KV(name string, value Value) Arg {
	return Arg{Name: name, Value: value}
}

// Builder accumulates generated Python source. It tracks indentation so
// modules can emit conditional blocks and loops without string surgery.
type Builder struct {
	buf    strings.Builder
	indent int
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// line writes one indented line.
func (b *Builder) line(s string) {
	if s == "" {
		b.buf.WriteByte('\n')
		return
	}
	b.buf.WriteString(strings.Repeat("    ", b.indent))
	b.buf.WriteString(s)
	b.buf.WriteByte('\n')
}

// Linef writes a formatted raw Python line.
func (b *Builder) Linef(format string, args ...interface{}) {
	b.line(fmt.Sprintf(format, args...))
}

// Blank writes an empty line.
func (b *Builder) Blank() {
	b.line("")
}

// Comment writes a Python comment line.
func (b *Builder) Comment(format string, args ...interface{}) {
	b.line("# " + fmt.Sprintf(format, args...))
}

// Assign writes a variable assignment, e.g.
// app_user = host.data.get('app_user', 'app').
func (b *Builder) Assign(name, expr string) {
	b.line(name + " = " + expr)
}

// Op writes a pyinfra operation call with one keyword argument per line.
// The operation name argument comes first, matching pyinfra convention.
func (b *Builder) Op(call, name string, args ...Arg) {
	b.line(call + "(")
	b.indent++
	if name != "" {
		b.line("name=" + quotePy(name) + ",")
	}
	for _, arg := range args {
		b.line(arg.Name + "=" + arg.Value.expr() + ",")
	}
	b.indent--
	b.line(")")
}

// If writes an indented conditional block.
func (b *Builder) If(cond string, body func(*Builder)) {
	b.line("if " + cond + ":")
	b.indent++
	body(b)
	b.indent--
}

// IfElse writes a conditional with both branches.
func (b *Builder) IfElse(cond string, then func(*Builder), els func(*Builder)) {
	b.line("if " + cond + ":")
	b.indent++
	then(b)
	b.indent--
	b.line("else:")
	b.indent++
	els(b)
	b.indent--
}

// For writes an indented loop over a Python iterable expression.
func (b *Builder) For(loopVar, iterable string, body func(*Builder)) {
	b.line("for " + loopVar + " in " + iterable + ":")
	b.indent++
	body(b)
	b.indent--
}

// IfFactMissing guards a block on a pyinfra fact query returning None,
// the convention for "not installed yet" checks.
func (b *Builder) IfFactMissing(fact string, arg Value, body func(*Builder)) {
	b.If(fmt.Sprintf("host.get_fact(%s, %s) is None", fact, arg.expr()), body)
}

// String returns the generated source.
func (b *Builder) String() string {
	return b.buf.String()
}
