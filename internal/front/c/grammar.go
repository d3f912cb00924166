// Package c is the reference C-like front end: a participle struct-tag
// grammar doubling as the AST (the same idiom grammar/grammar.go uses),
// plus a build pass that drives a Circify session over it. Unlike the
// source project's flat BinaryExpr/BinOp grammar, expression precedence is
// encoded as nested grammar rules (Or -> And -> Eq -> Rel -> Add -> Mul ->
// Unary -> Postfix -> Primary): this is a fresh language, not a port of an
// existing DSL's grammar shape, so there is no reason to keep the flat
// encoding and its implicit evaluation order for mixed-operator
// expressions.
package c

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

// Program is a sequence of top-level function declarations.
type Program struct {
	Functions []*Function `{ @@ }`
}

// TypeName names a value type: "bool", "field", or "u<width>".
type TypeName struct {
	Bool  bool    `  @"bool"`
	Field bool    `| @"field"`
	Uint  *string `| @UintType`
}

func (t *TypeName) String() string {
	switch {
	case t.Bool:
		return "bool"
	case t.Field:
		return "field"
	case t.Uint != nil:
		return *t.Uint
	default:
		return "?"
	}
}

// ArraySuffix marks a parameter or local declaration as an array of the
// preceding element type, with a constant length.
type ArraySuffix struct {
	Len string `"[" @Int "]"`
}

// Param is one function parameter: `<type> <name>` or `<type> <name>[<n>]`.
type Param struct {
	Type  *TypeName    `@@`
	Name  string       `@Ident`
	Array *ArraySuffix `@@?`
}

// Function is `<returnType> <name> ( <params>,* ) <block>`.
type Function struct {
	Return *TypeName `@@`
	Name   string    `@Ident`
	Params []*Param  `"(" [ @@ { "," @@ } ] ")"`
	Body   *Block    `@@`
}

type Block struct {
	Statements []*Statement `"{" { @@ } "}"`
}

// Statement is a tagged union over the language's statement forms;
// exactly one alternative matches per parse. Let and Assign carry their
// own trailing ";" here rather than in LetStmt/AssignStmt themselves,
// since ForStmt reuses both sub-rules with its own ";" / ")" separators
// instead.
type Statement struct {
	Let    *LetStmt    `  @@ ";"`
	If     *IfStmt     `| @@`
	For    *ForStmt    `| @@`
	Assert *AssertStmt `| @@`
	Return *ReturnStmt `| @@`
	Assign *AssignStmt `| @@ ";"`
}

// LetStmt declares a new local: `<type> <name> = <expr>` or, for arrays,
// `<type> <name>[<n>] = { <expr>,* }` — the caller supplies the
// terminator (";" in a Statement, ";" again after ForStmt's Init).
type LetStmt struct {
	Type  *TypeName    `@@`
	Name  string       `@Ident`
	Array *ArraySuffix `@@?`
	Value *Expr        `"=" @@`
}

// AssignStmt rebinds an existing local, or stores into an array cell:
// `<name> = <expr>` / `<name> [ <index> ] = <expr>` — the caller supplies
// the terminator (";" in a Statement, ")" as ForStmt's Step).
type AssignStmt struct {
	Name  string `@Ident`
	Index *Expr  `[ "[" @@ "]" ]`
	Value *Expr  `"=" @@`
}

type IfStmt struct {
	Cond *Expr  `"if" "(" @@ ")"`
	Then *Block `@@`
	Else *Block `[ "else" @@ ]`
}

// ForStmt is a bounded C-style loop: `for ( <init> ; <cond> ; <step> ) <body>`.
// build.go never circifies Cond itself: it statically computes a trip count
// from Init's literal starting value and Cond's literal bound, then unrolls
// Body+Step that many times, rejecting anything it can't bound up front
// (see front.LoopBoundExceededError).
type ForStmt struct {
	Init *LetStmt    `"for" "(" @@ ";"`
	Cond *Expr       `@@ ";"`
	Step *AssignStmt `@@ ")"`
	Body *Block      `@@`
}

type AssertStmt struct {
	Cond *Expr `"assert" "(" @@ ")" ";"`
}

type ReturnStmt struct {
	Value *Expr `"return" @@ ";"`
}

// Expr is the top of the precedence chain.
type Expr struct {
	Left *AndExpr   `@@`
	Rest []*AndExpr `{ "||" @@ }`
}

type AndExpr struct {
	Left *EqExpr   `@@`
	Rest []*EqExpr `{ "&&" @@ }`
}

// EqCmp is the (at most one) equality comparison tailing a relational
// expression: equality does not chain.
type EqCmp struct {
	Op    string   `@( "==" | "!=" )`
	Right *RelExpr `@@`
}

type EqExpr struct {
	Left *RelExpr `@@`
	Cmp  *EqCmp   `@@?`
}

type RelCmp struct {
	Op    string   `@( "<=" | ">=" | "<" | ">" )`
	Right *AddExpr `@@`
}

type RelExpr struct {
	Left *AddExpr `@@`
	Cmp  *RelCmp  `@@?`
}

type AddTerm struct {
	Op    string   `@( "+" | "-" )`
	Right *MulExpr `@@`
}

type AddExpr struct {
	Left *MulExpr   `@@`
	Ops  []*AddTerm `{ @@ }`
}

type MulTerm struct {
	Op    string     `@( "*" | "/" | "%" )`
	Right *UnaryExpr `@@`
}

type MulExpr struct {
	Left *UnaryExpr `@@`
	Ops  []*MulTerm `{ @@ }`
}

// UnaryExpr is an optional prefix "!" or "-" applied to a Postfix operand.
type UnaryExpr struct {
	Op    *string      `[ @( "!" | "-" ) ]`
	Value *PostfixExpr `@@`
}

// PostfixExpr is a primary value followed by zero or more array-index
// suffixes.
type PostfixExpr struct {
	Primary *Primary `@@`
	Index   []*Expr  `{ "[" @@ "]" }`
}

// Primary is a literal integer/bool, an identifier, an array literal, or a
// parenthesized sub-expression.
type Primary struct {
	Int   *IntLit `  @@`
	True  bool    `| @"true"`
	False bool    `| @"false"`
	Array []*Expr `| "{" [ @@ { "," @@ } ] "}"`
	Paren *Expr   `| "(" @@ ")"`
	Ident *string `| @Ident`
}

// IntLit is an integer literal, optionally suffixed with a bitvector width
// ("200u8"); an unsuffixed literal is Field-sorted.
type IntLit struct {
	Value string  `@Int`
	Width *string `[ @UintType ]`
}

// Parser is the shared participle instance front/c's build pass parses
// source text with.
var Parser = participle.MustBuild[Program](
	participle.Lexer(CLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses a complete program from source text.
func Parse(filename, src string) (*Program, error) {
	prog, err := Parser.ParseString(filename, src)
	if err != nil {
		return nil, fmt.Errorf("front/c: parse error: %w", err)
	}
	return prog, nil
}
