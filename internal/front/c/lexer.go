package c

import "github.com/alecthomas/participle/v2/lexer"

// CLexer is the stateful token lexer for the reference C-like front end,
// built the same way grammar/lexer.go builds KansoLexer: one flat rule set,
// ordered so the longest/most specific alternative always wins (UintType
// before Ident, multi-character operators before their single-character
// prefixes).
var CLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Comment", Pattern: `//[^\n]*`, Action: nil},
		{Name: "UintType", Pattern: `u(8|16|32|64|128)\b`, Action: nil},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
		{Name: "Int", Pattern: `0x[0-9a-fA-F]+|[0-9]+`, Action: nil},
		{Name: "Operator", Pattern: `==|!=|<=|>=|&&|\|\||[-+*/%<>=!]`, Action: nil},
		{Name: "Punct", Pattern: `[(){}\[\],;]`, Action: nil},
		{Name: "Whitespace", Pattern: `\s+`, Action: nil},
	},
})
