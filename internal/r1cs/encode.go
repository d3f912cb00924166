package r1cs

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"gyre/internal/field"
	"gyre/internal/lc"
)

// Flat renders the canonical "one constraint per line, constants first"
// textual form required by spec.md §6. Each line is:
//
//	A_TERMS ; B_TERMS ; C_TERMS
//
// and each *_TERMS is a space-separated list of idx:coeff pairs, the
// constant contribution written first as 0:coeff.
func (b *Builder) Flat() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "modulus %s\n", b.F.Modulus().String())
	for _, cons := range b.constraints {
		sb.WriteString(flatLc(cons.A))
		sb.WriteString(" ; ")
		sb.WriteString(flatLc(cons.B))
		sb.WriteString(" ; ")
		sb.WriteString(flatLc(cons.C))
		sb.WriteString("\n")
	}
	return sb.String()
}

func flatLc(l lc.Lc) string {
	var parts []string
	if !l.Const.IsZero() {
		parts = append(parts, fmt.Sprintf("0:%s", l.Const.BigInt().String()))
	}
	vars := make([]int, 0, len(l.Terms))
	for v := range l.Terms {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	for _, v := range vars {
		parts = append(parts, fmt.Sprintf("%d:%s", v, l.Terms[v].BigInt().String()))
	}
	if len(parts) == 0 {
		parts = append(parts, "0:0")
	}
	return strings.Join(parts, " ")
}

// jsonDoc is the key-value container form: modulus, counts, constraints
// and the public index list, round-trippable via Decode.
type jsonDoc struct {
	Modulus        string         `json:"modulus"`
	NumConstraints int            `json:"num_constraints"`
	NumVars        int            `json:"num_vars"`
	NumInputs      int            `json:"num_inputs"`
	PublicIdxs     []int          `json:"public_idxs"`
	Constraints    []jsonConstr   `json:"constraints"`
}

type jsonConstr struct {
	A []jsonTerm `json:"a"`
	B []jsonTerm `json:"b"`
	C []jsonTerm `json:"c"`
}

type jsonTerm struct {
	Idx   int    `json:"idx"`
	Coeff string `json:"coeff"`
}

// Encode renders the key-value container form described in spec.md §6.
func (b *Builder) Encode() ([]byte, error) {
	doc := jsonDoc{
		Modulus:        b.F.Modulus().String(),
		NumConstraints: len(b.constraints),
		NumVars:        b.NumVars(),
		NumInputs:      len(b.public),
		PublicIdxs:     b.PublicIdxs(),
	}
	for _, cons := range b.constraints {
		doc.Constraints = append(doc.Constraints, jsonConstr{
			A: lcToTerms(cons.A),
			B: lcToTerms(cons.B),
			C: lcToTerms(cons.C),
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

func lcToTerms(l lc.Lc) []jsonTerm {
	var out []jsonTerm
	if !l.Const.IsZero() {
		out = append(out, jsonTerm{Idx: 0, Coeff: l.Const.BigInt().String()})
	}
	vars := make([]int, 0, len(l.Terms))
	for v := range l.Terms {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	for _, v := range vars {
		out = append(out, jsonTerm{Idx: v, Coeff: l.Terms[v].BigInt().String()})
	}
	return out
}

// Decode parses the key-value container form produced by Encode into a
// standalone Instance usable by an external prover (it carries no witness
// plan, only the constraint system).
type Instance struct {
	F           *field.Field
	NumVars     int
	PublicIdxs  []int
	Constraints []Constraint
}

func Decode(data []byte) (*Instance, error) {
	var doc jsonDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	mod, ok := new(big.Int).SetString(doc.Modulus, 10)
	if !ok {
		return nil, fmt.Errorf("r1cs: invalid modulus %q", doc.Modulus)
	}
	f := field.New(mod)
	inst := &Instance{F: f, NumVars: doc.NumVars, PublicIdxs: doc.PublicIdxs}
	for _, c := range doc.Constraints {
		a, err := termsToLc(f, c.A)
		if err != nil {
			return nil, err
		}
		bb, err := termsToLc(f, c.B)
		if err != nil {
			return nil, err
		}
		cc, err := termsToLc(f, c.C)
		if err != nil {
			return nil, err
		}
		inst.Constraints = append(inst.Constraints, Constraint{A: a, B: bb, C: cc})
	}
	return inst, nil
}

func termsToLc(f *field.Field, terms []jsonTerm) (lc.Lc, error) {
	l := lc.Zero(f)
	for _, term := range terms {
		v, ok := new(big.Int).SetString(term.Coeff, 10)
		if !ok {
			return lc.Lc{}, fmt.Errorf("r1cs: invalid coefficient %q", term.Coeff)
		}
		e := f.FromBigInt(v)
		if term.Idx == 0 {
			l = l.AddConst(e)
		} else {
			l = l.Add(lc.FromVar(f, term.Idx).MulConst(e))
		}
	}
	return l, nil
}
