package ir

import (
	"fmt"

	"gyre/internal/field"
)

// OpTag identifies an operator family member. Arity and the sort rule are
// determined by the tag plus the Op's parameters (width, extract bounds...).
type OpTag int

const (
	OpConst OpTag = iota
	OpVar

	OpNot
	OpAnd
	OpOr
	OpXor
	OpImplies
	OpEq
	OpIte

	OpBvAdd
	OpBvSub
	OpBvMul
	OpBvUDiv
	OpBvURem
	OpBvNeg
	OpBvShl
	OpBvLShr
	OpBvAShr
	OpBvAnd
	OpBvOr
	OpBvXor
	OpBvNot
	OpBvUlt
	OpBvUle
	OpBvUgt
	OpBvUge
	OpBvSlt
	OpBvExtract
	OpBvConcat
	OpBvZeroExt
	OpBvSignExt
	OpBvToField
	OpFieldToBv

	OpFieldAdd
	OpFieldMul
	OpFieldNeg
	OpFieldInv

	OpSelect
	OpStore
	OpConstArray

	OpTupleField
	OpTupleMake
)

func (t OpTag) String() string {
	names := map[OpTag]string{
		OpConst: "Const", OpVar: "Var",
		OpNot: "Not", OpAnd: "And", OpOr: "Or", OpXor: "Xor", OpImplies: "Implies", OpEq: "Eq", OpIte: "Ite",
		OpBvAdd: "BV.Add", OpBvSub: "BV.Sub", OpBvMul: "BV.Mul", OpBvUDiv: "BV.UDiv", OpBvURem: "BV.URem",
		OpBvNeg: "BV.Neg", OpBvShl: "BV.Shl", OpBvLShr: "BV.LShr", OpBvAShr: "BV.AShr",
		OpBvAnd: "BV.And", OpBvOr: "BV.Or", OpBvXor: "BV.Xor", OpBvNot: "BV.Not",
		OpBvUlt: "BV.Ult", OpBvUle: "BV.Ule", OpBvUgt: "BV.Ugt", OpBvUge: "BV.Uge", OpBvSlt: "BV.Slt",
		OpBvExtract: "BV.Extract", OpBvConcat: "BV.Concat", OpBvZeroExt: "BV.ZeroExt", OpBvSignExt: "BV.SignExt",
		OpBvToField: "BV.ToField", OpFieldToBv: "Field.ToBv",
		OpFieldAdd: "Field.Add", OpFieldMul: "Field.Mul", OpFieldNeg: "Field.Neg", OpFieldInv: "Field.Inv",
		OpSelect: "Select", OpStore: "Store", OpConstArray: "ConstArray",
		OpTupleField: "Tuple.Field", OpTupleMake: "Tuple.Make",
	}
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("Op(%d)", int(t))
}

// Op is an operator application site: a tag plus whatever static parameters
// the tag requires (extract bounds, extension width, tuple index...).
type Op struct {
	Tag OpTag

	// OpBvExtract
	Hi, Lo int
	// OpBvZeroExt, OpBvSignExt
	ExtBits int
	// OpFieldToBv
	ToWidth int
	// OpTupleField
	Index int
	// OpConstArray
	Len     int
	KeySort *Sort
	// OpBvToField
	FieldMod *field.Field
}

func (o Op) key() string {
	fm := ""
	if o.FieldMod != nil {
		fm = o.FieldMod.Modulus().String()
	}
	ks := ""
	if o.KeySort != nil {
		ks = o.KeySort.String()
	}
	return fmt.Sprintf("%s/%d/%d/%d/%d/%d/%d/%s/%s", o.Tag, o.Hi, o.Lo, o.ExtBits, o.ToWidth, o.Index, o.Len, ks, fm)
}
