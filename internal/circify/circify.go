package circify

import (
	"fmt"

	"gyre/internal/ir"
)

const retName = "return"
const retBreakName = "return"

type lexEntry[Ty any] struct {
	ver     int
	ssaName string
	name    string
	ty      Ty
}

func (e *lexEntry[Ty]) nextVer() { e.ver++; e.setSsaName() }
func (e *lexEntry[Ty]) setSsaName() {
	e.ssaName = fmt.Sprintf("%s_v%d", e.name, e.ver)
}

func newLexEntry[Ty any](name string, ty Ty) *lexEntry[Ty] {
	e := &lexEntry[Ty]{name: name, ty: ty}
	e.setSsaName()
	return e
}

// lexScope maps source-level names to their current SSA entry, within one
// lexical block of one function (or the global scope).
type lexScope[Ty any] struct {
	prefix  string
	entries map[string]*lexEntry[Ty]
}

func newLexScope[Ty any](prefix string) *lexScope[Ty] {
	return &lexScope[Ty]{prefix: prefix, entries: map[string]*lexEntry[Ty]{}}
}

func (s *lexScope[Ty]) declare(name string, ty Ty) (string, error) {
	if existing, ok := s.entries[name]; ok {
		return "", &RebindError{Name: name, Kind: fmt.Sprintf("%v", existing.ty)}
	}
	e := newLexEntry(fmt.Sprintf("%s_%s", s.prefix, name), ty)
	s.entries[name] = e
	return e.ssaName, nil
}

func (s *lexScope[Ty]) getName(name string) (string, error) {
	e, ok := s.entries[name]
	if !ok {
		return "", &NoNameError{Name: name}
	}
	return e.ssaName, nil
}

func (s *lexScope[Ty]) getTy(name string) (Ty, error) {
	e, ok := s.entries[name]
	if !ok {
		var zero Ty
		return zero, &NoNameError{Name: name}
	}
	return e.ty, nil
}

func (s *lexScope[Ty]) nextVer(name string) (string, error) {
	e, ok := s.entries[name]
	if !ok {
		return "", &NoNameError{Name: name}
	}
	e.nextVer()
	return e.ssaName, nil
}

func (s *lexScope[Ty]) hasName(name string) bool {
	_, ok := s.entries[name]
	return ok
}

type stateKind int

const (
	stateLex stateKind = iota
	stateCond
	stateBreak
)

type stateEntry[Ty any] struct {
	kind       stateKind
	lex        *lexScope[Ty]
	cond       *ir.Term
	breakName  string
	breakConds []*ir.Term
}

// FnFrame is one function's stack of lexical scopes, conditionals and
// breakable blocks, plus the naming state used to generate fresh SSA bases.
type FnFrame[Ty any] struct {
	stack     []*stateEntry[Ty]
	scopeCtr  int
	prefix    string
	name      string
	hasReturn bool
}

func newFnFrame[Ty any](name, prefix string, hasReturn bool) *FnFrame[Ty] {
	f := &FnFrame[Ty]{prefix: prefix, name: name, hasReturn: hasReturn}
	f.enterScope()
	f.enterBreakable(retBreakName)
	return f
}

func (f *FnFrame[Ty]) lastLex() (*lexScope[Ty], error) {
	for i := len(f.stack) - 1; i >= 0; i-- {
		if f.stack[i].kind == stateLex {
			return f.stack[i].lex, nil
		}
	}
	return nil, &NoScopeError{FnName: f.name}
}

func (f *FnFrame[Ty]) declare(name string, ty Ty) (string, error) {
	lex, err := f.lastLex()
	if err != nil {
		return "", err
	}
	return lex.declare(name, ty)
}

func (f *FnFrame[Ty]) enterScope() {
	f.stack = append(f.stack, &stateEntry[Ty]{
		kind: stateLex,
		lex:  newLexScope[Ty](fmt.Sprintf("%s_lex%d", f.prefix, f.scopeCtr)),
	})
	f.scopeCtr++
}

func (f *FnFrame[Ty]) exitScope() {
	n := len(f.stack) - 1
	if n < 0 || f.stack[n].kind != stateLex {
		panic("circify: stack does not end with a scope")
	}
	f.stack = f.stack[:n]
}

func (f *FnFrame[Ty]) enterCondition(cond *ir.Term) error {
	if cond.Sort().Kind != ir.KindBool {
		return &NotBoolError{Term: cond}
	}
	f.stack = append(f.stack, &stateEntry[Ty]{kind: stateCond, cond: cond})
	return nil
}

func (f *FnFrame[Ty]) exitCondition() {
	n := len(f.stack) - 1
	if n < 0 || f.stack[n].kind != stateCond {
		panic("circify: stack does not end with a condition")
	}
	f.stack = f.stack[:n]
}

func (f *FnFrame[Ty]) conditions() []*ir.Term {
	var cs []*ir.Term
	for _, s := range f.stack {
		switch s.kind {
		case stateCond:
			cs = append(cs, s.cond)
		case stateBreak:
			for _, bc := range s.breakConds {
				cs = append(cs, ir.MustMk(ir.Op{Tag: ir.OpNot}, bc))
			}
		}
	}
	return cs
}

func (f *FnFrame[Ty]) enterBreakable(name string) {
	f.stack = append(f.stack, &stateEntry[Ty]{kind: stateBreak, breakName: name})
}

func (f *FnFrame[Ty]) exitBreakable() {
	n := len(f.stack) - 1
	if n < 0 || f.stack[n].kind != stateBreak {
		panic("circify: stack does not end with a breakable block")
	}
	f.stack = f.stack[:n]
}

func (f *FnFrame[Ty]) breakTo(name string) error {
	var breakIf []*ir.Term
	for i := len(f.stack) - 1; i >= 0; i-- {
		s := f.stack[i]
		switch s.kind {
		case stateCond:
			breakIf = append(breakIf, s.cond)
		case stateBreak:
			if s.breakName == name {
				var cond *ir.Term
				if len(breakIf) == 0 {
					cond = ir.NewConst(ir.BoolValue(true))
				} else {
					cond = andAll(breakIf)
				}
				s.breakConds = append(s.breakConds, cond)
				return nil
			}
			for _, bc := range s.breakConds {
				breakIf = append(breakIf, ir.MustMk(ir.Op{Tag: ir.OpNot}, bc))
			}
		}
	}
	return &UnknownBreakError{Label: name}
}

func andAll(terms []*ir.Term) *ir.Term {
	acc := terms[0]
	for _, t := range terms[1:] {
		acc = ir.MustMk(ir.Op{Tag: ir.OpAnd}, acc, t)
	}
	return acc
}

// Circify drives an Embeddable language through declare/assign/scope/
// condition/break/fn operations, producing guarded-SSA term values and
// collecting top-level assertions in its CirCtx.
type Circify[Ty any, T any] struct {
	e         Embeddable[Ty, T]
	vals      map[string]Val[T]
	fnStack   []*FnFrame[Ty]
	fnCtr     int
	globals   *lexScope[Ty]
	ctx       *CirCtx
	condition *ir.Term
	typedefs  map[string]Ty
}

func New[Ty any, T any](e Embeddable[Ty, T]) *Circify[Ty, T] {
	return &Circify[Ty, T]{
		e:         e,
		vals:      map[string]Val[T]{},
		globals:   newLexScope[Ty]("global"),
		ctx:       NewCirCtx(),
		condition: ir.NewConst(ir.BoolValue(true)),
		typedefs:  map[string]Ty{},
	}
}

func (c *Circify[Ty, T]) Ctx() *CirCtx { return c.ctx }

func (c *Circify[Ty, T]) curFn() *FnFrame[Ty] {
	if len(c.fnStack) == 0 {
		panic("circify: no fn")
	}
	return c.fnStack[len(c.fnStack)-1]
}

// Declare allocates a fresh, unconstrained value of type ty under name, in
// the current lexical scope (or globals, if no function is active).
func (c *Circify[Ty, T]) Declare(name string, ty Ty, input, public bool) error {
	var ssaName string
	var err error
	if len(c.fnStack) > 0 {
		ssaName, err = c.fnStack[len(c.fnStack)-1].declare(name, ty)
	} else {
		ssaName, err = c.globals.declare(name, ty)
	}
	if err != nil {
		return err
	}
	var userName *string
	if input {
		n := name
		userName = &n
	}
	t := c.e.Declare(c.ctx, ty, ssaName, userName, public)
	if _, exists := c.vals[ssaName]; exists {
		panic("circify: ssa name collision on " + ssaName)
	}
	c.vals[ssaName] = TermVal(t)
	return nil
}

// mkAbs resolves name to the (function, lexical) scope that currently
// binds it, searching innermost-scope-first within the active function and
// falling back to globals. idx == nil, ok == true means "found, global".
func (c *Circify[Ty, T]) mkAbs(name string) (idx *scopeIdx, ok bool, err error) {
	if len(c.fnStack) > 0 {
		fnIdx := len(c.fnStack) - 1
		fn := c.fnStack[fnIdx]
		for lexIdx := len(fn.stack) - 1; lexIdx >= 0; lexIdx-- {
			e := fn.stack[lexIdx]
			if e.kind == stateLex && e.lex.hasName(name) {
				return &scopeIdx{fn: fnIdx, lex: lexIdx}, true, nil
			}
		}
	}
	if c.globals.hasName(name) {
		return nil, true, nil
	}
	return nil, false, &NoNameError{Name: name}
}

func (c *Circify[Ty, T]) getScope(idx *scopeIdx) *lexScope[Ty] {
	if idx == nil {
		return c.globals
	}
	return c.fnStack[idx.fn].stack[idx.lex].lex
}

func (c *Circify[Ty, T]) getLex(loc Loc) (*lexScope[Ty], error) {
	if loc.resolved {
		return c.getScope(loc.idx), nil
	}
	idx, found, err := c.mkAbs(loc.Name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &NoNameError{Name: loc.Name}
	}
	return c.getScope(idx), nil
}

// DeclareInit declares name and immediately assigns val to it.
func (c *Circify[Ty, T]) DeclareInit(name string, ty Ty, val Val[T], public bool) (Val[T], error) {
	if err := c.Declare(name, ty, false, public); err != nil {
		return Val[T]{}, err
	}
	return c.Assign(LocalLoc(name), val)
}

// Assign rewrites loc's current value through Ite(condition, new, old) —
// the guarded-SSA rule — except when val is a Ref, which simply replaces
// the binding: references are l-values, not constrainable data, and are
// never merged across a path condition.
func (c *Circify[Ty, T]) Assign(loc Loc, val Val[T]) (Val[T], error) {
	lex, err := c.getLex(loc)
	if err != nil {
		return Val[T]{}, err
	}
	oldName, err := lex.getName(loc.Name)
	if err != nil {
		return Val[T]{}, err
	}
	ty, err := lex.getTy(loc.Name)
	if err != nil {
		return Val[T]{}, err
	}
	newName, err := lex.nextVer(loc.Name)
	if err != nil {
		return Val[T]{}, err
	}
	oldVal, ok := c.vals[oldName]
	if !ok {
		panic("circify: missing ssa value for " + oldName)
	}

	if val.IsRef() {
		c.vals[newName] = val
		return val, nil
	}
	if oldVal.IsRef() {
		return Val[T]{}, &MisTypedAssignError{
			NewVal: fmt.Sprintf("%v", val),
			Loc:    loc.String(),
			OldVal: fmt.Sprintf("%v", oldVal),
		}
	}

	guard := c.condition
	iteVal := c.e.Ite(c.ctx, guard, val.Term, oldVal.Term)
	newVal := TermVal(c.e.Assign(c.ctx, ty, newName, iteVal))
	c.vals[newName] = newVal
	return newVal, nil
}

func (c *Circify[Ty, T]) EnterBreakable(name string) { c.curFn().enterBreakable(name) }
func (c *Circify[Ty, T]) ExitBreakable()             { c.curFn().exitBreakable() }
func (c *Circify[Ty, T]) Break(name string) error    { return c.curFn().breakTo(name) }
func (c *Circify[Ty, T]) EnterScope()                { c.curFn().enterScope() }
func (c *Circify[Ty, T]) ExitScope()                 { c.curFn().exitScope() }

func (c *Circify[Ty, T]) EnterCondition(cond *ir.Term) error {
	if cond.Sort().Kind != ir.KindBool {
		return &NotBoolError{Term: cond}
	}
	if err := c.curFn().enterCondition(cond); err != nil {
		return err
	}
	c.condition = c.Condition()
	return nil
}

func (c *Circify[Ty, T]) ExitCondition() {
	c.curFn().exitCondition()
	c.condition = c.Condition()
}

// Condition is the conjunction of every guard currently in scope across
// the whole function stack: every active CondGuard, plus "not yet broken"
// for every enclosing Breakable.
func (c *Circify[Ty, T]) Condition() *ir.Term {
	var cs []*ir.Term
	for _, f := range c.fnStack {
		cs = append(cs, f.conditions()...)
	}
	if len(cs) == 0 {
		return ir.NewConst(ir.BoolValue(true))
	}
	return andAll(cs)
}

// EnterFn pushes a new function frame, which always carries a
// Breakable("return") that the Return method breaks to. A non-nil retTy
// also declares a hidden "return" local.
func (c *Circify[Ty, T]) EnterFn(name string, retTy *Ty) {
	prefix := fmt.Sprintf("%s_f%d", name, c.fnCtr)
	c.fnCtr++
	frame := newFnFrame[Ty](name, prefix, retTy != nil)
	c.fnStack = append(c.fnStack, frame)
	if retTy != nil {
		if err := c.Declare(retName, *retTy, false, false); err != nil {
			panic("circify: bad return name in fn enter: " + err.Error())
		}
	}
}

// Return assigns val (if any) to the hidden return local and breaks out of
// the function's implicit "return" breakable.
func (c *Circify[Ty, T]) Return(val *T) error {
	last := c.curFn()
	if (val != nil) != last.hasReturn {
		return &ReturnMismatchError{FnName: last.name, HasReturn: last.hasReturn, GaveValue: val != nil}
	}
	if val != nil {
		if _, err := c.Assign(LocalLoc(retName), TermVal(*val)); err != nil {
			return err
		}
	}
	return c.Break(retBreakName)
}

func (c *Circify[Ty, T]) Assert(t *ir.Term) { c.ctx.Assert(t) }

// ExitFn pops the current function frame, returning its return value (if
// it declared one).
func (c *Circify[Ty, T]) ExitFn() *Val[T] {
	if len(c.fnStack) == 0 {
		panic("circify: no fn to exit")
	}
	fn := c.fnStack[len(c.fnStack)-1]
	var ret *Val[T]
	if fn.hasReturn {
		v, err := c.GetValue(LocalLoc(retName))
		if err != nil {
			panic("circify: " + err.Error())
		}
		ret = &v
	}
	c.fnStack = c.fnStack[:len(c.fnStack)-1]
	return ret
}

func (c *Circify[Ty, T]) GetValue(loc Loc) (Val[T], error) {
	lex, err := c.getLex(loc)
	if err != nil {
		return Val[T]{}, err
	}
	name, err := lex.getName(loc.Name)
	if err != nil {
		return Val[T]{}, err
	}
	v, ok := c.vals[name]
	if !ok {
		return Val[T]{}, &InvalidLocError{Loc: loc.Name}
	}
	return v, nil
}

func (c *Circify[Ty, T]) Deref(v Val[T]) Loc {
	if !v.IsRef() {
		panic(fmt.Sprintf("circify: %v is not dereferencable", v))
	}
	return *v.Ref
}

// Ref builds a reference value pinned to name's current scope.
func (c *Circify[Ty, T]) Ref(name string) (Val[T], error) {
	idx, found, err := c.mkAbs(name)
	if err != nil {
		return Val[T]{}, err
	}
	if !found {
		return Val[T]{}, &NoNameError{Name: name}
	}
	return RefVal[T](Loc{Name: name, resolved: true, idx: idx}), nil
}

func (c *Circify[Ty, T]) DefType(name string, ty Ty) {
	if _, exists := c.typedefs[name]; exists {
		panic(fmt.Sprintf("circify: %s already defined as a type", name))
	}
	c.typedefs[name] = ty
}

func (c *Circify[Ty, T]) GetType(name string) Ty {
	ty, ok := c.typedefs[name]
	if !ok {
		panic("circify: no type " + name)
	}
	return ty
}
