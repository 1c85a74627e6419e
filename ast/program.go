// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ast

// Program is a unified pipeline program: one body describing CPU setup,
// vertex work, and fragment work together, plus the declarations it uses.
//
// The top-level body is straight-line: loops and conditionals are single
// statements.
type Program struct {
	Name string

	// Consts holds module-scope constant declarations.
	Consts []*ConstDecl

	// Globals holds CPU-dynamic globals and samplers.
	Globals []*Symbol

	// Input is the vertex input parameter; its fields are the vertex
	// attributes, bound in declaration order.
	Input *Symbol

	// Result is the fragment result record; its fields are the fragment
	// outputs, bound in declaration order.
	Result *Symbol

	// Position is the clip-space position builtin (gl_Position).
	Position *Symbol

	// Procs holds user procedure definitions invoked from the body.
	Procs []*ProcDef

	// Body is the unified program body.
	Body []Stmt

	nextID   SymbolID
	symbols  map[SymbolID]*Symbol
	fields   map[SymbolID]map[string]*Symbol
	builtins map[string]*Symbol
}

// NewProgram creates an empty program with the input, result, and position
// symbols pre-declared.
func NewProgram(name string) *Program {
	p := &Program{
		Name:     name,
		symbols:  make(map[SymbolID]*Symbol),
		fields:   make(map[SymbolID]map[string]*Symbol),
		builtins: make(map[string]*Symbol),
	}
	p.Input = p.newSymbol("v", SymbolParam, Struct{Name: "VertexIn"}, BuiltinNone, nil)
	p.Result = p.newSymbol("result", SymbolResult, Struct{Name: "FragmentOut"}, BuiltinNone, nil)
	p.Position = p.newSymbol("Position", SymbolGlobal, TypeVec4, BuiltinPosition, nil)
	return p
}

func (p *Program) newSymbol(name string, kind SymbolKind, t Type, b Builtin, parent *Symbol) *Symbol {
	p.nextID++
	sym := &Symbol{
		ID:      p.nextID,
		Name:    name,
		Kind:    kind,
		Type:    t,
		Builtin: b,
		Parent:  parent,
	}
	p.symbols[sym.ID] = sym
	return sym
}

// SymbolByID returns the symbol with the given identity, or nil.
func (p *Program) SymbolByID(id SymbolID) *Symbol { return p.symbols[id] }

// Symbols returns every declared symbol in identity order, excluding the
// builtin procedure callees. Identity order is declaration order, so
// consumers that assign names or slots by walking this list stay
// deterministic.
func (p *Program) Symbols() []*Symbol {
	builtin := make(map[SymbolID]bool, len(p.builtins))
	for _, sym := range p.builtins {
		builtin[sym.ID] = true
	}
	out := make([]*Symbol, 0, len(p.symbols))
	for id := SymbolID(1); id <= p.nextID; id++ {
		if sym, ok := p.symbols[id]; ok && !builtin[id] {
			out = append(out, sym)
		}
	}
	return out
}

// AddConst declares a module-scope constant.
func (p *Program) AddConst(name string, t Type, value Expr) *Symbol {
	sym := p.newSymbol(name, SymbolModuleConst, t, BuiltinNone, nil)
	p.Consts = append(p.Consts, &ConstDecl{Sym: sym, Value: value})
	return sym
}

// AddUniform declares a CPU-dynamic global readable from every stage as a
// uniform.
func (p *Program) AddUniform(name string, t Type) *Symbol {
	sym := p.newSymbol(name, SymbolGlobal, t, BuiltinNone, nil)
	p.Globals = append(p.Globals, sym)
	return sym
}

// AddSampler declares a texture sampler global.
func (p *Program) AddSampler(name string, kind SamplerKind) *Symbol {
	sym := p.newSymbol(name, SymbolGlobal, Sampler{Kind: kind}, BuiltinNone, nil)
	p.Globals = append(p.Globals, sym)
	return sym
}

// AddAttribute declares a vertex attribute as a field of the input record.
func (p *Program) AddAttribute(name string, t Type) *Symbol {
	return p.addField(p.Input, name, t)
}

// AddOutput declares a fragment output as a field of the result record.
func (p *Program) AddOutput(name string, t Type) *Symbol {
	return p.addField(p.Result, name, t)
}

func (p *Program) addField(record *Symbol, name string, t Type) *Symbol {
	st := record.Type.(Struct)
	st.Fields = append(st.Fields, StructField{Name: name, Type: t})
	record.Type = st

	sym := p.newSymbol(name, SymbolField, t, BuiltinNone, record)
	byName := p.fields[record.ID]
	if byName == nil {
		byName = make(map[string]*Symbol)
		p.fields[record.ID] = byName
	}
	byName[name] = sym
	return sym
}

// FieldOf returns the field symbol of a record symbol, or nil.
func (p *Program) FieldOf(record *Symbol, name string) *Symbol {
	return p.fields[record.ID][name]
}

// Fields returns the field symbols of a record symbol in declaration order.
func (p *Program) Fields(record *Symbol) []*Symbol {
	st, ok := record.Type.(Struct)
	if !ok {
		return nil
	}
	out := make([]*Symbol, 0, len(st.Fields))
	for _, f := range st.Fields {
		out = append(out, p.fields[record.ID][f.Name])
	}
	return out
}

// NewLocal declares a body-local variable symbol.
func (p *Program) NewLocal(name string, t Type) *Symbol {
	return p.newSymbol(name, SymbolLocal, t, BuiltinNone, nil)
}

// AddProc defines a user procedure.
func (p *Program) AddProc(name string, params []*Symbol, result Type, body []Stmt) *Symbol {
	sym := p.newSymbol(name, SymbolProc, result, BuiltinNone, nil)
	p.Procs = append(p.Procs, &ProcDef{Sym: sym, Params: params, Result: result, Body: body})
	return sym
}

// NewParam declares a procedure parameter symbol.
func (p *Program) NewParam(name string, t Type) *Symbol {
	return p.newSymbol(name, SymbolParam, t, BuiltinNone, nil)
}

// ProcByID returns the definition of a user procedure, or nil for builtins.
func (p *Program) ProcByID(id SymbolID) *ProcDef {
	for _, def := range p.Procs {
		if def.Sym.ID == id {
			return def
		}
	}
	return nil
}

// Builtin proc names recognized by the partitioner and emitter.
const (
	ProcTexture     = "texture"
	ProcInterpolate = "interpolate"
	ProcModulo      = "modulo"
)

// BuiltinProc returns the shared callee symbol for a builtin procedure,
// creating it on first use. Builtin procs have no definition in the program.
func (p *Program) BuiltinProc(name string) *Symbol {
	if sym, ok := p.builtins[name]; ok {
		return sym
	}
	sym := p.newSymbol(name, SymbolProc, Void{}, BuiltinNone, nil)
	p.builtins[name] = sym
	return sym
}

// Ref returns an identifier node referencing sym.
func Ref(sym *Symbol) *Ident { return &Ident{Sym: sym} }

// Field returns a member access node for a resolved record field.
func Field(base Expr, field *Symbol) *Dot {
	return &Dot{Typ: field.Type, Base: base, Name: field.Name, Sym: field}
}

// Swizzle returns a component-selection node over a vector-typed base.
func Swizzle(base Expr, name string) *Dot {
	kind := ScalarFloat
	if k, ok := ScalarOrVectorKind(base.Type()); ok {
		kind = k
	}
	return &Dot{Typ: SwizzleType(kind, name), Base: base, Name: name}
}
