// Package phplsp implements the semantic core of the PHP language server:
// the type model, incremental parser, symbol extractor, name resolver,
// reference finder, workspace index, autoload resolver, stubs loader,
// diagnostics and completion. The package has no knowledge of JSON-RPC or
// LSP wire shapes; that translation lives in internal/lsp.
package phplsp

import "strings"

// PhpSymbolKind classifies a declaration recorded in the workspace index.
type PhpSymbolKind int

const (
	KindClass PhpSymbolKind = iota
	KindInterface
	KindTrait
	KindEnum
	KindFunction
	KindMethod
	KindProperty
	KindClassConstant
	KindGlobalConstant
	KindEnumCase
	KindNamespace
)

func (k PhpSymbolKind) String() string {
	switch k {
	case KindClass:
		return "Class"
	case KindInterface:
		return "Interface"
	case KindTrait:
		return "Trait"
	case KindEnum:
		return "Enum"
	case KindFunction:
		return "Function"
	case KindMethod:
		return "Method"
	case KindProperty:
		return "Property"
	case KindClassConstant:
		return "ClassConstant"
	case KindGlobalConstant:
		return "GlobalConstant"
	case KindEnumCase:
		return "EnumCase"
	case KindNamespace:
		return "Namespace"
	default:
		return "Unknown"
	}
}

// IsTypeKind reports whether the kind is a class-like top-level type
// (class/interface/trait/enum) that participates in the `types` FQN map.
func (k PhpSymbolKind) IsTypeKind() bool {
	switch k {
	case KindClass, KindInterface, KindTrait, KindEnum:
		return true
	default:
		return false
	}
}

// IsMemberKind reports whether the kind only ever exists as a member of a
// containing type, i.e. is discovered via ParentFQN rather than being a
// top-level map entry.
func (k PhpSymbolKind) IsMemberKind() bool {
	switch k {
	case KindMethod, KindProperty, KindClassConstant, KindEnumCase:
		return true
	default:
		return false
	}
}

// Visibility is the PHP member visibility.
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}

// Modifiers is the flag set a symbol may carry.
type Modifiers struct {
	Static     bool
	Abstract   bool
	Final      bool
	Readonly   bool
	Deprecated bool
	Builtin    bool
}

// TypeInfo is the algebraic PHP type. Concrete variants implement it; the
// zero value is never a valid TypeInfo (callers must check for nil).
type TypeInfo interface {
	// Render produces the PHP-native textual form (?T, A|B, A&B, ...).
	Render() string
	isTypeInfo()
}

type SimpleType struct{ Name string }

func (t SimpleType) Render() string { return t.Name }
func (SimpleType) isTypeInfo()      {}

type UnionType struct{ Members []TypeInfo }

func (t UnionType) Render() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = m.Render()
	}
	return strings.Join(parts, "|")
}
func (UnionType) isTypeInfo() {}

type IntersectionType struct{ Members []TypeInfo }

func (t IntersectionType) Render() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = m.Render()
	}
	return strings.Join(parts, "&")
}
func (IntersectionType) isTypeInfo() {}

type NullableType struct{ Inner TypeInfo }

func (t NullableType) Render() string { return "?" + t.Inner.Render() }
func (NullableType) isTypeInfo()      {}

type VoidType struct{}

func (VoidType) Render() string { return "void" }
func (VoidType) isTypeInfo()    {}

type NeverType struct{}

func (NeverType) Render() string { return "never" }
func (NeverType) isTypeInfo()    {}

type MixedType struct{}

func (MixedType) Render() string { return "mixed" }
func (MixedType) isTypeInfo()    {}

type SelfType struct{}

func (SelfType) Render() string { return "self" }
func (SelfType) isTypeInfo()    {}

type StaticType struct{}

func (StaticType) Render() string { return "static" }
func (StaticType) isTypeInfo()    {}

type ParentType struct{}

func (ParentType) Render() string { return "parent" }
func (ParentType) isTypeInfo()    {}

// builtinPrimitives are names the resolver must never treat as an object
// type when computing a class FQN for member lookup (spec §4.5 "Built-in
// type filter").
var builtinPrimitives = map[string]bool{
	"int": true, "float": true, "string": true, "bool": true, "array": true,
	"null": true, "void": true, "mixed": true, "callable": true,
	"iterable": true, "object": true, "resource": true, "true": true, "false": true,
}

// IsBuiltinPrimitive reports whether name is a PHP primitive/pseudo type
// that can never resolve to a class FQN.
func IsBuiltinPrimitive(name string) bool {
	return builtinPrimitives[strings.ToLower(name)]
}

// reservedTypeWords map to a dedicated TypeInfo variant rather than
// SimpleType, per spec §4.2's "reserved words" rule.
var reservedTypeWords = map[string]func() TypeInfo{
	"void":   func() TypeInfo { return VoidType{} },
	"never":  func() TypeInfo { return NeverType{} },
	"mixed":  func() TypeInfo { return MixedType{} },
	"self":   func() TypeInfo { return SelfType{} },
	"static": func() TypeInfo { return StaticType{} },
	"parent": func() TypeInfo { return ParentType{} },
}

// ParseTypeString parses a PHP type expression as it would appear in a type
// hint or PHPDoc tag: leading `?` for nullable, `|` for union, `&` for
// intersection (mutually exclusive per PHP syntax), else a simple/reserved
// name.
func ParseTypeString(s string) TypeInfo {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "?") {
		return NullableType{Inner: ParseTypeString(s[1:])}
	}
	if strings.Contains(s, "|") {
		parts := strings.Split(s, "|")
		members := make([]TypeInfo, 0, len(parts))
		for _, p := range parts {
			if t := ParseTypeString(p); t != nil {
				members = append(members, t)
			}
		}
		return UnionType{Members: members}
	}
	if strings.Contains(s, "&") {
		parts := strings.Split(s, "&")
		members := make([]TypeInfo, 0, len(parts))
		for _, p := range parts {
			if t := ParseTypeString(p); t != nil {
				members = append(members, t)
			}
		}
		return IntersectionType{Members: members}
	}
	if ctor, ok := reservedTypeWords[strings.ToLower(s)]; ok {
		return ctor()
	}
	return SimpleType{Name: s}
}

// ParamInfo describes one function/method parameter.
type ParamInfo struct {
	Name         string
	TypeInfo     TypeInfo
	DefaultValue string // verbatim source text, empty if absent
	IsVariadic   bool
	IsByRef      bool
	IsPromoted   bool
	Visibility   Visibility // only meaningful when IsPromoted
}

// Signature is a callable's parameter list and return type.
type Signature struct {
	Params     []ParamInfo
	ReturnType TypeInfo
}

// MinArity is the minimum number of required (non-default, non-variadic)
// arguments this signature demands.
func (s Signature) MinArity() int {
	n := 0
	for _, p := range s.Params {
		if p.IsVariadic || p.DefaultValue != "" {
			break
		}
		n++
	}
	return n
}

// MaxArity is the maximum number of arguments this signature accepts, or -1
// for unbounded (a variadic trailing parameter).
func (s Signature) MaxArity() int {
	for _, p := range s.Params {
		if p.IsVariadic {
			return -1
		}
	}
	return len(s.Params)
}

// PhpDocParam is one @param tag.
type PhpDocParam struct {
	Type        string
	Name        string
	Description string
}

// PhpDocProperty is one @property/@property-read/@property-write tag.
type PhpDocProperty struct {
	Type        string
	Name        string
	Description string
	ReadOnly    bool
	WriteOnly   bool
}

// PhpDocMethod is one @method tag.
type PhpDocMethod struct {
	Static      bool
	ReturnType  string
	Name        string
	Description string
}

// PhpDoc is the structured result of parsing a `/** ... */` block.
type PhpDoc struct {
	Summary    string
	Params     []PhpDocParam
	ReturnType string
	VarType    string
	VarName    string // set only if @var named an explicit $variable
	Throws     []string
	Deprecated    string // message text, may be empty even when HasDeprecated is true
	HasDeprecated bool
	Properties []PhpDocProperty
	Methods    []PhpDocMethod
}

// Range is a half-open [Start, End) span in 0-based line/byte-column
// coordinates (see SPEC_FULL.md §3 column-axis decision: byte-native).
type Range struct {
	StartLine, StartCol int
	EndLine, EndCol     int
}

// UseStatementKind distinguishes `use X;` from `use function X;` / `use const X;`.
type UseStatementKind int

const (
	UseClass UseStatementKind = iota
	UseFunction
	UseConst
)

// UseStatement is one resolved `use` clause.
type UseStatement struct {
	FQN   string
	Alias string // "" if unaliased; the effective short name is Alias or last FQN segment
	Kind  UseStatementKind
	Range Range
}

// ShortName returns the name this use statement binds in the importing file.
func (u UseStatement) ShortName() string {
	if u.Alias != "" {
		return u.Alias
	}
	segs := strings.Split(strings.TrimPrefix(u.FQN, `\`), `\`)
	return segs[len(segs)-1]
}

// SymbolInfo is a single declaration recorded by the extractor and stored
// in the workspace index. Once published it is never mutated in place;
// C7's update_file replaces the whole digest instead (spec §5 Ownership).
type SymbolInfo struct {
	Name            string
	FQN             string
	Kind            PhpSymbolKind
	URI             string
	Range           Range
	SelectionRange  Range
	Visibility      Visibility
	Modifiers       Modifiers
	DocComment      string // raw comment text, "" if absent
	Doc             *PhpDoc
	Signature       *Signature // methods/functions; properties carry their declared type as ReturnType
	ParentFQN       string     // members only
	Extends         []string   // types only
	Implements      []string   // types only
}

// FileSymbols is the digest of one source file: its namespace declaration,
// use-statement imports, and every symbol declared within it.
type FileSymbols struct {
	URI          string
	Namespace    string // last top-level `namespace X;`/`namespace X {}` seen
	UseStatements []UseStatement
	Symbols      []SymbolInfo
	HasSyntaxError bool
}
