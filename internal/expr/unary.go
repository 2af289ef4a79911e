package expr

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"slices"

	"github.com/roach88/spinql/internal/cast"
	"github.com/roach88/spinql/internal/ir"
)

// Cast converts its operand to a target datatype with the strict cast rules
// of package cast.
type Cast struct {
	Target  string
	Operand Expr
}

// NewCast creates a cast node. The target must be a full datatype URI.
func NewCast(target string, operand Expr) *Cast {
	return &Cast{Target: target, Operand: operand}
}

func (c *Cast) Functor() string { return c.Target }
func (c *Cast) Args() []Expr { return []Expr{c.Operand} }
func (c *Cast) Variables() []string { return c.Operand.Variables() }
func (c *Cast) IsConstant() bool { return c.Operand.IsConstant() && c.Operand.IsDeterministic() }
func (c *Cast) IsDeterministic() bool { return c.Operand.IsDeterministic() }
func (c *Cast) CanParallelise() bool { return allParallelisable(c.Args()) }
func (c *Cast) Copy() Expr { return &Cast{Target: c.Target, Operand: c.Operand.Copy()} }
func (c *Cast) Transform(t Transformer) Expr { return &Cast{Target: c.Target, Operand: t(c.Operand)} }
func (c *Cast) String() string { return ir.ShortName(c.Target) + "(" + c.Operand.String() + ")" }

func (c *Cast) Spec() ir.ExprSpec {
	return ir.ExprSpec{Cast: c.Target, Args: []ir.ExprSpec{c.Operand.Spec()}}
}

// Evaluate casts the operand's value. Operand failures are returned as is.
func (c *Cast) Evaluate(sol Solution, ctx *Context) (ir.Value, error) {
	v, err := c.Operand.Evaluate(sol, ctx)
	if err != nil {
		return nil, err
	}
	return cast.To(c.Target, v)
}

var hashes = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

// HashAlgorithms returns the names accepted by NewHash, sorted.
func HashAlgorithms() []string {
	names := make([]string, 0, len(hashes))
	for name := range hashes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Hash digests a simple or xsd:string literal and returns the lower-case hex
// digest as a simple literal.
type Hash struct {
	Algorithm string
	Operand   Expr
	newHash   func() hash.Hash
}

// NewHash creates a hash node. Unknown algorithms are UNSUPPORTED_OPERATOR.
func NewHash(algorithm string, operand Expr) (*Hash, error) {
	fn, ok := hashes[algorithm]
	if !ok {
		return nil, ir.NewUnsupportedOperatorError(algorithm, 1)
	}
	return &Hash{Algorithm: algorithm, Operand: operand, newHash: fn}, nil
}

// SHA256 is shorthand for the sha256 hash node.
func SHA256(operand Expr) *Hash {
	return &Hash{Algorithm: "sha256", Operand: operand, newHash: sha256.New}
}

func (h *Hash) Functor() string { return h.Algorithm }
func (h *Hash) Args() []Expr { return []Expr{h.Operand} }
func (h *Hash) Variables() []string { return h.Operand.Variables() }
func (h *Hash) IsConstant() bool { return h.Operand.IsConstant() && h.Operand.IsDeterministic() }
func (h *Hash) IsDeterministic() bool { return h.Operand.IsDeterministic() }
func (h *Hash) CanParallelise() bool { return allParallelisable(h.Args()) }
func (h *Hash) String() string { return h.Algorithm + "(" + h.Operand.String() + ")" }

func (h *Hash) Copy() Expr {
	return &Hash{Algorithm: h.Algorithm, Operand: h.Operand.Copy(), newHash: h.newHash}
}

func (h *Hash) Transform(t Transformer) Expr {
	return &Hash{Algorithm: h.Algorithm, Operand: t(h.Operand), newHash: h.newHash}
}

func (h *Hash) Spec() ir.ExprSpec {
	return ir.ExprSpec{Fn: h.Algorithm, Args: []ir.ExprSpec{h.Operand.Spec()}}
}

func (h *Hash) Evaluate(sol Solution, ctx *Context) (ir.Value, error) {
	v, err := h.Operand.Evaluate(sol, ctx)
	if err != nil {
		return nil, err
	}
	s, ok := v.(ir.String)
	if !ok || s.Lang != "" {
		return nil, ir.NewTypeError("%s: expected a simple or xsd:string literal, got %s", h.Algorithm, ir.FormatTerm(v))
	}
	sum := h.newHash()
	sum.Write([]byte(s.Value))
	return ir.NewPlainLiteral(hex.EncodeToString(sum.Sum(nil))), nil
}
