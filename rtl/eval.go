package rtl

import "fmt"

// Exec runs a parsed behavior block against state, per §4.6/§4.10. It
// resets the "PC was assigned" tracking bit before running so callers can
// inspect s.PCAssigned() immediately afterward.
func Exec(block *Block, s *State) error {
	s.pcAssigned = false
	return execBlock(block, s)
}

func execBlock(b *Block, s *State) error {
	for _, stmt := range b.Stmts {
		if err := execStmt(stmt, s); err != nil {
			return err
		}
	}
	return nil
}

func execStmt(stmt Stmt, s *State) error {
	switch st := stmt.(type) {
	case Assign:
		return execAssign(st, s)
	case If:
		c, err := Eval(st.Cond, s)
		if err != nil {
			return err
		}
		if c.U != 0 {
			return execBlock(st.Then, s)
		}
		if st.Else != nil {
			return execBlock(st.Else, s)
		}
		return nil
	case For:
		if st.Init != nil {
			if err := execAssign(*st.Init, s); err != nil {
				return err
			}
		}
		for {
			c, err := Eval(st.Cond, s)
			if err != nil {
				return err
			}
			if c.U == 0 {
				return nil
			}
			if err := execBlock(st.Body, s); err != nil {
				return err
			}
			if st.Step != nil {
				if err := execAssign(*st.Step, s); err != nil {
					return err
				}
			}
		}
	default:
		return fmt.Errorf("rtl: unknown statement %T", stmt)
	}
}

func execAssign(a Assign, s *State) error {
	val, err := Eval(a.Value, s)
	if err != nil {
		return err
	}
	return assignTo(a.LValue, val, s)
}

func assignTo(lv Expr, val Value, s *State) error {
	switch e := lv.(type) {
	case Ident:
		return s.setScalarValue(e.Name, val)
	case FieldAccess:
		base, ok := e.Base.(Ident)
		if !ok {
			return fmt.Errorf("rtl: unsupported field lvalue base %T", e.Base)
		}
		return s.SetField(base.Name, e.Field, val.U)
	case Index:
		idxV, err := Eval(e.Index, s)
		if err != nil {
			return err
		}
		if e.Base == "MEM" {
			s.MemWrite(idxV.U, val.U, bytesFor(s.WordSize))
			return nil
		}
		return s.SetFileElem(e.Base, int(idxV.U), val.U)
	case LaneIndex:
		elemV, err := Eval(e.Elem, s)
		if err != nil {
			return err
		}
		laneV, err := Eval(e.Lane, s)
		if err != nil {
			return err
		}
		return s.SetLane(e.Base, int(elemV.U), int(laneV.U), val.U)
	default:
		return fmt.Errorf("rtl: unsupported lvalue %T", lv)
	}
}

// Eval evaluates an RTL expression against state and returns its value.
func Eval(e Expr, s *State) (Value, error) {
	switch n := e.(type) {
	case Number:
		return unsigned(n.Value), nil
	case Ident:
		return s.resolveScalarValue(n.Name)
	case FieldAccess:
		base, ok := n.Base.(Ident)
		if !ok {
			return Value{}, fmt.Errorf("rtl: unsupported field base %T", n.Base)
		}
		v, err := s.GetField(base.Name, n.Field)
		return unsigned(v), err
	case Index:
		idx, err := Eval(n.Index, s)
		if err != nil {
			return Value{}, err
		}
		if n.Base == "MEM" {
			return unsigned(s.MemRead(idx.U, bytesFor(s.WordSize))), nil
		}
		v, err := s.GetFileElem(n.Base, int(idx.U))
		return unsigned(v), err
	case LaneIndex:
		elem, err := Eval(n.Elem, s)
		if err != nil {
			return Value{}, err
		}
		lane, err := Eval(n.Lane, s)
		if err != nil {
			return Value{}, err
		}
		v, err := s.GetLane(n.Base, int(elem.U), int(lane.U))
		return unsigned(v), err
	case Bitfield:
		return evalBitfield(n, s)
	case Unary:
		return evalUnary(n, s)
	case Binary:
		return evalBinary(n, s)
	case Ternary:
		c, err := Eval(n.Cond, s)
		if err != nil {
			return Value{}, err
		}
		if c.U != 0 {
			return Eval(n.Then, s)
		}
		return Eval(n.Else, s)
	case Call:
		return evalCall(n, s)
	default:
		return Value{}, fmt.Errorf("rtl: unknown expression %T", e)
	}
}

// ExtractBits implements the bitfield law x[msb:lsb] = (x >> lsb) & ((1 <<
// (msb-lsb+1)) - 1), exposed for direct use by extract_bits(v, msb, lsb).
func ExtractBits(x uint64, msb, lsb int) uint64 {
	if msb < lsb {
		msb, lsb = lsb, msb
	}
	return (x >> uint(lsb)) & mask(msb-lsb+1)
}

func evalBitfield(n Bitfield, s *State) (Value, error) {
	base, err := Eval(n.Base, s)
	if err != nil {
		return Value{}, err
	}
	msb, err := Eval(n.MSB, s)
	if err != nil {
		return Value{}, err
	}
	lsb, err := Eval(n.LSB, s)
	if err != nil {
		return Value{}, err
	}
	return unsigned(ExtractBits(base.U, int(msb.U), int(lsb.U))), nil
}

func evalUnary(n Unary, s *State) (Value, error) {
	x, err := Eval(n.X, s)
	if err != nil {
		return Value{}, err
	}
	switch n.Op {
	case "~":
		return Value{U: ^x.U & mask(x.width()), Signed: x.Signed, Width: x.Width}, nil
	case "-":
		return Value{U: uint64(-x.asSigned()) & mask(x.width()), Signed: x.Signed, Width: x.Width}, nil
	case "!":
		if x.U == 0 {
			return unsigned(1), nil
		}
		return unsigned(0), nil
	default:
		return Value{}, fmt.Errorf("rtl: unknown unary operator %q", n.Op)
	}
}

func boolVal(b bool) Value {
	if b {
		return unsigned(1)
	}
	return unsigned(0)
}

func evalBinary(n Binary, s *State) (Value, error) {
	l, err := Eval(n.Left, s)
	if err != nil {
		return Value{}, err
	}
	r, err := Eval(n.Right, s)
	if err != nil {
		return Value{}, err
	}
	signed := l.Signed || r.Signed
	width := l.width()
	if r.width() > width {
		width = r.width()
	}

	switch n.Op {
	case "+":
		return Value{U: (l.U + r.U) & mask(width), Signed: signed, Width: width}, nil
	case "-":
		return Value{U: (l.U - r.U) & mask(width), Signed: signed, Width: width}, nil
	case "*":
		return Value{U: (l.U * r.U) & mask(width), Signed: signed, Width: width}, nil
	case "/":
		if r.U == 0 {
			return Value{}, errf(DivByZero, "division by zero")
		}
		if signed {
			return Value{U: uint64(l.asSigned()/r.asSigned()) & mask(width), Signed: true, Width: width}, nil
		}
		return Value{U: (l.U / r.U) & mask(width), Width: width}, nil
	case "%":
		if r.U == 0 {
			return Value{}, errf(DivByZero, "modulo by zero")
		}
		if signed {
			return Value{U: uint64(l.asSigned()%r.asSigned()) & mask(width), Signed: true, Width: width}, nil
		}
		return Value{U: (l.U % r.U) & mask(width), Width: width}, nil
	case "&":
		return Value{U: l.U & r.U, Signed: signed, Width: width}, nil
	case "|":
		return Value{U: l.U | r.U, Signed: signed, Width: width}, nil
	case "^":
		return Value{U: l.U ^ r.U, Signed: signed, Width: width}, nil
	case "<<":
		return Value{U: (l.U << uint(r.U)) & mask(width), Signed: signed, Width: width}, nil
	case ">>":
		if l.Signed {
			return Value{U: uint64(l.asSigned()>>uint(r.U)) & mask(width), Signed: true, Width: width}, nil
		}
		return Value{U: l.U >> uint(r.U), Width: width}, nil
	case "==":
		return boolVal(compareEq(l, r)), nil
	case "!=":
		return boolVal(!compareEq(l, r)), nil
	case "<":
		return boolVal(compareLess(l, r)), nil
	case ">":
		return boolVal(compareLess(r, l)), nil
	case "<=":
		return boolVal(!compareLess(r, l)), nil
	case ">=":
		return boolVal(!compareLess(l, r)), nil
	default:
		return Value{}, fmt.Errorf("rtl: unknown binary operator %q", n.Op)
	}
}

func compareEq(l, r Value) bool {
	if l.Signed || r.Signed {
		return l.asSigned() == r.asSigned()
	}
	return l.U == r.U
}

func compareLess(l, r Value) bool {
	if l.Signed || r.Signed {
		return l.asSigned() < r.asSigned()
	}
	return l.U < r.U
}
