package dsl

import "fmt"

// FieldDecl is a parsed `field name [msb:lsb] = const;` (register field or
// format field); Const/HasConst only apply to format fields.
type FieldDecl struct {
	Name     string
	MSB, LSB string // raw literal text, normalized by model.Build
	HasConst bool
	Const    string
	Pos      Position
}

// SlotDecl is a parsed `slot name [msb:lsb];` inside a bundle_format block.
type SlotDecl struct {
	Name     string
	MSB, LSB string
	Pos      Position
}

// Block is one register/format/bundle_format/instruction/instruction_alias
// declaration, in concrete-parse-tree form: literal text is preserved and
// normalized later by model.Build (C3).
type Block struct {
	Kind string // "register" | "format" | "bundle_format" | "instruction" | "instruction_alias"
	Name string
	Pos  Position

	Attrs map[string]string // simple key=value properties (width=32, count=8, ...)

	Fields     []FieldDecl // register fields, or format fields
	Slots      []SlotDecl  // bundle format slots
	Components []string    // virtual register component list, raw tokens

	AliasTarget string // register alias: "R[3]" or "R3"

	IdentificationFields []string

	FormatName       string
	BundleFormatName string

	Encoding   map[string]string // instruction field=const
	Operands   []string          // raw operand descriptors
	AsmSyntax  string
	Behavior   string // raw RTL source, braces already stripped
	External   bool

	TargetName string // instruction_alias target mnemonic
}

// File is the concrete parse tree of one DSL source file.
type File struct {
	Filename string
	Includes []string

	IsArchitecture bool
	ArchName       string
	Props          map[string]string

	Blocks []Block
}

// Parser is a recursive-descent parser over one file's token stream.
type Parser struct {
	filename string
	tokens   []Token
	pos      int
	errs     *ErrorList
}

// Parse lexes and parses src (attributed to filename) into a concrete
// parse tree, collecting every syntax error found (§7's "collect, don't
// short-circuit" policy for C1-C5).
func Parse(src, filename string) (*File, *ErrorList) {
	lx := NewLexer(src, filename)
	var tokens []Token
	errs := &ErrorList{}
	for {
		tok, err := lx.NextToken()
		if err != nil {
			errs.Add(err)
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}
	p := &Parser{filename: filename, tokens: tokens, errs: errs}
	f := p.parseFile()
	return f, p.errs
}

func (p *Parser) cur() Token  { return p.tokens[p.pos] }
func (p *Parser) advance() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) syntaxError(expected string) {
	t := p.cur()
	p.errs.Add(&SyntaxError{File: p.filename, Line: t.Pos.Line, Column: t.Pos.Column, Expected: expected, Found: fmt.Sprintf("%s %q", t.Type, t.Value)})
}

func (p *Parser) expect(tt TokenType, expected string) (Token, bool) {
	if p.cur().Type != tt {
		p.syntaxError(expected)
		return Token{}, false
	}
	return p.advance(), true
}

func (p *Parser) expectIdentValue(value string) bool {
	if p.cur().Type != TokIdent || p.cur().Value != value {
		p.syntaxError(fmt.Sprintf("%q", value))
		return false
	}
	p.advance()
	return true
}

func (p *Parser) parseFile() *File {
	f := &File{Filename: p.filename, Props: map[string]string{}}

	for p.cur().Type == TokHash {
		p.advance()
		if !p.expectIdentValue("include") {
			p.skipToSemicolonOrBrace()
			continue
		}
		tok, ok := p.expect(TokString, "include path string")
		if ok {
			f.Includes = append(f.Includes, tok.Value)
		}
	}

	if p.cur().Type == TokIdent && p.cur().Value == "architecture" {
		f.IsArchitecture = true
		p.advance()
		name, ok := p.expect(TokIdent, "architecture name")
		if ok {
			f.ArchName = name.Value
		}
		if _, ok := p.expect(TokLBrace, "{"); !ok {
			return f
		}
		p.parseArchBody(f)
		p.expect(TokRBrace, "}")
		return f
	}

	// Partial file: top-level blocks, no architecture wrapper.
	for p.cur().Type != TokEOF {
		p.parseTopLevelItem(f)
	}
	return f
}

func (p *Parser) parseArchBody(f *File) {
	for p.cur().Type != TokRBrace && p.cur().Type != TokEOF {
		p.parseTopLevelItem(f)
	}
}

func (p *Parser) parseTopLevelItem(f *File) {
	if p.cur().Type != TokIdent {
		p.syntaxError("a property, register, format, bundle_format, instruction, or instruction_alias declaration")
		p.advance()
		return
	}
	switch p.cur().Value {
	case "word_size", "endianness":
		name := p.advance().Value
		if _, ok := p.expect(TokEquals, "="); !ok {
			p.skipToSemicolonOrBrace()
			return
		}
		val := p.parseValueToken()
		f.Props[name] = val
		p.expect(TokSemicolon, ";")
	case "register":
		if b, ok := p.parseRegister(); ok {
			f.Blocks = append(f.Blocks, b)
		}
	case "format":
		if b, ok := p.parseFormat(); ok {
			f.Blocks = append(f.Blocks, b)
		}
	case "bundle_format":
		if b, ok := p.parseBundleFormat(); ok {
			f.Blocks = append(f.Blocks, b)
		}
	case "instruction":
		if b, ok := p.parseInstruction(); ok {
			f.Blocks = append(f.Blocks, b)
		}
	case "instruction_alias":
		if b, ok := p.parseInstructionAlias(); ok {
			f.Blocks = append(f.Blocks, b)
		}
	default:
		p.syntaxError("a top-level declaration")
		p.advance()
	}
}

// parseValueToken reads one literal/identifier value token as raw text.
func (p *Parser) parseValueToken() string {
	t := p.cur()
	if t.Type == TokIdent || t.Type == TokNumber || t.Type == TokString {
		p.advance()
		return t.Value
	}
	p.syntaxError("a value")
	return ""
}

func (p *Parser) skipToSemicolonOrBrace() {
	for p.cur().Type != TokSemicolon && p.cur().Type != TokRBrace && p.cur().Type != TokEOF {
		p.advance()
	}
	if p.cur().Type == TokSemicolon {
		p.advance()
	}
}

// parseBitRange parses `[msb:lsb]` and returns the two raw literal texts.
func (p *Parser) parseBitRange() (msb, lsb string, ok bool) {
	if _, k := p.expect(TokLBracket, "["); !k {
		return "", "", false
	}
	a := p.parseValueToken()
	if _, k := p.expect(TokColon, ":"); !k {
		return "", "", false
	}
	b := p.parseValueToken()
	if _, k := p.expect(TokRBracket, "]"); !k {
		return "", "", false
	}
	return a, b, true
}

func (p *Parser) parseRegister() (Block, bool) {
	pos := p.cur().Pos
	p.advance() // "register"
	name, ok := p.expect(TokIdent, "register name")
	if !ok {
		p.skipToSemicolonOrBrace()
		return Block{}, false
	}
	b := Block{Kind: "register", Name: name.Value, Pos: pos, Attrs: map[string]string{}}

	// Attributes: `kind`-shaping keywords and key=value pairs up to `;` or `{`.
	for p.cur().Type == TokIdent {
		switch p.cur().Value {
		case "file", "scalar", "vector", "virtual", "alias":
			b.Attrs["variant"] = p.advance().Value
		default:
			key := p.advance().Value
			if p.cur().Type == TokEquals {
				p.advance()
				if p.cur().Type == TokLBracket {
					// alias target with index: target[idx]
					p.advance()
					idx := p.parseValueToken()
					p.expect(TokRBracket, "]")
					b.Attrs[key] = "[" + idx + "]"
				} else if p.cur().Type == TokLBrace {
					p.advance()
					for p.cur().Type != TokRBrace && p.cur().Type != TokEOF {
						b.Components = append(b.Components, p.parseValueToken())
						if p.cur().Type == TokComma {
							p.advance()
						}
					}
					p.expect(TokRBrace, "}")
				} else {
					b.Attrs[key] = p.parseValueToken()
				}
			}
		}
		if p.cur().Type == TokSemicolon || p.cur().Type == TokLBrace {
			break
		}
	}

	if p.cur().Type == TokLBrace {
		p.advance()
		for p.cur().Type != TokRBrace && p.cur().Type != TokEOF {
			if p.cur().Type == TokIdent && p.cur().Value == "field" {
				fpos := p.cur().Pos
				p.advance()
				fname, ok := p.expect(TokIdent, "field name")
				if !ok {
					p.skipToSemicolonOrBrace()
					continue
				}
				msb, lsb, ok := p.parseBitRange()
				if !ok {
					p.skipToSemicolonOrBrace()
					continue
				}
				fd := FieldDecl{Name: fname.Value, MSB: msb, LSB: lsb, Pos: fpos}
				p.expect(TokSemicolon, ";")
				b.Fields = append(b.Fields, fd)
			} else {
				p.syntaxError("field declaration")
				p.advance()
			}
		}
		p.expect(TokRBrace, "}")
	} else {
		p.expect(TokSemicolon, ";")
	}
	return b, true
}

func (p *Parser) parseFormat() (Block, bool) {
	pos := p.cur().Pos
	p.advance() // "format"
	name, ok := p.expect(TokIdent, "format name")
	if !ok {
		p.skipToSemicolonOrBrace()
		return Block{}, false
	}
	b := Block{Kind: "format", Name: name.Value, Pos: pos, Attrs: map[string]string{}}
	for p.cur().Type == TokIdent && p.cur().Value == "width" {
		p.advance()
		p.expect(TokEquals, "=")
		b.Attrs["width"] = p.parseValueToken()
		if p.cur().Type == TokLBrace {
			break
		}
	}
	if _, ok := p.expect(TokLBrace, "{"); !ok {
		return b, false
	}
	for p.cur().Type != TokRBrace && p.cur().Type != TokEOF {
		switch {
		case p.cur().Type == TokIdent && p.cur().Value == "field":
			fpos := p.cur().Pos
			p.advance()
			fname, ok := p.expect(TokIdent, "field name")
			if !ok {
				p.skipToSemicolonOrBrace()
				continue
			}
			msb, lsb, ok := p.parseBitRange()
			if !ok {
				p.skipToSemicolonOrBrace()
				continue
			}
			fd := FieldDecl{Name: fname.Value, MSB: msb, LSB: lsb, Pos: fpos}
			if p.cur().Type == TokEquals {
				p.advance()
				fd.HasConst = true
				fd.Const = p.parseValueToken()
			}
			p.expect(TokSemicolon, ";")
			b.Fields = append(b.Fields, fd)
		case p.cur().Type == TokIdent && p.cur().Value == "identification_fields":
			p.advance()
			p.expect(TokEquals, "=")
			for {
				b.IdentificationFields = append(b.IdentificationFields, p.parseValueToken())
				if p.cur().Type == TokComma {
					p.advance()
					continue
				}
				break
			}
			p.expect(TokSemicolon, ";")
		default:
			p.syntaxError("field or identification_fields declaration")
			p.advance()
		}
	}
	p.expect(TokRBrace, "}")
	return b, true
}

func (p *Parser) parseBundleFormat() (Block, bool) {
	pos := p.cur().Pos
	p.advance() // "bundle_format"
	name, ok := p.expect(TokIdent, "bundle format name")
	if !ok {
		p.skipToSemicolonOrBrace()
		return Block{}, false
	}
	b := Block{Kind: "bundle_format", Name: name.Value, Pos: pos, Attrs: map[string]string{}}
	if p.cur().Type == TokIdent && p.cur().Value == "width" {
		p.advance()
		p.expect(TokEquals, "=")
		b.Attrs["width"] = p.parseValueToken()
	}
	if _, ok := p.expect(TokLBrace, "{"); !ok {
		return b, false
	}
	for p.cur().Type != TokRBrace && p.cur().Type != TokEOF {
		switch {
		case p.cur().Type == TokIdent && p.cur().Value == "instruction_start":
			p.advance()
			p.expect(TokEquals, "=")
			b.Attrs["instruction_start"] = p.parseValueToken()
			p.expect(TokSemicolon, ";")
		case p.cur().Type == TokIdent && p.cur().Value == "slot":
			spos := p.cur().Pos
			p.advance()
			sname, ok := p.expect(TokIdent, "slot name")
			if !ok {
				p.skipToSemicolonOrBrace()
				continue
			}
			msb, lsb, ok := p.parseBitRange()
			if !ok {
				p.skipToSemicolonOrBrace()
				continue
			}
			p.expect(TokSemicolon, ";")
			b.Slots = append(b.Slots, SlotDecl{Name: sname.Value, MSB: msb, LSB: lsb, Pos: spos})
		case p.cur().Type == TokIdent && p.cur().Value == "identification_fields":
			p.advance()
			p.expect(TokEquals, "=")
			for {
				b.IdentificationFields = append(b.IdentificationFields, p.parseValueToken())
				if p.cur().Type == TokComma {
					p.advance()
					continue
				}
				break
			}
			p.expect(TokSemicolon, ";")
		default:
			p.syntaxError("slot, instruction_start, or identification_fields declaration")
			p.advance()
		}
	}
	p.expect(TokRBrace, "}")
	return b, true
}

func (p *Parser) parseInstruction() (Block, bool) {
	pos := p.cur().Pos
	p.advance() // "instruction"
	name, ok := p.expect(TokIdent, "instruction name")
	if !ok {
		p.skipToSemicolonOrBrace()
		return Block{}, false
	}
	b := Block{Kind: "instruction", Name: name.Value, Pos: pos, Encoding: map[string]string{}}
	if _, ok := p.expect(TokLBrace, "{"); !ok {
		return b, false
	}
	for p.cur().Type != TokRBrace && p.cur().Type != TokEOF {
		if p.cur().Type != TokIdent {
			p.syntaxError("instruction clause")
			p.advance()
			continue
		}
		switch p.cur().Value {
		case "format":
			p.advance()
			tok, ok := p.expect(TokIdent, "format name")
			if ok {
				b.FormatName = tok.Value
			}
			p.expect(TokSemicolon, ";")
		case "bundle_format":
			p.advance()
			tok, ok := p.expect(TokIdent, "bundle format name")
			if ok {
				b.BundleFormatName = tok.Value
			}
			p.expect(TokSemicolon, ";")
		case "encoding":
			p.advance()
			p.expect(TokLBrace, "{")
			for p.cur().Type != TokRBrace && p.cur().Type != TokEOF {
				fname, ok := p.expect(TokIdent, "encoding field name")
				if !ok {
					p.skipToSemicolonOrBrace()
					continue
				}
				p.expect(TokEquals, "=")
				val := p.parseValueToken()
				b.Encoding[fname.Value] = val
				p.expect(TokSemicolon, ";")
			}
			p.expect(TokRBrace, "}")
		case "operands":
			p.advance()
			if p.cur().Type != TokSemicolon {
				for {
					b.Operands = append(b.Operands, p.parseOperandDescriptor())
					if p.cur().Type == TokComma {
						p.advance()
						continue
					}
					break
				}
			}
			p.expect(TokSemicolon, ";")
		case "syntax":
			p.advance()
			tok, ok := p.expect(TokString, "assembly syntax template string")
			if ok {
				b.AsmSyntax = tok.Value
			}
			p.expect(TokSemicolon, ";")
		case "external":
			p.advance()
			b.External = true
			p.expect(TokSemicolon, ";")
		case "behavior":
			p.advance()
			src, ok := p.parseRawBraceBlock()
			if ok {
				b.Behavior = src
			}
		default:
			p.syntaxError("a format, bundle_format, encoding, operands, syntax, external, or behavior clause")
			p.advance()
		}
	}
	p.expect(TokRBrace, "}")
	return b, true
}

// parseOperandDescriptor parses `name` or `name(f1, f2, ...)` and renders
// it back to source text for model.Build to interpret (§3's operand
// descriptor grammar).
func (p *Parser) parseOperandDescriptor() string {
	name, ok := p.expect(TokIdent, "operand name")
	if !ok {
		return ""
	}
	if p.cur().Type != TokLParen {
		return name.Value
	}
	p.advance()
	s := name.Value + "("
	first := true
	for p.cur().Type != TokRParen && p.cur().Type != TokEOF {
		if !first {
			s += ","
		}
		first = false
		f, ok := p.expect(TokIdent, "distributed operand field name")
		if !ok {
			break
		}
		s += f.Value
		if p.cur().Type == TokComma {
			p.advance()
		}
	}
	p.expect(TokRParen, ")")
	s += ")"
	return s
}

// parseRawBraceBlock consumes a balanced `{ ... }` and reconstructs its
// contents as source text (approximate re-rendering of already-tokenized
// RTL text) for rtl.Parser to re-lex independently. This keeps the DSL
// grammar and the RTL grammar decoupled, at the cost of re-lexing; RTL
// bodies are small, so this is not a hot path.
func (p *Parser) parseRawBraceBlock() (string, bool) {
	if _, ok := p.expect(TokLBrace, "{"); !ok {
		return "", false
	}
	depth := 1
	var sb []byte
	for depth > 0 {
		t := p.cur()
		if t.Type == TokEOF {
			p.syntaxError("}")
			return string(sb), false
		}
		if t.Type == TokLBrace {
			depth++
		}
		if t.Type == TokRBrace {
			depth--
			if depth == 0 {
				p.advance()
				break
			}
		}
		sb = append(sb, renderToken(t)...)
		sb = append(sb, ' ')
		p.advance()
	}
	return string(sb), true
}

func renderToken(t Token) string {
	switch t.Type {
	case TokString:
		return "\"" + t.Value + "\""
	default:
		return t.Value
	}
}

func (p *Parser) parseInstructionAlias() (Block, bool) {
	pos := p.cur().Pos
	p.advance() // "instruction_alias"
	name, ok := p.expect(TokIdent, "instruction alias name")
	if !ok {
		p.skipToSemicolonOrBrace()
		return Block{}, false
	}
	b := Block{Kind: "instruction_alias", Name: name.Value, Pos: pos}
	if _, ok := p.expect(TokLBrace, "{"); !ok {
		return b, false
	}
	for p.cur().Type != TokRBrace && p.cur().Type != TokEOF {
		if p.cur().Type != TokIdent {
			p.syntaxError("instruction_alias clause")
			p.advance()
			continue
		}
		switch p.cur().Value {
		case "target":
			p.advance()
			tok, ok := p.expect(TokIdent, "target instruction name")
			if ok {
				b.TargetName = tok.Value
			}
			p.expect(TokSemicolon, ";")
		case "operands":
			p.advance()
			if p.cur().Type != TokSemicolon {
				for {
					tok, ok := p.expect(TokIdent, "operand name")
					if ok {
						b.Operands = append(b.Operands, tok.Value)
					}
					if p.cur().Type == TokComma {
						p.advance()
						continue
					}
					break
				}
			}
			p.expect(TokSemicolon, ";")
		case "syntax":
			p.advance()
			tok, ok := p.expect(TokString, "assembly syntax template string")
			if ok {
				b.AsmSyntax = tok.Value
			}
			p.expect(TokSemicolon, ";")
		default:
			p.syntaxError("a target, operands, or syntax clause")
			p.advance()
		}
	}
	p.expect(TokRBrace, "}")
	return b, true
}
