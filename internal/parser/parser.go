// Package parser builds an ast.Program from a lexer.Token stream per spec
// §4.2. Parsing never recovers: it aborts at the first error.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brightloop/seqcore/internal/ast"
	"github.com/brightloop/seqcore/internal/lexer"
)

// Error is a syntactic or value failure carrying the position of the
// offending token.
type Error struct {
	Line, Column int
	Message      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

var waveforms = map[string]bool{"sine": true, "square": true, "sawtooth": true, "triangle": true}

type parser struct {
	toks []lexer.Token
	pos  int

	hasBPM bool
	hasSeq bool
	prog   ast.Program
}

// Parse lexes src and parses it into a Program, applying the spec's
// defaulting rules (bpm 120, default instrument "lead"/sine).
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.Lex(src)
	if err != nil {
		le := err.(*lexer.Error)
		return nil, &Error{Line: le.Line, Column: le.Column, Message: le.Message}
	}
	p := &parser{toks: toks}
	if err := p.parseProgram(); err != nil {
		return nil, err
	}
	p.applyDefaults()
	return &p.prog, nil
}

func (p *parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errf(t lexer.Token, format string, args ...any) *Error {
	return &Error{Line: t.Line, Column: t.Column, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind lexer.Kind, what string) (lexer.Token, error) {
	t := p.cur()
	if t.Kind != kind {
		return t, p.errf(t, "Expected %s, got %s", what, describe(t))
	}
	return p.advance(), nil
}

func describe(t lexer.Token) string {
	if t.Kind == lexer.EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Literal)
}

// isNameLike reports whether t can stand as a user-chosen name (pattern,
// track, or instrument identifier). Keyword-spelled words like "r" still
// lex as their keyword Kind, so a bare Ident check would reject a pattern
// named "r" (spec §8 scenario 3's "pattern r: ..."); any keyword Kind is
// just as good a name as Ident in a name position.
func isNameLike(k lexer.Kind) bool {
	return k == lexer.Ident || (k >= lexer.KwBPM && k <= lexer.KwRest)
}

func (p *parser) expectName(what string) (lexer.Token, error) {
	t := p.cur()
	if !isNameLike(t.Kind) {
		return t, p.errf(t, "Expected %s, got %s", what, describe(t))
	}
	return p.advance(), nil
}

func (p *parser) parseProgram() error {
	for p.cur().Kind != lexer.EOF {
		t := p.cur()
		var err error
		switch t.Kind {
		case lexer.KwBPM:
			err = p.parseBPM()
		case lexer.KwSwing:
			err = p.parseSwing()
		case lexer.KwLoop:
			err = p.parseLoop()
		case lexer.KwGrid:
			err = p.parseGrid()
		case lexer.KwInst:
			err = p.parseInst()
		case lexer.KwPattern:
			err = p.parsePattern()
		case lexer.KwTrack:
			err = p.parseTrack()
		case lexer.KwSeq:
			err = p.parseSeq()
		default:
			err = p.errf(t, "Unexpected token %s at top level", describe(t))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseBPM() error {
	p.advance() // bpm
	if p.hasBPM {
		return p.errf(p.cur(), "Duplicate bpm directive")
	}
	tok, err := p.expect(lexer.Integer, "number after bpm")
	if err != nil {
		return err
	}
	v, _ := strconv.Atoi(tok.Literal)
	p.prog.BPM = v
	p.hasBPM = true
	return nil
}

func (p *parser) parseNumber() (float64, lexer.Token, error) {
	t := p.cur()
	if t.Kind != lexer.Integer && t.Kind != lexer.Decimal {
		return 0, t, p.errf(t, "Expected number, got %s", describe(t))
	}
	p.advance()
	v, _ := strconv.ParseFloat(t.Literal, 64)
	return v, t, nil
}

func (p *parser) parseSwing() error {
	p.advance() // swing
	v, tok, err := p.parseNumber()
	if err != nil {
		return err
	}
	if v < 0 || v > 0.75 {
		return p.errf(tok, "swing must be in [0, 0.75], got %v", v)
	}
	p.prog.Settings.Swing = v
	return nil
}

func (p *parser) parseLoop() error {
	p.advance() // loop
	tok, err := p.expect(lexer.Integer, "integer after loop")
	if err != nil {
		return err
	}
	v, _ := strconv.Atoi(tok.Literal)
	if v < 1 {
		return p.errf(tok, "loop must be >= 1, got %d", v)
	}
	p.prog.Settings.LoopBars = v
	return nil
}

var validGrids = map[int]bool{2: true, 4: true, 8: true, 16: true, 32: true, 64: true}

func (p *parser) parseGrid() error {
	p.advance() // grid
	tok, err := p.expect(lexer.Integer, "integer after grid")
	if err != nil {
		return err
	}
	v, _ := strconv.Atoi(tok.Literal)
	if !validGrids[v] {
		return p.errf(tok, "grid must be one of {2,4,8,16,32,64}, got %d", v)
	}
	p.prog.Settings.Grid = v
	return nil
}

func (p *parser) parseInst() error {
	p.advance() // inst
	nameTok, err := p.expectName("instrument name")
	if err != nil {
		return err
	}
	waveTok, err := p.expect(lexer.Ident, "waveform")
	if err != nil {
		return err
	}
	if !waveforms[strings.ToLower(waveTok.Literal)] {
		return p.errf(waveTok, "unknown waveform %q", waveTok.Literal)
	}

	inst := ast.InstrumentDef{Name: nameTok.Literal, Waveform: strings.ToLower(waveTok.Literal)}
	var attackSet, decaySet, sustainSet, releaseSet bool

	for p.cur().Kind == lexer.Ident {
		keyTok := p.advance()
		key := strings.ToLower(keyTok.Literal)
		if _, err := p.expect(lexer.Equals, "'=' after instrument parameter"); err != nil {
			return err
		}
		v, vtok, err := p.parseNumber()
		if err != nil {
			return err
		}
		switch key {
		case "gain":
			if v < 0 || v > 1 {
				return p.errf(vtok, "gain must be in [0,1], got %v", v)
			}
			g := v
			inst.Gain = &g
		case "attack":
			if v < 0 {
				return p.errf(vtok, "attack must be >= 0, got %v", v)
			}
			inst.Attack, attackSet, inst.HasADSR = v, true, true
		case "decay":
			if v < 0 {
				return p.errf(vtok, "decay must be >= 0, got %v", v)
			}
			inst.Decay, decaySet, inst.HasADSR = v, true, true
		case "sustain":
			if v < 0 || v > 1 {
				return p.errf(vtok, "sustain must be in [0,1], got %v", v)
			}
			inst.Sustain, sustainSet, inst.HasADSR = v, true, true
		case "release":
			if v < 0 {
				return p.errf(vtok, "release must be >= 0, got %v", v)
			}
			inst.Release, releaseSet, inst.HasADSR = v, true, true
		default:
			return p.errf(keyTok, "unknown instrument parameter %q", keyTok.Literal)
		}
	}

	// "Any ADSR key implies all four" (spec §9): fill sub-fields the
	// directive didn't set with the spec's default envelope values.
	if inst.HasADSR {
		if !attackSet {
			inst.Attack = 0.005
		}
		if !decaySet {
			inst.Decay = 0.05
		}
		if !sustainSet {
			inst.Sustain = 0.7
		}
		if !releaseSet {
			inst.Release = 0.08
		}
	}

	p.prog.Instruments = append(p.prog.Instruments, inst)
	return nil
}

func (p *parser) parsePattern() error {
	p.advance() // pattern
	nameTok, err := p.expectName("pattern name")
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.Colon, "':' after pattern name"); err != nil {
		return err
	}
	items, err := p.parseSequenceItems()
	if err != nil {
		return err
	}
	p.prog.Patterns = append(p.prog.Patterns, ast.PatternDef{
		Name: nameTok.Literal, Items: items, Line: nameTok.Line, Column: nameTok.Column,
	})
	return nil
}

func (p *parser) parseTrack() error {
	trackTok := p.advance() // track
	nameTok, err := p.expectName("track name")
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.KwInst, "'inst' in track definition"); err != nil {
		return err
	}
	if _, err := p.expect(lexer.Equals, "'=' after inst"); err != nil {
		return err
	}
	instTok, err := p.expectName("instrument name")
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.Colon, "':' after track instrument"); err != nil {
		return err
	}
	items, err := p.parseSequenceItems()
	if err != nil {
		return err
	}
	p.prog.Tracks = append(p.prog.Tracks, ast.TrackDef{
		Name: nameTok.Literal, Instrument: instTok.Literal, Items: items,
		Line: trackTok.Line, Column: trackTok.Column,
	})
	return nil
}

func (p *parser) parseSeq() error {
	seqTok := p.advance() // seq
	if p.hasSeq {
		return p.errf(seqTok, "Duplicate top-level seq block")
	}
	if _, err := p.expect(lexer.Colon, "':' after seq"); err != nil {
		return err
	}
	items, err := p.parseSequenceItems()
	if err != nil {
		return err
	}
	p.prog.Sequence = items
	p.prog.HasSequence = true
	p.hasSeq = true
	return nil
}

// isTopLevelKeyword reports whether kind starts a new top-level directive,
// one of the three SequenceItems terminators from spec §4.2.
func isTopLevelKeyword(k lexer.Kind) bool {
	switch k {
	case lexer.KwBPM, lexer.KwInst, lexer.KwSeq, lexer.KwSwing, lexer.KwLoop,
		lexer.KwGrid, lexer.KwTrack, lexer.KwPattern:
		return true
	}
	return false
}

func (p *parser) parseSequenceItems() ([]ast.SeqItem, error) {
	var items []ast.SeqItem
	for {
		for p.cur().Kind == lexer.Comma {
			p.advance()
		}
		t := p.cur()
		if t.Kind == lexer.EOF || t.Kind == lexer.RBrace || isTopLevelKeyword(t.Kind) {
			break
		}
		item, err := p.parseSequenceItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *parser) parseSequenceItem() (ast.SeqItem, error) {
	t := p.cur()
	switch t.Kind {
	case lexer.KwRest:
		p.advance()
		dur, err := p.parseDuration()
		if err != nil {
			return ast.SeqItem{}, err
		}
		return ast.SeqItem{Kind: ast.ItemRest, Duration: dur, Line: t.Line, Column: t.Column}, nil

	case lexer.Note:
		p.advance()
		dur, err := p.parseDuration()
		if err != nil {
			return ast.SeqItem{}, err
		}
		vel, err := p.parseOptionalVelocity()
		if err != nil {
			return ast.SeqItem{}, err
		}
		return ast.SeqItem{Kind: ast.ItemNote, Pitch: t.Literal, Duration: dur, Velocity: vel, Line: t.Line, Column: t.Column}, nil

	case lexer.LBracket:
		p.advance()
		var pitches []string
		for p.cur().Kind == lexer.Note {
			pitches = append(pitches, p.advance().Literal)
		}
		if len(pitches) == 0 {
			return ast.SeqItem{}, p.errf(p.cur(), "chord must contain at least one note")
		}
		if _, err := p.expect(lexer.RBracket, "']' to close chord"); err != nil {
			return ast.SeqItem{}, err
		}
		dur, err := p.parseDuration()
		if err != nil {
			return ast.SeqItem{}, err
		}
		vel, err := p.parseOptionalVelocity()
		if err != nil {
			return ast.SeqItem{}, err
		}
		return ast.SeqItem{Kind: ast.ItemChord, Pitches: pitches, Duration: dur, Velocity: vel, Line: t.Line, Column: t.Column}, nil

	case lexer.Repeat:
		p.advance()
		count, err := strconv.Atoi(strings.ToLower(t.Literal)[1:])
		if err != nil || count < 1 {
			return ast.SeqItem{}, p.errf(t, "invalid repeat count in %q", t.Literal)
		}
		if _, err := p.expect(lexer.LBrace, "'{' after repeat marker"); err != nil {
			return ast.SeqItem{}, err
		}
		body, err := p.parseSequenceItems()
		if err != nil {
			return ast.SeqItem{}, err
		}
		if _, err := p.expect(lexer.RBrace, "'}' to close repeat block"); err != nil {
			return ast.SeqItem{}, err
		}
		return ast.SeqItem{Kind: ast.ItemRepeat, Count: count, Body: body, Line: t.Line, Column: t.Column}, nil

	case lexer.KwUse:
		p.advance()
		nameTok, err := p.expectName("pattern name after use")
		if err != nil {
			return ast.SeqItem{}, err
		}
		count := 1
		if p.cur().Kind == lexer.Repeat {
			rtok := p.advance()
			c, err := strconv.Atoi(strings.ToLower(rtok.Literal)[1:])
			if err != nil || c < 1 {
				return ast.SeqItem{}, p.errf(rtok, "invalid repeat count in %q", rtok.Literal)
			}
			count = c
		}
		return ast.SeqItem{Kind: ast.ItemPatternUse, PatternName: nameTok.Literal, Count: count, Line: t.Line, Column: t.Column}, nil

	default:
		return ast.SeqItem{}, p.errf(t, "Unexpected token %s in sequence", describe(t))
	}
}

func (p *parser) parseDuration() (ast.Duration, error) {
	t, err := p.expect(lexer.Duration, "duration (n/d)")
	if err != nil {
		return ast.Duration{}, err
	}
	parts := strings.SplitN(t.Literal, "/", 2)
	n, _ := strconv.Atoi(parts[0])
	d, _ := strconv.Atoi(parts[1])
	if n <= 0 || d <= 0 {
		return ast.Duration{}, p.errf(t, "duration numerator and denominator must be positive, got %s", t.Literal)
	}
	return ast.Duration{Num: n, Den: d}, nil
}

func (p *parser) parseOptionalVelocity() (*float64, error) {
	t := p.cur()
	if t.Kind != lexer.Ident || strings.ToLower(t.Literal) != "vel" {
		return nil, nil
	}
	p.advance()
	if _, err := p.expect(lexer.Equals, "'=' after vel"); err != nil {
		return nil, err
	}
	v, vtok, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	if v < 0 || v > 1 {
		return nil, p.errf(vtok, "velocity must be in [0,1], got %v", v)
	}
	return &v, nil
}

func (p *parser) applyDefaults() {
	if !p.hasBPM {
		p.prog.BPM = 120
	}
	if p.prog.Settings.Grid == 0 {
		p.prog.Settings.Grid = 16
	}
	if p.prog.Settings.LoopBars == 0 {
		p.prog.Settings.LoopBars = 1
	}
	if len(p.prog.Instruments) == 0 {
		p.prog.Instruments = append(p.prog.Instruments, ast.InstrumentDef{Name: "lead", Waveform: "sine"})
	}
}
