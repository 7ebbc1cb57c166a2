package marshal

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/coreerr"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/lang/token"
	"github.com/mna/corevm/value"
)

type reader struct {
	buf     *bytes.Reader
	heap    *gc.Heap
	objects map[uint32]any
}

func (r *reader) value() (value.Value, error) {
	t, err := r.buf.ReadByte()
	if err != nil {
		return nil, wrapEOF(err)
	}
	switch tag(t) {
	case tagNil:
		return value.Nil, nil
	case tagFalse:
		return value.False, nil
	case tagTrue:
		return value.True, nil
	case tagInt:
		n, err := r.varint()
		if err != nil {
			return nil, err
		}
		return value.Number(n), nil
	case tagFloat:
		var tmp [8]byte
		if _, err := io.ReadFull(r.buf, tmp[:]); err != nil {
			return nil, wrapEOF(err)
		}
		return value.Number(math.Float64frombits(binary.BigEndian.Uint64(tmp[:]))), nil
	case tagString:
		b, err := r.bytes()
		if err != nil {
			return nil, err
		}
		return value.NewString(b), nil
	case tagSymbol:
		b, err := r.bytes()
		if err != nil {
			return nil, err
		}
		return value.NewSymbol(b), nil
	case tagKeyword:
		b, err := r.bytes()
		if err != nil {
			return nil, err
		}
		return value.NewKeyword(b), nil
	case tagArray:
		return r.array()
	case tagTupleParen:
		return r.tuple(value.BracketParen)
	case tagTupleSquare:
		return r.tuple(value.BracketSquare)
	case tagTable:
		return r.table()
	case tagStruct:
		return r.structVal()
	case tagBuffer:
		return r.buffer()
	case tagFuncDef:
		return r.funcDef()
	case tagFunction:
		return r.function()
	case tagRef:
		return r.resolveRef()
	default:
		return nil, coreerr.NewVerificationError(coreerr.Str("marshal: unknown tag byte"))
	}
}

func (r *reader) resolveRef() (value.Value, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	obj, ok := r.objects[uint32(id)]
	if !ok {
		return nil, coreerr.NewVerificationError(coreerr.Str("marshal: dangling backreference"))
	}
	v, ok := obj.(value.Value)
	if !ok {
		return nil, coreerr.NewVerificationError(coreerr.Str("marshal: backreference to non-value object"))
	}
	return v, nil
}

func (r *reader) array() (value.Value, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	a := value.NewArray(r.heap, int(n))
	r.objects[uint32(id)] = a
	for i := uint64(0); i < n; i++ {
		el, err := r.value()
		if err != nil {
			return nil, err
		}
		a.Push(el)
	}
	return a, nil
}

func (r *reader) tuple(bracket value.BracketKind) (value.Value, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	elems := make([]value.Value, n)
	for i := range elems {
		el, err := r.value()
		if err != nil {
			return nil, err
		}
		elems[i] = el
	}
	t := value.NewTuple(r.heap, elems, bracket)
	r.objects[uint32(id)] = t
	return t, nil
}

func (r *reader) table() (value.Value, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	weakByte, err := r.buf.ReadByte()
	if err != nil {
		return nil, wrapEOF(err)
	}
	var t *value.Table
	if value.WeakMode(weakByte) == value.WeakNone {
		t = value.NewTable(r.heap, 0)
	} else {
		t = value.NewWeakTable(r.heap, 0, value.WeakMode(weakByte))
	}
	r.objects[uint32(id)] = t

	hasProto, err := r.buf.ReadByte()
	if err != nil {
		return nil, wrapEOF(err)
	}
	if hasProto == 1 {
		proto, err := r.value()
		if err != nil {
			return nil, err
		}
		pt, ok := proto.(*value.Table)
		if !ok {
			return nil, coreerr.NewTypeError(coreerr.Str("marshal: table prototype is not a table"))
		}
		t.SetProto(pt)
	}

	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < n; i++ {
		k, err := r.value()
		if err != nil {
			return nil, err
		}
		v, err := r.value()
		if err != nil {
			return nil, err
		}
		if err := t.Put(k, v); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (r *reader) structVal() (value.Value, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	hasProto, err := r.buf.ReadByte()
	if err != nil {
		return nil, wrapEOF(err)
	}
	var proto *value.Struct
	if hasProto == 1 {
		p, err := r.value()
		if err != nil {
			return nil, err
		}
		pv, ok := p.(*value.Struct)
		if !ok {
			return nil, coreerr.NewTypeError(coreerr.Str("marshal: struct prototype is not a struct"))
		}
		proto = pv
	}

	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	b := value.BeginStruct(int(n))
	for i := uint64(0); i < n; i++ {
		k, err := r.value()
		if err != nil {
			return nil, err
		}
		v, err := r.value()
		if err != nil {
			return nil, err
		}
		b.Put(k, v)
	}
	b.SetProto(proto)
	s := b.End(r.heap)
	r.objects[uint32(id)] = s
	return s, nil
}

func (r *reader) buffer() (value.Value, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	data, err := r.bytes()
	if err != nil {
		return nil, err
	}
	b := value.NewBuffer(r.heap, len(data))
	b.Push(data)
	r.objects[uint32(id)] = b
	return b, nil
}

func (r *reader) funcDef() (*code.FuncDef, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	name, err := r.bytes()
	if err != nil {
		return nil, err
	}
	source, err := r.bytes()
	if err != nil {
		return nil, err
	}
	sourcePath, err := r.bytes()
	if err != nil {
		return nil, err
	}
	arity, err := r.varint()
	if err != nil {
		return nil, err
	}
	minArity, err := r.varint()
	if err != nil {
		return nil, err
	}
	maxArity, err := r.varint()
	if err != nil {
		return nil, err
	}
	flags, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	slotCount, err := r.varint()
	if err != nil {
		return nil, err
	}

	def := &code.FuncDef{
		Name:       string(name),
		Source:     string(source),
		SourcePath: string(sourcePath),
		Arity:      int(arity),
		MinArity:   int(minArity),
		MaxArity:   int(maxArity),
		Flags:      code.Flags(flags),
		SlotCount:  int(slotCount),
	}
	// Registered before decoding children so a nested def referencing its
	// enclosing def via a backreference (not produced by this package's own
	// writer, but legal wire form) resolves.
	r.objects[uint32(id)] = def

	nIns, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	def.Bytecode = make([]code.Instruction, nIns)
	for i := range def.Bytecode {
		var tmp [4]byte
		if _, err := io.ReadFull(r.buf, tmp[:]); err != nil {
			return nil, wrapEOF(err)
		}
		def.Bytecode[i] = code.Instruction(beUint32(tmp[:]))
	}

	nConst, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	def.Constants = make([]value.Value, nConst)
	for i := range def.Constants {
		v, err := r.value()
		if err != nil {
			return nil, err
		}
		def.Constants[i] = v
	}

	nDefs, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	def.Defs = make([]*code.FuncDef, nDefs)
	for i := range def.Defs {
		cv, err := r.value()
		if err != nil {
			return nil, err
		}
		child, ok := cv.(*code.FuncDef)
		if !ok {
			return nil, coreerr.NewVerificationError(coreerr.Str("marshal: nested def is not a funcdef"))
		}
		def.Defs[i] = child
	}

	nEnv, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	def.Environments = make([]int, nEnv)
	for i := range def.Environments {
		e, err := r.varint()
		if err != nil {
			return nil, err
		}
		def.Environments[i] = int(e)
	}

	nMap, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	def.SourceMap = make([]token.Pos, nMap)
	for i := range def.SourceMap {
		line, err := r.varint()
		if err != nil {
			return nil, err
		}
		col, err := r.varint()
		if err != nil {
			return nil, err
		}
		def.SourceMap[i] = token.MakePos(int(line), int(col))
	}

	hasBitset, err := r.buf.ReadByte()
	if err != nil {
		return nil, wrapEOF(err)
	}
	if hasBitset == 1 {
		n, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		bitset := make([]bool, n)
		for i := range bitset {
			b, err := r.buf.ReadByte()
			if err != nil {
				return nil, wrapEOF(err)
			}
			bitset[i] = b == 1
		}
		def.ClosureBitset = bitset
	}

	code.NewFuncDef(r.heap, def)
	if err := def.Verify(); err != nil {
		return nil, err
	}
	return def, nil
}

func (r *reader) function() (value.Value, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	dv, err := r.value()
	if err != nil {
		return nil, err
	}
	def, ok := dv.(*code.FuncDef)
	if !ok {
		return nil, coreerr.NewVerificationError(coreerr.Str("marshal: function body is not a funcdef"))
	}
	nEnv, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	envs := make([]*code.FuncEnv, nEnv)
	for i := range envs {
		present, err := r.buf.ReadByte()
		if err != nil {
			return nil, wrapEOF(err)
		}
		if present == 0 {
			continue
		}
		length, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		values := make([]value.Value, length)
		for j := range values {
			v, err := r.value()
			if err != nil {
				return nil, err
			}
			values[j] = v
		}
		env := &code.FuncEnv{Values: values, Length: int(length)}
		r.heap.Register(env, gc.KindFuncEnv, uint64(16+int(length)*8))
		envs[i] = env
	}
	fn := code.NewFunction(r.heap, def, envs)
	r.objects[uint32(id)] = fn
	return fn, nil
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.buf, b); err != nil {
		return nil, wrapEOF(err)
	}
	return b, nil
}

func (r *reader) uvarint() (uint64, error) {
	n, err := binary.ReadUvarint(r.buf)
	if err != nil {
		return 0, wrapEOF(err)
	}
	return n, nil
}

func (r *reader) varint() (int64, error) {
	n, err := binary.ReadVarint(r.buf)
	if err != nil {
		return 0, wrapEOF(err)
	}
	return n, nil
}

func wrapEOF(err error) error {
	return coreerr.NewVerificationError(coreerr.Str("marshal: truncated input: " + err.Error()))
}
