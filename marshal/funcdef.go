package marshal

import (
	"github.com/mna/corevm/code"
	"github.com/mna/corevm/coreerr"
)

func (w *writer) funcDef(d *code.FuncDef) error {
	id, seen := w.refID(d)
	if seen {
		w.ref(id)
		return w.err
	}
	w.tag(tagFuncDef)
	w.uvarint(uint64(id))
	w.bytes([]byte(d.Name))
	w.bytes([]byte(d.Source))
	w.bytes([]byte(d.SourcePath))
	w.varint(int64(d.Arity))
	w.varint(int64(d.MinArity))
	w.varint(int64(d.MaxArity))
	w.uvarint(uint64(d.Flags))
	w.varint(int64(d.SlotCount))

	w.uvarint(uint64(len(d.Bytecode)))
	for _, ins := range d.Bytecode {
		var tmp [4]byte
		bePutUint32(tmp[:], uint32(ins))
		w.buf.Write(tmp[:])
	}

	w.uvarint(uint64(len(d.Constants)))
	for _, c := range d.Constants {
		if err := w.value(c); err != nil {
			return err
		}
	}

	w.uvarint(uint64(len(d.Defs)))
	for _, child := range d.Defs {
		if err := w.funcDef(child); err != nil {
			return err
		}
	}

	w.uvarint(uint64(len(d.Environments)))
	for _, e := range d.Environments {
		w.varint(int64(e))
	}

	w.uvarint(uint64(len(d.SourceMap)))
	for _, p := range d.SourceMap {
		line, col := p.LineCol()
		w.varint(int64(line))
		w.varint(int64(col))
	}

	if d.ClosureBitset == nil {
		w.buf.WriteByte(0)
	} else {
		w.buf.WriteByte(1)
		w.uvarint(uint64(len(d.ClosureBitset)))
		for _, b := range d.ClosureBitset {
			if b {
				w.buf.WriteByte(1)
			} else {
				w.buf.WriteByte(0)
			}
		}
	}
	return w.err
}

// function marshals a closure. Its captured environments must already be
// detached (Detach, or never on-stack): an on-stack FuncEnv aliases a live
// fiber's value stack, state that has no meaning on the receiving end of a
// point-to-point marshal without that fiber, so Marshal rejects it rather
// than silently snapshotting a value that could still change.
func (w *writer) function(f *code.Function) error {
	id, seen := w.refID(f)
	if seen {
		w.ref(id)
		return w.err
	}
	w.tag(tagFunction)
	w.uvarint(uint64(id))
	if err := w.funcDef(f.Def); err != nil {
		return err
	}
	w.uvarint(uint64(len(f.Envs)))
	for _, e := range f.Envs {
		if e == nil {
			w.buf.WriteByte(0)
			continue
		}
		if e.IsOnStack() {
			w.err = coreerr.NewTypeError(coreerr.Str("marshal: cannot marshal a function with a live on-stack environment"))
			return w.err
		}
		w.buf.WriteByte(1)
		w.uvarint(uint64(e.Length))
		for i := 0; i < e.Length; i++ {
			if err := w.value(e.Get(i)); err != nil {
				return err
			}
		}
	}
	return w.err
}

func bePutUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
