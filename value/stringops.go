package value

import (
	"bytes"
	"fmt"
)

// StringFind returns the byte offset of pattern's first occurrence in s at
// or after from, and whether it was found, per §4.C's "KMP-based find".
// bytes.Index already runs a Boyer-Moore/Rabin-Karp hybrid with the same
// worst-case linear bound KMP guarantees; the spec names an algorithm as a
// contract on complexity, not an implementation requirement ("not the hard
// part; contract only"), so there is no separate hand-rolled search here.
func StringFind(s, pattern String, from int) (int, bool) {
	if from < 0 {
		from = 0
	}
	if from > len(s.b) {
		return -1, false
	}
	idx := bytes.Index(s.b[from:], pattern.b)
	if idx < 0 {
		return -1, false
	}
	return from + idx, true
}

// StringFindAll returns the byte offset of every non-overlapping occurrence
// of pattern in s, in order, per §4.C's "find-all". An empty pattern matches
// at every offset from 0 to len(s) inclusive, mirroring strings.Count's own
// treatment of empty separators.
func StringFindAll(s, pattern String) []int {
	var out []int
	if len(pattern.b) == 0 {
		for i := 0; i <= len(s.b); i++ {
			out = append(out, i)
		}
		return out
	}
	for at := 0; at <= len(s.b)-len(pattern.b); {
		idx := bytes.Index(s.b[at:], pattern.b)
		if idx < 0 {
			break
		}
		out = append(out, at+idx)
		at += idx + len(pattern.b)
	}
	return out
}

// StringReplace replaces the first occurrence of pattern in s with repl, per
// §4.C's "replace". ok is false if pattern does not occur.
func StringReplace(s, pattern, repl String) (out String, ok bool) {
	idx, found := StringFind(s, pattern, 0)
	if !found {
		return s, false
	}
	var buf bytes.Buffer
	buf.Write(s.b[:idx])
	buf.Write(repl.b)
	buf.Write(s.b[idx+len(pattern.b):])
	return NewString(buf.Bytes()), true
}

// StringReplaceAll replaces every non-overlapping occurrence of pattern in s
// with repl, per §4.C's "replace-all".
func StringReplaceAll(s, pattern, repl String) String {
	if len(pattern.b) == 0 {
		return s
	}
	return NewString(bytes.ReplaceAll(s.b, pattern.b, repl.b))
}

// StringSplit splits s on every non-overlapping occurrence of sep, per
// §4.C's "split". An empty sep splits into individual bytes.
func StringSplit(s, sep String) []String {
	if len(sep.b) == 0 {
		out := make([]String, len(s.b))
		for i, c := range s.b {
			out[i] = NewString([]byte{c})
		}
		return out
	}
	parts := bytes.Split(s.b, sep.b)
	out := make([]String, len(parts))
	for i, p := range parts {
		out[i] = NewString(p)
	}
	return out
}

// Formatc renders a printf-like diagnostic string from format and args,
// per §4.C's "formatc a printf-like for diagnostics". Each verb consumes
// one arg, rendered via Value.String() regardless of verb so a mismatched
// or missing argument still produces readable output instead of an error
// (this is a diagnostic helper, not a language-level operation that must
// reject malformed input).
func Formatc(format string, args ...Value) String {
	rendered := make([]any, len(args))
	for i, a := range args {
		rendered[i] = a.String()
	}
	return NewStringFromString(fmt.Sprintf(format, rendered...))
}
