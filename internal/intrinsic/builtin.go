package intrinsic

import (
	"sync"

	"natvis/internal/scanner"
)

// FindNonNull is the name of the builtin returning the index of the first
// non-null pointer among the first n elements of a pointer array, or -1.
const FindNonNull = "__findnonnull"

const findNonNullBody = "({ int __natvis_idx = -1; " +
	"for (int __natvis_k = 0; __natvis_k < n; ++__natvis_k) { " +
	"if (ptrs[__natvis_k] != nullptr) { __natvis_idx = __natvis_k; break; } " +
	"} __natvis_idx; })"

// Builtins returns the scope of builtin intrinsics. It is appended to every
// scope chain and never mutated after construction.
var Builtins = sync.OnceValue(func() *Scope {
	findNonNull := New(0, FindNonNull, []Parameter{
		{Name: "ptrs", Type: "void**"},
		{Name: "n", Type: "int"},
	}, findNonNullBody, scanner.New())
	findNonNull.ReturnType = "int"
	findNonNull.rewritten = true
	return NewScope(0, KindBuiltin, []*Intrinsic{findNonNull})
})
