// dump.go - Dump-Funktionen fuer Tensor-Debugging
// Dieses Modul gibt Tensor-Inhalte verschachtelt und gekuerzt als Text aus.
package ml

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

type number interface {
	~int | ~int32 | ~float32
}

func mul[T number](s ...T) T {
	p := T(1)
	for _, v := range s {
		p *= v
	}
	return p
}

// DumpOptions adjusts how Dump formats a tensor.
type DumpOptions func(*dumpOptions)

// DumpWithPrecision sets the decimals printed for float tensors.
func DumpWithPrecision(n int) DumpOptions {
	return func(o *dumpOptions) { o.Precision = n }
}

// DumpWithThreshold prints every element of tensors with at most n elements.
// Larger tensors are cut to their edge items.
func DumpWithThreshold(n int) DumpOptions {
	return func(o *dumpOptions) { o.Threshold = n }
}

// DumpWithEdgeItems sets how many leading and trailing entries of each
// dimension survive truncation.
func DumpWithEdgeItems(n int) DumpOptions {
	return func(o *dumpOptions) { o.EdgeItems = n }
}

type dumpOptions struct {
	Precision, Threshold, EdgeItems int
}

// Dump converts a tensor to a nested, human-readable string. Large tensors
// show only the edge items of every dimension.
func Dump(t *Tensor, optsFuncs ...DumpOptions) string {
	opts := dumpOptions{Precision: 4, Threshold: 1000, EdgeItems: 3}
	for _, fn := range optsFuncs {
		fn(&opts)
	}

	if t.Len() <= opts.Threshold {
		opts.EdgeItems = math.MaxInt
	}

	if t.blockStride != 0 {
		t = FromFloats(t.Floats(), t.shape...)
	}
	if t.dtype == DTypeI32 {
		return dump(t.ints, t.shape, opts.EdgeItems, func(i int32) string {
			return strconv.FormatInt(int64(i), 10)
		})
	}
	return dump(t.data, t.shape, opts.EdgeItems, func(f float32) string {
		return strconv.FormatFloat(float64(f), 'f', opts.Precision, 32)
	})
}

func dump[S ~[]E, E number](s S, shape []int, items int, fn func(E) string) string {
	if len(shape) == 0 {
		return fn(s[0])
	}

	var sb strings.Builder
	var f func([]int, int)
	f = func(dims []int, offset int) {
		indent := strings.Repeat(" ", len(shape)-len(dims)+1)
		sb.WriteString("[")
		defer sb.WriteString("]")
		inner := mul(dims[1:]...)
		for i := 0; i < dims[0]; i++ {
			if i >= items && i < dims[0]-items {
				sb.WriteString("...")
				if len(dims) > 1 {
					fmt.Fprint(&sb, ",", strings.Repeat("\n", len(dims)-1), indent)
				} else {
					sb.WriteString(", ")
				}
				i = dims[0] - items - 1
				continue
			}

			if len(dims) > 1 {
				f(dims[1:], offset+i*inner)
				if i < dims[0]-1 {
					fmt.Fprint(&sb, ",", strings.Repeat("\n", len(dims)-1), indent)
				}
				continue
			}

			text := fn(s[offset+i])
			if len(text) > 0 && text[0] != '-' {
				sb.WriteString(" ")
			}
			sb.WriteString(text)
			if i < dims[0]-1 {
				sb.WriteString(", ")
			}
		}
	}
	f(shape, 0)

	return sb.String()
}

// LogValue renders a shortened dump so tensors can be passed to slog directly.
// The dump is only built when the record is emitted.
func (t *Tensor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("shape", t.shape),
		slog.String("dtype", t.dtype.String()),
		slog.String("values", Dump(t, DumpWithThreshold(16), DumpWithEdgeItems(2))),
	)
}
