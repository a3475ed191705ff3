// tensor.go - Tensor-Typ mit Daten, Gradient und Rueckwaertsfunktion
// Dieses Modul enthaelt:
// - Tensor: dichter Row-Major-Tensor (float32 oder int32)
// - Konstruktoren: FromFloats, FromInts, Zeros, Full, NewParameter, BlockView
// - Zugriffsfunktionen auf Form, Daten und Gradienten
package ml

import (
	"fmt"
	"slices"
)

// Tensor is a dense row-major array. Float tensors may carry a gradient;
// integer tensors are used for token ids and never require one.
type Tensor struct {
	shape []int
	dtype DType
	data  []float32
	ints  []int32

	// blockStride is the distance between consecutive [shape[-2], shape[-1]]
	// blocks of a block view, 0 for dense tensors.
	blockStride int

	grad         []float32
	requiresGrad bool
	backward     func()
}

func checkShape(n int, shape []int) {
	for _, d := range shape {
		if d < 0 {
			panic(fmt.Sprintf("ml: negative dimension in shape %v", shape))
		}
	}
	if mul(shape...) != n {
		panic(fmt.Sprintf("ml: %d elements do not fit shape %v", n, shape))
	}
}

// FromFloats wraps s in a float tensor of the given shape. The slice is not copied.
func FromFloats(s []float32, shape ...int) *Tensor {
	checkShape(len(s), shape)
	return &Tensor{shape: slices.Clone(shape), dtype: DTypeF32, data: s}
}

// FromInts wraps s in an integer tensor of the given shape. The slice is not copied.
func FromInts(s []int32, shape ...int) *Tensor {
	checkShape(len(s), shape)
	return &Tensor{shape: slices.Clone(shape), dtype: DTypeI32, ints: s}
}

// Zeros returns a float tensor filled with zeros.
func Zeros(shape ...int) *Tensor {
	return FromFloats(make([]float32, mul(shape...)), shape...)
}

// Full returns a float tensor with every element set to v.
func Full(v float32, shape ...int) *Tensor {
	t := Zeros(shape...)
	for i := range t.data {
		t.data[i] = v
	}
	return t
}

// BlockView wraps data whose trailing two dimensions form blocks that start
// blockStride elements apart, as in a buffer with spare capacity per block.
// Views are read-only inputs for ScaledDotProductAttention and Floats; other
// ops panic on them.
func BlockView(data []float32, blockStride int, shape ...int) *Tensor {
	if len(shape) < 2 {
		panic(fmt.Sprintf("ml: BlockView needs at least two dimensions, got %v", shape))
	}
	checkShape(mul(shape...), shape)
	block := shape[len(shape)-2] * shape[len(shape)-1]
	blocks := mul(shape[:len(shape)-2]...)
	if blockStride < block || (blocks > 0 && (blocks-1)*blockStride+block > len(data)) {
		panic(fmt.Sprintf("ml: BlockView of %d elements with stride %d cannot hold %v", len(data), blockStride, shape))
	}
	return &Tensor{shape: slices.Clone(shape), dtype: DTypeF32, data: data, blockStride: blockStride}
}

// block returns the i-th [shape[-2], shape[-1]] block.
func (t *Tensor) block(i int) []float32 {
	n := t.shape[len(t.shape)-2] * t.shape[len(t.shape)-1]
	stride := t.blockStride
	if stride == 0 {
		stride = n
	}
	return t.data[i*stride : i*stride+n]
}

// NewParameter returns a trainable leaf tensor. Its gradient accumulates
// across backward passes until ZeroGrad is called.
func NewParameter(s []float32, shape ...int) *Tensor {
	t := FromFloats(s, shape...)
	t.requiresGrad = true
	return t
}

// SetRequiresGrad marks a leaf tensor as trainable or frozen.
func (t *Tensor) SetRequiresGrad(b bool) {
	if (t.dtype == DTypeI32 || t.blockStride != 0) && b {
		panic(fmt.Sprintf("ml: %s cannot require gradients", t))
	}
	t.requiresGrad = b
}

func (t *Tensor) RequiresGrad() bool { return t.requiresGrad }

// Shape returns a copy of the tensor's dimensions.
func (t *Tensor) Shape() []int { return slices.Clone(t.shape) }

func (t *Tensor) Rank() int { return len(t.shape) }

// Dim returns the size of dimension n. Negative n counts from the end.
func (t *Tensor) Dim(n int) int {
	if n < 0 {
		n += len(t.shape)
	}
	return t.shape[n]
}

// Len returns the number of elements.
func (t *Tensor) Len() int { return mul(t.shape...) }

func (t *Tensor) DType() DType { return t.dtype }

// Floats returns a copy of the elements as float32.
func (t *Tensor) Floats() []float32 {
	if t.dtype == DTypeI32 {
		out := make([]float32, len(t.ints))
		for i, v := range t.ints {
			out[i] = float32(v)
		}
		return out
	}
	if t.blockStride != 0 {
		n := t.shape[len(t.shape)-2] * t.shape[len(t.shape)-1]
		out := make([]float32, 0, t.Len())
		for i := range t.Len() / max(n, 1) {
			out = append(out, t.block(i)...)
		}
		return out
	}
	return slices.Clone(t.data)
}

// Ints returns a copy of the elements as int32.
func (t *Tensor) Ints() []int32 {
	if t.dtype != DTypeI32 {
		data := t.Floats()
		out := make([]int32, len(data))
		for i, v := range data {
			out[i] = int32(v)
		}
		return out
	}
	return slices.Clone(t.ints)
}

// Data returns the backing float slice. Writes are visible to every
// tensor sharing the storage. Block views have no dense backing slice and
// panic; use Floats.
func (t *Tensor) Data() []float32 {
	t.mustDense("Data")
	return t.data
}

// Grad returns the accumulated gradient or nil if none was computed.
func (t *Tensor) Grad() []float32 { return t.grad }

// ZeroGrad drops the accumulated gradient.
func (t *Tensor) ZeroGrad() { t.grad = nil }

// Item returns the value of a single element tensor.
func (t *Tensor) Item() float32 {
	if t.Len() != 1 {
		panic(fmt.Sprintf("ml: Item on tensor of shape %v", t.shape))
	}
	if t.dtype == DTypeI32 {
		return float32(t.ints[0])
	}
	return t.data[0]
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, dtype=%s)", t.shape, t.dtype)
}

// gradBuf returns the gradient buffer, allocating it on first use.
func (t *Tensor) gradBuf() []float32 {
	if t.grad == nil {
		t.grad = make([]float32, len(t.data))
	}
	return t.grad
}

func (t *Tensor) mustFloat(op string) {
	if t.dtype == DTypeI32 {
		panic(fmt.Sprintf("ml: %s requires a float tensor, got %s", op, t))
	}
	t.mustDense(op)
}

func (t *Tensor) mustDense(op string) {
	if t.blockStride != 0 {
		panic(fmt.Sprintf("ml: %s requires a dense tensor, got a block view %v", op, t.shape))
	}
}
