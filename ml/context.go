// context.go - Berechnungskontext mit Aufzeichnung fuer Rueckwaertsableitung
// Dieses Modul enthaelt:
// - Context: zeichnet Operationen auf, wenn Gradienten benoetigt werden
// - Backward: fuehrt die Aufzeichnung rueckwaerts aus
// - Close: gibt Zwischenergebnisse frei
package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrNoGrad is returned by Backward when the context does not record.
	ErrNoGrad = errors.New("ml: context does not record gradients")

	// ErrNotScalar is returned by Backward when the loss has more than one element.
	ErrNotScalar = errors.New("ml: loss must be a scalar")
)

// Context is the scope of a computation. With WithGrad every operation whose
// inputs require gradients is appended to a tape that Backward replays in
// reverse. A nil *Context computes without recording.
type Context struct {
	grad bool
	tape []*Tensor
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithGrad enables recording for reverse mode differentiation.
func WithGrad() ContextOption {
	return func(c *Context) { c.grad = true }
}

// NewContext returns a context; without options it only evaluates.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Grad reports whether the context records operations.
func (c *Context) Grad() bool { return c != nil && c.grad }

// Len returns the number of recorded operations.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tape)
}

// track attaches backward to out and records it when any input requires a gradient.
func (c *Context) track(out *Tensor, backward func(), inputs ...*Tensor) *Tensor {
	if !c.Grad() {
		return out
	}
	for _, in := range inputs {
		if in != nil && in.requiresGrad {
			out.requiresGrad = true
			out.backward = backward
			c.tape = append(c.tape, out)
			break
		}
	}
	return out
}

// Backward seeds loss with a gradient of one and propagates it to every
// tensor recorded before it. Gradients of parameters accumulate.
func (c *Context) Backward(loss *Tensor) error {
	if !c.Grad() {
		return ErrNoGrad
	}
	if loss.Len() != 1 {
		return fmt.Errorf("%w: shape %v", ErrNotScalar, loss.shape)
	}
	if !loss.requiresGrad {
		return fmt.Errorf("ml: loss %s does not depend on any parameter", loss)
	}

	loss.gradBuf()[0] += 1
	for i := len(c.tape) - 1; i >= 0; i-- {
		node := c.tape[i]
		if node.grad != nil && node.backward != nil {
			node.backward()
		}
	}
	return nil
}

// Close releases the tape and the gradients of recorded intermediates.
// Values already read from them stay valid.
func (c *Context) Close() {
	if c == nil {
		return
	}
	for _, node := range c.tape {
		node.backward = nil
		node.grad = nil
	}
	c.tape = nil
}
