// types.go - Datentypen fuer Tensor-Elemente
// Dieses Modul definiert DType und die Abbildung auf Namen und Elementgroessen.
package ml

// DType represents the data type of tensor elements.
type DType int

const (
	DTypeOther DType = iota
	DTypeF32
	DTypeF16
	DTypeBF16
	DTypeI32
)

// String returns the lower case name used in flags and logs.
func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "f32"
	case DTypeF16:
		return "f16"
	case DTypeBF16:
		return "bf16"
	case DTypeI32:
		return "i32"
	default:
		return "other"
	}
}

// Size returns the number of bytes a single element occupies when stored.
func (d DType) Size() int {
	switch d {
	case DTypeF32, DTypeI32:
		return 4
	case DTypeF16, DTypeBF16:
		return 2
	default:
		return 0
	}
}

// ParseDType maps a name such as "f16" or "bfloat16" to its DType.
func ParseDType(s string) DType {
	switch s {
	case "f32", "float32", "F32":
		return DTypeF32
	case "f16", "float16", "F16":
		return DTypeF16
	case "bf16", "bfloat16", "BF16":
		return DTypeBF16
	case "i32", "int32", "I32":
		return DTypeI32
	default:
		return DTypeOther
	}
}
