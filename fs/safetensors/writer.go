package safetensors

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/d4l3k/go-bfloat16"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/x448/float16"

	"github.com/lingoforge/qwen2mt/ml"
)

// Tensor is a named entry to be written.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Encode converts float32 values to little endian bytes of dtype.
func Encode(dtype ml.DType, data []float32) ([]byte, error) {
	switch dtype {
	case ml.DTypeF32:
		b := make([]byte, 4*len(data))
		for i, v := range data {
			binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
		}
		return b, nil
	case ml.DTypeF16:
		b := make([]byte, 2*len(data))
		for i, v := range data {
			binary.LittleEndian.PutUint16(b[2*i:], float16.Fromfloat32(v).Bits())
		}
		return b, nil
	case ml.DTypeBF16:
		return bfloat16.EncodeFloat32(data), nil
	default:
		return nil, fmt.Errorf("cannot store tensors as %s", dtype)
	}
}

func headerDType(dtype ml.DType) string {
	switch dtype {
	case ml.DTypeF16:
		return "F16"
	case ml.DTypeBF16:
		return "BF16"
	default:
		return "F32"
	}
}

// Write stores tensors in insertion order. The header carries format "pt"
// plus the given metadata and is padded to a multiple of eight bytes.
func Write(w io.Writer, tensors *orderedmap.OrderedMap[string, Tensor], dtype ml.DType, metadata map[string]string) error {
	meta := map[string]string{"format": "pt"}
	for k, v := range metadata {
		meta[k] = v
	}

	header := orderedmap.New[string, any]()
	header.Set("__metadata__", meta)

	var offset int64
	for pair := tensors.Oldest(); pair != nil; pair = pair.Next() {
		elems := 1
		for _, d := range pair.Value.Shape {
			elems *= d
		}
		if elems != len(pair.Value.Data) {
			return fmt.Errorf("%s: shape %v holds %d values, data has %d", pair.Key, pair.Value.Shape, elems, len(pair.Value.Data))
		}

		size := int64(len(pair.Value.Data) * dtype.Size())
		header.Set(pair.Key, Info{DType: headerDType(dtype), Shape: pair.Value.Shape, Offsets: [2]int64{offset, offset + size}})
		offset += size
	}

	bts, err := json.Marshal(header)
	if err != nil {
		return err
	}
	if pad := (8 - len(bts)%8) % 8; pad > 0 {
		bts = append(bts, bytes.Repeat([]byte(" "), pad)...)
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(bts))); err != nil {
		return err
	}
	if _, err := bw.Write(bts); err != nil {
		return err
	}

	for pair := tensors.Oldest(); pair != nil; pair = pair.Next() {
		data, err := Encode(dtype, pair.Value.Data)
		if err != nil {
			return fmt.Errorf("%s: %w", pair.Key, err)
		}
		if _, err := bw.Write(data); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Save writes tensors to a temporary file next to path and renames it into place.
func Save(path string, tensors *orderedmap.OrderedMap[string, Tensor], dtype ml.DType, metadata map[string]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, tensors, dtype, metadata); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
