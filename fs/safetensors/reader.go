// Package safetensors - Lesen und Schreiben von safetensors-Dateien
//
// Dieses Modul enthaelt:
// - File: eine einzelne .safetensors-Datei mit Header und Datenbereich
// - Dir: ein Modellverzeichnis, optional ueber model.safetensors.index.json verteilt
// - Decodierung von F32, F16, BF16 und F64 nach float32
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// ErrNotFound is returned when a tensor name is not present.
var ErrNotFound = errors.New("safetensors: tensor not found")

// maxHeaderSize bounds the JSON header read from untrusted files.
const maxHeaderSize = 100 << 20

// Info describes one tensor entry of the header.
type Info struct {
	DType   string   `json:"dtype"`
	Shape   []int    `json:"shape"`
	Offsets [2]int64 `json:"data_offsets"`
}

// File is an open safetensors file. Tensor data is read on demand.
type File struct {
	Metadata map[string]string

	f       *os.File
	path    string
	base    int64
	tensors map[string]Info
}

// Open reads the header of the file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	st, err := parseHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	st.f, st.path = f, path
	return st, nil
}

func parseHeader(r io.Reader) (*File, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read header size: %w", err)
	}
	if n == 0 || n > maxHeaderSize {
		return nil, fmt.Errorf("invalid header size %d", n)
	}

	bts := make([]byte, n)
	if _, err := io.ReadFull(r, bts); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bts, &raw); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}

	st := &File{base: int64(8 + n), tensors: make(map[string]Info, len(raw))}
	for name, msg := range raw {
		if name == "__metadata__" {
			if err := json.Unmarshal(msg, &st.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
			continue
		}

		var info Info
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, fmt.Errorf("decode tensor %q: %w", name, err)
		}
		st.tensors[name] = info
	}
	return st, nil
}

// Names returns the tensor names in sorted order.
func (f *File) Names() []string {
	return slices.Sorted(maps.Keys(f.tensors))
}

func (f *File) Info(name string) (Info, bool) {
	info, ok := f.tensors[name]
	return info, ok
}

// Floats reads the named tensor and converts it to float32.
func (f *File) Floats(name string) ([]float32, []int, error) {
	info, ok := f.tensors[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	size := info.Offsets[1] - info.Offsets[0]
	if size < 0 {
		return nil, nil, fmt.Errorf("%s: invalid offsets %v", name, info.Offsets)
	}
	bts := make([]byte, size)
	if _, err := f.f.ReadAt(bts, f.base+info.Offsets[0]); err != nil {
		return nil, nil, fmt.Errorf("%s: read %s: %w", f.path, name, err)
	}

	data, err := Decode(info.DType, bts)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}

	elems := 1
	for _, d := range info.Shape {
		elems *= d
	}
	if elems != len(data) {
		return nil, nil, fmt.Errorf("%s: shape %v holds %d values, data has %d", name, info.Shape, elems, len(data))
	}
	return data, slices.Clone(info.Shape), nil
}

func (f *File) Close() error {
	return f.f.Close()
}

// Decode converts little endian tensor bytes of the given dtype to float32.
func Decode(dtype string, b []byte) ([]float32, error) {
	switch dtype {
	case "F32":
		if len(b)%4 != 0 {
			return nil, fmt.Errorf("F32 data of %d bytes", len(b))
		}
		out := make([]float32, len(b)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		}
		return out, nil
	case "F16":
		if len(b)%2 != 0 {
			return nil, fmt.Errorf("F16 data of %d bytes", len(b))
		}
		out := make([]float32, len(b)/2)
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(b[2*i:])).Float32()
		}
		return out, nil
	case "BF16":
		if len(b)%2 != 0 {
			return nil, fmt.Errorf("BF16 data of %d bytes", len(b))
		}
		return bfloat16.DecodeFloat32(b), nil
	case "F64":
		if len(b)%8 != 0 {
			return nil, fmt.Errorf("F64 data of %d bytes", len(b))
		}
		out := make([]float32, len(b)/8)
		for i := range out {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:])))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported dtype %q", dtype)
	}
}
