// Package safetensors reads and writes the safetensors checkpoint layout: an
// 8 byte little-endian header length, a JSON header and a raw data block.
package safetensors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	json "github.com/goccy/go-json"
)

const (
	metadataKey = "__metadata__"
	// maxHeaderLen rejects absurd headers before allocating.
	maxHeaderLen = 100 << 20
)

var ErrInvalidFile = errors.New("safetensors: invalid file")

type TensorInfo struct {
	DType string
	Shape []int
	Start int64
	End   int64
}

// Size is the tensor's byte length.
func (t TensorInfo) Size() int64 { return t.End - t.Start }

type File struct {
	Path      string
	DataStart int64
	Tensors   map[string]TensorInfo
	Metadata  map[string]string
}

type tensorHeader struct {
	DType       string  `json:"dtype"`
	Shape       []int   `json:"shape"`
	DataOffsets []int64 `json:"data_offsets"`
}

// Open parses the header of path and checks every tensor range against the file.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	var lenBuf [8]byte
	if _, err := io.ReadFull(f, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: read header length: %v", ErrInvalidFile, err)
	}
	headerLen := binary.LittleEndian.Uint64(lenBuf[:])
	if headerLen == 0 || headerLen > maxHeaderLen || int64(headerLen)+8 > st.Size() {
		return nil, fmt.Errorf("%w: header length %d", ErrInvalidFile, headerLen)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerBytes); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidFile, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse header: %v", ErrInvalidFile, err)
	}
	out := &File{
		Path:      path,
		DataStart: int64(8 + headerLen),
		Tensors:   make(map[string]TensorInfo, len(raw)),
	}
	if msg, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(msg, &out.Metadata); err != nil {
			return nil, fmt.Errorf("%w: parse metadata: %v", ErrInvalidFile, err)
		}
		delete(raw, metadataKey)
	}

	dataLen := st.Size() - out.DataStart
	for name, msg := range raw {
		var th tensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, fmt.Errorf("parse tensor %s: %w", name, err)
		}
		if len(th.DataOffsets) != 2 {
			return nil, fmt.Errorf("%w: tensor %s: invalid data_offsets", ErrInvalidFile, name)
		}
		info := TensorInfo{DType: th.DType, Shape: th.Shape, Start: th.DataOffsets[0], End: th.DataOffsets[1]}
		if info.Start < 0 || info.End < info.Start || info.End > dataLen {
			return nil, fmt.Errorf("%w: tensor %s: range [%d,%d) outside %d data bytes", ErrInvalidFile, name, info.Start, info.End, dataLen)
		}
		if es, ok := ElementSize(info.DType); ok {
			n, err := numElements(info.Shape)
			if err != nil {
				return nil, fmt.Errorf("tensor %s: %w", name, err)
			}
			if int64(n*es) != info.Size() {
				return nil, fmt.Errorf("%w: tensor %s: %d bytes for %d %s elements", ErrInvalidFile, name, info.Size(), n, info.DType)
			}
		}
		out.Tensors[name] = info
	}
	return out, nil
}

// Names returns tensor names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (f *File) Tensor(name string) (TensorInfo, bool) {
	t, ok := f.Tensors[name]
	return t, ok
}

// ReadTensor reads the raw bytes of name.
func (f *File) ReadTensor(name string) ([]byte, TensorInfo, error) {
	t, ok := f.Tensors[name]
	if !ok {
		return nil, TensorInfo{}, fmt.Errorf("tensor not found: %s", name)
	}
	buf := make([]byte, t.Size())

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, TensorInfo{}, err
	}
	defer func() { _ = file.Close() }()

	if _, err := file.ReadAt(buf, f.DataStart+t.Start); err != nil {
		return nil, TensorInfo{}, fmt.Errorf("read tensor %s: %w", name, err)
	}
	return buf, t, nil
}

// ElementSize is the byte width of a safetensors dtype.
func ElementSize(dtype string) (int, bool) {
	switch dtype {
	case "F64", "I64", "U64":
		return 8, true
	case "F32", "I32", "U32":
		return 4, true
	case "F16", "BF16", "I16", "U16":
		return 2, true
	case "F8_E4M3", "F8_E5M2", "I8", "U8", "BOOL":
		return 1, true
	default:
		return 0, false
	}
}

func numElements(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d", d)
		}
		n *= d
	}
	return n, nil
}

// Tensor is one entry for Write.
type Tensor struct {
	Name  string
	DType string
	Shape []int
	Data  []byte
}

// Write creates path holding tensors in the given order.
func Write(path string, tensors []Tensor, metadata map[string]string) error {
	header := make(map[string]any, len(tensors)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}
	var off int64
	for _, t := range tensors {
		if _, dup := header[t.Name]; dup || t.Name == "" {
			return fmt.Errorf("safetensors: bad or duplicate tensor name %q", t.Name)
		}
		end := off + int64(len(t.Data))
		header[t.Name] = tensorHeader{DType: t.DType, Shape: t.Shape, DataOffsets: []int64{off, end}}
		off = end
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(headerBytes)))
	if _, err := f.Write(lenBuf[:]); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := f.Write(headerBytes); err != nil {
		_ = f.Close()
		return err
	}
	for _, t := range tensors {
		if _, err := f.Write(t.Data); err != nil {
			_ = f.Close()
			return err
		}
	}
	return f.Close()
}
