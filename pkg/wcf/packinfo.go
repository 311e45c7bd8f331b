package wcf

import (
	"fmt"

	json "github.com/goccy/go-json"
)

const (
	PackInfoVersion    uint32 = 1
	TensorTableVersion uint32 = 1
	IndexDataVersion   uint32 = 1
	DataVersion        uint32 = 1
)

// PackInfo records how the container was produced. The codec fields are
// exactly what a reader needs to interpret the index records.
type PackInfo struct {
	Tool        string `json:"tool"`
	ToolVersion string `json:"tool_version"`
	PackID      string `json:"pack_id,omitempty"`
	Source      string `json:"source,omitempty"`

	Mode        string `json:"mode"`
	EngineNum   int    `json:"engine_num"`
	Channel     int    `json:"channel"`
	FractalSize int    `json:"fractal_size"`
	MaxRatio    int    `json:"max_ratio"`
	Tight       bool   `json:"tight"`
	InitOffset  int    `json:"init_offset"`

	TensorCount  int    `json:"tensor_count"`
	RawBytes     uint64 `json:"raw_bytes"`
	StoredBytes  uint64 `json:"stored_bytes"`
	DedupedBytes uint64 `json:"deduped_bytes,omitempty"`
}

// TensorRecord locates one tensor's index and data inside the container.
// IndexOffset is relative to SectionIndexData; DataOffset is absolute.
type TensorRecord struct {
	Name  string   `json:"name"`
	DType string   `json:"dtype"`
	Shape []uint64 `json:"shape"`

	RawSize    uint64 `json:"raw_size"`
	PaddedSize uint64 `json:"padded_size"`

	// CompressType is "low-sparse", "high-sparse" or "raw" for tensors stored without an index.
	CompressType   string `json:"compress_type"`
	Fractals       int    `json:"fractals"`
	BypassFractals int    `json:"bypass_fractals"`

	IndexOffset      uint64 `json:"index_offset"`
	IndexSize        uint64 `json:"index_size"`
	DataOffset       uint64 `json:"data_offset"`
	DataSize         uint64 `json:"data_size"`
	CompressedLength uint64 `json:"compressed_length"`

	Hash    string `json:"xxh3"`
	DedupOf string `json:"dedup_of,omitempty"`
}

// Raw reports whether the tensor was stored without an index.
func (r *TensorRecord) Raw() bool { return r.CompressType == "raw" }

func EncodePackInfo(info *PackInfo) ([]byte, error) {
	if info == nil {
		return nil, fmt.Errorf("wcf: nil pack info")
	}
	return json.Marshal(info)
}

func DecodePackInfo(data []byte) (*PackInfo, error) {
	var info PackInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: pack info: %v", ErrCorruptFile, err)
	}
	return &info, nil
}

func EncodeTensorTable(records []TensorRecord) ([]byte, error) {
	if records == nil {
		records = []TensorRecord{}
	}
	return json.Marshal(records)
}

// DecodeTensorTable parses the tensor table and checks each record's ranges
// against the sizes of the index and data sections.
func DecodeTensorTable(data []byte, indexSize, fileSize uint64) ([]TensorRecord, error) {
	var records []TensorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: tensor table: %v", ErrCorruptFile, err)
	}
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		r := &records[i]
		if r.Name == "" {
			return nil, fmt.Errorf("%w: tensor %d has no name", ErrCorruptFile, i)
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tensor %q", ErrCorruptFile, r.Name)
		}
		seen[r.Name] = struct{}{}
		if end := r.IndexOffset + r.IndexSize; end < r.IndexOffset || end > indexSize {
			return nil, fmt.Errorf("%w: tensor %q index out of range", ErrCorruptFile, r.Name)
		}
		if end := r.DataOffset + r.DataSize; end < r.DataOffset || end > fileSize {
			return nil, fmt.Errorf("%w: tensor %q data out of range", ErrCorruptFile, r.Name)
		}
		if r.CompressedLength > r.DataSize {
			return nil, fmt.Errorf("%w: tensor %q compressed length exceeds its data", ErrCorruptFile, r.Name)
		}
	}
	return records, nil
}

// PackInfo decodes the pack info section.
func (f *File) PackInfo() (*PackInfo, error) {
	s := f.Section(SectionPackInfo)
	if s == nil {
		return nil, fmt.Errorf("%w: missing pack info section", ErrCorruptFile)
	}
	return DecodePackInfo(f.SectionData(s))
}

// Tensors decodes and validates the tensor table.
func (f *File) Tensors() ([]TensorRecord, error) {
	s := f.Section(SectionTensorTable)
	if s == nil {
		return nil, fmt.Errorf("%w: missing tensor table section", ErrCorruptFile)
	}
	var indexSize uint64
	if idx := f.Section(SectionIndexData); idx != nil {
		indexSize = idx.Size
	}
	return DecodeTensorTable(f.SectionData(s), indexSize, uint64(len(f.Data)))
}

// IndexBytes returns the index records of r.
func (f *File) IndexBytes(r *TensorRecord) ([]byte, error) {
	s := f.Section(SectionIndexData)
	if s == nil {
		if r.IndexSize == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: missing index section", ErrCorruptFile)
	}
	if r.IndexOffset+r.IndexSize > s.Size {
		return nil, fmt.Errorf("%w: tensor %q index out of range", ErrCorruptFile, r.Name)
	}
	return f.Slice(s.Offset+r.IndexOffset, r.IndexSize)
}

// DataBytes returns the stored data of r, CompressedLength bytes long.
func (f *File) DataBytes(r *TensorRecord) ([]byte, error) {
	return f.Slice(r.DataOffset, r.CompressedLength)
}
