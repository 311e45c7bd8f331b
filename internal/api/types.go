package api

import (
	"fmt"

	"github.com/samcharles93/weightpack/pkg/compress"
)

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// CompressRequest carries base64 weights and the codec config. Mode picks the
// preset engine/channel pair; explicit engine_num and channel override it.
type CompressRequest struct {
	Data         string `json:"data"`
	Mode         string `json:"mode,omitempty"`
	EngineNum    *int   `json:"engine_num,omitempty"`
	Channel      *int   `json:"channel,omitempty"`
	CompressType string `json:"compress_type,omitempty"`
	FractalSize  int    `json:"fractal_size,omitempty"`
	MaxRatio     int    `json:"max_ratio,omitempty"`
	Tight        *bool  `json:"tight,omitempty"`
	InitOffset   int    `json:"init_offset,omitempty"`
	// Pad zero-fills data up to a whole number of fractals.
	Pad bool `json:"pad,omitempty"`
	// Store keeps the result for GET /v1/compress/:id.
	Store *bool `json:"store,omitempty"`
}

type CompressResponse struct {
	ID               string   `json:"id"`
	Object           string   `json:"object"`
	CreatedAt        int64    `json:"created_at"`
	Mode             string   `json:"mode"`
	CompressType     string   `json:"compress_type"`
	EngineNum        int      `json:"engine_num"`
	Channel          int      `json:"channel"`
	FractalSize      int      `json:"fractal_size"`
	MaxRatio         int      `json:"max_ratio"`
	Tight            bool     `json:"tight"`
	InitOffset       int      `json:"init_offset"`
	InputSize        int      `json:"input_size"`
	PaddedSize       int      `json:"padded_size"`
	CompressedLength int      `json:"compressed_length"`
	Ratio            float64  `json:"ratio"`
	Fractals         int      `json:"fractals"`
	BypassFractals   int      `json:"bypass_fractals"`
	Balance          []int    `json:"balance,omitempty"`
	Index            []byte   `json:"index"`
	Data             []byte   `json:"data"`
	Records          []Record `json:"records"`
}

// Record is the JSON view of compress.IndexRecord.
type Record struct {
	DataLen     int    `json:"data_len"`
	Compressed  bool   `json:"compressed"`
	Offset      uint64 `json:"offset,omitempty"`
	AlignFlag   bool   `json:"align_flag,omitempty"`
	ModeFlag    bool   `json:"mode_flag,omitempty"`
	Size        int    `json:"size,omitempty"`
	OffsetFlag  int    `json:"offset_flag,omitempty"`
	Extended    bool   `json:"extended,omitempty"`
	CircleMode  bool   `json:"circle_mode,omitempty"`
	StoreOffset int    `json:"store_offset,omitempty"`
}

func recordFrom(r compress.IndexRecord) Record {
	return Record{
		DataLen:     r.DataLen,
		Compressed:  r.SpecialFlag,
		Offset:      r.Offset,
		AlignFlag:   r.AlignFlag,
		ModeFlag:    r.ModeFlag,
		Size:        r.Size,
		OffsetFlag:  r.OffsetFlag,
		Extended:    r.Extended,
		CircleMode:  r.CircleMode,
		StoreOffset: r.StoreOffset,
	}
}

type DictionaryRequest struct {
	Data         string `json:"data"`
	CompressType string `json:"compress_type"`
}

type DictionaryResponse struct {
	CompressType string            `json:"compress_type"`
	Size         int               `json:"size"`
	Entries      []DictionaryEntry `json:"entries"`
}

// DictionaryEntry is one ranked byte. The rank 0 entry is the zero-run byte
// and has no code.
type DictionaryEntry struct {
	Rank  int    `json:"rank"`
	Byte  int    `json:"byte"`
	Count uint64 `json:"count"`
	Code  string `json:"code,omitempty"`
}

type ModeInfo struct {
	Name            string `json:"name"`
	EngineNum       int    `json:"engine_num"`
	Channel         int    `json:"channel"`
	CmpAlign        int    `json:"cmp_align"`
	BaseFileLen     int    `json:"base_file_len"`
	HeadOverlap     int    `json:"head_overlap"`
	DefaultMaxRatio int    `json:"default_max_ratio"`
	HeaderLenLow    int    `json:"header_len_low_sparse"`
	HeaderLenHigh   int    `json:"header_len_high_sparse"`
}

type ModesResponse struct {
	Object string     `json:"object"`
	Data   []ModeInfo `json:"data"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func codeString(c compress.Code) string {
	return fmt.Sprintf("%0*b", int(c.Len), c.Bits)
}
