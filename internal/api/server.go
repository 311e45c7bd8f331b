// Package api serves the weight codec over HTTP.
package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/samcharles93/weightpack/internal/logger"
	"github.com/samcharles93/weightpack/internal/version"
	"github.com/samcharles93/weightpack/pkg/compress"
)

const defaultMaxBodyBytes = 64 << 20

type Options struct {
	Logger logger.Logger
	// MaxBodyBytes caps request bodies. Zero means 64 MiB.
	MaxBodyBytes int64
	// StoreLimit is how many results GET /v1/compress/:id can still return.
	StoreLimit      int
	ParallelEngines bool
}

type Server struct {
	log      logger.Logger
	results  *ResultStore
	maxBody  int64
	parallel bool
	clock    func() time.Time
}

func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Server{
		log:      log.With("component", "api"),
		results:  NewResultStore(opts.StoreLimit),
		maxBody:  maxBody,
		parallel: opts.ParallelEngines,
		clock:    time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/modes", s.handleModes)
	e.POST("/v1/compress", s.handleCompress)
	e.GET("/v1/compress/:id", s.handleGetCompression)
	e.DELETE("/v1/compress/:id", s.handleDeleteCompression)
	e.POST("/v1/dictionary", s.handleDictionary)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version.String()})
}

func (s *Server) handleModes(c *echo.Context) error {
	resp := ModesResponse{Object: "list"}
	for _, m := range compress.Modes() {
		p := m.Params()
		resp.Data = append(resp.Data, ModeInfo{
			Name:            m.String(),
			EngineNum:       p.EngineNum,
			Channel:         p.Channel,
			CmpAlign:        p.CmpAlign,
			BaseFileLen:     p.BaseFileLen,
			HeadOverlap:     p.HeadOverlap,
			DefaultMaxRatio: p.DefaultMaxRatio,
			HeaderLenLow:    compress.HeaderLen(m, compress.LowSparse),
			HeaderLenHigh:   compress.HeaderLen(m, compress.HighSparse),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCompress(c *echo.Context) error {
	body := http.MaxBytesReader(c.Response(), c.Request().Body, s.maxBody)
	req, err := decodeJSON[CompressRequest](body)
	if err != nil {
		return writeFailure(c, err)
	}
	resp, err := s.compress(req)
	if err != nil {
		return writeFailure(c, err)
	}
	if req.Store == nil || *req.Store {
		s.results.Save(resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) compress(req CompressRequest) (*CompressResponse, error) {
	data, err := decodeData(req.Data)
	if err != nil {
		return nil, err
	}
	cfg, err := req.config()
	if err != nil {
		return nil, err
	}
	inputSize := len(data)
	if cfg.FractalSize > 0 && len(data)%cfg.FractalSize != 0 {
		if !req.Pad {
			return nil, newInvalidRequest("data", fmt.Sprintf("data is %d bytes, not a multiple of fractal_size %d (set pad to zero-fill)", len(data), cfg.FractalSize))
		}
		padded := make([]byte, (len(data)/cfg.FractalSize+1)*cfg.FractalSize)
		copy(padded, data)
		data = padded
	}
	cfg.InputSize = len(data)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	index := make([]byte, cfg.IndexSize())
	out := make([]byte, cfg.InputSize)
	res, err := compress.Compress(data, cfg, index, out, compress.Options{
		Logger:          s.log,
		ParallelEngines: s.parallel,
	})
	if err != nil {
		return nil, err
	}

	resp := &CompressResponse{
		ID:               newCompressionID(),
		Object:           "compression",
		CreatedAt:        s.clock().Unix(),
		Mode:             res.Mode.String(),
		CompressType:     cfg.CompressType.String(),
		EngineNum:        cfg.EngineNum,
		Channel:          cfg.Channel,
		FractalSize:      cfg.FractalSize,
		MaxRatio:         cfg.MaxRatio,
		Tight:            cfg.IsTight,
		InitOffset:       cfg.InitOffset,
		InputSize:        inputSize,
		PaddedSize:       cfg.InputSize,
		CompressedLength: res.CompressedLength,
		Ratio:            res.Ratio(cfg.InputSize),
		Fractals:         res.Fractals,
		BypassFractals:   res.BypassFractals,
		Balance:          res.Balance,
		Index:            index,
		Data:             out[:res.CompressedLength],
		Records:          make([]Record, 0, len(res.Records)),
	}
	for _, r := range res.Records {
		resp.Records = append(resp.Records, recordFrom(r))
	}
	s.log.Info("compressed", "id", resp.ID, "mode", resp.Mode, "input_size", inputSize, "compressed_length", resp.CompressedLength)
	return resp, nil
}

// config resolves the request onto a mode preset.
func (req CompressRequest) config() (compress.CompressConfig, error) {
	mode := compress.ModeA
	switch strings.ToUpper(strings.TrimSpace(req.Mode)) {
	case "", "A":
	case "B":
		mode = compress.ModeB
	default:
		return compress.CompressConfig{}, newInvalidRequest("mode", fmt.Sprintf("unknown mode %q (use A or B)", req.Mode))
	}
	ct := compress.LowSparse
	if req.CompressType != "" {
		var err error
		if ct, err = compress.ParseCompressType(req.CompressType); err != nil {
			return compress.CompressConfig{}, newInvalidRequest("compress_type", err.Error())
		}
	}

	cfg := compress.PresetConfig(mode, ct)
	if req.EngineNum != nil {
		cfg.EngineNum = *req.EngineNum
	}
	if req.Channel != nil {
		cfg.Channel = *req.Channel
	}
	if m := compress.SelectMode(cfg.EngineNum, cfg.Channel); m != compress.ModeInvalid {
		cfg.MaxRatio = m.Params().DefaultMaxRatio
	}
	if req.FractalSize > 0 {
		cfg.FractalSize = req.FractalSize
	}
	if req.MaxRatio > 0 {
		cfg.MaxRatio = req.MaxRatio
	}
	if req.Tight != nil {
		cfg.IsTight = *req.Tight
	}
	cfg.InitOffset = req.InitOffset
	return cfg, nil
}

func (s *Server) handleGetCompression(c *echo.Context) error {
	resp, ok := s.results.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "compression not found")
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteCompression(c *echo.Context) error {
	id := c.Param("id")
	if !s.results.Delete(id) {
		return writeNotFound(c, "compression not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":      id,
		"object":  "compression.deleted",
		"deleted": true,
	})
}

func (s *Server) handleDictionary(c *echo.Context) error {
	body := http.MaxBytesReader(c.Response(), c.Request().Body, s.maxBody)
	req, err := decodeJSON[DictionaryRequest](body)
	if err != nil {
		return writeFailure(c, err)
	}
	data, err := decodeData(req.Data)
	if err != nil {
		return writeFailure(c, err)
	}
	ct, err := compress.ParseCompressType(req.CompressType)
	if err != nil {
		return writeFailure(c, newInvalidRequest("compress_type", err.Error()))
	}
	d, err := compress.BuildDictionary(data, ct)
	if err != nil {
		return writeFailure(c, err)
	}

	resp := DictionaryResponse{CompressType: ct.String(), Size: d.Size()}
	for rank, b := range d.Entries() {
		entry := DictionaryEntry{Rank: rank, Byte: int(b), Count: d.Count(b)}
		if code, ok := d.Code(b); ok {
			entry.Code = codeString(code)
		}
		resp.Entries = append(resp.Entries, entry)
	}
	return c.JSON(http.StatusOK, resp)
}
