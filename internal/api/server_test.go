package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

func newTestEcho(opts Options) (*echo.Echo, *Server) {
	server := NewServer(opts)
	e := echo.New()
	server.Register(e)
	return e, server
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

type errorEnvelope struct {
	Error ResponseError `json:"error"`
}

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func TestHealth(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(Options{})
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if got := decodeBody[HealthResponse](t, rec); got.Status != "ok" || got.Version == "" {
		t.Fatalf("health: %+v", got)
	}
}

func TestModes(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(Options{})
	rec := doJSON(t, e, http.MethodGet, "/v1/modes", "")
	got := decodeBody[ModesResponse](t, rec)
	if len(got.Data) != 2 {
		t.Fatalf("modes: %+v", got)
	}
	a, b := got.Data[0], got.Data[1]
	if a.Name != "A" || a.EngineNum != 4 || a.Channel != 2 || a.BaseFileLen != 128 || a.DefaultMaxRatio != 64 {
		t.Fatalf("mode A: %+v", a)
	}
	if b.Name != "B" || b.EngineNum != 1 || b.Channel != 4 || b.BaseFileLen != 512 || b.DefaultMaxRatio != 32 {
		t.Fatalf("mode B: %+v", b)
	}
	if a.HeaderLenLow != 48 || a.HeaderLenHigh != 40 || b.HeaderLenLow != 48 || b.HeaderLenHigh != 40 {
		t.Fatalf("header lengths: %+v %+v", a, b)
	}
}

func TestCompressZeroWeights(t *testing.T) {
	t.Parallel()
	e, server := newTestEcho(Options{})

	body := fmt.Sprintf(`{"data":%q,"mode":"B","compress_type":"high"}`, b64(make([]byte, 1024)))
	rec := doJSON(t, e, http.MethodPost, "/v1/compress", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody[CompressResponse](t, rec)
	if !strings.HasPrefix(got.ID, "cmp_") || got.Object != "compression" {
		t.Fatalf("id/object: %q %q", got.ID, got.Object)
	}
	if got.Mode != "B" || got.CompressedLength != 192 || got.Fractals != 2 || got.BypassFractals != 0 {
		t.Fatalf("result: %+v", got)
	}
	if len(got.Data) != 192 || len(got.Index) != 16 {
		t.Fatalf("buffers: data %d index %d", len(got.Data), len(got.Index))
	}
	for i, want := range []uint64{0, 6} {
		r := got.Records[i]
		if r.DataLen != 6 || r.Offset != want || !r.Compressed {
			t.Fatalf("record %d: %+v", i, r)
		}
	}
	if server.results.Len() != 1 {
		t.Fatalf("stored results: got %d want 1", server.results.Len())
	}

	getRec := doJSON(t, e, http.MethodGet, "/v1/compress/"+got.ID, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d", getRec.Code)
	}
	if again := decodeBody[CompressResponse](t, getRec); !bytes.Equal(again.Data, got.Data) {
		t.Fatal("stored result differs")
	}
	if rec := doJSON(t, e, http.MethodDelete, "/v1/compress/"+got.ID, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d", rec.Code)
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/compress/"+got.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d", rec.Code)
	}
}

func TestCompressPadAndNoStore(t *testing.T) {
	t.Parallel()
	e, server := newTestEcho(Options{})

	data := b64(make([]byte, 700))
	rec := doJSON(t, e, http.MethodPost, "/v1/compress", fmt.Sprintf(`{"data":%q}`, data))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unpadded status: got %d", rec.Code)
	}
	if env := decodeBody[errorEnvelope](t, rec); env.Error.Param != "data" || env.Error.Type != "invalid_request_error" {
		t.Fatalf("error envelope: %+v", env)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/compress", fmt.Sprintf(`{"data":%q,"pad":true,"store":false}`, data))
	if rec.Code != http.StatusOK {
		t.Fatalf("padded status: got %d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody[CompressResponse](t, rec)
	if got.InputSize != 700 || got.PaddedSize != 1024 || got.Fractals != 2 || got.Mode != "A" {
		t.Fatalf("padded result: %+v", got)
	}
	if server.results.Len() != 0 {
		t.Fatal("store=false result was kept")
	}
}

func TestCompressBadRequests(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(Options{})
	zero := b64(make([]byte, 512))

	cases := []struct {
		name   string
		body   string
		status int
		param  string
	}{
		{"malformed", `{"data":`, http.StatusBadRequest, ""},
		{"unknown field", fmt.Sprintf(`{"data":%q,"bogus":1}`, zero), http.StatusBadRequest, ""},
		{"missing data", `{}`, http.StatusBadRequest, "data"},
		{"bad base64", `{"data":"***"}`, http.StatusBadRequest, "data"},
		{"bad mode", fmt.Sprintf(`{"data":%q,"mode":"C"}`, zero), http.StatusBadRequest, "mode"},
		{"bad type", fmt.Sprintf(`{"data":%q,"compress_type":"dense"}`, zero), http.StatusBadRequest, "compress_type"},
		{"bad engines", fmt.Sprintf(`{"data":%q,"engine_num":3}`, zero), http.StatusBadRequest, ""},
		{"bad ratio", fmt.Sprintf(`{"data":%q,"max_ratio":16}`, zero), http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		rec := doJSON(t, e, http.MethodPost, "/v1/compress", tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s: status got %d want %d body=%s", tc.name, rec.Code, tc.status, rec.Body.String())
		}
		if env := decodeBody[errorEnvelope](t, rec); env.Error.Param != tc.param || env.Error.Message == "" {
			t.Fatalf("%s: envelope %+v", tc.name, env)
		}
	}
}

func TestCompressBodyLimit(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(Options{MaxBodyBytes: 64})
	body := fmt.Sprintf(`{"data":%q}`, b64(make([]byte, 512)))
	rec := doJSON(t, e, http.MethodPost, "/v1/compress", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d want 413", rec.Code)
	}
}

func TestDictionary(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(Options{})
	body := fmt.Sprintf(`{"data":%q,"compress_type":"low"}`, b64([]byte{0, 0, 0, 7, 7, 3}))
	rec := doJSON(t, e, http.MethodPost, "/v1/dictionary", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody[DictionaryResponse](t, rec)
	if got.CompressType != "low-sparse" || got.Size != len(got.Entries) {
		t.Fatalf("dictionary: %+v", got)
	}
	want := []DictionaryEntry{{Rank: 0, Byte: 0, Count: 3}, {Rank: 1, Byte: 7, Count: 2}, {Rank: 2, Byte: 3, Count: 1}}
	for i, w := range want {
		g := got.Entries[i]
		if g.Rank != w.Rank || g.Byte != w.Byte || g.Count != w.Count {
			t.Fatalf("entry %d: got %+v want %+v", i, g, w)
		}
	}
	if got.Entries[0].Code != "" || got.Entries[1].Code == "" {
		t.Fatalf("codes: %+v %+v", got.Entries[0], got.Entries[1])
	}

	if rec := doJSON(t, e, http.MethodPost, "/v1/dictionary", fmt.Sprintf(`{"data":%q}`, b64([]byte{1}))); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing compress_type: got %d", rec.Code)
	}
}

func TestResultStoreEvictsOldest(t *testing.T) {
	t.Parallel()
	s := NewResultStore(2)
	for _, id := range []string{"a", "b", "c"} {
		s.Save(&CompressResponse{ID: id})
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("oldest result not evicted")
	}
	if _, ok := s.Get("c"); !ok || s.Len() != 2 {
		t.Fatalf("store: len %d", s.Len())
	}
	if !s.Delete("b") || s.Delete("b") {
		t.Fatal("delete semantics")
	}
}
