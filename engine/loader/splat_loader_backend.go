package loader

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/klauspost/compress/zstd"
)

const (
	// SplatExtension is the file extension of packed splat files.
	SplatExtension = ".splat"

	// ZstdExtension is appended to SplatExtension for zstd-compressed files.
	ZstdExtension = ".zst"

	// RecordSize is the size in bytes of one packed splat: position and scale as 3 little-endian
	// float32 each, then RGBA and a quantized (w, x, y, z) rotation as 4 bytes each.
	RecordSize = 32
)

// splatLoaderBackend decodes the packed .splat format.
type splatLoaderBackend struct{}

var _ loaderBackend = &splatLoaderBackend{}

func newSplatLoaderBackend() *splatLoaderBackend {
	return &splatLoaderBackend{}
}

func (b *splatLoaderBackend) Load(path string, compressed bool) (*common.SplatData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if compressed {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		if raw, err = dec.DecodeAll(raw, nil); err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
	}
	return DecodeSplat(raw)
}

func (b *splatLoaderBackend) LoadReader(r io.Reader, compressed bool) (*common.SplatData, error) {
	if compressed {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read splat stream: %w", err)
	}
	return DecodeSplat(raw)
}

// DecodeSplat parses packed .splat records.
//
// Parameters:
//   - raw: the uncompressed file contents
//
// Returns:
//   - *common.SplatData: the decoded splat arrays with unit-length rotations
//   - error: common.ErrEmptyScene for no records, or an error if raw is not whole records
func DecodeSplat(raw []byte) (*common.SplatData, error) {
	if len(raw)%RecordSize != 0 {
		return nil, fmt.Errorf("splat data length %d is not a multiple of %d", len(raw), RecordSize)
	}
	n := len(raw) / RecordSize
	if n == 0 {
		return nil, common.ErrEmptyScene
	}

	d := &common.SplatData{
		Positions: make([]float32, n*3),
		Scales:    make([]float32, n*3),
		Rotations: make([]float32, n*4),
		Colors:    make([]uint8, n*4),
	}
	for i := 0; i < n; i++ {
		rec := raw[i*RecordSize : (i+1)*RecordSize]
		for a := 0; a < 3; a++ {
			d.Positions[i*3+a] = math.Float32frombits(binary.LittleEndian.Uint32(rec[a*4:]))
			d.Scales[i*3+a] = math.Float32frombits(binary.LittleEndian.Uint32(rec[12+a*4:]))
		}
		copy(d.Colors[i*4:i*4+4], rec[24:28])

		var q [4]float32
		var norm float32
		for a := 0; a < 4; a++ {
			q[a] = (float32(rec[28+a]) - 128) / 128
			norm += q[a] * q[a]
		}
		if norm == 0 {
			q = [4]float32{1, 0, 0, 0}
			norm = 1
		}
		inv := 1 / float32(math.Sqrt(float64(norm)))
		for a := 0; a < 4; a++ {
			d.Rotations[i*4+a] = q[a] * inv
		}
	}
	return d, nil
}

// EncodeSplat packs splat data into .splat records. Rotations are normalized and quantized
// to 8 bits per component.
//
// Parameters:
//   - data: the splat data to encode
//
// Returns:
//   - []byte: the packed records
//   - error: error if the data fails validation
func EncodeSplat(data *common.SplatData) ([]byte, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}

	n := data.Count()
	out := make([]byte, n*RecordSize)
	for i := 0; i < n; i++ {
		rec := out[i*RecordSize : (i+1)*RecordSize]
		for a := 0; a < 3; a++ {
			binary.LittleEndian.PutUint32(rec[a*4:], math.Float32bits(data.Positions[i*3+a]))
			binary.LittleEndian.PutUint32(rec[12+a*4:], math.Float32bits(data.Scales[i*3+a]))
		}
		copy(rec[24:28], data.Colors[i*4:i*4+4])

		q := data.Rotations[i*4 : i*4+4]
		var norm float32
		for _, c := range q {
			norm += c * c
		}
		inv := float32(1)
		if norm > 0 {
			inv = 1 / float32(math.Sqrt(float64(norm)))
		}
		for a, c := range q {
			rec[28+a] = uint8(common.Clamp(math.Round(float64(c*inv)*128+128), 0, 255))
		}
	}
	return out, nil
}

// EncodeSplatZstd packs splat data into zstd-compressed .splat records.
//
// Parameters:
//   - data: the splat data to encode
//
// Returns:
//   - []byte: the compressed records
//   - error: error if the data fails validation or the encoder cannot be created
func EncodeSplatZstd(data *common.SplatData) ([]byte, error) {
	raw, err := EncodeSplat(data)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}
