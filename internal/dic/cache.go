package dic

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// Cache file layout:
//
//	magic    [4]byte "DICZ"
//	version  uint8
//	rows     uint32 little endian
//	checksum uint64 little endian, xxhash64 of the uncompressed payload
//	payload  zstd(rows × 6 float64 little endian, row major)
const (
	CacheExt     = ".dicz"
	cacheVersion = 1
	cacheHdrSize = 4 + 1 + 4 + 8
)

var cacheMagic = [4]byte{'D', 'I', 'C', 'Z'}

// ErrCorruptCache is returned when a cache file fails magic, version,
// length or checksum validation.
var ErrCorruptCache = errors.New("corrupt DIC cache")

var zstdEncoderPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
		}
		return enc
	},
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
		}
		return dec
	},
}

// WriteCache writes pc to w in the compressed cache format.
func WriteCache(w io.Writer, pc *PointCloud) error {
	for i, p := range pc.points {
		if !p.finite() {
			return fmt.Errorf("point %d: %w", i, ErrNonFinite)
		}
	}
	if uint64(pc.Len()) > math.MaxUint32 {
		return fmt.Errorf("cache supports at most %d points, got %d", uint32(math.MaxUint32), pc.Len())
	}
	payload := make([]byte, 0, pc.Len()*datColumns*8)
	for _, p := range pc.points {
		for _, v := range [datColumns]float64{p.X0, p.Y0, p.Z0, p.DX, p.DY, p.DZ} {
			payload = binary.LittleEndian.AppendUint64(payload, math.Float64bits(v))
		}
	}

	enc := zstdEncoderPool.Get().(*zstd.Encoder)
	compressed := enc.EncodeAll(payload, nil)
	zstdEncoderPool.Put(enc)

	hdr := make([]byte, 0, cacheHdrSize)
	hdr = append(hdr, cacheMagic[:]...)
	hdr = append(hdr, cacheVersion)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(pc.Len()))
	hdr = binary.LittleEndian.AppendUint64(hdr, xxhash.Sum64(payload))

	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("failed to write cache header: %w", err)
	}
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("failed to write cache payload: %w", err)
	}
	return nil
}

// ReadCache decodes a cache written by WriteCache.
func ReadCache(r io.Reader) (*PointCloud, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	return decodeCache(data)
}

func decodeCache(data []byte) (*PointCloud, error) {
	if len(data) < cacheHdrSize || !bytes.Equal(data[:4], cacheMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptCache)
	}
	if data[4] != cacheVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptCache, data[4])
	}
	rows := int(binary.LittleEndian.Uint32(data[5:9]))
	sum := binary.LittleEndian.Uint64(data[9:17])

	var payload []byte
	if body := data[cacheHdrSize:]; len(body) > 0 {
		dec := zstdDecoderPool.Get().(*zstd.Decoder)
		var err error
		payload, err = dec.DecodeAll(body, nil)
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
		}
	}
	if len(payload) != rows*datColumns*8 {
		return nil, fmt.Errorf("%w: payload has %d bytes for %d rows", ErrCorruptCache, len(payload), rows)
	}
	if xxhash.Sum64(payload) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptCache)
	}

	points := make([]Point, rows)
	for i := range points {
		var v [datColumns]float64
		for j := range v {
			off := (i*datColumns + j) * 8
			v[j] = math.Float64frombits(binary.LittleEndian.Uint64(payload[off:]))
		}
		points[i] = Point{X0: v[0], Y0: v[1], Z0: v[2], DX: v[3], DY: v[4], DZ: v[5]}
		if !points[i].finite() {
			return nil, fmt.Errorf("%w: row %d: %w", ErrCorruptCache, i, ErrNonFinite)
		}
	}
	return &PointCloud{points: points}, nil
}
