package primitive

import (
	"math"

	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/nperrors"
)

// Geo precisions supported by the `geo` scalar kind, keyed by their
// on-wire size in bytes.
const (
	Geo4  = 4
	Geo8  = 8
	Geo16 = 16
)

func checkLatLng(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return xerrors.Errorf("primitive: geo coordinate (%f,%f) out of range: %w", lat, lng, nperrors.OutOfRange)
	}
	return nil
}

// EncodeGeo4 packs (lat,lng) as two biased int16, each round(deg*100).
func EncodeGeo4(lat, lng float64) ([]byte, error) {
	if err := checkLatLng(lat, lng); err != nil {
		return nil, err
	}
	out := make([]byte, Geo4)
	copy(out[0:2], EncodeI16(int16(math.Round(lat*100))))
	copy(out[2:4], EncodeI16(int16(math.Round(lng*100))))
	return out, nil
}

// DecodeGeo4 reverses EncodeGeo4.
func DecodeGeo4(b []byte) (lat, lng float64, err error) {
	if err = needLen(b, Geo4); err != nil {
		return
	}
	latI, _ := DecodeI16(b[0:2])
	lngI, _ := DecodeI16(b[2:4])
	return float64(latI) / 100, float64(lngI) / 100, nil
}

// EncodeGeo8 packs (lat,lng) as two biased int32, each round(deg*1e7).
func EncodeGeo8(lat, lng float64) ([]byte, error) {
	if err := checkLatLng(lat, lng); err != nil {
		return nil, err
	}
	out := make([]byte, Geo8)
	copy(out[0:4], EncodeI32(int32(math.Round(lat*1e7))))
	copy(out[4:8], EncodeI32(int32(math.Round(lng*1e7))))
	return out, nil
}

// DecodeGeo8 reverses EncodeGeo8.
func DecodeGeo8(b []byte) (lat, lng float64, err error) {
	if err = needLen(b, Geo8); err != nil {
		return
	}
	latI, _ := DecodeI32(b[0:4])
	lngI, _ := DecodeI32(b[4:8])
	return float64(latI) / 1e7, float64(lngI) / 1e7, nil
}

// EncodeGeo16 packs (lat,lng) as two raw (non-sortable) float64.
func EncodeGeo16(lat, lng float64) ([]byte, error) {
	if err := checkLatLng(lat, lng); err != nil {
		return nil, err
	}
	out := make([]byte, Geo16)
	copy(out[0:8], EncodeF64Raw(lat))
	copy(out[8:16], EncodeF64Raw(lng))
	return out, nil
}

// DecodeGeo16 reverses EncodeGeo16.
func DecodeGeo16(b []byte) (lat, lng float64, err error) {
	if err = needLen(b, Geo16); err != nil {
		return
	}
	lat, _ = DecodeF64Raw(b[0:8])
	lng, _ = DecodeF64Raw(b[8:16])
	return lat, lng, nil
}
