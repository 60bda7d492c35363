// Package geocell implements geohash cells: encoding, decoding, and neighbor
// expansion for the spatial prefilter of place search.
//
// A cell is a base-32 string. Each character carries five bits of longitude and
// latitude interleaved, longitude first, so a cell of length n contains every
// longer cell sharing its prefix.
package geocell

import (
	"fmt"
	"math"
	"strings"

	"github.com/cloo-solutions/placesearch/internal/domain"
)

const (
	// DefaultPrecision gives cells of roughly 1.2 km x 0.6 km.
	DefaultPrecision = 6
	MinPrecision     = 1
	MaxPrecision     = 12

	base32 = "0123456789bcdefghjkmnpqrstuvwxyz"
)

var decodeTable [256]int8

func init() {
	for i := range decodeTable {
		decodeTable[i] = -1
	}
	for i := 0; i < len(base32); i++ {
		decodeTable[base32[i]] = int8(i)
	}
}

// Box is the area covered by a cell.
type Box struct {
	MinLat    float64
	MinLon    float64
	MaxLat    float64
	MaxLon    float64
	CenterLat float64
	CenterLon float64
}

// Encode returns the cell containing (lat, lon). Coordinates outside the valid
// range are clamped, and precision is clamped to [MinPrecision, MaxPrecision].
func Encode(lat, lon float64, precision int) string {
	lat = clamp(lat, -90, 90)
	lon = clamp(lon, -180, 180)
	precision = int(clamp(float64(precision), MinPrecision, MaxPrecision))

	latLo, latHi := -90.0, 90.0
	lonLo, lonHi := -180.0, 180.0

	var sb strings.Builder
	sb.Grow(precision)

	evenBit := true
	bit, idx := 0, 0
	for sb.Len() < precision {
		if evenBit {
			mid := (lonLo + lonHi) / 2
			if lon >= mid {
				idx = idx<<1 | 1
				lonLo = mid
			} else {
				idx <<= 1
				lonHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if lat >= mid {
				idx = idx<<1 | 1
				latLo = mid
			} else {
				idx <<= 1
				latHi = mid
			}
		}
		evenBit = !evenBit

		bit++
		if bit == 5 {
			sb.WriteByte(base32[idx])
			bit, idx = 0, 0
		}
	}
	return sb.String()
}

// Decode returns the bounding box of a cell.
func Decode(cell string) (Box, error) {
	if cell == "" {
		return Box{}, invalidCell(cell, "empty cell")
	}

	latLo, latHi := -90.0, 90.0
	lonLo, lonHi := -180.0, 180.0

	evenBit := true
	for i := 0; i < len(cell); i++ {
		v := decodeTable[cell[i]]
		if v < 0 {
			return Box{}, invalidCell(cell, fmt.Sprintf("character %q at position %d is not in the geohash alphabet", cell[i], i))
		}
		for n := 4; n >= 0; n-- {
			bitOn := (v>>uint(n))&1 == 1
			if evenBit {
				mid := (lonLo + lonHi) / 2
				if bitOn {
					lonLo = mid
				} else {
					lonHi = mid
				}
			} else {
				mid := (latLo + latHi) / 2
				if bitOn {
					latLo = mid
				} else {
					latHi = mid
				}
			}
			evenBit = !evenBit
		}
	}

	return Box{
		MinLat:    latLo,
		MinLon:    lonLo,
		MaxLat:    latHi,
		MaxLon:    lonHi,
		CenterLat: (latLo + latHi) / 2,
		CenterLon: (lonLo + lonHi) / 2,
	}, nil
}

// Validate reports whether every character of cell is in the geohash alphabet.
func Validate(cell string) error {
	if cell == "" {
		return invalidCell(cell, "empty cell")
	}
	for i := 0; i < len(cell); i++ {
		if decodeTable[cell[i]] < 0 {
			return invalidCell(cell, fmt.Sprintf("character %q at position %d is not in the geohash alphabet", cell[i], i))
		}
	}
	return nil
}

func invalidCell(cell, reason string) error {
	return domain.NewDomainError(domain.ErrCodeInvalidCell, fmt.Sprintf("invalid cell %q: %s", cell, reason))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
