package geo

// 文档注释：geohash 编码（base32）
// 背景：作为反地理持久层的主键，精度 7 约 150m，与 CacheKey 的三位小数网格同量级。
const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

func Geohash(c Coordinate, precision int) string {
	if precision <= 0 {
		precision = 7
	}
	latLo, latHi := -90.0, 90.0
	lonLo, lonHi := -180.0, 180.0
	out := make([]byte, 0, precision)
	idx, bit := 0, 0
	lonTurn := true
	for len(out) < precision {
		idx <<= 1
		if lonTurn {
			mid := (lonLo + lonHi) / 2
			if c.Longitude >= mid {
				idx |= 1
				lonLo = mid
			} else {
				lonHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if c.Latitude >= mid {
				idx |= 1
				latLo = mid
			} else {
				latHi = mid
			}
		}
		lonTurn = !lonTurn
		bit++
		if bit == 5 {
			out = append(out, geohashAlphabet[idx])
			idx, bit = 0, 0
		}
	}
	return string(out)
}
