// Package seededrand provides a reproducible MT19937 generator keyed by strings,
// so that a weighted draw made with the same key yields the same result in every process.
package seededrand

import (
	"crypto/sha512"
	"encoding/binary"
)

const (
	n         = 624
	m         = 397
	matrixA   = 0x9908b0df
	upperMask = 0x80000000
	lowerMask = 0x7fffffff
)

// MT19937 is a 32-bit Mersenne Twister. Not safe for concurrent use.
type MT19937 struct {
	mt    [n]uint32
	index int
}

// NewFromString seeds a generator from key. The init array is the big integer formed by
// key followed by its SHA-512 digest, split into 32-bit words least significant first.
func NewFromString(key string) *MT19937 {
	b := []byte(key)
	digest := sha512.Sum512(b)
	b = append(b, digest[:]...)
	return NewFromWords(bytesToWords(b))
}

// NewFromWords seeds a generator with the reference init_by_array procedure.
func NewFromWords(key []uint32) *MT19937 {
	if len(key) == 0 {
		key = []uint32{0}
	}
	g := &MT19937{}
	g.initGenrand(19650218)

	i, j := 1, 0
	k := n
	if len(key) > k {
		k = len(key)
	}
	for ; k > 0; k-- {
		g.mt[i] = (g.mt[i] ^ ((g.mt[i-1] ^ (g.mt[i-1] >> 30)) * 1664525)) + key[j] + uint32(j)
		i++
		j++
		if i >= n {
			g.mt[0] = g.mt[n-1]
			i = 1
		}
		if j >= len(key) {
			j = 0
		}
	}
	for k = n - 1; k > 0; k-- {
		g.mt[i] = (g.mt[i] ^ ((g.mt[i-1] ^ (g.mt[i-1] >> 30)) * 1566083941)) - uint32(i)
		i++
		if i >= n {
			g.mt[0] = g.mt[n-1]
			i = 1
		}
	}
	g.mt[0] = 0x80000000
	return g
}

func (g *MT19937) initGenrand(s uint32) {
	g.mt[0] = s
	for i := 1; i < n; i++ {
		g.mt[i] = 1812433253*(g.mt[i-1]^(g.mt[i-1]>>30)) + uint32(i)
	}
	g.index = n
}

// Uint32 returns the next tempered 32-bit output.
func (g *MT19937) Uint32() uint32 {
	if g.index >= n {
		g.twist()
	}
	y := g.mt[g.index]
	g.index++
	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	return y
}

func (g *MT19937) twist() {
	mag := func(y uint32) uint32 {
		if y&1 == 1 {
			return matrixA
		}
		return 0
	}
	kk := 0
	for ; kk < n-m; kk++ {
		y := (g.mt[kk] & upperMask) | (g.mt[kk+1] & lowerMask)
		g.mt[kk] = g.mt[kk+m] ^ (y >> 1) ^ mag(y)
	}
	for ; kk < n-1; kk++ {
		y := (g.mt[kk] & upperMask) | (g.mt[kk+1] & lowerMask)
		g.mt[kk] = g.mt[kk+(m-n)] ^ (y >> 1) ^ mag(y)
	}
	y := (g.mt[n-1] & upperMask) | (g.mt[0] & lowerMask)
	g.mt[n-1] = g.mt[m-1] ^ (y >> 1) ^ mag(y)
	g.index = 0
}

// Float64 returns a value in [0, 1) built from two outputs (27 + 26 bits).
func (g *MT19937) Float64() float64 {
	a := g.Uint32() >> 5
	b := g.Uint32() >> 6
	return (float64(a)*67108864.0 + float64(b)) * (1.0 / 9007199254740992.0)
}

// WeightedIndex draws one index with probability proportional to weights.
// It returns -1 when weights is empty or sums to zero. Non-positive weights are never drawn.
func (g *MT19937) WeightedIndex(weights []int) int {
	if len(weights) == 0 {
		return -1
	}
	cum := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		if w > 0 {
			total += float64(w)
		}
		cum[i] = total
	}
	if total <= 0 {
		return -1
	}
	x := g.Float64() * total
	// first index whose running total exceeds x
	lo, hi := 0, len(cum)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if x < cum[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// bytesToWords interprets b as a big-endian integer and returns its 32-bit words,
// least significant first, without leading zero words.
func bytesToWords(b []byte) []uint32 {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	if len(b) == 0 {
		return []uint32{0}
	}
	if pad := len(b) % 4; pad != 0 {
		b = append(make([]byte, 4-pad), b...)
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		end := len(b) - 4*i
		words[i] = binary.BigEndian.Uint32(b[end-4 : end])
	}
	return words
}
