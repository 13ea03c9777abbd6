/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package hash is a general purpose front-end for the 128-bit MurmurHash3.
// Inputs can be int64, []int64, []int32, []byte, float64 or string. Besides
// the raw 128-bit hash it provides deterministic uniform integers in [0, n),
// uniform doubles in [0, 1) and a modulo reduction of the full 128-bit hash.
package hash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/edoliberty/sketches-core/internal"
)

var (
	// ErrEmptyInput is returned when a slice or string key has no content.
	ErrEmptyInput = errors.New("input is nil or empty")

	// ErrRejectionBudgetExhausted is returned when the integer rejection
	// loop failed to produce a value below n. With four candidate words per
	// round this indicates a broken hash rather than bad luck.
	ErrRejectionBudgetExhausted = errors.New("failed to find integer below n within the iteration budget")
)

const (
	intMask = 0x7FFFFFFF

	// reseedPrime is from P. L'Ecuyer and R. Simard.
	reseedPrime = uint64(9219741426499971445)

	// rejectionBudget caps the number of reseeded hash rounds in asInteger.
	rejectionBudget = 10000
)

// Int64 hashes a single int64 with the given seed.
func Int64(datum int64, seed uint64) (uint64, uint64) {
	data := []int64{datum}
	return internal.HashInt64SliceMurmur3(data, 0, 1, seed)
}

// Int64Slice hashes an int64 slice with the given seed.
func Int64Slice(data []int64, seed uint64) (uint64, uint64, error) {
	if len(data) == 0 {
		return 0, 0, ErrEmptyInput
	}
	h1, h2 := internal.HashInt64SliceMurmur3(data, 0, len(data), seed)
	return h1, h2, nil
}

// Int32Slice hashes an int32 slice with the given seed.
func Int32Slice(data []int32, seed uint64) (uint64, uint64, error) {
	if len(data) == 0 {
		return 0, 0, ErrEmptyInput
	}
	h1, h2 := internal.HashInt32SliceMurmur3(data, 0, len(data), seed)
	return h1, h2, nil
}

// Bytes hashes a byte slice with the given seed.
func Bytes(data []byte, seed uint64) (uint64, uint64, error) {
	if len(data) == 0 {
		return 0, 0, ErrEmptyInput
	}
	h1, h2 := internal.HashByteArrMurmur3(data, 0, len(data), seed)
	return h1, h2, nil
}

// Float64 hashes a float64 with the given seed. Positive and negative zero
// hash identically and all NaN forms collapse to a single canonical value.
func Float64(datum float64, seed uint64) (uint64, uint64) {
	return Int64(canonicalLongBits(datum), seed)
}

// String hashes the UTF-8 bytes of a string with the given seed.
func String(datum string, seed uint64) (uint64, uint64, error) {
	if len(datum) == 0 {
		return 0, 0, ErrEmptyInput
	}
	h1, h2 := internal.HashCharSliceMurmur3([]byte(datum), 0, len(datum), seed)
	return h1, h2, nil
}

// ToBytes returns the 128-bit hash as 16 bytes with each 64-bit half in
// big endian order.
func ToBytes(h1, h2 uint64) []byte {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out, h1)
	binary.BigEndian.PutUint64(out[8:], h2)
	return out
}

// IntFromInt64 returns a deterministic uniform integer in [0, n) for the
// given int64 key. n must be greater than 1.
func IntFromInt64(datum int64, n int32) (int32, error) {
	return asInteger([]int64{datum}, n)
}

// IntFromInt64Slice returns a deterministic uniform integer in [0, n) for
// the given int64 slice key. n must be greater than 1.
func IntFromInt64Slice(data []int64, n int32) (int32, error) {
	if len(data) == 0 {
		return 0, ErrEmptyInput
	}
	return asInteger(data, n)
}

// IntFromInt32Slice returns a deterministic uniform integer in [0, n) for
// the given int32 slice key. n must be greater than 1.
func IntFromInt32Slice(data []int32, n int32) (int32, error) {
	if len(data) == 0 {
		return 0, ErrEmptyInput
	}
	return asInteger(longsFromInt32s(data), n)
}

// IntFromBytes returns a deterministic uniform integer in [0, n) for the
// given byte slice key. n must be greater than 1.
func IntFromBytes(data []byte, n int32) (int32, error) {
	if len(data) == 0 {
		return 0, ErrEmptyInput
	}
	return asInteger(longsFromBytes(data), n)
}

// IntFromFloat64 returns a deterministic uniform integer in [0, n) for the
// given float64 key. n must be greater than 1.
func IntFromFloat64(datum float64, n int32) (int32, error) {
	return asInteger([]int64{canonicalLongBits(datum)}, n)
}

// IntFromString returns a deterministic uniform integer in [0, n) for the
// given string key. n must be greater than 1.
func IntFromString(datum string, n int32) (int32, error) {
	if len(datum) == 0 {
		return 0, ErrEmptyInput
	}
	return asInteger(longsFromBytes([]byte(datum)), n)
}

// asInteger draws up to four 31-bit words from each 128-bit hash and keeps
// the first one below n, reseeding and rehashing when all four miss. The
// integers produced are only as random as MurmurHash3 itself, which is
// adequate for partitioning and sampling but not for cryptographic use.
func asInteger(data []int64, n int32) (int32, error) {
	if n < 2 {
		return 0, fmt.Errorf("n must be greater than 1: %d", n)
	}

	mask := uint64(intMask)
	if n <= 1<<30 {
		mask = uint64(internal.CeilPowerOf2(int(n))) - 1
	}

	seed := uint64(0)
	for cnt := 0; cnt < rejectionBudget; cnt++ {
		h1, h2 := internal.HashInt64SliceMurmur3(data, 0, len(data), seed)
		for _, t := range [4]uint64{h1 & mask, (h1 >> 33) & mask, h2 & mask, (h2 >> 33) & mask} {
			if int32(t) < n {
				return int32(t), nil
			}
		}
		seed += reseedPrime
	}
	return 0, ErrRejectionBudgetExhausted
}

// AsDouble returns a uniform double in [0, 1) from the top 52 bits of the
// given 64-bit hash.
func AsDouble(h1 uint64) float64 {
	return float64(h1>>12) * 0x1.0p-52
}

// Modulo returns the remainder from dividing the full 128-bit hash by the
// divisor. The divisor must be positive.
func Modulo(h1, h2 uint64, divisor int32) (int32, error) {
	if divisor <= 0 {
		return 0, fmt.Errorf("divisor must be positive: %d", divisor)
	}
	d := int64(divisor)
	modH1 := signedMod(int64(h1), d)
	modH2 := signedMod(int64(h2), d)
	modTop := mulRule(mulRule(bit62, 4, d), modH2, d)
	return int32(addRule(modTop, modH1, d)), nil
}

const bit62 = int64(1) << 62

// signedMod reduces a 64-bit hash word interpreted as unsigned. A word with
// the top bit set is split into 2*2^62 plus its low 63 bits so that every
// partial product stays within int64 range.
func signedMod(h, d int64) int64 {
	if h < 0 {
		return addRule(mulRule(bit62, 2, d), h&math.MaxInt64, d)
	}
	return h % d
}

func addRule(a, b, d int64) int64 {
	return ((a % d) + (b % d)) % d
}

func mulRule(a, b, d int64) int64 {
	return ((a % d) * (b % d)) % d
}

func canonicalLongBits(datum float64) int64 {
	if datum == 0.0 {
		datum = 0.0
	} else if math.IsNaN(datum) {
		return 0x7ff8000000000000
	}
	return int64(math.Float64bits(datum))
}

func longsFromBytes(data []byte) []int64 {
	longs := make([]int64, (len(data)+7)/8)
	for i, b := range data {
		longs[i/8] |= int64(b) << ((i * 8) % 64)
	}
	return longs
}

func longsFromInt32s(data []int32) []int64 {
	longs := make([]int64, (len(data)+1)/2)
	for i, v := range data {
		longs[i/2] |= int64(uint32(v)) << ((i * 32) % 64)
	}
	return longs
}
