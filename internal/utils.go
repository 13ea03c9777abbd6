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

package internal

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
)

const (
	DEFAULT_UPDATE_SEED = uint64(9001)
)

// InvPow2 returns 2^(-e).
func InvPow2(e int) (float64, error) {
	if (e | (1024 - e - 1)) < 0 {
		return 0, fmt.Errorf("e cannot be negative or greater than 1023: " + strconv.Itoa(e))
	}
	return math.Float64frombits((1023 - uint64(e)) << 52), nil
}

// CeilPowerOf2 returns the smallest power of 2 greater than or equal to n.
func CeilPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	topIntPwrOf2 := 1 << 30
	if n >= topIntPwrOf2 {
		return topIntPwrOf2
	}
	return int(math.Pow(2, math.Ceil(math.Log2(float64(n)))))
}

// FloorPowerOf2 returns the largest power of 2 less than or equal to n,
// or 1 for non-positive n.
func FloorPowerOf2(n int64) int64 {
	if n <= 1 {
		return 1
	}
	return int64(1) << (bits.Len64(uint64(n)) - 1)
}

// Log2Floor returns floor(log2(n)), with Log2Floor(0) == 0.
func Log2Floor(n uint32) uint8 {
	if n == 0 {
		return 0
	}
	return uint8(bits.Len32(n) - 1)
}

// LgSizeFromCount returns the lg of the smallest power-of-2 table size that
// is strictly greater than n and whose capacity at the given load factor
// holds at least n entries. The result is never below 1.
func LgSizeFromCount(n uint32, loadFactor float64) uint8 {
	lg := uint8(1)
	for (uint32(1)<<lg) <= n || uint32(float64(uint32(1)<<lg)*loadFactor) < n {
		lg++
	}
	return lg
}
