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

package theta

import "math"

// ResizeFactor controls how fast the hash table grows toward its target
// size, growing lg(size) by the factor's exponent on each resize.
type ResizeFactor uint8

const (
	// ResizeX1 - no intermediate sizes, the table starts at full size
	ResizeX1 ResizeFactor = iota
	// ResizeX2 - grow by a factor of 2
	ResizeX2
	// ResizeX4 - grow by a factor of 4
	ResizeX4
	// ResizeX8 - grow by a factor of 8
	ResizeX8
)

// DefaultResizeFactor is used when no resize factor is configured.
const DefaultResizeFactor = ResizeX8

// MaxTheta is the largest theta value. It is capped at the signed 64-bit
// maximum so serialized sketches stay compatible with the Java and C++
// implementations.
const MaxTheta uint64 = math.MaxInt64

const (
	// MinLgK is the smallest allowed lg nominal size
	MinLgK uint8 = 4
	// MaxLgK is the largest allowed lg nominal size
	MaxLgK uint8 = 26
	// DefaultLgK is used when no nominal size is configured
	DefaultLgK uint8 = 12
	// AlphaMinLgK is the smallest lg nominal size for the Alpha sketch,
	// whose error guarantees need a larger table
	AlphaMinLgK uint8 = 9
	// MinLgArr is the smallest lg hash table size
	MinLgArr uint8 = 5
)

// DefaultSeed is the seed used for hashing unless one is configured.
const DefaultSeed uint64 = 9001
