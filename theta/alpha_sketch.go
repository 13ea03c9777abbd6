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

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"

	"github.com/edoliberty/sketches-core/internal"
)

const (
	// the alpha table grows at half full and rebuilds at the usual
	// fill ratio once it reaches the target size
	alphaResizeThreshold  = 0.5
	alphaRebuildThreshold = 15.0 / 16.0
)

// AlphaUpdateSketch is an Update Theta sketch using the Alpha algorithm:
// after the first k+1 admitted inserts theta decreases geometrically by a
// factor of alpha = k/(k+1) on every new insert, and slots whose value
// rises above theta become tombstones that are overwritten lazily.
// It has a smaller error variance than the QuickSelect sketch for a given
// nominal size, at the cost of a more intricate update path.
type AlphaUpdateSketch struct {
	entries   []uint64
	alpha     float64
	theta     uint64
	split1    uint64
	seed      uint64
	curCount  uint32
	threshold uint32
	p         float32
	lgArr     uint8
	lgNom     uint8
	rf        ResizeFactor
	isEmpty   bool
	dirty     bool
}

// NewAlphaUpdateSketch creates a new alpha update sketch with the given options
func NewAlphaUpdateSketch(opts ...UpdateSketchOptionFunc) (*AlphaUpdateSketch, error) {
	options := &updateSketchOptions{
		lgK:  DefaultLgK,
		rf:   DefaultResizeFactor,
		p:    1.0,
		seed: DefaultSeed,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.lgK < AlphaMinLgK {
		return nil, fmt.Errorf("lg_k must not be less than %d: %d", AlphaMinLgK, options.lgK)
	}
	if options.lgK > MaxLgK {
		return nil, fmt.Errorf("lg_k must not be greater than %d: %d", MaxLgK, options.lgK)
	}
	if options.p <= 0 || options.p > 1 {
		return nil, errors.New("sampling probability must be between 0 and 1")
	}

	lgArr := startingLgSize(options.lgK, uint8(options.rf))
	nomEntries := float64(uint64(1) << options.lgK)
	alpha := nomEntries / (nomEntries + 1.0)

	return &AlphaUpdateSketch{
		entries:   make([]uint64, 1<<lgArr),
		alpha:     alpha,
		theta:     startingThetaFromP(options.p),
		split1:    uint64(float64(options.p) * (alpha + 1.0) / 2.0 * float64(MaxTheta)),
		seed:      options.seed,
		curCount:  0,
		threshold: alphaTableThreshold(options.lgK, lgArr),
		p:         options.p,
		lgArr:     lgArr,
		lgNom:     options.lgK,
		rf:        options.rf,
		isEmpty:   true,
		dirty:     false,
	}, nil
}

// alphaTableThreshold returns the count limit for the current table size.
func alphaTableThreshold(lgNom, lgArr uint8) uint32 {
	var fraction float64
	if lgArr <= lgNom {
		fraction = alphaResizeThreshold
	} else {
		fraction = alphaRebuildThreshold
	}
	return uint32(math.Floor(fraction * float64(uint32(1)<<lgArr)))
}

// IsEmpty returns true if this sketch represents an empty set
// (not the same as no retained entries!)
func (s *AlphaUpdateSketch) IsEmpty() bool {
	return s.isEmpty
}

// IsOrdered returns true if retained entries are ordered
func (s *AlphaUpdateSketch) IsOrdered() bool {
	return s.NumRetained() <= 1
}

// Theta64 returns theta as a positive integer between 0 and math.MaxInt64
func (s *AlphaUpdateSketch) Theta64() uint64 {
	if s.IsEmpty() {
		return MaxTheta
	}
	return s.theta
}

// NumRetained returns the number of retained entries in the sketch.
// A dirty table holds tombstones at or above theta which do not count.
func (s *AlphaUpdateSketch) NumRetained() uint32 {
	if s.dirty {
		return countBelow(s.entries, s.theta)
	}
	return s.curCount
}

// SeedHash returns hash of the seed that was used to hash the input
func (s *AlphaUpdateSketch) SeedHash() (uint16, error) {
	seedHash, err := internal.ComputeSeedHash(int64(s.seed))
	if err != nil {
		return 0, err
	}
	return uint16(seedHash), nil
}

// Estimate returns estimate of the distinct count of the input stream
func (s *AlphaUpdateSketch) Estimate() float64 {
	if !s.IsEstimationMode() {
		return float64(s.curCount)
	}
	theta := s.Theta()
	if s.theta > s.split1 {
		return float64(s.NumRetained()) / theta
	}
	return float64(uint64(1)<<s.lgNom) / theta
}

// LowerBound returns the approximate lower error bound given a number of standard deviations.
// This parameter is similar to the number of standard deviations of the normal distribution
// and corresponds to approximately 67%, 95% and 99% confidence intervals.
// numStdDevs number of Standard Deviations (1, 2 or 3)
func (s *AlphaUpdateSketch) LowerBound(numStdDevs uint8) (float64, error) {
	if numStdDevs < 1 || numStdDevs > 3 {
		return 0, errors.New("numStdDevs must be 1, 2 or 3")
	}
	if !s.IsEstimationMode() {
		return float64(s.curCount), nil
	}
	validCount := s.NumRetained()
	if validCount == 0 {
		return 0, nil
	}
	variance := alphaVariance(float64(uint64(1)<<s.lgNom), float64(s.p), s.alpha, s.Theta(), validCount)
	lb := s.Estimate() - float64(numStdDevs)*math.Sqrt(variance)
	return math.Max(lb, 0), nil
}

// UpperBound returns the approximate upper error bound given a number of standard deviations.
// This parameter is similar to the number of standard deviations of the normal distribution
// and corresponds to approximately 67%, 95% and 99% confidence intervals.
// numStdDevs number of Standard Deviations (1, 2 or 3)
func (s *AlphaUpdateSketch) UpperBound(numStdDevs uint8) (float64, error) {
	if numStdDevs < 1 || numStdDevs > 3 {
		return 0, errors.New("numStdDevs must be 1, 2 or 3")
	}
	if !s.IsEstimationMode() {
		return float64(s.curCount), nil
	}
	variance := alphaVariance(float64(uint64(1)<<s.lgNom), float64(s.p), s.alpha, s.Theta(), s.NumRetained())
	return s.Estimate() + float64(numStdDevs)*math.Sqrt(variance), nil
}

// IsEstimationMode returns true if the sketch is in estimation mode
// (as opposed to exact mode)
func (s *AlphaUpdateSketch) IsEstimationMode() bool {
	return s.Theta64() < MaxTheta && !s.IsEmpty()
}

// Theta returns theta as a fraction from 0 to 1 (effective sampling rate)
func (s *AlphaUpdateSketch) Theta() float64 {
	return float64(s.Theta64()) / float64(MaxTheta)
}

// LgK returns configured nominal number of entries in the sketch
func (s *AlphaUpdateSketch) LgK() uint8 {
	return s.lgNom
}

// ResizeFactor returns a configured resize factor of the sketch
func (s *AlphaUpdateSketch) ResizeFactor() ResizeFactor {
	return s.rf
}

// String returns a human-readable summary of this sketch as a string
// If shouldPrintItems is true, include the list of items retained by the sketch
func (s *AlphaUpdateSketch) String(shouldPrintItems bool) string {
	seedHash, _ := s.SeedHash()
	lb, _ := s.LowerBound(2)
	ub, _ := s.UpperBound(2)

	var result strings.Builder
	result.WriteString("### Alpha Theta sketch summary:")
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   num retained entries : %d", s.NumRetained()))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   seed hash            : %d", seedHash))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   empty?               : %t", s.IsEmpty()))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   dirty?               : %t", s.dirty))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   estimation mode?     : %t", s.IsEstimationMode()))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   theta (fraction)     : %f", s.Theta()))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   theta (raw 64-bit)   : %d", s.Theta64()))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   estimate             : %f", s.Estimate()))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   lower bound 95%% conf : %f", lb))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   upper bound 95%% conf : %f", ub))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   lg nominal size      : %d", s.lgNom))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   lg current size      : %d", s.lgArr))
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("   resize factor        : %d", 1<<s.rf))
	result.WriteString("\n")
	result.WriteString("### End sketch summary")
	result.WriteString("\n")

	if shouldPrintItems {
		result.WriteString("### Retained entries")
		result.WriteString("\n")

		for hash := range s.All() {
			result.WriteString(fmt.Sprintf("%d", hash))
			result.WriteString("\n")
		}

		result.WriteString("### End retained entries")
		result.WriteString("\n")
	}

	return result.String()
}

// UpdateUint64 updates this sketch with a given unsigned 64-bit integer
func (s *AlphaUpdateSketch) UpdateUint64(value uint64) (UpdateResult, error) {
	return s.UpdateInt64(int64(value))
}

// UpdateInt64 updates this sketch with a given signed 64-bit integer
func (s *AlphaUpdateSketch) UpdateInt64(value int64) (UpdateResult, error) {
	s.isEmpty = false
	h1, _ := internal.HashInt64SliceMurmur3([]int64{value}, 0, 1, s.seed)
	return s.hashUpdate(h1 >> 1)
}

// UpdateUint32 updates this sketch with a given unsigned 32-bit integer
func (s *AlphaUpdateSketch) UpdateUint32(value uint32) (UpdateResult, error) {
	return s.UpdateInt64(int64(value))
}

// UpdateInt32 updates this sketch with a given signed 32-bit integer
func (s *AlphaUpdateSketch) UpdateInt32(value int32) (UpdateResult, error) {
	return s.UpdateInt64(int64(value))
}

// UpdateUint16 updates this sketch with a given unsigned 16-bit integer
func (s *AlphaUpdateSketch) UpdateUint16(value uint16) (UpdateResult, error) {
	return s.UpdateInt64(int64(value))
}

// UpdateInt16 updates this sketch with a given signed 16-bit integer
func (s *AlphaUpdateSketch) UpdateInt16(value int16) (UpdateResult, error) {
	return s.UpdateInt64(int64(value))
}

// UpdateUint8 updates this sketch with a given unsigned 8-bit integer
func (s *AlphaUpdateSketch) UpdateUint8(value uint8) (UpdateResult, error) {
	return s.UpdateInt64(int64(value))
}

// UpdateInt8 updates this sketch with a given signed 8-bit integer
func (s *AlphaUpdateSketch) UpdateInt8(value int8) (UpdateResult, error) {
	return s.UpdateInt64(int64(value))
}

// UpdateFloat64 updates this sketch with a given double-precision floating point value
func (s *AlphaUpdateSketch) UpdateFloat64(value float64) (UpdateResult, error) {
	return s.UpdateInt64(canonicalDouble(value))
}

// UpdateFloat32 updates this sketch with a given floating point value
func (s *AlphaUpdateSketch) UpdateFloat32(value float32) (UpdateResult, error) {
	return s.UpdateFloat64(float64(value))
}

// UpdateString updates this sketch with a given string. An empty string
// is ignored.
func (s *AlphaUpdateSketch) UpdateString(value string) (UpdateResult, error) {
	if value == "" {
		return Ignored, nil
	}
	s.isEmpty = false
	h1, _ := internal.HashCharSliceMurmur3([]byte(value), 0, len(value), s.seed)
	return s.hashUpdate(h1 >> 1)
}

// UpdateBytes updates this sketch with given data. An empty slice is
// ignored.
func (s *AlphaUpdateSketch) UpdateBytes(data []byte) (UpdateResult, error) {
	if len(data) == 0 {
		return Ignored, nil
	}
	s.isEmpty = false
	h1, _ := internal.HashByteArrMurmur3(data, 0, len(data), s.seed)
	return s.hashUpdate(h1 >> 1)
}

// UpdateInt64Slice updates this sketch with a given slice of signed 64-bit
// integers. An empty slice is ignored.
func (s *AlphaUpdateSketch) UpdateInt64Slice(data []int64) (UpdateResult, error) {
	if len(data) == 0 {
		return Ignored, nil
	}
	s.isEmpty = false
	h1, _ := internal.HashInt64SliceMurmur3(data, 0, len(data), s.seed)
	return s.hashUpdate(h1 >> 1)
}

// UpdateInt32Slice updates this sketch with a given slice of signed 32-bit
// integers. An empty slice is ignored.
func (s *AlphaUpdateSketch) UpdateInt32Slice(data []int32) (UpdateResult, error) {
	if len(data) == 0 {
		return Ignored, nil
	}
	s.isEmpty = false
	h1, _ := internal.HashInt32SliceMurmur3(data, 0, len(data), s.seed)
	return s.hashUpdate(h1 >> 1)
}

// hashUpdate screens a positive hash against theta and routes it through
// the clean or the dirty insertion path.
func (s *AlphaUpdateSketch) hashUpdate(hash uint64) (UpdateResult, error) {
	if hash == 0 || hash >= s.theta {
		return RejectedOverTheta, nil
	}

	if s.dirty {
		// may hold tombstones, must be at target size
		return s.enhancedHashInsert(hash), nil
	}

	inserted, err := hashInsert(s.entries, s.lgArr, hash)
	if err != nil {
		return Ignored, err
	}
	if !inserted {
		return RejectedDuplicate, nil
	}
	s.curCount++

	if s.theta > s.split1 {
		// sampling mode until k+1 inserts have been admitted
		if s.curCount > uint32(1)<<s.lgNom {
			// the k+1st insert transitions to sketch mode, which
			// happens only once. The table is at target size already.
			s.theta = uint64(float64(s.theta) * s.alpha)
			s.dirty = true
		} else if s.curCount > s.threshold {
			s.resizeClean()
		}
	} else {
		// sketch mode on a clean table, e.g. right after a rebuild
		s.theta = uint64(float64(s.theta) * s.alpha)
		s.dirty = true
		if s.curCount > s.threshold {
			s.rebuildDirty()
		}
	}
	return InsertedCountIncremented, nil
}

// enhancedHashInsert probes the table in two phases. Phase one walks until
// a duplicate, an empty slot or a tombstone (a slot at or above theta).
// On a tombstone the position is remembered and phase two keeps walking to
// rule out a duplicate further along the probe path. If none is found the
// hash overwrites the tombstone, so the retained count does not grow.
func (s *AlphaUpdateSketch) enhancedHashInsert(hash uint64) UpdateResult {
	mask := uint32(1<<s.lgArr) - 1
	stride := computeStride(hash, s.lgArr)
	index := uint32(hash) & mask
	probe := s.entries[index]

	for probe != hash && probe != 0 {
		if probe >= s.theta {
			rememberIndex := index
			index = (index + stride) & mask
			probe = s.entries[index]
			for probe != hash && probe != 0 {
				index = (index + stride) & mask
				probe = s.entries[index]
			}
			if probe == hash {
				return RejectedDuplicate
			}
			// no duplicate on the path, reuse the tombstone slot
			s.entries[rememberIndex] = hash
			s.theta = uint64(float64(s.theta) * s.alpha)
			return InsertedCountNotIncremented
		}

		index = (index + stride) & mask
		probe = s.entries[index]
	}

	if probe == hash {
		return RejectedDuplicate
	}

	s.entries[index] = hash
	s.theta = uint64(float64(s.theta) * s.alpha)
	s.curCount++
	if s.curCount > s.threshold {
		s.rebuildDirty()
	}
	return InsertedCountIncremented
}

// rebuildDirty clears tombstones by rehashing the surviving values into a
// fresh table of the same size. If that fails to reduce the count the
// table is forced to double, which is very rare.
func (s *AlphaUpdateSketch) rebuildDirty() {
	countBefore := s.curCount
	s.forceRebuildDirty()
	if countBefore == s.curCount {
		s.forceResizeClean(1)
	}
}

// resizeClean grows a table that holds no tombstones.
func (s *AlphaUpdateSketch) resizeClean() {
	lgTgt := s.lgNom + 1
	if lgTgt > s.lgArr {
		lgDelta := lgTgt - s.lgArr
		lgRf := max(min(uint8(s.rf), lgDelta), 1)
		s.forceResizeClean(lgRf)
	} else {
		// at target size or larger with no tombstones, very rare
		s.forceResizeClean(1)
	}
}

func (s *AlphaUpdateSketch) forceResizeClean(lgResizeFactor uint8) {
	s.lgArr += lgResizeFactor
	newEntries := make([]uint64, 1<<s.lgArr)

	// a larger table always has room, so the insert cannot fail
	count, _ := hashArrayInsert(s.entries, newEntries, s.lgArr, s.theta)
	s.curCount = count
	s.entries = newEntries
	s.threshold = alphaTableThreshold(s.lgNom, s.lgArr)
}

func (s *AlphaUpdateSketch) forceRebuildDirty() {
	newEntries := make([]uint64, 1<<s.lgArr)
	count, _ := hashArrayInsert(s.entries, newEntries, s.lgArr, s.theta)
	s.curCount = count
	s.entries = newEntries
	s.dirty = false
}

// Rebuild clears tombstones (if any) so that every slot holds a value
// below theta
func (s *AlphaUpdateSketch) Rebuild() {
	if s.dirty {
		s.rebuildDirty()
	}
}

// Reset resets the sketch to the initial empty state
func (s *AlphaUpdateSketch) Reset() {
	lgArr := startingLgSize(s.lgNom, uint8(s.rf))
	if lgArr == s.lgArr {
		for i := range s.entries {
			s.entries[i] = 0
		}
	} else {
		s.entries = make([]uint64, 1<<lgArr)
		s.lgArr = lgArr
	}
	s.threshold = alphaTableThreshold(s.lgNom, s.lgArr)
	s.isEmpty = true
	s.curCount = 0
	s.theta = startingThetaFromP(s.p)
	s.dirty = false
}

// All returns an iterator over hash values in this sketch. Tombstones of
// a dirty table are not yielded.
func (s *AlphaUpdateSketch) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, entry := range s.entries {
			if entry != 0 && entry < s.theta {
				if !yield(entry) {
					return
				}
			}
		}
	}
}

func (s *AlphaUpdateSketch) Compact(ordered bool) *CompactSketch {
	return NewCompactSketch(s, ordered)
}

func (s *AlphaUpdateSketch) CompactOrdered() *CompactSketch {
	return s.Compact(true)
}

// alphaVariance estimates the error variance of the alpha estimator using
// Historic Inverse Probability (HIP) estimators. See Cohen: All-Distances
// Sketches, Revisited: HIP Estimators for Massive Graph Analysis, 2014.
func alphaVariance(k, p, alpha, theta float64, count uint32) float64 {
	kPlus1 := k + 1.0
	y := 1.0 / p
	ySq := y * y
	ySqMinusY := ySq - y
	var result float64
	switch alphaInsertPhase(theta, alpha, p) {
	case 0:
		result = float64(count) * ySqMinusY
	case 1:
		result = kPlus1 * ySqMinusY
	default:
		b := 1.0 / alpha
		bSq := b * b
		x := p / theta
		xSq := x * x
		term1 := kPlus1 * ySqMinusY
		term2 := y / (1.0 - bSq)
		term3 := y*bSq - y*xSq - b - bSq + x + x*b
		result = term1 + term2*term3
	}
	return result + (1.0-theta)/(theta*theta)
}

// alphaInsertPhase computes whether there have been 0, 1, or 2 or more
// theta decrements in a numerically safe way.
func alphaInsertPhase(theta, alpha, p float64) int {
	split1 := p * (alpha + 1.0) / 2.0
	if theta > split1 {
		return 0
	}
	if theta > alpha*split1 {
		return 1
	}
	return 2
}
