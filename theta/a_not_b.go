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
	"fmt"
	"iter"
	"slices"

	"github.com/edoliberty/sketches-core/internal"
)

// ANotB computes the set difference of two Theta sketches: the entries of
// a not present in b, screened against the smaller of the two thetas.
func ANotB(a, b Sketch, seed uint64, ordered bool) (*CompactSketch, error) {
	seedHash, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return nil, err
	}

	// nothing to subtract, or nothing to subtract from
	if a.IsEmpty() || (a.NumRetained() > 0 && b.IsEmpty()) {
		return NewCompactSketch(a, ordered), nil
	}

	if err := checkDifferenceSeeds(a, b, seedHash); err != nil {
		return nil, err
	}

	theta := min(a.Theta64(), b.Theta64())

	var entries []uint64
	switch {
	case b.NumRetained() == 0:
		for entry := range a.All() {
			if entry < theta {
				entries = append(entries, entry)
			}
		}
	case a.IsOrdered() && b.IsOrdered():
		entries = orderedDifference(a.All(), b.All(), theta)
	default:
		entries, err = hashedDifference(a, b, theta)
		if err != nil {
			return nil, err
		}
	}

	isEmpty := a.IsEmpty()
	if len(entries) == 0 && theta == MaxTheta {
		isEmpty = true
	}

	if ordered && !a.IsOrdered() {
		slices.Sort(entries)
	}

	return newCompactSketchFromEntries(
		isEmpty,
		a.IsOrdered() || ordered,
		uint16(seedHash),
		theta,
		entries,
	), nil
}

func checkDifferenceSeeds(a, b Sketch, seedHash int16) error {
	aSeedHash, err := a.SeedHash()
	if err != nil {
		return err
	}
	if aSeedHash != uint16(seedHash) {
		return fmt.Errorf("sketch A seed hash mismatch: expected %d, got %d", seedHash, aSeedHash)
	}

	bSeedHash, err := b.SeedHash()
	if err != nil {
		return err
	}
	if bSeedHash != uint16(seedHash) {
		return fmt.Errorf("sketch B seed hash mismatch: expected %d, got %d", seedHash, bSeedHash)
	}
	return nil
}

// orderedDifference walks two ascending hash streams in lockstep and
// keeps the values of a below theta that never show up in b.
func orderedDifference(a, b iter.Seq[uint64], theta uint64) []uint64 {
	nextB, stop := iter.Pull(b)
	defer stop()
	pending, ok := nextB()

	var entries []uint64
	for entry := range a {
		if entry >= theta {
			break
		}
		for ok && pending < entry {
			pending, ok = nextB()
		}
		if ok && pending == entry {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// hashedDifference loads the entries of b into a lookup table and scans a
// against it. Used when either input is unordered.
func hashedDifference(a, b Sketch, theta uint64) ([]uint64, error) {
	lgSize := internal.LgSizeFromCount(b.NumRetained(), rebuildThreshold)
	table := NewHashtable(lgSize, lgSize, ResizeX1, 1, 0, 0, false)

	for entry := range b.All() {
		if entry >= theta {
			if b.IsOrdered() {
				break
			}
			continue
		}
		slot, err := table.Find(entry)
		if err != nil && err == ErrKeyNotFoundAndNoEmptySlots {
			return nil, err
		}
		table.Insert(slot, entry)
	}

	var entries []uint64
	for entry := range a.All() {
		if entry >= theta {
			if a.IsOrdered() {
				break
			}
			continue
		}
		if _, err := table.Find(entry); err == ErrKeyNotFound {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
