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
	"slices"

	"github.com/edoliberty/sketches-core/internal"
)

// Policy decides what happens to a retained entry when an incoming hash
// matches it during a set operation. The stored entry may be rewritten
// through the pointer. The default policy leaves it untouched.
type Policy interface {
	Apply(stored *uint64, incoming uint64)
}

type noopPolicy struct{}

func (*noopPolicy) Apply(stored *uint64, incoming uint64) {}

type intersectionOptions struct {
	policy Policy
	seed   uint64
}

type IntersectionOptionFunc func(*intersectionOptions)

// WithIntersectionPolicy installs a custom policy for matched entries.
func WithIntersectionPolicy(policy Policy) IntersectionOptionFunc {
	return func(i *intersectionOptions) {
		i.policy = policy
	}
}

// WithIntersectionSeed sets the seed the input sketches were hashed with.
func WithIntersectionSeed(seed uint64) IntersectionOptionFunc {
	return func(i *intersectionOptions) {
		i.seed = seed
	}
}

// Intersection computes the intersection of sketches. The state starts out
// as the notional universe and narrows with every update, so the result is
// undefined until at least one sketch has been absorbed.
type Intersection struct {
	hashtable *Hashtable
	policy    Policy
	isValid   bool
}

// NewIntersection creates an intersection in the undefined starting state.
func NewIntersection(opts ...IntersectionOptionFunc) *Intersection {
	options := &intersectionOptions{
		policy: &noopPolicy{},
		seed:   DefaultSeed,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Intersection{
		hashtable: NewHashtable(0, 0, ResizeX1, 1.0, MaxTheta, options.seed, false),
		policy:    options.policy,
		isValid:   false,
	}
}

// Update narrows the intersection by a given sketch.
func (i *Intersection) Update(sketch Sketch) error {
	if i.hashtable.isEmpty {
		// empty is absorbing, nothing can widen the state again
		return nil
	}

	if err := i.checkSeedHash(sketch); err != nil {
		return err
	}

	i.hashtable.isEmpty = i.hashtable.isEmpty || sketch.IsEmpty()
	if i.hashtable.isEmpty {
		i.hashtable.theta = MaxTheta
	} else {
		i.hashtable.theta = min(i.hashtable.theta, sketch.Theta64())
	}

	if i.isValid && i.hashtable.numEntries == 0 {
		return nil
	}

	if sketch.NumRetained() == 0 {
		i.isValid = true
		i.dropRetained()
		return nil
	}

	if !i.isValid {
		i.isValid = true
		return i.absorb(sketch)
	}
	return i.intersect(sketch)
}

func (i *Intersection) checkSeedHash(sketch Sketch) error {
	ownSeedHash, err := internal.ComputeSeedHash(int64(i.hashtable.seed))
	if err != nil {
		return err
	}
	sketchSeedHash, err := sketch.SeedHash()
	if err != nil {
		return err
	}
	if !sketch.IsEmpty() && sketchSeedHash != uint16(ownSeedHash) {
		return errors.New("seed hash mismatch")
	}
	return nil
}

// dropRetained replaces the table with one retaining nothing, keeping
// theta, seed and emptiness.
func (i *Intersection) dropRetained() {
	i.hashtable = NewHashtable(
		0, 0, ResizeX1, 1.0, i.hashtable.theta, i.hashtable.seed, i.hashtable.isEmpty,
	)
}

// lookupTableFor sizes a fixed, non-resizing table for the given number
// of entries.
func (i *Intersection) lookupTableFor(count uint32) *Hashtable {
	lgSize := internal.LgSizeFromCount(count, rebuildThreshold)
	return NewHashtable(
		lgSize, lgSize-1, ResizeX1, 1.0, i.hashtable.theta, i.hashtable.seed, i.hashtable.isEmpty,
	)
}

// absorb copies the first sketch into the state verbatim.
func (i *Intersection) absorb(sketch Sketch) error {
	table := i.lookupTableFor(sketch.NumRetained())
	for entry := range sketch.All() {
		slot, err := table.Find(entry)
		if err == nil {
			return errors.New("duplicate key, possibly corrupted input sketch")
		}
		table.Insert(slot, entry)
	}
	if table.numEntries != sketch.NumRetained() {
		return errors.New("num entries mismatch, possibly corrupted input sketch")
	}
	i.hashtable = table
	return nil
}

// intersect keeps only the retained entries also present in the incoming
// sketch, applying the policy to every match.
func (i *Intersection) intersect(sketch Sketch) error {
	maxMatches := min(i.hashtable.numEntries, sketch.NumRetained())
	matched := make([]uint64, 0, maxMatches)
	scanned := 0

	for entry := range sketch.All() {
		if entry >= i.hashtable.theta {
			if sketch.IsOrdered() {
				break
			}
			scanned++
			continue
		}

		if slot, err := i.hashtable.Find(entry); err == nil {
			if uint32(len(matched)) == maxMatches {
				return errors.New("max matches exceeded, possibly corrupted input sketch")
			}
			i.policy.Apply(&i.hashtable.entries[slot], entry)
			matched = append(matched, i.hashtable.entries[slot])
		}
		scanned++
	}

	if scanned > int(sketch.NumRetained()) {
		return errors.New("more keys than expected, possibly corrupted input sketch")
	}
	if !sketch.IsOrdered() && scanned < int(sketch.NumRetained()) {
		return errors.New("fewer keys than expected, possibly corrupted input sketch")
	}

	if len(matched) == 0 {
		i.dropRetained()
		if i.hashtable.theta == MaxTheta {
			i.hashtable.isEmpty = true
		}
		return nil
	}

	table := i.lookupTableFor(uint32(len(matched)))
	for _, entry := range matched {
		slot, err := table.Find(entry)
		if err != nil && err == ErrKeyNotFoundAndNoEmptySlots {
			return err
		}
		table.Insert(slot, entry)
	}
	i.hashtable = table
	return nil
}

// Result snapshots the current state of the intersection as a compact sketch.
func (i *Intersection) Result(ordered bool) (*CompactSketch, error) {
	if !i.isValid {
		return nil, errors.New("update must be called at least once before requesting a result")
	}

	entries := make([]uint64, 0, i.hashtable.numEntries)
	for _, entry := range i.hashtable.entries {
		if entry != 0 {
			entries = append(entries, entry)
		}
	}
	if ordered {
		slices.Sort(entries)
	}

	seedHash, err := internal.ComputeSeedHash(int64(i.hashtable.seed))
	if err != nil {
		return nil, err
	}

	return newCompactSketchFromEntries(
		i.hashtable.isEmpty,
		ordered,
		uint16(seedHash),
		i.hashtable.theta,
		entries,
	), nil
}

// OrderedResult snapshots the current state as an ordered compact sketch.
func (i *Intersection) OrderedResult() (*CompactSketch, error) {
	return i.Result(true)
}

// HasResult reports whether at least one update has defined the state.
func (i *Intersection) HasResult() bool {
	return i.isValid
}

// Policy returns the match policy this intersection applies.
func (i *Intersection) Policy() Policy {
	return i.policy
}
