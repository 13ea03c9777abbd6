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
	"slices"

	"github.com/edoliberty/sketches-core/internal"
)

// Union accumulates the union of Theta sketches. It tracks its own theta
// separately from the table because an input sketch can carry a theta
// below anything the table has seen.
type Union struct {
	policy    Policy
	hashtable *Hashtable
	theta     uint64
}

type unionOptions struct {
	seed uint64
	p    float32
	lgK  uint8
	rf   ResizeFactor
}

func (o *unionOptions) validate() error {
	if o.lgK < MinLgK {
		return fmt.Errorf("lg_k must not be less than %d: %d", MinLgK, o.lgK)
	}
	if o.lgK > MaxLgK {
		return fmt.Errorf("lg_k must not be greater than %d: %d", MaxLgK, o.lgK)
	}
	if o.p <= 0 || o.p > 1 {
		return errors.New("sampling probability must be between 0 and 1")
	}
	return nil
}

type UnionOptionFunc func(*unionOptions)

// WithUnionLgK sets the lg of the nominal number of entries the union retains
func WithUnionLgK(lgK uint8) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.lgK = lgK
	}
}

// WithUnionResizeFactor sets how fast the internal hash table grows (defaults to x8)
func WithUnionResizeFactor(rf ResizeFactor) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.rf = rf
	}
}

// WithUnionSketchP sets the initial sampling probability, which fixes the
// starting theta. With the default of 1 the union keeps everything until it
// fills up and only then starts lowering theta.
func WithUnionSketchP(p float32) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.p = p
	}
}

// WithUnionSeed sets the seed for the hash function. Unions built with
// different seeds cannot be mixed in set operations, so change it with care.
func WithUnionSeed(seed uint64) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.seed = seed
	}
}

// NewUnion creates an empty union configured by the given options
func NewUnion(opts ...UnionOptionFunc) (*Union, error) {
	options := &unionOptions{
		lgK:  DefaultLgK,
		rf:   DefaultResizeFactor,
		p:    1.0,
		seed: DefaultSeed,
	}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	table := NewHashtable(
		startingLgSize(options.lgK, uint8(options.rf)),
		options.lgK,
		options.rf,
		options.p,
		startingThetaFromP(options.p),
		options.seed,
		true,
	)

	return &Union{
		hashtable: table,
		policy:    &noopPolicy{},
		theta:     table.theta,
	}, nil
}

// UnionOf computes the union of two sketches in one shot. The nominal
// size of the result accommodates the larger of the two inputs.
func UnionOf(a, b Sketch, seed uint64, ordered bool) (*CompactSketch, error) {
	lgK := max(lgKForCount(a.NumRetained()), lgKForCount(b.NumRetained()))
	u, err := NewUnion(WithUnionLgK(lgK), WithUnionSeed(seed))
	if err != nil {
		return nil, err
	}
	if err := u.Update(a); err != nil {
		return nil, err
	}
	if err := u.Update(b); err != nil {
		return nil, err
	}
	return u.Result(ordered)
}

// lgKForCount returns the lg of the smallest power of two greater than the
// given number of retained entries, clamped to [MinLgK, MaxLgK].
func lgKForCount(numEntries uint32) uint8 {
	lgK := internal.Log2Floor(uint32(internal.CeilPowerOf2(int(numEntries) | 1)))
	return min(max(lgK, MinLgK), MaxLgK)
}

// Update folds a sketch into the union
func (u *Union) Update(sketch Sketch) error {
	if sketch.IsEmpty() {
		return nil
	}

	ownSeedHash, err := internal.ComputeSeedHash(int64(u.hashtable.seed))
	if err != nil {
		return err
	}
	sketchSeedHash, err := sketch.SeedHash()
	if err != nil {
		return err
	}
	if uint16(ownSeedHash) != sketchSeedHash {
		return errors.New("seed hash mismatch")
	}

	u.hashtable.isEmpty = false
	u.theta = min(u.theta, sketch.Theta64())

	for entry := range sketch.All() {
		if entry >= u.theta || entry >= u.hashtable.theta {
			// ordered input yields nothing below theta past this point
			if sketch.IsOrdered() {
				break
			}
			continue
		}

		slot, err := u.hashtable.Find(entry)
		switch err {
		case nil:
			u.policy.Apply(&u.hashtable.entries[slot], entry)
		case ErrKeyNotFound:
			u.hashtable.Insert(slot, entry)
		default:
			return err
		}
	}

	u.theta = min(u.theta, u.hashtable.theta)
	return nil
}

// Result snapshots the current state of the union as a compact sketch
func (u *Union) Result(ordered bool) (*CompactSketch, error) {
	seedHash, err := internal.ComputeSeedHash(int64(u.hashtable.seed))
	if err != nil {
		return nil, err
	}

	if u.hashtable.isEmpty {
		return newCompactSketchFromEntries(true, true, uint16(seedHash), u.theta, nil), nil
	}

	theta := min(u.theta, u.hashtable.theta)

	entries := make([]uint64, 0, u.hashtable.numEntries)
	for _, entry := range u.hashtable.entries {
		if entry != 0 && entry < theta {
			entries = append(entries, entry)
		}
	}

	// the table can briefly hold more than k entries, trim to nominal
	nominalNum := uint32(1) << u.hashtable.lgNomSize
	if uint32(len(entries)) > nominalNum {
		theta = selectNthEntry(entries, int(nominalNum))
		entries = entries[:nominalNum]
	}

	if ordered {
		slices.Sort(entries)
	}

	return newCompactSketchFromEntries(u.hashtable.isEmpty, ordered, uint16(seedHash), theta, entries), nil
}

// OrderedResult snapshots the current state of the union as an ordered
// compact sketch
func (u *Union) OrderedResult() (*CompactSketch, error) {
	return u.Result(true)
}

// Reset returns the union to its initial empty state
func (u *Union) Reset() {
	u.hashtable.Reset()
	u.theta = u.hashtable.theta
}

// Policy returns the match policy this union applies
func (u *Union) Policy() Policy {
	return u.policy
}
