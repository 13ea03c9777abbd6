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

// JaccardSimilarityResult holds the lower bound, estimate, and upper bound
// of the Jaccard index of two sketched sets.
type JaccardSimilarityResult struct {
	LowerBound float64
	Estimate   float64
	UpperBound float64
}

// Jaccard computes the Jaccard similarity index J(A,B) = |A ∩ B| / |A ∪ B|
// with upper and lower bounds. J = 1 means the sketched sets are considered
// equal, J = 0 means they are disjoint, and a J of 0.95 means the overlap
// covers 95% of the union.
//
// The seed must match the seed used to create both sketches. The bounds
// cover a confidence interval of two standard deviations, roughly 95.4%.
//
// Note: for very large pairs of sketches, with nominal sizes of 2^25 or
// 2^26 entries, the results may be unpredictable.
func Jaccard(sketchA, sketchB Sketch, seed uint64) (JaccardSimilarityResult, error) {
	if sketchA == sketchB {
		return JaccardSimilarityResult{1, 1, 1}, nil
	}
	if sketchA.IsEmpty() && sketchB.IsEmpty() {
		return JaccardSimilarityResult{1, 1, 1}, nil
	}
	if sketchA.IsEmpty() || sketchB.IsEmpty() {
		return JaccardSimilarityResult{0, 0, 0}, nil
	}

	unionAB, err := unionForSimilarity(sketchA, sketchB, seed)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}
	if identicalSets(sketchA, sketchB, unionAB) {
		return JaccardSimilarityResult{1, 1, 1}, nil
	}

	intersection := NewIntersection(WithIntersectionSeed(seed))
	for _, sketch := range []Sketch{sketchA, sketchB, unionAB} {
		// updating with the union as well forces the intersection to be
		// a strict subset of it
		if err := intersection.Update(sketch); err != nil {
			return JaccardSimilarityResult{}, err
		}
	}
	interABU, err := intersection.Result(false)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}

	var result JaccardSimilarityResult
	if result.LowerBound, err = ratioLowerBound(unionAB, interABU); err != nil {
		return JaccardSimilarityResult{}, err
	}
	if result.Estimate, err = ratioEstimate(unionAB, interABU); err != nil {
		return JaccardSimilarityResult{}, err
	}
	if result.UpperBound, err = ratioUpperBound(unionAB, interABU); err != nil {
		return JaccardSimilarityResult{}, err
	}
	return result, nil
}

// IsExactlyEqual returns true if the two sketches describe the same set.
// The seed must match the one used to create both sketches.
func IsExactlyEqual(sketchA, sketchB Sketch, seed uint64) (bool, error) {
	if sketchA == sketchB {
		return true, nil
	}
	if sketchA.IsEmpty() && sketchB.IsEmpty() {
		return true, nil
	}
	if sketchA.IsEmpty() || sketchB.IsEmpty() {
		return false, nil
	}

	unionAB, err := unionForSimilarity(sketchA, sketchB, seed)
	if err != nil {
		return false, err
	}
	return identicalSets(sketchA, sketchB, unionAB), nil
}

// IsSimilar tests an actual sketch against an expected reference sketch.
// It returns true when the lower bound of the Jaccard index reaches the
// threshold, which holds with a confidence of 97.7%. The threshold should
// be a real value between zero and one, and the seed should match the seed
// used to create the sketches.
func IsSimilar(actual, expected Sketch, threshold float64, seed uint64) (bool, error) {
	jc, err := Jaccard(actual, expected, seed)
	if err != nil {
		return false, err
	}
	return jc.LowerBound >= threshold, nil
}

// IsDissimilar tests dissimilarity of an actual Sketch against an expected
// Sketch. It returns true when the upper bound of the Jaccard index stays
// at or below the threshold, which holds with a confidence of 97.7%. The
// threshold should be a real value between zero and one, and the seed
// should match the seed used to create the sketches.
func IsDissimilar(actual, expected Sketch, threshold float64, seed uint64) (bool, error) {
	jc, err := Jaccard(actual, expected, seed)
	if err != nil {
		return false, err
	}
	return jc.UpperBound <= threshold, nil
}

// unionForSimilarity unions the two sketches without trimming precision:
// the nominal size covers the combined retained counts so no entries are
// lost to an early theta reduction.
func unionForSimilarity(sketchA, sketchB Sketch, seed uint64) (Sketch, error) {
	lgK := lgKForCount(sketchA.NumRetained() + sketchB.NumRetained())

	union, err := NewUnion(WithUnionLgK(lgK), WithUnionSeed(seed))
	if err != nil {
		return nil, err
	}
	if err := union.Update(sketchA); err != nil {
		return nil, err
	}
	if err := union.Update(sketchB); err != nil {
		return nil, err
	}
	return union.Result(false)
}

// identicalSets reports whether the union collapsed to both inputs, which
// can only happen when the sketches describe the same set.
func identicalSets(sketchA, sketchB, unionAB Sketch) bool {
	return unionAB.NumRetained() == sketchA.NumRetained() &&
		unionAB.NumRetained() == sketchB.NumRetained() &&
		unionAB.Theta64() == sketchA.Theta64() &&
		unionAB.Theta64() == sketchB.Theta64()
}
