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
	"math"

	"github.com/edoliberty/sketches-core/internal/binomialproportionsbounds"
)

// Bounds on the ratio |B| / |A| where sketch B retains a subset of the
// set sketched by A. The retained entries of A below B's theta form a
// Bernoulli sample with inclusion probability theta_b, which reduces the
// ratio to a binomial proportion. The interval width is fixed at two
// standard deviations, roughly a 95% confidence level.
const ratioBoundStdDevs = 2.0

func ratioLowerBound(a, b Sketch) (float64, error) {
	countA, countB, err := conditionalSampleSizes(a, b)
	if err != nil {
		return 0, err
	}
	if countA == 0 {
		return 0, nil
	}
	return sampledRatioLowerBound(countA, countB, b.Theta())
}

func ratioUpperBound(a, b Sketch) (float64, error) {
	countA, countB, err := conditionalSampleSizes(a, b)
	if err != nil {
		return 0, err
	}
	if countA == 0 {
		return 1, nil
	}
	return sampledRatioUpperBound(countA, countB, b.Theta())
}

func ratioEstimate(a, b Sketch) (float64, error) {
	countA, countB, err := conditionalSampleSizes(a, b)
	if err != nil {
		return 0, err
	}
	if countA == 0 {
		return 0.5, nil
	}
	return float64(countB) / float64(countA), nil
}

// conditionalSampleSizes counts the entries of a that fall below b's theta
// and the entries retained by b. Sketch b must be derived from a, so its
// theta can never exceed a's.
func conditionalSampleSizes(a, b Sketch) (uint64, uint64, error) {
	thetaA := a.Theta64()
	thetaB := b.Theta64()
	if thetaB > thetaA {
		return 0, 0, errors.New("sketch B is not derived from sketch A: theta_b exceeds theta_a")
	}

	countA := uint64(a.NumRetained())
	if thetaA != thetaB {
		countA = 0
		for entry := range a.All() {
			if entry < thetaB {
				countA++
			}
		}
	}
	return countA, uint64(b.NumRetained()), nil
}

// sampledRatioLowerBound returns the approximate lower bound on b/a where
// a is the observed size of a Bernoulli sample with inclusion probability
// f and b is the observed size of a subset of that sample. Inclusion
// probabilities above 0.5 make the interval less reliable, and f == 1
// collapses the interval to the exact ratio.
func sampledRatioLowerBound(a, b uint64, f float64) (float64, error) {
	if err := checkRatioArgs(a, b, f); err != nil {
		return 0, err
	}
	if a == 0 {
		return 0, nil
	}
	if f == 1.0 {
		return float64(b) / float64(a), nil
	}
	return binomialproportionsbounds.ApproximateLowerBoundOnP(a, b, ratioBoundStdDevs*sampleWidthAdjuster(f))
}

// sampledRatioUpperBound returns the approximate upper bound on b/a under
// the same model as sampledRatioLowerBound.
func sampledRatioUpperBound(a, b uint64, f float64) (float64, error) {
	if err := checkRatioArgs(a, b, f); err != nil {
		return 0, err
	}
	if a == 0 {
		return 1, nil
	}
	if f == 1.0 {
		return float64(b) / float64(a), nil
	}
	return binomialproportionsbounds.ApproximateUpperBoundOnP(a, b, ratioBoundStdDevs*sampleWidthAdjuster(f))
}

// sampleWidthAdjuster shrinks the interval width as the inclusion
// probability grows. The empirical correction above f = 0.5 keeps the
// coverage close to the nominal confidence level.
func sampleWidthAdjuster(f float64) float64 {
	adjusted := math.Sqrt(1.0 - f)
	if f <= 0.5 {
		return adjusted
	}
	return adjusted + 0.01*(f-0.5)
}

func checkRatioArgs(a, b uint64, f float64) error {
	if a < b {
		return fmt.Errorf("a must be >= b: a = %d, b = %d", a, b)
	}
	if f <= 0.0 || f > 1.0 {
		return fmt.Errorf("inclusion probability out of range (0, 1]: %f", f)
	}
	return nil
}
