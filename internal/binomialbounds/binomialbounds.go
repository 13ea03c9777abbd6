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

// Package binomialbounds computes confidence bounds for the number of
// uniques given the number of retained samples and the sampling
// probability theta. The binomial model treats each unique as an
// independent Bernoulli trial with success probability theta, so the
// bounds are quantiles of the negative binomial distribution of the
// number of trials needed to collect the observed samples.
package binomialbounds

import (
	"errors"
	"math"
)

// One-sided tail probability for 1, 2 and 3 standard deviations of a
// Gaussian. Index 0 is unused.
var deltaOfNumStdDevs = [4]float64{
	0.5,
	0.1586553191586026479,
	0.0227502618904135701,
	0.0013498126861731796,
}

var (
	errTheta      = errors.New("theta must be in [0, 1]")
	errNumStdDevs = errors.New("numStdDevs must be 1, 2 or 3")
)

func checkArgs(theta float64, numStdDevs uint) error {
	if theta < 0.0 || theta > 1.0 {
		return errTheta
	}
	if numStdDevs < 1 || numStdDevs > 3 {
		return errNumStdDevs
	}
	return nil
}

// Continuity-corrected Gaussian approximation to the binomial bounds.
// Good when the number of samples is large.
func contClassicLB(numSamples float64, theta float64, numStdDevs float64) float64 {
	nHat := (numSamples - 0.5) / theta
	b := numStdDevs * math.Sqrt((1.0-theta)/theta)
	d := 0.5 * b * math.Sqrt((b*b)+(4.0*nHat))
	center := nHat + (0.5 * (b * b))
	return center - d
}

func contClassicUB(numSamples float64, theta float64, numStdDevs float64) float64 {
	nHat := (numSamples + 0.5) / theta
	b := numStdDevs * math.Sqrt((1.0-theta)/theta)
	d := 0.5 * b * math.Sqrt((b*b)+(4.0*nHat))
	center := nHat + (0.5 * (b * b))
	return center + d
}

// specialNStar returns the smallest trial count m whose cumulative
// negative binomial probability of requiring at most m trials for
// numSamples successes exceeds delta. Summation is exact, one pmf term
// at a time, so it is only used when numSamples/p is small.
func specialNStar(numSamples uint64, p float64, delta float64) float64 {
	q := 1.0 - p
	curTerm := math.Pow(p, float64(numSamples))
	m := numSamples
	runningSum := curTerm
	for runningSum <= delta {
		curTerm = curTerm * q * float64(m) / float64((m+1)-numSamples)
		m++
		runningSum += curTerm
	}
	return float64(m)
}

func specialNPrimeB(numSamples uint64, p float64, delta float64) float64 {
	q := 1.0 - p
	oneMinusDelta := 1.0 - delta
	curTerm := math.Pow(p, float64(numSamples))
	m := numSamples
	runningSum := curTerm
	for runningSum < oneMinusDelta {
		curTerm = curTerm * q * float64(m) / float64((m+1)-numSamples)
		m++
		runningSum += curTerm
	}
	return float64(m)
}

func specialNPrimeF(numSamples uint64, p float64, delta float64) float64 {
	return specialNPrimeB(numSamples+1, p, delta)
}

func approxLB(numSamples uint64, theta float64, numStdDevs uint) float64 {
	numSamplesF := float64(numSamples)
	switch {
	case theta == 1.0:
		return numSamplesF
	case numSamples == 0:
		return 0.0
	case numSamples == 1:
		delta := deltaOfNumStdDevs[numStdDevs]
		rawLB := math.Log(1.0-delta) / math.Log(1.0-theta)
		return math.Floor(rawLB)
	case numSamples > 120:
		// Plenty of samples, the Gaussian approximation is good here.
		rawLB := contClassicLB(numSamplesF, theta, float64(numStdDevs))
		return rawLB - 0.5
	case theta > (1.0 - 1e-5):
		// Theta is so high that the sample count is essentially exact.
		return numSamplesF
	case theta < (numSamplesF / 360.0):
		rawLB := contClassicLB(numSamplesF, theta, float64(numStdDevs))
		return rawLB - 0.5
	default:
		// The hard middle range. Sum the negative binomial tail exactly.
		delta := deltaOfNumStdDevs[numStdDevs]
		return specialNStar(numSamples, theta, delta)
	}
}

func approxUB(numSamples uint64, theta float64, numStdDevs uint) float64 {
	numSamplesF := float64(numSamples)
	switch {
	case theta == 1.0:
		return numSamplesF
	case numSamples == 0:
		delta := deltaOfNumStdDevs[numStdDevs]
		rawUB := math.Log(delta) / math.Log(1.0-theta)
		return math.Ceil(rawUB)
	case numSamples > 120:
		rawUB := contClassicUB(numSamplesF, theta, float64(numStdDevs))
		return rawUB + 0.5
	case theta > (1.0 - 1e-5):
		return numSamplesF + 1.0
	case theta < (numSamplesF / 360.0):
		rawUB := contClassicUB(numSamplesF, theta, float64(numStdDevs))
		return rawUB + 0.5
	default:
		delta := deltaOfNumStdDevs[numStdDevs]
		return specialNPrimeF(numSamples, theta, delta)
	}
}

// LowerBound returns an approximate lower bound on the number of uniques
// given numSamples retained hashes sampled with probability theta, at a
// confidence of numStdDevs Gaussian standard deviations. The result never
// exceeds the point estimate numSamples/theta and is never below
// numSamples.
func LowerBound(numSamples uint64, theta float64, numStdDevs uint) (float64, error) {
	if err := checkArgs(theta, numStdDevs); err != nil {
		return 0, err
	}
	lb := approxLB(numSamples, theta, numStdDevs)
	numSamplesF := float64(numSamples)
	est := numSamplesF / theta
	return math.Min(est, math.Max(numSamplesF, lb)), nil
}

// UpperBound returns an approximate upper bound on the number of uniques.
// The result is never below the point estimate numSamples/theta.
func UpperBound(numSamples uint64, theta float64, numStdDevs uint) (float64, error) {
	if err := checkArgs(theta, numStdDevs); err != nil {
		return 0, err
	}
	ub := approxUB(numSamples, theta, numStdDevs)
	est := float64(numSamples) / theta
	return math.Max(est, ub), nil
}
