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

// selectNthEntry partially orders entries in place so that the n smallest
// hash values occupy entries[:n], and returns entries[n], which becomes the
// new theta when a table is trimmed back to its nominal size. The slice is
// not fully sorted. Expected cost is linear in len(entries).
func selectNthEntry(entries []uint64, n int) uint64 {
	lo := 0
	hi := len(entries) - 1
	for lo < hi {
		pivot := entries[lo+(hi-lo)/2]
		i, j := lo, hi
		for i <= j {
			for entries[i] < pivot {
				i++
			}
			for entries[j] > pivot {
				j--
			}
			if i > j {
				break
			}
			entries[i], entries[j] = entries[j], entries[i]
			i++
			j--
		}
		// entries[lo:j+1] <= pivot <= entries[i:hi+1], anything between
		// the two scan positions equals the pivot
		switch {
		case n <= j:
			hi = j
		case n >= i:
			lo = i
		default:
			return entries[n]
		}
	}
	return entries[n]
}
