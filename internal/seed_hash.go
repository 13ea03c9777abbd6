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
)

// ComputeSeedHash returns the low 16 bits of the MurmurHash3 of the seed
// itself, hashed with seed 0. A serialized sketch carries this fingerprint
// instead of the seed, so a zero result cannot be distinguished from an
// absent one and is rejected.
func ComputeSeedHash(seed int64) (int16, error) {
	h1, _ := HashInt64SliceMurmur3([]int64{seed}, 0, 1, 0)
	seedHash := int16(h1 & 0xFFFF)
	if seedHash == 0 {
		return 0, fmt.Errorf("the given seed %d produced a seedHash of zero. You must choose a different seed", seed)
	}
	return seedHash, nil
}
