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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/edoliberty/sketches-core/internal"
)

// Update sketches serialize with three preamble longs followed by the
// whole hash table, empty slots included, so that a decoded sketch can
// keep taking updates without rebuilding.

const updateSketchPreambleLongs = 3

type updateSketchData struct {
	entries  []uint64
	theta    uint64
	curCount uint32
	p        float32
	lgNom    uint8
	lgArr    uint8
	rf       ResizeFactor
	isEmpty  bool
}

func encodeUpdateSketch(family uint8, lgNom, lgArr uint8, rf ResizeFactor, isEmpty bool,
	seedHash uint16, curCount uint32, p float32, theta uint64, entries []uint64) []byte {
	bytes := make([]byte, updateSketchPreambleLongs*8+len(entries)*8)

	bytes[preambleLongsByte] = updateSketchPreambleLongs | uint8(rf)<<6
	bytes[serialVersionByte] = SerialVersion
	bytes[familyByte] = family
	bytes[lgNomByte] = lgNom
	bytes[lgArrByte] = lgArr

	if isEmpty {
		bytes[flagsByte] = 1 << serializationFlagIsEmpty
	}

	binary.LittleEndian.PutUint16(bytes[seedHashU16Byte:], seedHash)
	binary.LittleEndian.PutUint32(bytes[curCountU32Byte:], curCount)
	binary.LittleEndian.PutUint32(bytes[pFloatByte:], math.Float32bits(p))
	binary.LittleEndian.PutUint64(bytes[thetaU64Byte:], theta)

	offset := updateSketchPreambleLongs * 8
	for _, entry := range entries {
		binary.LittleEndian.PutUint64(bytes[offset:], entry)
		offset += 8
	}
	return bytes
}

func decodeUpdateSketch(bytes []byte, seed uint64, family internal.Family) (updateSketchData, error) {
	if err := validateMemorySize(bytes, updateSketchPreambleLongs*8); err != nil {
		return updateSketchData{}, err
	}

	if err := CheckSerialVersionEqual(bytes[serialVersionByte], SerialVersion); err != nil {
		return updateSketchData{}, err
	}
	if err := CheckSketchFamilyEqual(bytes[familyByte], uint8(family.Id)); err != nil {
		return updateSketchData{}, err
	}

	preambleLongs := bytes[preambleLongsByte] & preambleLongsMask
	if int(preambleLongs) != family.MinPreLongs {
		return updateSketchData{}, fmt.Errorf("corrupt preamble longs value: %d", preambleLongs)
	}
	rf := ResizeFactor(bytes[preambleLongsByte] >> 6)

	flags := bytes[flagsByte]
	if flags&(1<<serializationFlagIsBigEndian) != 0 {
		return updateSketchData{}, ErrBigEndian
	}

	seedHash := binary.LittleEndian.Uint16(bytes[seedHashU16Byte:])
	expectedSeedHash, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return updateSketchData{}, err
	}
	if err := CheckSeedHashEqual(seedHash, uint16(expectedSeedHash)); err != nil {
		return updateSketchData{}, err
	}

	lgNom := bytes[lgNomByte]
	lgArr := bytes[lgArrByte]
	curCount := binary.LittleEndian.Uint32(bytes[curCountU32Byte:])
	p := math.Float32frombits(binary.LittleEndian.Uint32(bytes[pFloatByte:]))
	theta := binary.LittleEndian.Uint64(bytes[thetaU64Byte:])

	if lgArr <= lgNom && theta < startingThetaFromP(p) {
		return updateSketchData{}, fmt.Errorf("corrupt lg_arr %d for lg_nom %d in estimation mode", lgArr, lgNom)
	}
	if p <= 0 || p > 1 {
		return updateSketchData{}, fmt.Errorf("corrupt sampling probability: %f", p)
	}

	numSlots := 1 << lgArr
	if err := validateMemorySize(bytes, updateSketchPreambleLongs*8+numSlots*8); err != nil {
		return updateSketchData{}, err
	}

	entries := make([]uint64, numSlots)
	offset := updateSketchPreambleLongs * 8
	for i := range entries {
		entries[i] = binary.LittleEndian.Uint64(bytes[offset:])
		offset += 8
	}

	return updateSketchData{
		entries:  entries,
		theta:    theta,
		curCount: curCount,
		p:        p,
		lgNom:    lgNom,
		lgArr:    lgArr,
		rf:       rf,
		isEmpty:  flags&(1<<serializationFlagIsEmpty) != 0,
	}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler
func (s *QuickSelectUpdateSketch) MarshalBinary() ([]byte, error) {
	seedHash, err := s.SeedHash()
	if err != nil {
		return nil, err
	}
	return encodeUpdateSketch(
		uint8(internal.FamilyEnum.QuickSelect.Id),
		s.table.lgNomSize, s.table.lgCurSize, s.table.rf, s.table.isEmpty,
		seedHash, s.table.numEntries, s.table.p, s.table.theta, s.table.entries,
	), nil
}

// DecodeQuickSelectUpdateSketch decodes a quickselect update sketch from
// the given bytes. The seed must match the one the sketch was built with.
func DecodeQuickSelectUpdateSketch(bytes []byte, seed uint64) (*QuickSelectUpdateSketch, error) {
	data, err := decodeUpdateSketch(bytes, seed, internal.FamilyEnum.QuickSelect)
	if err != nil {
		return nil, err
	}
	if data.lgNom < MinLgK || data.lgNom > MaxLgK {
		return nil, fmt.Errorf("corrupt lg_nom value: %d", data.lgNom)
	}

	table := NewHashtable(0, data.lgNom, data.rf, data.p, data.theta, seed, data.isEmpty)
	table.entries = data.entries
	table.lgCurSize = data.lgArr
	table.numEntries = data.curCount

	return &QuickSelectUpdateSketch{table: table}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler
func (s *AlphaUpdateSketch) MarshalBinary() ([]byte, error) {
	seedHash, err := s.SeedHash()
	if err != nil {
		return nil, err
	}
	return encodeUpdateSketch(
		uint8(internal.FamilyEnum.Alpha.Id),
		s.lgNom, s.lgArr, s.rf, s.isEmpty,
		seedHash, s.curCount, s.p, s.theta, s.entries,
	), nil
}

// DecodeAlphaUpdateSketch decodes an alpha update sketch from the given
// bytes. The seed must match the one the sketch was built with.
func DecodeAlphaUpdateSketch(bytes []byte, seed uint64) (*AlphaUpdateSketch, error) {
	data, err := decodeUpdateSketch(bytes, seed, internal.FamilyEnum.Alpha)
	if err != nil {
		return nil, err
	}
	if data.lgNom < AlphaMinLgK || data.lgNom > MaxLgK {
		return nil, fmt.Errorf("corrupt lg_nom value: %d", data.lgNom)
	}

	nomEntries := float64(uint64(1) << data.lgNom)
	alpha := nomEntries / (nomEntries + 1.0)

	// slots at or above theta are tombstones left by a dirty table
	dirty := false
	for _, entry := range data.entries {
		if entry != 0 && entry >= data.theta {
			dirty = true
			break
		}
	}

	return &AlphaUpdateSketch{
		entries:   data.entries,
		alpha:     alpha,
		theta:     data.theta,
		split1:    uint64(float64(data.p) * (alpha + 1.0) / 2.0 * float64(MaxTheta)),
		seed:      seed,
		curCount:  data.curCount,
		threshold: alphaTableThreshold(data.lgNom, data.lgArr),
		p:         data.p,
		lgArr:     data.lgArr,
		lgNom:     data.lgNom,
		rf:        data.rf,
		isEmpty:   data.isEmpty,
		dirty:     dirty,
	}, nil
}
