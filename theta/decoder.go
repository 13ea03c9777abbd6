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
	"errors"
	"fmt"
	"io"

	"github.com/edoliberty/sketches-core/internal"
)

var ErrBigEndian = errors.New("big endian sketches are not supported")

// Decoder decodes a compact sketch from the given reader.
type Decoder struct {
	seed uint64
}

// NewDecoder creates a new decoder.
func NewDecoder(seed uint64) Decoder {
	return Decoder{
		seed: seed,
	}
}

// Decode decodes a compact sketch from the given reader.
func (dec Decoder) Decode(r io.Reader) (*CompactSketch, error) {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return Decode(bytes, dec.seed)
}

// Decode decodes a compact sketch from the given bytes.
func Decode(bytes []byte, seed uint64) (*CompactSketch, error) {
	data, err := decodeCompactSketch(bytes, seed)
	if err != nil {
		return nil, err
	}

	entries := make([]uint64, data.numEntries)
	for i := uint32(0); i < data.numEntries; i++ {
		offset := data.entriesStartIdx + int(i)*8
		entries[i] = binary.LittleEndian.Uint64(data.bytes[offset:])
	}

	return newCompactSketchFromEntries(
		data.isEmpty,
		data.isOrdered,
		data.seedHash,
		data.theta,
		entries,
	), nil
}

type compactSketchData struct {
	theta           uint64
	bytes           []byte
	entriesStartIdx int
	numEntries      uint32
	seedHash        uint16
	isEmpty         bool
	isOrdered       bool
}

func decodeCompactSketch(bytes []byte, seed uint64) (compactSketchData, error) {
	if err := validateMemorySize(bytes, 8); err != nil {
		return compactSketchData{}, err
	}

	if err := CheckSerialVersionEqual(bytes[serialVersionByte], SerialVersion); err != nil {
		return compactSketchData{}, err
	}
	if err := CheckSketchFamilyEqual(bytes[familyByte], uint8(internal.FamilyEnum.Compact.Id)); err != nil {
		return compactSketchData{}, err
	}

	flags := bytes[flagsByte]
	if flags&(1<<serializationFlagIsBigEndian) != 0 {
		return compactSketchData{}, ErrBigEndian
	}

	preambleLongs := bytes[preambleLongsByte] & preambleLongsMask
	if int(preambleLongs) < internal.FamilyEnum.Compact.MinPreLongs ||
		int(preambleLongs) > internal.FamilyEnum.Compact.MaxPreLongs {
		return compactSketchData{}, fmt.Errorf("corrupt preamble longs value: %d", preambleLongs)
	}

	seedHash := binary.LittleEndian.Uint16(bytes[seedHashU16Byte:])

	if flags&(1<<serializationFlagIsEmpty) != 0 {
		return compactSketchData{
			isEmpty:    true,
			isOrdered:  true,
			seedHash:   seedHash,
			numEntries: 0,
			theta:      MaxTheta,
			bytes:      bytes,
		}, nil
	}

	expectedSeedHash, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return compactSketchData{}, err
	}
	if err := CheckSeedHashEqual(seedHash, uint16(expectedSeedHash)); err != nil {
		return compactSketchData{}, err
	}

	if preambleLongs == 1 {
		return compactSketchData{}, fmt.Errorf("corrupt preamble longs value for a non-empty sketch: %d", preambleLongs)
	}

	if err := validateMemorySize(bytes, int(preambleLongs)*8); err != nil {
		return compactSketchData{}, err
	}

	numEntries := binary.LittleEndian.Uint32(bytes[curCountU32Byte:])
	theta := MaxTheta
	if preambleLongs > 2 {
		theta = binary.LittleEndian.Uint64(bytes[thetaU64Byte:])
	}

	entriesStartIdx := int(preambleLongs) * 8
	if err := validateMemorySize(bytes, entriesStartIdx+int(numEntries)*8); err != nil {
		return compactSketchData{}, err
	}

	return compactSketchData{
		isEmpty:         false,
		isOrdered:       flags&(1<<serializationFlagIsOrdered) != 0,
		seedHash:        seedHash,
		numEntries:      numEntries,
		theta:           theta,
		entriesStartIdx: entriesStartIdx,
		bytes:           bytes,
	}, nil
}
