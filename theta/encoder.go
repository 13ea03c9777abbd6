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
	"io"
	"math"

	"github.com/edoliberty/sketches-core/internal"
)

// Encoder encodes a compact theta sketch to bytes.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates a new encoder.
func NewEncoder(w io.Writer) Encoder {
	return Encoder{w: w}
}

// Encode encodes a compact theta sketch to bytes.
func (enc Encoder) Encode(sketch *CompactSketch) error {
	bytes := make([]byte, sketch.SerializedSizeBytes())
	encodeCompactSketch(sketch, bytes)

	n, err := enc.w.Write(bytes)
	if err != nil {
		return err
	}
	if n != len(bytes) {
		return io.ErrShortWrite
	}
	return nil
}

func encodeCompactSketch(sketch *CompactSketch, bytes []byte) {
	preambleLongs := sketch.preambleLongs()

	bytes[preambleLongsByte] = preambleLongs
	bytes[serialVersionByte] = SerialVersion
	bytes[familyByte] = uint8(internal.FamilyEnum.Compact.Id)
	// lg_nom and lg_arr are not tracked by the compact form
	bytes[lgNomByte] = 0
	bytes[lgArrByte] = 0

	flags := byte(0)
	flags |= 1 << serializationFlagIsCompact
	flags |= 1 << serializationFlagIsReadOnly
	if sketch.IsEmpty() {
		flags |= 1 << serializationFlagIsEmpty
	}
	if sketch.IsOrdered() {
		flags |= 1 << serializationFlagIsOrdered
	}
	bytes[flagsByte] = flags

	seedHash, _ := sketch.SeedHash()
	binary.LittleEndian.PutUint16(bytes[seedHashU16Byte:], seedHash)

	if preambleLongs == 1 {
		return
	}

	binary.LittleEndian.PutUint32(bytes[curCountU32Byte:], uint32(len(sketch.entries)))
	// the compact form has sampling folded into theta
	binary.LittleEndian.PutUint32(bytes[pFloatByte:], math.Float32bits(1))

	offset := int(preambleLongs) * 8
	if preambleLongs > 2 {
		binary.LittleEndian.PutUint64(bytes[thetaU64Byte:], sketch.theta)
	}

	for _, entry := range sketch.entries {
		binary.LittleEndian.PutUint64(bytes[offset:], entry)
		offset += 8
	}
}
