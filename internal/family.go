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

type Family struct {
	Id          int
	MinPreLongs int
	MaxPreLongs int
}

type families struct {
	Alpha        Family
	QuickSelect  Family
	Compact      Family
	Union        Family
	Intersection Family
	AnotB        Family
}

var FamilyEnum = &families{
	Alpha: Family{
		Id:          1,
		MinPreLongs: 3,
		MaxPreLongs: 3,
	},
	QuickSelect: Family{
		Id:          2,
		MinPreLongs: 3,
		MaxPreLongs: 3,
	},
	Compact: Family{
		Id:          3,
		MinPreLongs: 1,
		MaxPreLongs: 3,
	},
	Union: Family{
		Id:          4,
		MinPreLongs: 4,
		MaxPreLongs: 4,
	},
	Intersection: Family{
		Id:          5,
		MinPreLongs: 3,
		MaxPreLongs: 3,
	},
	AnotB: Family{
		Id:          6,
		MinPreLongs: 3,
		MaxPreLongs: 3,
	},
}

// FamilyFromId returns the family with the given serialized id.
func FamilyFromId(id int) (Family, bool) {
	switch id {
	case FamilyEnum.Alpha.Id:
		return FamilyEnum.Alpha, true
	case FamilyEnum.QuickSelect.Id:
		return FamilyEnum.QuickSelect, true
	case FamilyEnum.Compact.Id:
		return FamilyEnum.Compact, true
	case FamilyEnum.Union.Id:
		return FamilyEnum.Union, true
	case FamilyEnum.Intersection.Id:
		return FamilyEnum.Intersection, true
	case FamilyEnum.AnotB.Id:
		return FamilyEnum.AnotB, true
	}
	return Family{}, false
}
