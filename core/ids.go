// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strconv"
	"strings"
)

// unsafeIDChars replaces the characters that are not allowed (or are
// ambiguous) in document paths.
var unsafeIDChars = strings.NewReplacer("/", "_", ".", "_")

// contentIDPrefix marks IDs derived from content because no URI was available.
const contentIDPrefix = "msg-"

// DocumentID derives a stable document identifier from a message URI and its
// sequence number.
//
// The URI has "/" and "." replaced with "_" and the sequence number appended,
// so re-ingesting the same message overwrites the same document. When uri is
// empty, a BLAKE2b hash of the content stands in for it so that distinct
// messages without a URI do not collide on the sequence number alone.
func DocumentID(uri string, seq int, content string) string {
	base := uri
	if base == "" {
		base = fmt.Sprintf("%s%016x", contentIDPrefix, uint64(IDFromContent(content)))
	}
	return unsafeIDChars.Replace(base) + "_" + strconv.Itoa(seq)
}
