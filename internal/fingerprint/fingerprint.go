// Copyright (c) 2026 John Earle
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

// Package fingerprint computes content digests for composed messages and
// remembers which artifact contents have already been seen, so unchanged
// outputs are not rewritten on regeneration.
package fingerprint

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the 16-hex-digit xxhash64 digest of data.
func Sum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// SumString is Sum for strings, without copying.
func SumString(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// Filter tracks the last digest seen per key.
type Filter struct {
	mu   sync.Mutex
	seen map[string]uint64
}

// NewFilter creates an empty filter.
func NewFilter() *Filter {
	return &Filter{seen: make(map[string]uint64)}
}

// IsNew returns true if data differs from the last content recorded under
// key (or nothing was recorded). If true, data becomes the recorded content.
func (f *Filter) IsNew(key string, data []byte) bool {
	d := xxhash.Sum64(data)

	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.seen[key]; ok && prev == d {
		return false
	}
	f.seen[key] = d
	return true
}

// Remember records data under key without reporting novelty.
func (f *Filter) Remember(key string, data []byte) {
	d := xxhash.Sum64(data)
	f.mu.Lock()
	f.seen[key] = d
	f.mu.Unlock()
}

// Known reports whether anything is recorded under key.
func (f *Filter) Known(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seen[key]
	return ok
}

// Forget drops every key for which drop returns true.
func (f *Filter) Forget(drop func(key string) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.seen {
		if drop(k) {
			delete(f.seen, k)
		}
	}
}
