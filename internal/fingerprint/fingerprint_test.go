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

package fingerprint

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSum_Stable verifies the digest format and that Sum and SumString agree.
func TestSum_Stable(t *testing.T) {
	a := Sum([]byte("Dear Senator"))
	assert.Len(t, a, 16)
	assert.Equal(t, a, SumString("Dear Senator"))
	assert.NotEqual(t, a, Sum([]byte("Dear Representative")))
	assert.Equal(t, "ef46db3751d8e999", Sum(nil))
}

// TestFilter_IsNew verifies unchanged content is reported once.
func TestFilter_IsNew(t *testing.T) {
	f := NewFilter()

	assert.True(t, f.IsNew("web_form/001.txt", []byte("v1")))
	assert.False(t, f.IsNew("web_form/001.txt", []byte("v1")))
	assert.True(t, f.IsNew("web_form/001.txt", []byte("v2")))
	assert.True(t, f.IsNew("usps/001.txt", []byte("v2")), "keys are independent")
}

// TestFilter_RememberAndForget verifies seeding and pruning.
func TestFilter_RememberAndForget(t *testing.T) {
	f := NewFilter()
	f.Remember("usps/002.txt", []byte("letter"))
	assert.True(t, f.Known("usps/002.txt"))
	assert.False(t, f.IsNew("usps/002.txt", []byte("letter")))

	f.Remember("web_form/002.txt", []byte("form"))
	f.Forget(func(k string) bool { return strings.HasPrefix(k, "usps/") })
	assert.False(t, f.Known("usps/002.txt"))
	assert.True(t, f.Known("web_form/002.txt"))
}

// TestFilter_Concurrent verifies exactly one caller sees new content.
func TestFilter_Concurrent(t *testing.T) {
	f := NewFilter()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		news int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.IsNew("k", []byte("same")) {
				mu.Lock()
				news++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, news)
}
