package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutGetRemove(t *testing.T) {
	r := New()

	_, ok := r.Get("a")
	assert.False(t, ok)

	r.Put("a", nil)
	h, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", h.SessionID)
	assert.False(t, h.CreatedAt.IsZero())

	r.Remove("a")
	_, ok = r.Get("a")
	assert.False(t, ok)

	// removing twice is fine
	r.Remove("a")
}

func TestListActiveSnapshot(t *testing.T) {
	r := New()
	r.Put("a", nil)
	r.Put("b", nil)

	snap := r.ListActive()
	assert.Len(t, snap, 2)

	// mutating the registry after the snapshot does not change it
	r.Remove("a")
	assert.Len(t, snap, 2)
	assert.Len(t, r.ListActive(), 1)
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("sess-%d", n)
			r.Put(id, nil)
			r.Get(id)
			r.ListActive()
			if n%2 == 0 {
				r.Remove(id)
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.ListActive(), 25)
}
