package classifier

import (
	"sync/atomic"

	"github.com/joseph-ayodele/docclass/internal/common"
)

// Holder is the process-wide model handle. Readers take a snapshot with Load;
// retraining publishes a whole new Bundle with Swap. Bundles are never mutated.
type Holder struct {
	p atomic.Pointer[Bundle]
}

func NewHolder(b *Bundle) *Holder {
	h := &Holder{}
	if b != nil {
		h.p.Store(b)
	}
	return h
}

func (h *Holder) Load() (*Bundle, error) {
	b := h.p.Load()
	if b == nil {
		return nil, common.ErrModelNotLoaded
	}
	return b, nil
}

// Swap installs b and returns the previous bundle, if any.
func (h *Holder) Swap(b *Bundle) *Bundle {
	return h.p.Swap(b)
}
