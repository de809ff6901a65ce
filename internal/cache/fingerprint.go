package cache

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/onnwee/fmmtree/backend/internal/fmm"
	"github.com/onnwee/fmmtree/backend/internal/source"
)

// Fingerprint hashes the sources and every option that affects the shape
// of the built tree. ParallelDepth is left out: it changes how a tree is
// built, not what is built.
func Fingerprint(sources []source.Source, opts fmm.Options) uint64 {
	h := xxhash.New()
	var buf [8]byte
	putUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	putFloat := func(f float64) { putUint(math.Float64bits(f)) }
	putBool := func(b bool) {
		if b {
			putUint(1)
		} else {
			putUint(0)
		}
	}

	maxDepth := opts.MaxDepth
	if maxDepth == 0 {
		maxDepth = fmm.DefaultMaxDepth
	}
	putUint(uint64(opts.MaxSourcesPerLeaf))
	putFloat(opts.Accuracy)
	putUint(uint64(maxDepth))
	putUint(uint64(opts.Root))
	putUint(uint64(opts.Dimension))
	putBool(opts.Strict)
	if opts.Root == fmm.RootFixed {
		putUint(uint64(opts.Center.Dim()))
		for i := range opts.Center.Dim() {
			putFloat(opts.Center.At(i))
		}
		putFloat(opts.Size)
	} else {
		putFloat(opts.Padding)
	}

	putUint(uint64(len(sources)))
	for _, s := range sources {
		putUint(uint64(s.Dim()))
		for i := range s.Dim() {
			putFloat(s.At(i))
		}
		putFloat(s.Strength)
	}
	return h.Sum64()
}
