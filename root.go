package pleb

import (
	"sync"

	"github.com/plebsys/pleb/internal/trie"
)

// rootOnce lazily constructs the single process-wide root topic on
// first use. There is no reset or shutdown API (spec.md §9): the root
// and everything pinned beneath it live for the life of the process.
var (
	rootOnce sync.Once
	rootNode *trie.Node[topicPayload]
)

func globalRoot() *trie.Node[topicPayload] {
	rootOnce.Do(func() {
		rootNode = trie.NewRoot[topicPayload]()
	})
	return rootNode
}

// Root returns an eager handle to the process-wide root topic.
func Root() Handle {
	return Handle{node: globalRoot()}
}

// Eager returns an eager handle to path, creating any nodes along the
// way that do not yet exist. The empty path denotes the root.
func Eager(path string) Handle {
	return Handle{node: globalRoot().Get(path)}
}

// Lazy returns a lazy handle to path. It anchors at the nearest
// currently-existing ancestor and defers creation of the remainder
// until Realize is called (directly, or implicitly by installing a
// service or subscription).
func Lazy(path string) Handle {
	n, residual := globalRoot().Nearest(path)
	return Handle{node: n, residual: residual, lazy: true}
}
