package pleb

import (
	"sync/atomic"

	"github.com/plebsys/pleb/internal/pool"
	"github.com/plebsys/pleb/internal/slot"
	"github.com/plebsys/pleb/internal/trie"
)

// poolInitialCapacity is the chain-link size every freshly-created
// topic's subscription pool starts with (spec.md §4.C). It defaults to
// 4 and can be overridden process-wide via SetPoolCapacity — typically
// from internal/config.Config.PoolInitialCapacity at startup, before
// any topic is touched, and again whenever that config is reloaded.
var poolInitialCapacity atomic.Int32

func init() { poolInitialCapacity.Store(4) }

// SetPoolCapacity overrides the chain-link size new topics'
// subscription pools start with. It only affects topics created after
// the call; existing pools keep their original capacity.
func SetPoolCapacity(n int) {
	if n <= 0 {
		return
	}
	poolInitialCapacity.Store(int32(n))
}

// topicPayload is the per-node content of the topic trie (spec.md
// §4.E, component E): one service slot and one subscription pool,
// plus a back-reference to the owning node so services and
// subscriptions can introspect their host topic.
//
// It implements trie.Initializable so the trie package — which knows
// nothing about services or subscriptions — can still wire the back
// reference at node-construction time.
type topicPayload struct {
	node    *trie.Node[topicPayload]
	service *slot.Slot[*Service]
	subs    *pool.Pool[*Subscription]
}

var _ trie.Initializable[topicPayload] = (*topicPayload)(nil)

// Init implements trie.Initializable.
func (p *topicPayload) Init(n *trie.Node[topicPayload]) {
	p.node = n
	p.service = slot.New[*Service]()
	p.subs = pool.New[*Subscription](int(poolInitialCapacity.Load()))
}

// tryInstallService delegates to the slot's TryEmplace; it fails if a
// service is already installed at this node.
func (p *topicPayload) tryInstallService(svc *Service) (*slot.Strong[*Service], bool) {
	return p.service.TryEmplace(func() *Service { return svc })
}

// installSubscription delegates to the pool's Emplace; it always succeeds.
func (p *topicPayload) installSubscription(sub *Subscription) *slot.Strong[*Subscription] {
	return p.subs.Emplace(func() *Subscription { return sub })
}

// currentService returns a strong reference to the live service, if any.
func (p *topicPayload) currentService() (*slot.Strong[*Service], bool) {
	return p.service.Lock()
}

// eachSubscription invokes fn for every currently live subscription,
// pinning each one (via the pool iterator's strong reference) for the
// duration of fn so that a subscription concurrently being
// unsubscribed elsewhere is still observed and invoked for this
// dispatch (spec.md §4.H: "A subscription that was just destroyed
// while an iterator holds a strong reference to it is still invoked").
func (p *topicPayload) eachSubscription(fn func(*Subscription)) {
	p.subs.Each(func(s **Subscription) bool {
		fn(*s)
		return true
	})
}
