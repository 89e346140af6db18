package pleb

// Children returns handles to every currently-existing child of h's
// resolved node. It never creates anything — a lazy handle with an
// unresolved residual simply has no children to report.
func (h Handle) Children() []Handle {
	if h.node == nil || h.residual != "" {
		return nil
	}
	kids := h.node.Children()
	out := make([]Handle, len(kids))
	for i, k := range kids {
		out[i] = Handle{node: k}
	}
	return out
}

// HasService reports whether a service is currently installed at h's
// resolved node.
func (h Handle) HasService() bool {
	if h.node == nil || h.residual != "" {
		return false
	}
	return h.node.Payload().service.Live()
}

// SubscriberCount reports the number of subscriptions currently live
// at h's resolved node. It is a snapshot, racy by nature like every
// other pool observation (internal/pool.Pool.Count).
func (h Handle) SubscriberCount() int {
	if h.node == nil || h.residual != "" {
		return 0
	}
	return h.node.Payload().subs.Count()
}
