// Package diag implements a live status page for an in-process topic
// tree, grounded on Babysitter.RegisterStatusPages(mux *http.ServeMux)
// (internal/babysitter/babysitter.go): a status dashboard registered
// on a caller-supplied mux rather than one that owns its own listener,
// so embedding code decides how (and whether) to expose it.
package diag

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/goburrow/cache"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TreeNode is the caller's view of one topic in the tree, supplied by
// the root package so this package never imports it (the trie is
// generic; diag only needs path, whether a service is installed, and
// the subscription count).
type TreeNode struct {
	Path            string
	HasService      bool
	SubscriberCount int
	Children        []TreeNode
}

// TreeFunc produces a fresh snapshot of the live topic tree on demand.
type TreeFunc func() TreeNode

// MetricsFunc produces a fresh metrics snapshot; the row shape is left
// to the caller (internal/metrics.TopicMetrics, typically) and each
// row is rendered as one line via its String method.
type MetricsFunc func() []fmt.Stringer

// renderCacheTTL bounds how long a rendered page is served from cache
// before the next request re-walks the tree and re-renders Markdown.
// A busy operator hammering refresh on /plebz shouldn't pay goldmark's
// parse/render cost on every single poll.
const renderCacheTTL = 500 * time.Millisecond

// Dashboard renders a bus's live topic tree and metrics as an HTML
// status page.
type Dashboard struct {
	tree    TreeFunc
	metrics MetricsFunc
	md      goldmark.Markdown
	printer *message.Printer
	cache   cache.Cache
}

// New returns a Dashboard that calls tree and (if non-nil) metrics
// fresh on every request, subject to renderCacheTTL.
func New(tree TreeFunc, metrics MetricsFunc) *Dashboard {
	return &Dashboard{
		tree:    tree,
		metrics: metrics,
		md: goldmark.New(
			goldmark.WithRendererOptions(html.WithUnsafe()),
			goldmark.WithExtensions(highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			)),
		),
		printer: message.NewPrinter(language.English),
		cache:   cache.New(cache.WithMaximumSize(1), cache.WithExpireAfterWrite(renderCacheTTL)),
	}
}

// Register adds the dashboard's handler to mux at "/plebz", the same
// pattern babysitter.go's RegisterStatusPages uses to attach a status
// server to a caller-owned mux rather than binding its own listener.
// The handler is wrapped with otelhttp so every dashboard request
// produces a span under whatever TracerProvider the process installed
// (internal/tracing.NewProvider, when cmd/plebctl runs with -trace).
func (d *Dashboard) Register(mux *http.ServeMux) {
	mux.Handle("/plebz", otelhttp.NewHandler(http.HandlerFunc(d.serve), "plebz.dashboard"))
}

const renderCacheKey = "page"

func (d *Dashboard) serve(w http.ResponseWriter, r *http.Request) {
	if cached, ok := d.cache.GetIfPresent(renderCacheKey); ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(cached.([]byte))
		return
	}

	var md bytes.Buffer
	md.WriteString("# PLEB topic tree\n\n")
	writeTree(&md, d.printer, d.tree(), 0)

	if d.metrics != nil {
		md.WriteString("\n## Metrics\n\n```\n")
		for _, row := range d.metrics() {
			fmt.Fprintln(&md, row.String())
		}
		md.WriteString("```\n")
	}

	var out bytes.Buffer
	if err := d.md.Convert(md.Bytes(), &out); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	page := out.Bytes()
	d.cache.Put(renderCacheKey, page)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func writeTree(buf *bytes.Buffer, p *message.Printer, n TreeNode, depth int) {
	label := n.Path
	if label == "" {
		label = "/"
	}
	fmt.Fprintf(buf, "%s- **%s**", indent(depth), label)
	if n.HasService {
		buf.WriteString(" `service`")
	}
	if n.SubscriberCount > 0 {
		buf.WriteString(" (")
		buf.WriteString(p.Sprintf("%d", n.SubscriberCount))
		buf.WriteString(" subscribers)")
	}
	buf.WriteString("\n")

	children := make([]TreeNode, len(n.Children))
	copy(children, n.Children)
	sort.Slice(children, func(i, j int) bool { return children[i].Path < children[j].Path })
	for _, c := range children {
		writeTree(buf, p, c, depth+1)
	}
}

func indent(depth int) string {
	return fmt.Sprintf("%*s", depth*2, "")
}
