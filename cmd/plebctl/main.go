// Command plebctl is a small developer console for an in-process PLEB
// bus: issue a one-off request, subscribe and print events, or open
// the diagnostics dashboard. Flags are parsed with the standard
// library flag package; the teacher's own CLI surface (cmd/weaver)
// was not part of the retrieved pack, so no specific flag-parsing
// library is grounded here (see DESIGN.md).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/term"

	"github.com/plebsys/pleb"
	"github.com/plebsys/pleb/internal/config"
	"github.com/plebsys/pleb/internal/diag"
	"github.com/plebsys/pleb/internal/method"
	"github.com/plebsys/pleb/internal/metrics"
	"github.com/plebsys/pleb/internal/tracing"
	"github.com/plebsys/pleb/internal/value"
)

func main() {
	dashboard := flag.Bool("dashboard", false, "start the diagnostics dashboard")
	openBrowser := flag.Bool("open", false, "open the dashboard in a browser (implies -dashboard)")
	addr := flag.String("addr", "", "dashboard bind address (default from config)")
	configPath := flag.String("config", "", "TOML config file; watched for edits while -dashboard runs")
	trace := flag.Bool("trace", false, "print OpenTelemetry spans for this invocation to stderr")
	flag.Parse()

	traceWriter := io.Writer(io.Discard)
	if *trace {
		traceWriter = os.Stderr
	}
	tp, err := tracing.NewProvider(traceWriter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start tracer: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	if *openBrowser {
		*dashboard = true
	}
	if *dashboard {
		runDashboard(*addr, *configPath, *openBrowser)
		return
	}

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "get":
		runGet(args[1])
	case "sub":
		runSub(args[1])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  plebctl get <topic>")
	fmt.Fprintln(os.Stderr, "  plebctl sub <topic>")
	fmt.Fprintln(os.Stderr, "  plebctl -dashboard [-open] [-addr host:port] [-config pleb.toml]")
}

func runGet(path string) {
	_, end := tracing.Span(context.Background(), "plebctl.get")
	defer end()

	topic := pleb.Eager(path)
	future, ch := pleb.NewFuture()
	if err := pleb.Request(topic, int(method.GET), value.Empty, future); err != nil {
		fmt.Fprintf(os.Stderr, "request %s: %v\n", path, err)
		os.Exit(1)
	}
	resp := <-ch
	fmt.Printf("%s: %v\n", resp.Status, resp.Value.Raw())
}

func runSub(path string) {
	_, end := tracing.Span(context.Background(), "plebctl.sub")
	defer end()

	topic := pleb.Eager(path)
	handle := pleb.Subscribe(topic, func(ev pleb.Event) {
		fmt.Printf("[%s] code=%d value=%v\n", time.Now().Format(time.RFC3339), ev.Code, ev.Value.Raw())
	})
	defer handle.Close()

	stdin := int(os.Stdin.Fd())
	if !term.IsTerminal(stdin) {
		// Piped or redirected stdin: there's no key to read, so just
		// block until the process is killed, as before.
		fmt.Printf("subscribed to %s, press Ctrl+C to stop\n", path)
		select {}
	}

	state, err := term.MakeRaw(stdin)
	if err != nil {
		fmt.Printf("subscribed to %s, press Ctrl+C to stop\n", path)
		select {}
	}
	defer term.Restore(stdin, state)

	fmt.Printf("subscribed to %s, press q to stop\r\n", path)
	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return
		}
		if buf[0] == 'q' || buf[0] == 3 { // 3 = Ctrl+C, delivered as a byte because raw mode turns off signal generation
			return
		}
	}
}

func runDashboard(addrFlag, configPath string, open bool) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config %s: %v\n", configPath, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	addr := cfg.DashboardAddr
	if addrFlag != "" {
		addr = addrFlag
	}
	pleb.SetPoolCapacity(cfg.PoolInitialCapacity)

	collector := metrics.NewCollector(cfg.MetricsReservoirSize)
	pleb.SetMetrics(collector)
	go func() {
		interval := time.Duration(cfg.MetricsIntervalSeconds) * time.Second
		_ = collector.Run(context.Background(), interval, func([]metrics.TopicMetrics) {})
	}()

	if configPath != "" {
		watcher, err := config.Watch(configPath, func(reloaded config.Config, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload config %s: %v\n", configPath, err)
				return
			}
			pleb.SetPoolCapacity(reloaded.PoolInitialCapacity)
			fmt.Fprintf(os.Stderr, "config %s reloaded\n", configPath)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "watch config %s: %v\n", configPath, err)
		} else {
			defer watcher.Close()
		}
	}

	dash := diag.New(
		func() diag.TreeNode { return walkTree(pleb.Root()) },
		func() []fmt.Stringer { return stringerRows(collector.Snapshot()) },
	)

	mux := http.NewServeMux()
	dash.Register(mux)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen on %s: %v\n", addr, err)
		os.Exit(1)
	}
	url := fmt.Sprintf("http://%s/plebz", listener.Addr())
	fmt.Println("dashboard listening on", url)
	if open {
		go func() {
			time.Sleep(200 * time.Millisecond)
			if err := browser.OpenURL(url); err != nil {
				fmt.Fprintf(os.Stderr, "open browser: %v\n", err)
			}
		}()
	}
	if err := http.Serve(listener, mux); err != nil {
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		os.Exit(1)
	}
}

func stringerRows(rows []metrics.TopicMetrics) []fmt.Stringer {
	out := make([]fmt.Stringer, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

func walkTree(h pleb.Handle) diag.TreeNode {
	kids := h.Children()
	node := diag.TreeNode{
		Path:            h.Path(),
		HasService:      h.HasService(),
		SubscriberCount: h.SubscriberCount(),
		Children:        make([]diag.TreeNode, len(kids)),
	}
	for i, k := range kids {
		node.Children[i] = walkTree(k)
	}
	return node
}
