// Command treescope attaches a render-tree inspection session to a live
// page and serves it over MCP stdio and an optional debug HTTP surface.
//
// Usage:
//
//	treescope -config treescope.yaml        # attach per YAML config
//	treescope -url http://localhost:4200    # quick attach, MCP on stdio
//	treescope -url ... -http :7430          # also expose the HTTP surface
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/treescope/cdphost"
	"github.com/hazyhaar/treescope/httpapi"
	"github.com/hazyhaar/treescope/rendertree"
)

var mcpImpl = &mcp.Implementation{Name: "treescope", Version: "0.1.0"}

func main() {
	configPath := flag.String("config", "", "path to treescope.yaml config file")
	pageURL := flag.String("url", "", "page to attach to (overrides config)")
	httpAddr := flag.String("http", "", "debug HTTP listen address (overrides config)")
	mcpStdio := flag.Bool("mcp", true, "serve MCP tools on stdio")
	emitTrees := flag.Bool("emit", false, "write each capture as a JSON line to stdout")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *pageURL, *httpAddr, *mcpStdio, *emitTrees); err != nil {
		logger.Error("treescope: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, pageURL, httpAddr string, mcpStdio, emitTrees bool) error {
	cfg := rendertree.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = rendertree.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if pageURL != "" {
		cfg.Page.URL = pageURL
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if cfg.Page.URL == "" {
		fmt.Fprintln(os.Stderr, "usage: treescope -config <file> | -url <url>")
		os.Exit(1)
	}

	host, err := cdphost.Connect(ctx, cdphost.Config{
		URL:            cfg.Page.URL,
		Remote:         cfg.Page.Remote,
		Hook:           cfg.Page.Hook,
		CaptureTimeout: cfg.Page.CaptureTimeout,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer host.Close()

	var sinks []rendertree.Sink
	if emitTrees {
		sinks = append(sinks, rendertree.NewStdoutSink(nil))
	}

	session, err := rendertree.NewSession(cfg, rendertree.Host{
		Source:    host,
		Layout:    host,
		Scroller:  host,
		Inspector: host,
		Resolver:  host,
	}, logger, sinks...)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	defer session.Stop()

	if err := host.OnRenderCycle(ctx, session.NotifyRenderCycle); err != nil {
		logger.Warn("treescope: render signal unavailable, captures are on demand only",
			"error", err)
	}

	if _, err := session.Rebuild(ctx); err != nil {
		logger.Warn("treescope: initial capture failed", "error", err)
	}

	if cfg.HTTP.Addr != "" {
		api := httpapi.New(cfg.HTTP.Addr, session, logger)
		go func() {
			if err := api.Start(); err != nil {
				logger.Error("treescope: http server failed", "error", err)
			}
		}()
		defer api.Shutdown(context.Background())
	}

	if mcpStdio {
		srv := mcp.NewServer(mcpImpl, nil)
		session.RegisterMCP(srv)
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			return fmt.Errorf("mcp: %w", err)
		}
		return nil
	}

	<-ctx.Done()
	return nil
}
