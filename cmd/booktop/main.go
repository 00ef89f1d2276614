// Command booktop streams the order book for one market and prints the top
// of book on every change. Useful for eyeballing live data and for checking
// credentials.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jmels/kalshi-stream/internal/api"
	"github.com/jmels/kalshi-stream/internal/auth"
	"github.com/jmels/kalshi-stream/internal/book"
	"github.com/jmels/kalshi-stream/internal/config"
	"github.com/jmels/kalshi-stream/internal/connection"
	"github.com/jmels/kalshi-stream/internal/model"
	"github.com/jmels/kalshi-stream/internal/router"
)

func main() {
	configPath := flag.String("config", "configs/streamer.yaml", "path to config file")
	market := flag.String("market", "", "market ticker (default: most active open market)")
	depth := flag.Int("depth", 5, "number of levels to display per side")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	signer, err := auth.LoadSigner(cfg.Auth.KeyID, cfg.Auth.PrivateKeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load signing key: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	ticker := *market
	if ticker == "" {
		ticker, err = mostActiveMarket(ctx, cfg, signer, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pick market: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("streaming order book for %s\n", ticker)

	books := book.NewStore(logger)
	rt := router.New(router.DefaultConfig(), books, logger)
	if err := rt.Subscribe(router.ChannelOrderbook, ticker); err != nil {
		fmt.Fprintf(os.Stderr, "subscribe: %v\n", err)
		os.Exit(1)
	}

	go func() {
		for ev := range rt.Events() {
			if _, ok := ev.(model.BookUpdate); !ok {
				continue
			}
			printTop(books, ticker, *depth)
		}
	}()

	connCfg := connection.DefaultConfig()
	connCfg.URL = cfg.API.WSURL
	manager := connection.NewManager(connCfg, signer, rt, logger)

	if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "stream ended: %v\n", err)
		os.Exit(1)
	}
}

// mostActiveMarket returns the open market with the highest volume.
func mostActiveMarket(ctx context.Context, cfg *config.Config, signer *auth.Signer, logger *slog.Logger) (string, error) {
	client := api.NewClient(cfg.API.RestURL, signer,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout.Duration()),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	resp, err := client.GetMarkets(ctx, api.GetMarketsOptions{Status: "open", Limit: 1000})
	if err != nil {
		return "", err
	}
	if len(resp.Markets) == 0 {
		return "", errors.New("no open markets")
	}

	best := resp.Markets[0]
	for _, m := range resp.Markets[1:] {
		if m.Volume > best.Volume {
			best = m
		}
	}
	return best.Ticker, nil
}

func printTop(books *book.Store, ticker string, depth int) {
	yes, _ := books.TopLevels(ticker, book.SideYes, depth)
	no, _ := books.TopLevels(ticker, book.SideNo, depth)

	fmt.Printf("--- %s ---\n", ticker)
	fmt.Println("  yes bids          no bids")
	for i := 0; i < depth; i++ {
		var left, right string
		if i < len(yes) {
			left = fmt.Sprintf("%2d¢ x %-6d", yes[i].Price, yes[i].Quantity)
		}
		if i < len(no) {
			right = fmt.Sprintf("%2d¢ x %-6d", no[i].Price, no[i].Quantity)
		}
		fmt.Printf("  %-16s  %-16s\n", left, right)
	}
}
