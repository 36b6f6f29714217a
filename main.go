package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stopbot/client"
	"stopbot/engine"
	"stopbot/logger"
	"stopbot/stops"
	"stopbot/storage"
	"stopbot/trader"
)

const (
	defaultChainID  = 137
	defaultVerifier = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E" // CTF Exchange
	quoteMaxAge     = 2 * time.Second
)

func main() {
	log := logger.NewLogger()

	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	privateKey := os.Getenv("PRIVATE_KEY")
	if privateKey == "" {
		log.Error("missing_config", "msg", "PRIVATE_KEY environment variable is required")
		return
	}

	chainID := int64(defaultChainID)
	if v := os.Getenv("CHAIN_ID"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Error("invalid_config", "var", "CHAIN_ID", "err", err)
			return
		}
		chainID = parsed
	}

	signer, err := client.NewEIP712Signer(privateKey, chainID, defaultVerifier)
	if err != nil {
		log.Error("signer_init_failed", "err", err)
		return
	}

	// The funding address may be the signer's own wallet or a provisioned
	// contract wallet; the engine only needs the address string.
	funder := os.Getenv("FUNDER_ADDRESS")
	if funder == "" {
		funder = signer.Address().Hex()
	}

	dataDir := os.Getenv("STOPBOT_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	interval := stops.DefaultInterval
	if v := os.Getenv("MONITOR_INTERVAL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			log.Error("invalid_config", "var", "MONITOR_INTERVAL", "err", err)
			return
		}
		interval = parsed
	}

	ctx := context.Background()

	clob := client.NewClobClient(os.Getenv("CLOB_URL"))

	session := engine.NewSession(clob, func(auth *client.L2Auth) engine.Exchange {
		return client.NewTradeClient(os.Getenv("CLOB_URL"), auth)
	}, log)

	if err := session.Establish(ctx, signer, funder); err != nil {
		log.Error("session_establish_failed", "err", err)
		return
	}

	balance, err := session.Balance(ctx)
	if err != nil {
		log.Warn("balance_fetch_failed", "err", err)
	} else {
		log.Info("collateral_balance", "usdc", balance)
	}

	kv, err := storage.NewPebbleKV(dataDir)
	if err != nil {
		log.Error("storage_open_failed", "path", dataDir, "err", err)
		return
	}
	defer kv.Close()

	store, err := stops.NewStore(kv)
	if err != nil {
		log.Error("store_load_failed", "err", err)
		return
	}

	reader := engine.NewQuoteReader(clob)
	quotes := engine.NewQuoteCache(reader, quoteMaxAge)

	// Stream the tokens we are watching so the monitor polls pushed quotes
	// instead of a REST round-trip per order per cycle.
	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()
	if tokens := watchedTokens(store); len(tokens) > 0 {
		stream := client.NewMarketStream(os.Getenv("MARKET_WS_URL"), tokens, client.MarketStreamCallbacks{
			OnBook:       quotes.ApplyBook,
			OnBestBidAsk: quotes.ApplyBestBidAsk,
		}, log)
		go func() {
			if err := stream.Run(streamCtx); err != nil && streamCtx.Err() == nil {
				log.Error("market_stream_failed", "err", err)
			}
		}()
	}

	executor := engine.NewExecutor(session, quotes, clob, log)
	monitor := stops.NewMonitor(store, quotes, executor, log, interval)

	t := trader.New(session, executor, store, monitor)
	t.StartMonitoring()

	log.Info("stopbot_running", "pending_stops", len(store.ListPending()), "interval", interval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting_down")
	t.StopMonitoring()
}

func watchedTokens(store *stops.Store) []string {
	seen := make(map[string]bool)
	var tokens []string

	for _, o := range store.ListPending() {
		if !seen[o.TokenID] {
			seen[o.TokenID] = true
			tokens = append(tokens, o.TokenID)
		}
	}
	for _, t := range strings.Split(os.Getenv("WATCH_TOKEN_IDS"), ",") {
		t = strings.TrimSpace(t)
		if t != "" && !seen[t] {
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	return tokens
}
