// Messenger CLI - command line client for the Encryption-Messenger relay.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/DimiKog/Encryption-Messenger/clients/go/messenger"
)

// defaultContract is the Starter NFT contract gating relay access.
const defaultContract = "0xD0151f0535454Ee5Fe0C3B64F98E8Be9Ff50970E"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("MESSENGER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := messenger.NewClient(baseURL)
	ctx := context.Background()
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		printJSON(resp)

	case "keys":
		records, err := client.ListPublicKeys(ctx)
		exitOnError(err)
		for _, rec := range records {
			name := rec.Nickname
			if name == "" {
				name = "(no nickname)"
			}
			fmt.Printf("  %s  %s  %s\n", rec.Address, name, rec.PublicKey)
		}

	case "publish":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: messenger publish <public-key> [nickname]")
			os.Exit(1)
		}
		nickname := ""
		if len(os.Args) > 3 {
			nickname = os.Args[3]
		}
		rec, err := client.PublishKey(ctx, walletAddress(), os.Args[2], nickname)
		exitOnError(err)
		printJSON(rec)

	case "send":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: messenger send <to-address> <ciphertext>")
			os.Exit(1)
		}
		receipt, err := client.SendMessage(ctx, walletAddress(), os.Args[2], os.Args[3])
		exitOnError(err)
		printJSON(receipt)

	case "inbox":
		messages, err := client.ListMessages(ctx)
		exitOnError(err)
		view := messenger.FilterForViewer(messages, walletAddress())
		messenger.SortNewestFirst(view)
		for _, msg := range view {
			fmt.Printf("[%s] %s -> %s: %s\n",
				msg.CreatedAt.Format("2006-01-02 15:04:05"),
				short(msg.From), short(msg.To), msg.Ciphertext)
		}

	case "access":
		decision := checkAccess(ctx)
		fmt.Printf("access: %s\n", decision)
		if decision != messenger.DecisionGranted {
			os.Exit(1)
		}

	case "watch":
		watch(ctx, client)

	default:
		usage()
		os.Exit(1)
	}
}

// checkAccess runs one gate cycle against the chain and returns the decision.
func checkAccess(ctx context.Context) messenger.Decision {
	oracle, err := messenger.DialNFTOracle(ctx, requireEnv("ETH_RPC_URL"), contractAddress())
	exitOnError(err)
	defer oracle.Close()

	gate := messenger.NewGate(oracle, true)
	defer gate.Close()

	gate.AccountsChanged([]string{walletAddress()})

	for {
		decision, _ := gate.Decision()
		if decision != messenger.DecisionChecking {
			if err := gate.LastError(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			return decision
		}
		<-gate.Updates()
	}
}

// watch gates the session, then polls the relay, printing the inbox whenever
// it grows. Ctrl-C tears the loop down.
func watch(ctx context.Context, client *messenger.Client) {
	if checkAccess(ctx) != messenger.DecisionGranted {
		fmt.Fprintln(os.Stderr, "access denied: wallet does not hold the gating token")
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	syncer := messenger.NewSyncer(client, walletAddress(), 0, logger)
	syncer.Start(ctx)
	defer syncer.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	seen := 0
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	fmt.Println("watching for messages (Ctrl-C to stop)...")
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			view := syncer.Messages()
			if len(view) == seen {
				continue
			}
			seen = len(view)
			fmt.Printf("--- inbox (%d) ---\n", len(view))
			for _, msg := range view {
				fmt.Printf("[%s] %s -> %s: %s\n",
					msg.CreatedAt.Format("15:04:05"),
					short(msg.From), short(msg.To), msg.Ciphertext)
			}
		}
	}
}

func walletAddress() string {
	return requireEnv("WALLET_ADDRESS")
}

func contractAddress() string {
	if addr := os.Getenv("NFT_CONTRACT"); addr != "" {
		return addr
	}
	return defaultContract
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Fprintf(os.Stderr, "%s is required\n", key)
		os.Exit(1)
	}
	return value
}

func short(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: messenger <command> [args]

Commands:
  health                         Check relay health
  keys                           List the public-key directory
  publish <public-key> [nick]    Publish your encryption public key
  send <to-address> <ciphertext> Relay a ciphertext envelope
  inbox                          Show messages you sent or received
  access                         Check NFT ownership for your wallet
  watch                          Gate the session, then poll for messages

Environment:
  MESSENGER_URL   Relay base URL (default http://localhost:8080)
  WALLET_ADDRESS  Your wallet address
  ETH_RPC_URL     Ethereum JSON-RPC endpoint (access/watch)
  NFT_CONTRACT    Gating contract address (default Starter NFT)`)
}
