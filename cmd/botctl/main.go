package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"breakout-trading-bot/internal/api"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/types"

	"github.com/joho/godotenv"
)

const usage = `usage: botctl [flags] <command> [args]

commands:
  status                   exit monitor state
  strategies               every tracked symbol
  strategy <SYMBOL>        one symbol's level and open trade
  reset <SYMBOL>           drop history, level and trade (no order sent)
  exit <SYMBOL>            close the open trade at market
  monitor start|stop       start or stop the exit monitor
  trades [LIMIT]           recently closed trades
  buy|sell <SYMBOL> [QTY]  open a trade at market without a breakout

flags:
`

func main() {
	_ = godotenv.Load()

	defaultURL := os.Getenv("BOT_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:5000"
	}
	baseURL := flag.String("url", defaultURL, "bot base URL (env BOT_URL)")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	verbose := flag.Bool("v", false, "log HTTP requests")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *verbose {
		_ = logger.InitWithConfig(logger.LogConfig{Level: "DEBUG", Format: "console"})
		defer logger.Sync()
	}

	c := api.NewClient(strings.TrimRight(*baseURL, "/"),
		api.WithTimeout(*timeout),
		api.WithLogging(*verbose),
		api.WithRetry(api.DefaultRetryConfig()),
	)

	out, err := dispatch(context.Background(), c, flag.Arg(0), flag.Args()[1:])
	if err != nil {
		var he *api.HTTPError
		if errors.As(err, &he) {
			fmt.Fprintf(os.Stderr, "Error (%d): %s\n", he.StatusCode, he.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

var errUsage = errors.New("invalid arguments, run botctl -h")

func dispatch(ctx context.Context, c *api.Client, cmd string, args []string) (any, error) {
	switch cmd {
	case "status":
		return c.Monitoring(ctx)
	case "strategies":
		return c.Strategies(ctx)
	case "strategy":
		if len(args) != 1 {
			return nil, errUsage
		}
		return c.Strategy(ctx, args[0])
	case "reset":
		if len(args) != 1 {
			return nil, errUsage
		}
		if err := c.Reset(ctx, args[0]); err != nil {
			return nil, err
		}
		return map[string]string{"symbol": types.NormalizeSymbol(args[0]), "message": "strategy reset"}, nil
	case "exit":
		if len(args) != 1 {
			return nil, errUsage
		}
		return c.Exit(ctx, args[0])
	case "monitor":
		if len(args) != 1 || (args[0] != "start" && args[0] != "stop") {
			return nil, errUsage
		}
		return c.SetMonitoring(ctx, args[0] == "start")
	case "trades":
		limit := 0
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return nil, errUsage
			}
			limit = n
		}
		return c.Trades(ctx, limit)
	case "buy", "sell":
		if len(args) < 1 || len(args) > 2 {
			return nil, errUsage
		}
		qty := 0
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return nil, errUsage
			}
			qty = n
		}
		return c.SubmitAction(ctx, args[0], cmd, qty)
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}
