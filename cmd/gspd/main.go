// Command gspd is the state-processor daemon: it applies a stream of
// block JSON documents fed on stdin (one per line) through pkg/glue,
// keeps the non-consensus reporting/notification layers in sync, and
// serves a minimal debug HTTP+WS surface for operators. Grounded on
// main.go's boot shape (setupLogging -> initConfig -> initDB ->
// background loops -> http.Server), generalized from an HTTP-driven
// game tick to a block-feed-driven state transition.
package main

import (
	"bufio"
	"bytes"
	"database/sql"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"chainrealm/pkg/config"
	"chainrealm/pkg/gamelog"
	"chainrealm/pkg/glue"
	"chainrealm/pkg/notify"
	"chainrealm/pkg/reporting"
	"chainrealm/pkg/store"
)

func main() {
	var (
		chainFlag      = flag.String("chain", "regtest", "chain profile: main, test, regtest")
		configPath     = flag.String("config", "", "path to a per-chain YAML config file (defaults to built-in defaults)")
		dbPath         = flag.String("db", "gspd.sqlite", "path to the consensus entity store")
		reportingPath  = flag.String("reporting-db", "gspd-reporting.sqlite", "path to the non-consensus reporting store")
		addr           = flag.String("addr", ":8090", "debug HTTP/WS listen address")
		redisAddr      = flag.String("redis-addr", "", "Redis address for block-applied pub/sub (disabled if empty)")
		notifyChannel  = flag.String("notify-channel", "chainrealm-blocks", "Redis channel for block-applied notifications")
		dev            = flag.Bool("dev", false, "use human-readable development logging")
		requestsPerSec = flag.Float64("rate", 20, "debug surface rate limit, requests per second")
	)
	flag.Parse()

	if err := gamelog.Init(*dev); err != nil {
		log.Fatalf("gspd: init logging: %v", err)
	}
	defer gamelog.Sync()

	chain := config.Chain(*chainFlag)
	cfg := config.Default(chain)
	if *configPath != "" {
		loaded, err := config.Load(chain, *configPath)
		if err != nil {
			gamelog.Error("gspd: load config", gamelog.Err(err))
			os.Exit(1)
		}
		cfg = loaded
	}

	db, err := store.Open(*dbPath)
	if err != nil {
		gamelog.Error("gspd: open store", gamelog.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	if err := glue.InitialiseState(db, cfg); err != nil {
		gamelog.Error("gspd: initialise state", gamelog.Err(err))
		os.Exit(1)
	}

	reportStore, err := reporting.Open(*reportingPath, nil)
	if err != nil {
		gamelog.Error("gspd: open reporting store", gamelog.Err(err))
		os.Exit(1)
	}

	var notifier *notify.Notifier
	if *redisAddr != "" {
		notifier, err = notify.NewNotifier(*redisAddr, *notifyChannel)
		if err != nil {
			gamelog.Warn("gspd: notifier disabled, continuing without it", gamelog.Err(err))
			notifier = nil
		} else {
			defer notifier.Close()
		}
	}

	go serveDebugSurface(*addr, db, reportStore, notifier, *requestsPerSec)

	gamelog.Info("gspd started", gamelog.String("chain", string(chain)), gamelog.String("db", *dbPath))
	if err := runBlockFeed(os.Stdin, db, cfg, reportStore, notifier); err != nil {
		gamelog.Error("gspd: block feed", gamelog.Err(err))
		os.Exit(1)
	}
}

// blockHeader is the minimal shape needed to log and notify each
// applied block without duplicating pkg/pipeline's full decode.
type blockHeader struct {
	Block struct {
		Height uint64 `json:"height"`
	} `json:"block"`
}

// runBlockFeed reads one block JSON document per line from r and
// applies each in turn. A block that pkg/glue rejects (a returned
// error, not a panic) stops the feed — the caller decides whether
// that is fatal, matching spec.md §7's input-rejection taxonomy: a
// rejected block is not an invariant failure, so nothing here panics.
func runBlockFeed(r io.Reader, db *sql.DB, cfg *config.RoConfig, reportStore *reporting.Store, notifier *notify.Notifier) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		correlationID := uuid.NewString()

		var hdr blockHeader
		if err := json.Unmarshal(line, &hdr); err != nil {
			gamelog.Warn("gspd: unparsable block, skipping", gamelog.String("correlation_id", correlationID), gamelog.Err(err))
			continue
		}

		blockJSON := make([]byte, len(line))
		copy(blockJSON, line)

		start := time.Now()
		if err := glue.UpdateState(db, cfg, blockJSON); err != nil {
			gamelog.Error("gspd: block rejected", gamelog.String("correlation_id", correlationID), gamelog.Height(hdr.Block.Height), gamelog.Err(err))
			return err
		}
		gamelog.Info("block applied", gamelog.String("correlation_id", correlationID), gamelog.Height(hdr.Block.Height), gamelog.Int("micros", int(time.Since(start).Microseconds())))

		refreshReporting(db, reportStore, hdr.Block.Height)
		if notifier != nil {
			notifier.Publish(string(cfg.Chain), hdr.Block.Height)
		}
	}
	return scanner.Err()
}

// refreshReporting rebuilds the leaderboard read-model from the state
// glue.UpdateState just committed. It opens its own read-only
// transaction, entirely outside the block's own transaction, since
// reporting must never influence or be influenced by consensus state.
func refreshReporting(db *sql.DB, reportStore *reporting.Store, height uint64) {
	tx, err := store.Begin(db)
	if err != nil {
		gamelog.Warn("gspd: refresh reporting: begin", gamelog.Err(err))
		return
	}
	defer tx.Rollback()
	if err := reportStore.Refresh(tx, height); err != nil {
		gamelog.Warn("gspd: refresh reporting", gamelog.Height(height), gamelog.Err(err))
	}
}

// serveDebugSurface runs the operator-facing HTTP+WS query surface.
// It is deliberately thin — a real host-chain RPC surface is out of
// scope — and every route only reads already-committed state through
// its own connection, never the block-processing transaction.
func serveDebugSurface(addr string, db *sql.DB, reportStore *reporting.Store, notifier *notify.Notifier, requestsPerSec float64) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	router.Use(rateLimitMiddleware(rate.Limit(requestsPerSec), int(requestsPerSec)+1))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/state", func(c *gin.Context) {
		body, err := glue.GetStateAsJSON(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	})

	router.POST("/query", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
			return
		}
		result, err := glue.QueryState(db, body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", result)
	})

	router.GET("/leaderboard", func(c *gin.Context) {
		rows, err := reportStore.TopByFame(50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	router.GET("/buildings", func(c *gin.Context) {
		rows, err := reportStore.BuildingCounts()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	if notifier != nil {
		router.GET("/ws", gin.WrapF(notifier.Handler()))
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	gamelog.Info("debug surface listening", gamelog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		gamelog.Error("gspd: debug surface stopped", gamelog.Err(err))
	}
}

// rateLimitMiddleware bounds the debug surface to one shared token
// bucket, mirroring the teacher's per-IP getLimiter pattern collapsed
// to a single global limiter since this surface is operator-only.
func rateLimitMiddleware(limit rate.Limit, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(limit, burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}
		c.Next()
	}
}
