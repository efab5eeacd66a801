package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"github.com/lockstitch/courier/adapters/events"
	"github.com/lockstitch/courier/adapters/store"
	"github.com/lockstitch/courier/adapters/tokenizer"
	"github.com/lockstitch/courier/config"
	"github.com/lockstitch/courier/envelope"
	"github.com/lockstitch/courier/internal/ratelimit"
	"github.com/lockstitch/courier/ports"
	"github.com/lockstitch/courier/realtime"
	"github.com/lockstitch/courier/service"
	courierhttp "github.com/lockstitch/courier/transport/http"
	"github.com/lockstitch/courier/transport/stream"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg := config.Load(*configPath)

	// Generate a fresh ES256 signing key for bearer tokens. Tokens do not
	// survive a restart; sessions are re-established through login.
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Error("failed to generate signing key", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		sessions  ports.SessionStore
		guard     ports.ReplayGuard
		publisher message.Publisher
	)

	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("failed to parse Redis URL", "err", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)

		sessions = store.NewRedisSessionStore(redisClient)
		guard = store.NewRedisReplayGuard(redisClient, envelope.DefaultMaxAge)

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			wmLogger,
		)
		if err != nil {
			log.Error("failed to create Redis publisher", "err", err)
			os.Exit(1)
		}
	} else {
		memSessions := store.NewMemorySessionStore()
		memSessions.StartSweeper(ctx, cfg.SessionSweepInterval)
		sessions = memSessions
		guard = store.NewMemoryReplayGuard(0)
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	}

	creds := store.NewMemoryCredentialStore()
	inbox := store.NewMemoryMessageStore()
	eventPub := events.NewWatermillPublisher(publisher)
	jwtTokenizer := tokenizer.NewJWTTokenizer(signKey)

	authService := service.NewAuthService(
		creds,
		sessions,
		jwtTokenizer,
		eventPub,
		service.WithTokenTTLs(cfg.AccessTTL, cfg.RefreshTTL),
		service.WithLoginLimiter(ratelimit.New(cfg.LoginRPS, cfg.LoginBurst, 0)),
		service.WithLogger(log),
	)

	hub := realtime.NewHub(
		authService,
		creds,
		eventPub,
		realtime.WithHeartbeatInterval(cfg.HeartbeatInterval),
		realtime.WithHubLogger(log),
	)
	go hub.Run(ctx)

	codec := envelope.NewCodec(guard)
	messageService := service.NewMessageService(creds, inbox, codec, hub, log)

	ln, err := net.Listen("tcp", cfg.StreamAddr)
	if err != nil {
		log.Error("failed to listen for stream connections", "addr", cfg.StreamAddr, "err", err)
		os.Exit(1)
	}
	streamServer := stream.NewServer(hub, log)
	go func() {
		if err := streamServer.Serve(ctx, ln); err != nil {
			log.Error("stream server stopped", "err", err)
		}
	}()
	log.Info("stream server listening", "addr", cfg.StreamAddr)

	router := courierhttp.SetupRouter(authService, messageService)
	log.Info("http server listening", "addr", cfg.HTTPAddr)
	if err := router.Run(cfg.HTTPAddr); err != nil {
		log.Error("http server stopped", "err", err)
		os.Exit(1)
	}
}
