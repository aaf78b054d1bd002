package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rx3lixir/laba_meet/internal/config"
	"github.com/rx3lixir/laba_meet/internal/meeting"
	"github.com/rx3lixir/laba_meet/internal/room"
	"github.com/rx3lixir/laba_meet/internal/rtcconfig"
	"github.com/rx3lixir/laba_meet/internal/server"
	"github.com/rx3lixir/laba_meet/internal/signaling"
	"github.com/rx3lixir/laba_meet/internal/storage/mongo"
	"github.com/rx3lixir/laba_meet/internal/storage/postgres"
	"github.com/rx3lixir/laba_meet/internal/storage/s3"
	"github.com/rx3lixir/laba_meet/internal/transcript"
	"github.com/rx3lixir/laba_meet/internal/user"
	"github.com/rx3lixir/laba_meet/pkg/jwt"
	"github.com/rx3lixir/laba_meet/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply the Postgres schema before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(c)
	if err != nil {
		return err
	}

	log.Info(
		"Config loaded successfully!",
		"env", c.GeneralParams.Env,
		"http_server_port", c.HttpServerParams.Port,
		"http_server_address", c.HttpServerParams.Address,
		"database", c.MainDBParams.Name,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbTimeout := time.Duration(c.MainDBParams.Timeout) * time.Second

	// JWT Service intialization
	jwtService := jwt.NewService(
		c.GeneralParams.SecretKey,
		time.Minute*15,
		time.Hour*24*7,
	)

	// Users live in Postgres. Without it signaling still works for guests.
	var userHandler *user.Handler
	pool, err := postgres.NewPool(ctx, c.MainDBParams.GetDSN())
	if err != nil {
		log.Warn("Postgres unavailable, user routes disabled", "error", err, "db", c.MainDBParams.Name)
	} else {
		defer pool.Close()
		log.Info("Database connection established", "db", c.MainDBParams.Name)

		if autoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}
		}
		userHandler = user.NewHandler(user.NewPostgresStore(pool), jwtService, log.Component("user"), dbTimeout)
	}

	meetingStore := openMeetingStore(ctx, c, log)
	transcripts := openTranscriptStore(ctx, c, log)

	meetingService := meeting.NewService(meetingStore, transcripts, log.Component("meeting"))

	// A literal nil keeps the hub from calling into an unavailable store
	var hubStore signaling.MeetingStore
	if meetingService.Available() {
		hubStore = meeting.NewHubStore(meetingService)
	}

	sp := c.SignalingParams
	hub := signaling.NewHub(room.NewRegistry(), hubStore, signaling.Options{
		LookupTimeout:  sp.LookupTimeout,
		PersistTimeout: sp.PersistTimeout,
	}, log.Component("signaling"))
	meetingService.SetRoomCloser(hub)
	go hub.Run()

	iceServers := make([]rtcconfig.Server, 0, len(c.RTCParams.ICEServers))
	for _, s := range c.RTCParams.ICEServers {
		iceServers = append(iceServers, rtcconfig.Server(s))
	}
	rtcHandler, err := rtcconfig.NewHandler(iceServers, log.Component("rtc"))
	if err != nil {
		return err
	}

	router := server.NewRouter(server.RouterConfig{
		UserHandler:    userHandler,
		MeetingHandler: meeting.NewHandler(meetingService, log.Component("meeting"), dbTimeout),
		SignalingHandler: signaling.NewHandler(hub, jwtService, signaling.HandlerOptions{
			AllowedOrigins: c.HttpServerParams.AllowedOrigins,
			AllowGuests:    sp.AllowGuests,
			MaxMessageSize: sp.MaxMessageSize,
			SendBuffer:     sp.SendBuffer,
			RateLimit:      sp.RateLimit,
			RateBurst:      sp.RateBurst,
		}, log.Component("signaling")),
		RTCHandler:     rtcHandler,
		Tokens:         jwtService,
		AllowedOrigins: c.HttpServerParams.AllowedOrigins,
		Log:            log.Component("http"),
	})

	srv := server.New(c.HttpServerParams.GetAddress(), router, log.Logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Block until we recieve a signal or error
	select {
	case err := <-serverErrors:
		log.Error("Server error", "error", err)
		shutdownHub(hub, log)
		return err

	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
	shutdownHub(hub, log)

	return nil
}

func shutdownHub(hub *signaling.Hub, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := hub.Shutdown(ctx); err != nil {
		log.Error("Hub shutdown failed", "error", err)
	}
}

// openMeetingStore returns nil when meetings cannot be persisted
func openMeetingStore(ctx context.Context, c *config.Config, log *logger.Logger) meeting.Store {
	mp := c.MongoParams
	if mp.URI == "" {
		log.Warn("Mongo URI is empty, meetings are not persisted")
		return nil
	}

	client, err := mongo.NewClient(ctx, mp.URI, mp.Timeout)
	if err != nil {
		log.Warn("Mongo unavailable, rooms run ad-hoc", "error", err)
		return nil
	}
	context.AfterFunc(ctx, func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	})

	store := meeting.NewMongoStore(client.Database(mp.Database))
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Warn("Failed to create meeting indexes", "error", err)
	}

	log.Info("Mongo connection established", "database", mp.Database)
	return store
}

// openTranscriptStore returns nil when no object store is configured or reachable
func openTranscriptStore(ctx context.Context, c *config.Config, log *logger.Logger) meeting.Archiver {
	p := c.S3Params
	if !p.Enabled() {
		return nil
	}

	client, err := s3.NewClient(p.Endpoint, p.AccessKeyID, p.SecretAccessKey, p.UseSSL)
	if err == nil {
		err = s3.EnsureBucket(ctx, client, p.BucketName, log.Component("s3"))
	}
	if err != nil {
		log.Warn("Object store unavailable, transcripts disabled", "error", err, "endpoint", p.Endpoint)
		return nil
	}

	log.Info("Object store ready", "endpoint", p.Endpoint, "bucket", p.BucketName)
	return transcript.NewMinIOStore(client, p.BucketName, p.URLExpiry)
}
