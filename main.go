package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/cache"
	"social-publisher/infrastructure/clients/graph"
	"social-publisher/infrastructure/clients/oauth"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/media"
	"social-publisher/infrastructure/metrics"
	"social-publisher/infrastructure/persistence"
	"social-publisher/infrastructure/pubsub"
	"social-publisher/infrastructure/realtime"
	"social-publisher/infrastructure/servicebus"
	"social-publisher/infrastructure/vault"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/server"
	"social-publisher/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func exitOnError(err error, msg string) {
	if err != nil {
		logger.GetLogger().WithField("error", err).Error(msg)
		os.Exit(2)
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// config.env and .env were read before C was built; OS env still has precedence
	logger.GetLogger().WithField("files", configuration.LoadedEnvFiles).Info("Env files loaded")

	cfg := configuration.C
	lg := logger.GetLogger()

	credentialRepo, db, err := InitiateCredentialStore()
	exitOnError(err, "Credential store initialization failed")
	defer db.Close()

	mongoClient, err := persistence.NewMongoDb(
		cfg.Database.Mongo.Host,
		cfg.Database.Mongo.Port,
		cfg.Database.Mongo.User,
		cfg.Database.Mongo.Password,
		cfg.Database.Mongo.Name,
	)
	exitOnError(err, "MongoDB not available")
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	jobRepo := persistence.NewPublishJobRepository(mongoClient, cfg.Database.Mongo.Name)
	if err := jobRepo.EnsurePublishJobIndexes(ctx); err != nil {
		lg.WithField("error", err).Error("failed ensuring publish job indexes")
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", cfg.RedisClient.Host, cfg.RedisClient.Port),
		cfg.RedisClient.Username,
		cfg.RedisClient.Password,
		cfg.RedisClient.DB,
	)
	exitOnError(err, "Redis not available")
	kv := cache.NewKVStore(redisClient, "social-publisher:")
	lg.Info("Redis client initialized successfully.")

	secretVault, err := vault.New(cfg.Vault.Key, cfg.Vault.Salt)
	exitOnError(err, "Vault key is not configured")

	providerHTTP := &http.Client{Timeout: time.Duration(cfg.Graph.TimeoutSeconds) * time.Second}
	graphClient := graph.NewClient(cfg.Graph.BaseURL, providerHTTP)
	instagramClient := graph.NewClient(cfg.Graph.InstagramBaseURL, providerHTTP)

	m := metrics.New()

	fb := cfg.OAuth.Facebook
	generic := cfg.OAuth.Generic
	refreshers := map[model.Provider]repository.ITokenRefresher{
		model.ProviderFacebookGraph:  graph.NewFacebookRefresher(graphClient, fb.ClientID, fb.ClientSecret),
		model.ProviderInstagramGraph: graph.NewInstagramRefresher(instagramClient),
		model.ProviderGenericOAuth:   oauth.NewGenericRefresher(generic.ClientID, generic.ClientSecret, generic.AuthURL, generic.TokenURL, providerHTTP),
	}
	tokens := usecase.NewTokenManager(secretVault, credentialRepo, refreshers, m)
	prober := usecase.NewPermissionProber(graphClient, kv, time.Duration(cfg.Publisher.ProbeCacheSeconds)*time.Second)

	var blobs repository.IBlobStore
	if cfg.Media.Bucket != "" {
		s3Store, err := media.NewS3BlobStore(ctx, cfg.Media.Region, cfg.Media.Bucket, cfg.Media.Prefix, cfg.Media.PublicBaseURL)
		if err != nil {
			lg.WithField("error", err).Warn("S3 blob store not available - off-ratio images are sent as is")
		} else {
			blobs = s3Store
		}
	} else {
		lg.Info("media.bucket not set - off-ratio images are sent as is")
	}
	normalizer := media.NewNormalizer(media.NewHTTPFetcher(providerHTTP), blobs, cfg.Media.JPEGQuality)

	policies := usecase.PoliciesFromConfig(cfg.Publisher)
	publishers := []usecase.IPlatformPublisher{
		usecase.NewPlatformPublisher(graph.NewInstagram(graphClient), tokens, prober, normalizer, policies, usecase.NewRealTimer),
		usecase.NewPlatformPublisher(graph.NewFacebook(graphClient), tokens, prober, normalizer, policies, usecase.NewRealTimer),
	}

	hub := realtime.NewJobHub()
	sinks := usecase.EventFanout{hub}
	switch cfg.Events.Sink {
	case "pubsub":
		client, err := pubsub.NewPubSub(ctx, cfg.Pubsub.ProjectID)
		if err != nil {
			lg.WithField("error", err).Error("Error while instantiate PubSub")
			break
		}
		publisher := pubsub.NewJobEventPublisher(client, cfg.Pubsub.Topic)
		defer publisher.Stop()
		sinks = append(sinks, publisher)
	case "servicebus":
		client, err := servicebus.NewServiceBus(ctx, cfg.ServiceBus.Namespace)
		if err != nil {
			lg.WithField("error", err).Warn("Azure Service Bus not available - job events stay local")
			break
		}
		sender, err := servicebus.NewJobEventSender(client, cfg.ServiceBus.Queue)
		if err != nil {
			lg.WithField("error", err).Warn("Azure Service Bus sender not available - job events stay local")
			break
		}
		defer sender.Close(context.Background())
		sinks = append(sinks, sender)
	}
	lg.WithField("sink", cfg.Events.Sink).Info("Job event sinks configured")

	orchestrator := usecase.NewPublishOrchestrator(publishers, credentialRepo, jobRepo, sinks, m, usecase.CaptionLimits{
		MaxHashtags: cfg.Publisher.MaxHashtags,
		MaxRunes:    cfg.Publisher.MaxCaptionRunes,
	})
	jobTimeout := time.Duration(cfg.Scheduler.JobTimeoutSeconds) * time.Second
	jobUsecase := usecase.NewPublishJobUsecase(jobRepo, orchestrator, jobTimeout, cfg.Publisher.MaxCaptionRunes)

	exchanger := oauth.NewFacebookCodeExchanger(fb.ClientID, fb.ClientSecret, fb.RedirectURI, fb.AuthURL, fb.TokenURL, fb.Scopes, providerHTTP)
	credentialUsecase := usecase.NewCredentialUsecase(credentialRepo, secretVault, tokens, prober, kv, exchanger,
		graph.NewFacebookAccounts(graphClient, fb.ClientID, fb.ClientSecret))

	router := server.InitiateRouter(server.Handlers{
		Health:        httpHandler.NewHealthHandler(),
		PublishJobs:   httpHandler.NewPublishJobHandler(jobUsecase),
		Credentials:   httpHandler.NewCredentialHandler(credentialUsecase),
		FacebookOAuth: httpHandler.NewFacebookOAuthHandler(credentialUsecase),
		JobStream:     hub.Serve,
		Metrics:       m.Handler(),
		Instrument:    m.Middleware(),
	}, cfg.App.SecretKey)

	if cfg.Scheduler.Enabled {
		scheduler := usecase.NewScheduler(jobRepo, orchestrator, usecase.SchedulerConfig{
			Tick:       time.Duration(cfg.Scheduler.TickSeconds) * time.Second,
			BatchSize:  cfg.Scheduler.BatchSize,
			JobTimeout: jobTimeout,
		})
		g.Go(func() error { return scheduler.Run(ctx) })
	}

	app := cfg.App
	lg.WithFields(map[string]interface{}{"port": app.Port, "tls": app.TLSEnabled}).Info("Starting application")
	httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		var err error
		if app.TLSEnabled && app.TLSCertFile != "" && app.TLSKeyFile != "" {
			lg.WithFields(map[string]interface{}{"cert": app.TLSCertFile, "key": app.TLSKeyFile}).Info("Serving HTTPS")
			err = httpServer.ListenAndServeTLS(app.TLSCertFile, app.TLSKeyFile)
		} else {
			if app.TLSEnabled {
				lg.Error("TLS enabled but cert or key path empty; falling back to HTTP")
			}
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		lg.Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	if err := g.Wait(); err != nil {
		lg.WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateCredentialStore picks the credential backend: MSSQL in production or
// when DB_VENDOR=mssql, PostgreSQL otherwise. The schema is ensured before use.
func InitiateCredentialStore() (repository.ICredential, *sql.DB, error) {
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			return nil, nil, fmt.Errorf("connect mssql: %w", err)
		}
		if err := persistence.EnsureCredentialSchemaMSSQL(db); err != nil {
			return nil, nil, err
		}
		return persistence.NewCredentialRepositoryMSSQL(db), db, nil
	}
	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := persistence.EnsureCredentialSchema(db); err != nil {
		return nil, nil, err
	}
	return persistence.NewCredentialRepository(db), db, nil
}
