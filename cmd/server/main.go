package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"medtrack/internal/clinic"
	"medtrack/internal/config"
	"medtrack/internal/handler"
	"medtrack/internal/metrics"
	"medtrack/internal/middleware"
	"medtrack/internal/notify"
	"medtrack/internal/session"
	"medtrack/internal/store"
	"medtrack/internal/view"
)

type backend interface {
	clinic.Users
	clinic.Appointments
	io.Closer
}

func main() {
	cfgPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	log := logrus.New()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	setupLogger(log, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("store")
	}
	defer db.Close()

	m := metrics.New()

	var pub notify.Publisher = notify.NopPublisher{}
	if cfg.NotifyTopic != "" {
		rp, err := notify.NewRedisPublisher(cfg.RedisURL, cfg.NotifyTopic)
		if err != nil {
			log.WithError(err).Fatal("redis publisher")
		}
		defer rp.Close()
		pub = rp
	}
	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Enabled:  cfg.EnableEmail,
		Host:     cfg.SMTPServer,
		Port:     cfg.SMTPPort,
		Sender:   cfg.SenderEmail,
		Password: cfg.SenderPassword,
	}, log)
	dispatcher := notify.NewDispatcher(mailer, pub, log,
		notify.WithCounter(m),
		notify.WithTimeout(cfg.NotifyTimeout),
		notify.WithRegion(cfg.Region),
	)

	svc := clinic.New(db, db, dispatcher, log).WithRecorder(m)

	views, err := view.New()
	if err != nil {
		log.WithError(err).Fatal("templates")
	}
	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rl.Stop()

	sm := session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)
	h := handler.New(svc, sm, views, rl, m, log)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", srv.Addr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
}

func setupLogger(log *logrus.Logger, cfg config.Config) {
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	} else {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (backend, error) {
	tables := store.Tables{Users: cfg.UsersTable, Appointments: cfg.AppointmentsTable}
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL, tables)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		log.Info("connected to postgres")
		return pg, nil
	default:
		b, err := store.OpenBolt(cfg.BoltPath, tables)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.BoltPath).Info("opened bolt store")
		return b, nil
	}
}
