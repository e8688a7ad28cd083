package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osr-alliance/backend-crm/api"
	"github.com/osr-alliance/backend-crm/backup"
	"github.com/osr-alliance/backend-crm/config"
	"github.com/osr-alliance/backend-crm/otp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API on http_addr (default :3000).

Examples:
  # Serve with environment configuration only
  REDIS_HOST=redis crmd serve

  # Serve with a config file and nightly snapshots to postgres
  crmd serve --config crmd.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, client, err := setup()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logrus.WithField("component", "crmd")

	// a down redis is not fatal; requests fail with 500 until it comes back
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis is not reachable yet")
	}

	st, err := openStore(cfg, client)
	if err != nil {
		return err
	}

	otpService, err := newOTPService(cfg)
	if err != nil {
		return err
	}

	backups := backup.New(st, nil)

	if cfg.BackupSchedule != "" {
		scheduler, closeArchive, err := startSnapshots(ctx, cfg, backups)
		if err != nil {
			return err
		}
		defer closeArchive()
		defer scheduler.Stop()
	}

	handler, err := api.New(&api.Config{
		Store:    st,
		OTP:      otpService,
		Redis:    client,
		Exporter: backups,
		ConnectionInfo: api.ConnectionInfo{
			Host:        cfg.RedisHost,
			Port:        cfg.RedisPort,
			HasPassword: cfg.RedisPassword != "",
		},
		AllowOTPInResponse: cfg.AllowOTPInResponse,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		Logger:             logrus.NewEntry(logrus.StandardLogger()),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newOTPService(cfg *config.Config) (*otp.Service, error) {
	log := logrus.WithField("component", "otp")
	conf := &otp.Config{Logger: log}

	if !cfg.SMSEnabled() {
		log.Warn("sms gateway disabled; verification codes are only logged")
		return otp.New(conf), nil
	}

	sender, err := otp.NewTencentSender(&otp.TencentConfig{
		SecretID:   cfg.TencentSecretID,
		SecretKey:  cfg.TencentSecretKey,
		SdkAppID:   cfg.SMSSdkAppID,
		TemplateID: cfg.SMSTemplateID,
		SignName:   cfg.SMSSignName,
		Region:     cfg.SMSRegion,
	})
	switch {
	case errors.Is(err, otp.ErrSMSNotConfigured):
		log.WithError(err).Warn("sms gateway enabled but incomplete; verification codes are only logged")
	case err != nil:
		return nil, err
	default:
		conf.Sender = sender
	}
	return otp.New(conf), nil
}

// startSnapshots opens the archive and starts the cron job; the returned func closes the archive
func startSnapshots(ctx context.Context, cfg *config.Config, backups *backup.Service) (*backup.Scheduler, func(), error) {
	archive, err := backup.OpenSnapshotStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	scheduler := backup.NewScheduler(backups, archive, time.UTC)
	if _, err := scheduler.Schedule(cfg.BackupSchedule); err != nil {
		archive.Close()
		return nil, nil, err
	}
	scheduler.Start()

	logrus.WithField("schedule", cfg.BackupSchedule).Info("snapshot job scheduled")
	return scheduler, func() { archive.Close() }, nil
}
