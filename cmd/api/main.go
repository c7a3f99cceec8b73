package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/medcore/hospital-api/internal/config"
	"github.com/medcore/hospital-api/internal/guard"
	appointmenthandler "github.com/medcore/hospital-api/internal/handler/appointment"
	audithandler "github.com/medcore/hospital-api/internal/handler/audit"
	authhandler "github.com/medcore/hospital-api/internal/handler/auth"
	doctorhandler "github.com/medcore/hospital-api/internal/handler/doctor"
	patienthandler "github.com/medcore/hospital-api/internal/handler/patient"
	prescriptionhandler "github.com/medcore/hospital-api/internal/handler/prescription"
	recordhandler "github.com/medcore/hospital-api/internal/handler/record"
	userhandler "github.com/medcore/hospital-api/internal/handler/user"
	"github.com/medcore/hospital-api/internal/middleware"
	"github.com/medcore/hospital-api/internal/policy"
	"github.com/medcore/hospital-api/internal/repository/postgres"
	"github.com/medcore/hospital-api/internal/router"
	"github.com/medcore/hospital-api/internal/scheduler"
	auditservice "github.com/medcore/hospital-api/internal/service/audit"
	authservice "github.com/medcore/hospital-api/internal/service/auth"
	"github.com/medcore/hospital-api/internal/service/notification"
	pkgauth "github.com/medcore/hospital-api/pkg/auth"
	"github.com/medcore/hospital-api/pkg/logger"
	redisbroker "github.com/medcore/hospital-api/pkg/messaging/redis"
	"github.com/medcore/hospital-api/pkg/metrics"
	"github.com/medcore/hospital-api/pkg/security"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load config")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	zl := zerolog.New(os.Stdout).With().Timestamp().Logger()
	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &zl)
	if err != nil {
		// The decision log degrades to storage-only when the broker is down.
		log.Warn("redis broker unavailable, decision fan-out disabled", "error", err.Error())
		broker = nil
	} else {
		defer broker.Close()
	}

	m := metrics.NewMetrics("hospital")

	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	recordRepo := postgres.NewMedicalRecordRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	decisionRepo := postgres.NewDecisionRepository(db)

	auditSvc := auditservice.NewService(decisionRepo, broker, log, m)

	engine := policy.NewEngine(policy.DefaultRules())
	g := guard.NewGuard(engine, auditSvc, m)

	smtpCfg, err := notification.LoadSMTPConfig()
	if err != nil {
		log.Fatal(err, "failed to load SMTP config")
	}
	notifier := notification.NewService(smtpCfg, patientRepo, log)

	schedulerSvc := scheduler.NewService(appointmentRepo, scheduler.SystemClock(), auditSvc, notifier, log, m)

	jwtSvc := pkgauth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authSvc := authservice.NewService(userRepo, patientRepo, security.NewBcryptHasher(0), jwtSvc)

	authMw := middleware.NewAuthMiddleware(jwtSvc)

	guarded := []router.Handler{
		userhandler.NewHandler(userRepo, authSvc, g),
		patienthandler.NewHandler(patientRepo, g),
		doctorhandler.NewHandler(doctorRepo, g),
		appointmenthandler.NewHandler(schedulerSvc, g, appointmentRepo),
		recordhandler.NewHandler(recordRepo, g),
		prescriptionhandler.NewHandler(prescriptionRepo, g),
		audithandler.NewHandler(auditSvc, g),
	}

	r, err := router.NewRouter(authMw, authhandler.NewHandler(authSvc), guarded, m, router.Config{
		RateLimit: rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst: cfg.RateLimit.Burst,
	})
	if err != nil {
		log.Fatal(err, "failed to build router")
	}
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
}
