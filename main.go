package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mercadito-api/cache"
	"mercadito-api/config"
	"mercadito-api/database"
	"mercadito-api/handlers"
	"mercadito-api/metrics"
	"mercadito-api/middleware"
	"mercadito-api/notifications"
	"mercadito-api/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Configuración inválida")
	}
	if cfg.Production() {
		log.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoName, cfg.MongoTransactions)
	if err != nil {
		cancel()
		log.WithError(err).Fatal("No se pudo conectar a MongoDB")
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("No se pudieron crear los índices")
	}
	cancel()
	log.WithField("db", cfg.MongoName).Info("Conectado a MongoDB")

	stores := db.Stores()

	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			log.WithError(err).Warn("Redis no disponible, productos sin caché")
		} else {
			defer client.Close()
			stores.Products = cache.NewProducts(stores.Products, client, cfg.ProductCacheTTL, log)
			log.WithField("addr", cfg.RedisAddr).Info("Caché de productos activa")
		}
	}

	dispatcher, err := notifications.New(cfg.Mail, log)
	if err != nil {
		log.WithError(err).Fatal("Configuración de correo inválida")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	payments := services.NewPaymentService(stores, dispatcher, log, services.PaymentConfig{
		EnforceOwnership: cfg.EnforcePaymentOwnership,
	})
	payments.Observer = m

	api := &handlers.API{
		Stores:   stores,
		Payments: payments,
		Orders:   services.NewOrderService(stores),
		Tokens:   middleware.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Config:   cfg,
		Log:      log,
		DB:       db,
		Metrics:  m,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("🚀 Servidor corriendo en modo %s en http://localhost:%s", cfg.Env, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Error del servidor")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Apagando servidor...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Cierre forzado del servidor")
	}
	if err := db.Disconnect(shutdownCtx); err != nil {
		log.WithError(err).Warn("Error al desconectar MongoDB")
	}
}
