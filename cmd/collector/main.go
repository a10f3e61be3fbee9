package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/kirbo/go-telemetry/internal/archive"
	"github.com/kirbo/go-telemetry/internal/config"
	"github.com/kirbo/go-telemetry/internal/mirror"
)

func GinMiddleware(allowOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, Content-Length, Origin, Host, Connection, Accept-Encoding, Accept-Language, X-Requested-With")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Request.Header.Del("Origin")

		c.Next()
	}
}

func newSocketServer(c *collector) (*socketio.Server, error) {
	server, err := socketio.NewServer(nil)
	if err != nil {
		return nil, err
	}

	server.OnConnect(namespace, func(s socketio.Conn) error {
		s.Join(room)
		c.log.WithFields(logrus.Fields{"id": s.ID(), "clients": server.Count()}).Info("client connected")

		records, err := c.latest(context.Background())
		if err != nil {
			c.log.WithError(err).Warn("initial replay failed")
		}
		s.Emit(initialEvent, records)
		return nil
	})

	server.OnError(namespace, func(s socketio.Conn, e error) {
		c.log.WithError(e).Warn("socket error")
		if s != nil {
			s.Close()
		}
	})

	server.OnDisconnect(namespace, func(s socketio.Conn, reason string) {
		c.log.WithFields(logrus.Fields{"id": s.ID(), "reason": reason}).Info("client disconnected")
	})

	return server, nil
}

func main() {
	allowOrigin := flag.String("allow-origin", "*", "CORS origin for web clients")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	cfg := config.LoadCollector()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := archive.Open(cfg.Postgres)
	if err != nil {
		log.WithError(err).Fatal("connecting postgres")
	}
	defer db.Close()
	log.Info("connected to postgres")

	rdb := mirror.Connect(cfg.Redis)
	defer rdb.Close()

	c := &collector{rdb: rdb, store: archive.NewStore(db, cfg.Postgres.Table), log: log}

	server, err := newSocketServer(c)
	if err != nil {
		log.WithError(err).Fatal("creating socket.io server")
	}
	c.out = server
	go func() {
		if err := server.Serve(); err != nil {
			log.WithError(err).Error("socket.io server stopped")
		}
	}()
	defer server.Close()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), GinMiddleware(*allowOrigin))
	router.GET("/socket.io/*any", gin.WrapH(server))
	router.POST("/socket.io/*any", gin.WrapH(server))

	srv := &http.Server{Addr: cfg.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", cfg.Addr).Info("collector listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped")
			stop()
		}
	}()

	if err := c.subscribe(ctx); err != nil {
		log.WithError(err).Error("redis subscription ended")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
}
