// Package diag serves a small read-only HTTP view of the publisher: cycle
// counters, the last cycle's outcome and the last inbound message.
package diag

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kirbo/go-telemetry/internal/models"
	"github.com/kirbo/go-telemetry/internal/publisher"
)

type Source interface {
	Status() publisher.Status
	Inbox() *publisher.Inbox
}

type cycleView struct {
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	Reached    string    `json:"reached"`
	Length     int       `json:"length"`
	Truncated  bool      `json:"truncated"`
	Published  bool      `json:"published"`
	ConnectErr string    `json:"connectError,omitempty"`
	AcquireErr string    `json:"acquireError,omitempty"`
	EncodeErr  string    `json:"encodeError,omitempty"`
	PublishErr string    `json:"publishError,omitempty"`
	Battery    int32     `json:"battery"`
	Millivolts uint32    `json:"millivolts"`
}

type statusView struct {
	State     string     `json:"state"`
	Cycles    uint64     `json:"cycles"`
	Published uint64     `json:"published"`
	Failed    uint64     `json:"failed"`
	Last      *cycleView `json:"last,omitempty"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func view(s publisher.Status) statusView {
	v := statusView{
		State:     s.State.String(),
		Cycles:    s.Cycles,
		Published: s.Published,
		Failed:    s.Failed,
	}
	if s.Cycles == 0 {
		return v
	}
	r := s.Last
	v.Last = &cycleView{
		Started:    r.Started,
		Finished:   r.Finished,
		Reached:    r.Reached.String(),
		Length:     r.Length,
		Truncated:  r.Truncated,
		Published:  r.Published,
		ConnectErr: errString(r.ConnectErr),
		AcquireErr: errString(r.AcquireErr),
		EncodeErr:  errString(r.EncodeErr),
		PublishErr: errString(r.PublishErr),
		Battery:    r.Sample.BatteryPercent,
		Millivolts: r.Sample.BatteryMillivolts,
	}
	return v
}

// Router builds the diagnostics routes.
func Router(src Source) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		s := src.Status()
		if s.Cycles > 0 && !s.Last.Published {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "reached": s.Last.Reached.String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, view(src.Status()))
	})

	router.GET("/inbox", func(c *gin.Context) {
		var msg models.IncomingMessage
		if in := src.Inbox(); in != nil {
			msg = in.Snapshot()
		}
		c.JSON(http.StatusOK, msg)
	})

	return router
}

// Serve runs handler on addr until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("diagnostics listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
