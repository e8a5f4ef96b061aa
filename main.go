package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evhub/src-server/metric"
	"evhub/src-server/route"
	"evhub/src-server/scheduler"
	"evhub/src-server/utils"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Info(err.Error())
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC1123Z,
		}),
	))
}

func main() {
	as, err := utils.NewAppState(utils.NewConfig())
	if err != nil {
		slog.Error("can't create app state", "error", err)
		os.Exit(1)
	}

	go metric.Init(as)
	go scheduler.EventReminder(as)

	// http server
	go func() {
		muxer := http.NewServeMux()
		muxer.Handle("GET /metrics", promhttp.Handler())
		route.Auth(muxer, as)
		route.Events(muxer, as)
		route.Attendees(muxer, as)
		route.Admin(muxer, as)
		route.Support(muxer, as)
		route.Notifications(muxer, as)
		route.SPA(muxer, as)
		slog.Info("listening", "port", as.Config.GetPort(), "store", as.Config.GetStoreBackend())
		if err := http.ListenAndServe(":"+as.Config.GetPort(), muxer); err != nil {
			slog.Error("cannot start HTTP server", "error", err)
			as.AppCloseSignalChan <- syscall.SIGTERM
		}
	}()

	slog.Info("app is now running, press Ctrl+C to exit")

	signal.Notify(as.AppCloseSignalChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-as.AppCloseSignalChan
	as.GracefulShutdown()

	slog.Info("Gracefully shutting down...")
}
