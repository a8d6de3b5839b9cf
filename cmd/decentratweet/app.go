package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/MosinFAM/decentratweet/internal/api"
	"github.com/MosinFAM/decentratweet/internal/feed"
	"github.com/MosinFAM/decentratweet/internal/logging"
	"github.com/MosinFAM/decentratweet/internal/notify"
	"github.com/MosinFAM/decentratweet/internal/reconcile"
)

// Client-side mutation counters, written out by --metrics-file when the
// command finishes.
var (
	clientRegistry = prometheus.NewRegistry()
	clientMetrics  = reconcile.NewMetrics(clientRegistry)
)

// flushMetrics writes the client counters in the node exporter textfile format.
func flushMetrics() {
	if metricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(metricsFile, clientRegistry); err != nil {
		log.WithError(err).WithField("path", metricsFile).Warn("write metrics")
	}
}

func newClient() (*api.Client, error) {
	return api.NewClient(cfg.API.BaseURL, cfg.API.RequestTimeout, api.WithLogger(logging.For("api")))
}

// toasts prints notifications to w the way the web client shows them.
func toasts(w io.Writer) notify.Notifier {
	return notify.Func(func(n notify.Notification) {
		if n.Level == notify.LevelError {
			fmt.Fprintf(w, "✗ %s\n", n.Message)
			return
		}
		fmt.Fprintf(w, "✓ %s\n", n.Message)
	})
}

func feedOptions() feed.Options {
	return feed.Options{
		PageSize: cfg.Feed.PageSize,
		Timeout:  cfg.API.RequestTimeout,
		Executor: &reconcile.GoExecutor{},
		Metrics:  clientMetrics,
		Notifier: notify.Multi(toasts(os.Stderr), notify.Log{Entry: logging.For("notify")}),
	}
}

func identity() feed.Identity {
	return feed.StaticIdentity(cfg.Wallet.Address)
}

func likedLabel(liked bool) string {
	if liked {
		return "liked"
	}
	return "unliked"
}
