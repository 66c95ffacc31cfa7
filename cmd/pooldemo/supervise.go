package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// helper runs beside the transaction sequence until listening stops.
type helper struct {
	name string
	run  func(ctx context.Context) error
}

// runSequence runs seq on ctx while the helpers run on a child context. A
// helper that fails is logged and left stopped; it never cancels seq. After
// seq returns, helpers keep running for listenFor, or until ctx is done when
// listenFor is zero.
func runSequence(ctx context.Context, log *logrus.Entry, listenFor time.Duration, seq func(context.Context) error, helpers ...helper) {
	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()

	var g errgroup.Group
	for _, h := range helpers {
		h := h
		g.Go(func() error {
			if err := h.run(listenCtx); err != nil {
				log.WithError(err).WithField("helper", h.name).Error("background task stopped")
			}
			return nil
		})
	}

	if err := seq(ctx); err != nil {
		log.WithError(err).Error("pool setup failed")
	} else {
		log.Info("pool setup complete")
	}

	if listenFor <= 0 {
		log.Info("listening for events, Ctrl+C to stop")
		<-ctx.Done()
	} else {
		log.WithField("for", listenFor).Info("listening for events")
		select {
		case <-time.After(listenFor):
		case <-ctx.Done():
		}
	}
	stopListening()
	_ = g.Wait()
}
