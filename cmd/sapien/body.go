package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-sapien/internal/config"
	"github.com/teslashibe/go-sapien/internal/log"
	"github.com/teslashibe/go-sapien/pkg/actuator"
	"github.com/teslashibe/go-sapien/pkg/body"
	"github.com/teslashibe/go-sapien/pkg/hub"
	"github.com/teslashibe/go-sapien/pkg/mcp23017"
	"github.com/teslashibe/go-sapien/pkg/metrics"
	"github.com/teslashibe/go-sapien/pkg/motion"
	"github.com/teslashibe/go-sapien/pkg/notify"
	"github.com/teslashibe/go-sapien/pkg/sensor"
)

// robotBody is every long-lived part of a running controller.
type robotBody struct {
	bank    *actuator.Bank
	feed    *sensor.Feed
	disp    *body.Dispatcher
	metrics *metrics.Metrics
	events  *hub.Hub
	closers []func() error
}

// assemble wires expanders, motion, sinks and the dispatcher from cfg and
// starts the worker.
func assemble(ctx context.Context, cfg config.Config) (*robotBody, error) {
	rb := &robotBody{
		feed:    sensor.NewFeed(),
		metrics: metrics.New(true),
		events:  hub.New("events"),
	}

	var primary, secondary actuator.Expander
	if cfg.I2C.Simulate {
		primary, secondary = actuator.NewMemory(), actuator.NewMemory()
		log.Info("using simulated expanders")
	} else {
		bus, err := mcp23017.Open(cfg.I2C.Bus, cfg.I2C.Primary, cfg.I2C.Secondary)
		if err != nil {
			return nil, err
		}
		rb.closers = append(rb.closers, bus.Close)
		primary, secondary = bus.Devs[0], bus.Devs[1]
		log.Info("expanders opened", "bus", cfg.I2C.Bus, "primary", fmt.Sprintf("%#02x", cfg.I2C.Primary), "secondary", fmt.Sprintf("%#02x", cfg.I2C.Secondary))
	}

	rb.bank = actuator.NewBank(primary, secondary, actuator.WithWriteErrorHook(rb.metrics.WriteError))

	mc := motion.New(rb.bank, rb.feed, rb.feed,
		motion.WithTiming(cfg.MotionTiming()),
		motion.WithTurnLimits(cfg.TurnLimits()),
		motion.WithStopDistance(cfg.Walk.StopDistanceMM),
		motion.WithTurnTrace(rb.metrics.TurnTrace),
		motion.WithCycleTrace(rb.metrics.GaitCycle),
	)

	sinks := notify.Multi{
		notify.LogSink{Logger: log.Component("notify")},
		notify.HubSink{Hub: rb.events},
	}
	if cfg.Master.URL != "" {
		ms := notify.NewMasterSink(cfg.Master.URL, notify.WithBuffer(cfg.Master.Buffer))
		sinks = append(sinks, ms)
		rb.closers = append(rb.closers, ms.Close)
		log.Info("master notifications enabled", "url", cfg.Master.URL)
	}
	if cfg.Redis.Addr != "" {
		rs := notify.NewRedisSink(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			notify.WithChannel(cfg.Redis.Channel),
			notify.WithHistory(cfg.Redis.History))
		sinks = append(sinks, rs)
		rb.closers = append(rb.closers, rs.Close)
		log.Info("redis notifications enabled", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	rb.disp = body.New(rb.bank, mc,
		body.WithQueueDepth(cfg.QueueDepth),
		body.WithCommandGap(cfg.Timing.CommandGap),
		body.WithStopSettle(cfg.Timing.StopSettle),
		body.WithSink(sinks),
		body.WithObserver(rb.metrics),
	)
	if err := rb.disp.Begin(ctx, cfg.Worker); err != nil {
		rb.close()
		return nil, err
	}
	return rb, nil
}

// close stops the dispatcher first so every output is off before the bus
// and sinks go away.
func (rb *robotBody) close() error {
	var errs []error
	if rb.disp != nil {
		errs = append(errs, rb.disp.Close())
	}
	for i := len(rb.closers) - 1; i >= 0; i-- {
		errs = append(errs, rb.closers[i]())
	}
	return errors.Join(errs...)
}
