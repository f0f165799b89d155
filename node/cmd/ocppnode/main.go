// Copyright 2026 The ocppnode Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gridlink/ocppnode/node"
	"github.com/gridlink/ocppnode/node/config"
	"github.com/gridlink/ocppnode/node/journal"
	"github.com/gridlink/ocppnode/node/mgmtapi"
	"github.com/gridlink/ocppnode/node/policy"
	"github.com/gridlink/ocppnode/node/transport/ws"
	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/forwarding/catalog"
	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/processmetrics"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
	"github.com/gridlink/ocppnode/private/app/command"
	"github.com/gridlink/ocppnode/private/app/launcher"
	"github.com/gridlink/ocppnode/private/env"
	"github.com/gridlink/ocppnode/private/periodic"
	"github.com/gridlink/ocppnode/private/storage/cleaner"
)

var globalCfg config.Config

func main() {
	application := launcher.Application{
		TOMLConfig: &globalCfg,
		ShortName:  "OCPP Networking Node",
		Commands:   []func(command.Pather) *cobra.Command{newOperations},
		Main:       realMain,
	}
	application.Run()
}

func realMain(ctx context.Context) error {
	id := envelope.NodeID(globalCfg.General.ID)
	defaultPolicy, err := globalCfg.Forwarding.Policy()
	if err != nil {
		return err
	}
	tracer, closer, err := globalCfg.Tracing.NewTracer(globalCfg.General.ID)
	if err != nil {
		return serrors.Wrap("initializing tracer", err)
	}
	defer closer.Close()
	opentracing.SetGlobalTracer(tracer)
	if err := processmetrics.Init(nil); err != nil {
		log.Info("Process metrics unavailable", "err", err)
	}

	adapter, err := newAdapter(id, defaultPolicy, globalCfg.Policy,
		forwarding.NewMetrics(), tracer)
	if err != nil {
		return err
	}
	var store *journal.Journal
	if globalCfg.Journal.Enabled() {
		store, err = journal.New(ctx, globalCfg.Journal.Path, nil)
		if err != nil {
			return serrors.Wrap("opening decision journal", err)
		}
		defer store.Close()
		if _, err := store.Attach(adapter); err != nil {
			return serrors.Wrap("attaching decision journal", err)
		}
	}

	conns := node.NewConnections()
	n, err := node.New(node.Config{
		Adapter:        adapter,
		Connections:    conns,
		DefaultTimeout: globalCfg.Forwarding.DefaultTimeout.Duration,
		SendTimeout:    globalCfg.Forwarding.SendTimeout.Duration,
		DedupSize:      globalCfg.Forwarding.DedupCacheSize,
		Logger:         log.New(),
		Metrics:        node.NewMetrics(),
	})
	if err != nil {
		return serrors.Wrap("creating node", err)
	}

	sweep := globalCfg.Forwarding.SweepInterval.Duration
	sweeper := periodic.StartWithMetrics(n.Table(),
		periodic.NewMetrics("ocppnode_correlation_sweeper"), sweep, sweep)
	defer sweeper.Kill()
	if store != nil {
		interval := globalCfg.Journal.CleanInterval.Duration
		journalCleaner := periodic.StartWithMetrics(
			store.Cleaner(globalCfg.Journal.Retention.Duration, cleaner.NewMetrics("journal")),
			periodic.NewMetrics("ocppnode_journal_cleaner"),
			interval, interval,
		)
		defer journalCleaner.Kill()
	}

	g, errCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer log.HandlePanic()
		return globalCfg.Metrics.ServePrometheus(errCtx)
	})
	server := ws.NewServer(globalCfg.Transport, n, conns, nil)
	g.Go(func() error {
		defer log.HandlePanic()
		return server.ListenAndServe(errCtx, globalCfg.Transport.Listen)
	})
	if globalCfg.Transport.HasUplink() {
		uplink := ws.NewUplink(globalCfg.Transport, id, n, conns, nil)
		g.Go(func() error {
			defer log.HandlePanic()
			return uplink.Run(errCtx)
		})
	}
	if globalCfg.API.Addr != "" {
		api := &mgmtapi.Server{
			Operations: adapter,
			Pending:    n.Table(),
			Peers:      conns,
			Config:     &globalCfg,
			Version:    env.StartupVersion,
		}
		if store != nil {
			api.Decisions = store
		}
		g.Go(func() error {
			defer log.HandlePanic()
			return serveAPI(errCtx, globalCfg.API.Addr, api.Handler())
		})
	}
	log.Info("Networking node started", "id", id, "default_policy", defaultPolicy,
		"operations", len(adapter.Actions()))
	return g.Wait()
}

// newAdapter creates the forwarding adapter with all operations and the
// configured policies installed.
func newAdapter(
	id envelope.NodeID,
	defaultPolicy forwarding.Result,
	policies policy.Config,
	metrics *forwarding.Metrics,
	tracer opentracing.Tracer,
) (*forwarding.Adapter, error) {

	adapter, err := forwarding.NewAdapter(forwarding.Config{
		Owner:         id,
		DefaultPolicy: defaultPolicy,
		Logger:        log.New("component", "forwarding"),
		Metrics:       metrics,
		Tracer:        tracer,
	})
	if err != nil {
		return nil, serrors.Wrap("creating forwarding adapter", err)
	}
	if _, err := catalog.Register(adapter); err != nil {
		return nil, serrors.Wrap("registering operations", err)
	}
	installed, err := policy.New(policies, id)
	if err != nil {
		return nil, serrors.Wrap("creating policies", err)
	}
	if _, err := policy.Install(adapter, installed...); err != nil {
		return nil, serrors.Wrap("installing policies", err)
	}
	return adapter, nil
}

func serveAPI(ctx context.Context, addr string, h http.Handler) error {
	s := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		defer log.HandlePanic()
		<-ctx.Done()
		s.Close()
	}()
	log.Info("Exposing API", "addr", addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return serrors.Wrap("serving management API", err)
	}
	return nil
}
