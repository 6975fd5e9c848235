// Copyright 2025 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package indexsrv serves an index.RepositoryIndex over http so that
// workspaces on other machines can share it through index.RemoteRepositoryIndex.
package indexsrv

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dolthub/assetvcs/libraries/assetcore/index"
)

const DefaultMetricsPath = "/metrics"

type ServerArgs struct {
	Logger   *logrus.Entry
	Host     string
	Port     int
	Index    index.RepositoryIndex
	ReadOnly bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MetricsPath is where prometheus metrics are exposed. Metrics are not
	// served when it is empty.
	MetricsPath string
	Registry    *prometheus.Registry
}

type Server struct {
	wg       sync.WaitGroup
	stopChan chan struct{}

	lgr      *logrus.Entry
	ri       index.RepositoryIndex
	readOnly bool
	metrics  *serverMetrics

	httpSrv http.Server
}

func NewServer(args ServerArgs) (*Server, error) {
	if args.Logger == nil {
		args.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if args.Index == nil {
		return nil, fmt.Errorf("index server requires an index")
	}
	if args.Registry == nil {
		args.Registry = prometheus.NewRegistry()
	}

	metrics, err := newServerMetrics(args.Registry)
	if err != nil {
		return nil, err
	}

	s := &Server{
		stopChan: make(chan struct{}),
		lgr:      args.Logger,
		ri:       args.Index,
		readOnly: args.ReadOnly,
		metrics:  metrics,
	}

	router := s.routes()
	if args.MetricsPath != "" {
		router.Handler(http.MethodGet, args.MetricsPath, promhttp.HandlerFor(args.Registry, promhttp.HandlerOpts{}))
	}
	s.httpSrv = http.Server{
		Addr:         net.JoinHostPort(args.Host, fmt.Sprint(args.Port)),
		Handler:      router,
		ReadTimeout:  args.ReadTimeout,
		WriteTimeout: args.WriteTimeout,
	}
	return s, nil
}

// Handler returns the http.Handler serving the api, for embedding the server
// in tests or other muxes.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) Listener() (net.Listener, error) {
	return net.Listen("tcp", s.httpSrv.Addr)
}

// Serve blocks until GracefulStop is called or the listener fails.
func (s *Server) Serve(l net.Listener) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.stopChan
		s.httpSrv.Shutdown(context.Background())
	}()

	s.lgr.Infof("index server listening on %s", l.Addr())
	err := s.httpSrv.Serve(l)
	if err == http.ErrServerClosed {
		err = nil
	}
	s.lgr.Infof("index server exited. error: %v", err)
	return err
}

func (s *Server) GracefulStop() {
	close(s.stopChan)
	s.wg.Wait()
}

type serverMetrics struct {
	requests      *prometheus.CounterVec
	casRejections *prometheus.CounterVec
	lockConflicts prometheus.Counter
}

func newServerMetrics(reg prometheus.Registerer) (*serverMetrics, error) {
	m := &serverMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetvcs_index_requests",
			Help: "Count of index api requests by route and status code",
		}, []string{"route", "code"}),
		casRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetvcs_index_stale_branch_rejections",
			Help: "Count of branch updates rejected because the branch head had moved",
		}, []string{"repository"}),
		lockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assetvcs_index_lock_conflicts",
			Help: "Count of lock requests for paths that were already locked",
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.casRejections, m.lockConflicts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
