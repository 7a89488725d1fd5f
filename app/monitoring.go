// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	connectionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cyberpixie_app_connections_accepted_total",
		Help: "Count of TCP connections accepted by the device server.",
	})

	requestsServed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cyberpixie_app_requests_served_total",
		Help: "Count of requests dispatched, by request kind.",
	},
		[]string{"kind"})

	requestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cyberpixie_app_request_errors_total",
		Help: "Count of requests that produced an Error response, by error kind.",
	},
		[]string{"kind"})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(connectionsAccepted, requestsServed, requestErrors)
}
