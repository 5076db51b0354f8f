package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kapitalist_accounts_registered_total",
		Help: "Total number of accounts registered",
	})

	opsSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kapitalist_resources_sold_total",
		Help: "Total number of direct resource sales",
	})

	opsProductionStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kapitalist_production_runs_started_total",
		Help: "Total number of production runs started",
	})

	opsListingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kapitalist_market_listings_created_total",
		Help: "Total number of market listings created",
	})

	opsListingsBought = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kapitalist_market_listings_bought_total",
		Help: "Total number of market listings purchased",
	})
)
