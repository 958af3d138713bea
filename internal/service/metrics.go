package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	votesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtm_votes_total",
			Help: "Votes recorded on dilemmas.",
		},
		[]string{"vote"},
	)
	dilemmasServedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtm_dilemmas_served_total",
			Help: "Dilemmas returned by /get-dilemma.",
		},
		[]string{"language", "pool_reset"},
	)
	dilemmasGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtm_dilemmas_generated_total",
			Help: "AI generated dilemmas, by persistence outcome.",
		},
		[]string{"language", "outcome"},
	)
	storyNodeVotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtm_story_node_votes_total",
			Help: "Votes cast on story nodes.",
		},
		[]string{"vote", "complete"},
	)
	analyticsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtm_analytics_published_total",
			Help: "Analytics events handed to the queue.",
		},
		[]string{"action", "status"},
	)
)
