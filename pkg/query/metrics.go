package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels are the fixed operation names, so cardinality stays bounded.
var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "narrowphase_queries_total",
		Help: "Narrow phase queries run",
	}, []string{"op"})

	candidatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "narrowphase_candidates_total",
		Help: "Bodies the broad phase passed to the narrow phase",
	}, []string{"op"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "narrowphase_query_duration_seconds",
		Help:    "Time spent in a narrow phase query",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

const (
	opCastRay                  = "cast_ray"
	opCastRayCollect           = "cast_ray_collect"
	opCollidePoint             = "collide_point"
	opCollideShape             = "collide_shape"
	opCastShape                = "cast_shape"
	opCollectTransformedShapes = "collect_transformed_shapes"
)
