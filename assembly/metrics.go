// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package assembly

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics counts the work done by Segmenters.  A nil *Metrics is valid and
// records nothing.  Thread safe.
type Metrics struct {
	loci        prometheus.Counter
	regions     *prometheus.CounterVec
	reads       prometheus.Counter
	regionSizes prometheus.Histogram
	forced      prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg, unless reg is
// nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loci: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assembly_loci_total",
			Help: "Number of loci evaluated for activity",
		}),
		regions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assembly_regions_total",
			Help: "Number of assembly regions produced",
		}, []string{"active"}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assembly_region_reads_total",
			Help: "Number of reads attached to regions, counting shared reads once per region",
		}),
		regionSizes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assembly_region_size_bases",
			Help:    "Unpadded region sizes",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		forced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assembly_forced_conversions_total",
			Help: "Number of times the activity profile was flushed at a gap, contig change or end of shard",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.loci, m.regions, m.reads, m.regionSizes, m.forced)
	}
	return m
}

func (m *Metrics) observeLocus() {
	if m != nil {
		m.loci.Inc()
	}
}

func (m *Metrics) observeForced() {
	if m != nil {
		m.forced.Inc()
	}
}

func (m *Metrics) observeRegion(r *Region) {
	if m == nil {
		return
	}
	m.regions.WithLabelValues(strconv.FormatBool(r.Active)).Inc()
	m.reads.Add(float64(len(r.Reads)))
	m.regionSizes.Observe(float64(r.Span.Len()))
}

// String summarizes the counters as tab-separated values: loci, active
// regions, inactive regions, reads, forced conversions.
func (m *Metrics) String() string {
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%v\t%v\t%v\t%v\t%v",
		counterValue(m.loci),
		counterValue(m.regions.WithLabelValues("true")),
		counterValue(m.regions.WithLabelValues("false")),
		counterValue(m.reads),
		counterValue(m.forced))
}

func counterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
