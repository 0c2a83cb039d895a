/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/gauge the supervisor exposes. Built on a
// private prometheus.Registry rather than the global DefaultRegisterer
// so repeated Start/Stop in tests never collides on double-registration.
type Metrics struct {
	Registry *prometheus.Registry
	Reloads  prometheus.Counter
	Children *prometheus.GaugeVec
	Reaped   *prometheus.CounterVec
	Disabled *prometheus.GaugeVec
}

// NewMetrics builds and registers the metric set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		Reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xinetd",
			Name:      "reloads_total",
			Help:      "Number of successful registry reloads.",
		}),
		Children: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xinetd",
			Name:      "children",
			Help:      "Live child processes per service.",
		}, []string{"service"}),
		Reaped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xinetd",
			Name:      "reaped_total",
			Help:      "Children reaped, labeled by exit outcome.",
		}, []string{"service", "outcome"}),
		Disabled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xinetd",
			Name:      "service_disabled",
			Help:      "1 while a service is disabled (max_child or looping), 0 otherwise.",
		}, []string{"service"}),
	}

	reg.MustRegister(m.Reloads, m.Children, m.Reaped, m.Disabled)
	return m
}
