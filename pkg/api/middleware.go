package api

import (
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// corsMiddleware sets the CORS headers from the configured origin and
// answers preflight requests.
func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// localOnly guards the refresh endpoints: loopback peers only, and any
// request that arrived through a fronting proxy is rejected outright.
func localOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("CF-Connecting-IP") != "" {
			respondError(c, http.StatusForbidden, codeForbidden, "endpoint is not available through a proxy")
			return
		}
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			respondError(c, http.StatusForbidden, codeForbidden, "endpoint is restricted to localhost")
			return
		}
		c.Next()
	}
}

// trafficMinutes is the size of the per-minute ring buffer.
const trafficMinutes = 60

// trafficTopIPs bounds the per-IP listing in the traffic report.
const trafficTopIPs = 10

type minuteBucket struct {
	Minute string `json:"minute"` // RFC 3339, truncated to the minute
	Count  int    `json:"count"`
}

// trafficStats counts requests in total, per minute over the last hour, and
// per client IP.
type trafficStats struct {
	mu      sync.RWMutex
	total   int
	ring    [trafficMinutes]minuteBucket
	perIP   map[string]int
	started time.Time
	now     func() time.Time
}

func newTrafficStats() *trafficStats {
	return &trafficStats{
		perIP:   make(map[string]int),
		started: time.Now().UTC(),
		now:     time.Now,
	}
}

func (t *trafficStats) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		t.record(c.ClientIP())
		c.Next()
	}
}

func (t *trafficStats) record(ip string) {
	now := t.now().UTC().Truncate(time.Minute)
	key := now.Format(time.RFC3339)
	slot := int(now.Unix()/60) % trafficMinutes

	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	if t.ring[slot].Minute != key {
		t.ring[slot] = minuteBucket{Minute: key}
	}
	t.ring[slot].Count++
	if ip != "" {
		t.perIP[ip]++
	}
}

// TrafficReport is the payload of GET /api/traffic.
type TrafficReport struct {
	TotalRequests int            `json:"total_requests"`
	StartedAt     time.Time      `json:"started_at"`
	PerMinute     []minuteBucket `json:"per_minute"`
	TopIPs        []ipCount      `json:"top_ips"`
}

type ipCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

func (t *trafficStats) report() TrafficReport {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cutoff := t.now().UTC().Add(-trafficMinutes * time.Minute)
	report := TrafficReport{
		TotalRequests: t.total,
		StartedAt:     t.started,
		PerMinute:     []minuteBucket{},
		TopIPs:        []ipCount{},
	}
	for _, b := range t.ring {
		if b.Minute == "" {
			continue
		}
		when, err := time.Parse(time.RFC3339, b.Minute)
		if err != nil || when.Before(cutoff) {
			continue
		}
		report.PerMinute = append(report.PerMinute, b)
	}
	sort.Slice(report.PerMinute, func(i, j int) bool {
		return report.PerMinute[i].Minute < report.PerMinute[j].Minute
	})

	for ip, count := range t.perIP {
		report.TopIPs = append(report.TopIPs, ipCount{IP: ip, Count: count})
	}
	sort.Slice(report.TopIPs, func(i, j int) bool {
		if report.TopIPs[i].Count != report.TopIPs[j].Count {
			return report.TopIPs[i].Count > report.TopIPs[j].Count
		}
		return report.TopIPs[i].IP < report.TopIPs[j].IP
	})
	if len(report.TopIPs) > trafficTopIPs {
		report.TopIPs = report.TopIPs[:trafficTopIPs]
	}
	return report
}

// trafficHandler handles GET /api/traffic.
func (s *Server) trafficHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.traffic.report())
}
