package environment

import (
	"context"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Endpoints is one backend base URL set, one entry per conversation mode
// plus the shared history base.
type Endpoints struct {
	Advisor string
	Auditor string
	History string
}

// Config drives environment selection.
type Config struct {
	// Hostname of the page embedding the widget. Recognized local
	// hostnames short-circuit to the local endpoint set.
	Hostname string
	// ProbeURL serves the hosting-config document used to distinguish
	// production from development deployments.
	ProbeURL string
	// ProductionProjectID is the project identifier the probe must report
	// to select production endpoints.
	ProductionProjectID string

	Local      Endpoints
	Dev        Endpoints
	Production Endpoints
}

type probeDocument struct {
	ProjectID string `json:"projectId"`
}

// Resolver settles the backend endpoint set exactly once per process.
// Every outbound call awaits the settled value; the probe never runs twice.
type Resolver struct {
	cfg  Config
	http *resty.Client
	log  zerolog.Logger

	once     sync.Once
	resolved Endpoints
}

// NewResolver builds a resolver; resolution is deferred until first use.
func NewResolver(cfg Config, log zerolog.Logger) *Resolver {
	return &Resolver{
		cfg:  cfg,
		http: resty.New(),
		log:  log.With().Str("component", "environment").Logger(),
	}
}

// Resolve returns the settled endpoint set, computing it on first call.
// Resolution order: local hostname wins synchronously; otherwise one probe
// request decides between production and development, with development as
// the fallback on any probe failure.
func (r *Resolver) Resolve(ctx context.Context) Endpoints {
	r.once.Do(func() {
		r.resolved = r.resolve(ctx)
	})
	return r.resolved
}

func (r *Resolver) resolve(ctx context.Context) Endpoints {
	if isLocalHostname(r.cfg.Hostname) {
		r.log.Debug().Str("hostname", r.cfg.Hostname).Msg("local hostname, using local endpoints")
		return r.cfg.Local
	}

	var doc probeDocument
	resp, err := r.http.R().
		SetContext(ctx).
		SetResult(&doc).
		Get(r.cfg.ProbeURL)
	if err != nil || resp.IsError() {
		r.log.Warn().Err(err).Msg("hosting config probe failed, defaulting to development endpoints")
		return r.cfg.Dev
	}

	if doc.ProjectID == r.cfg.ProductionProjectID {
		r.log.Debug().Str("project_id", doc.ProjectID).Msg("production project detected")
		return r.cfg.Production
	}
	return r.cfg.Dev
}

func isLocalHostname(hostname string) bool {
	switch hostname {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
