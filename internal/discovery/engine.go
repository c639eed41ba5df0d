package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jonesrussell/mxindex/internal/domain"
	"github.com/jonesrussell/mxindex/internal/logger"
)

// Config bounds a discovery run.
type Config struct {
	// MaxConcurrent is the number of servers whose peers are fetched in
	// parallel within a round.
	MaxConcurrent int
	// MaxDepth is the number of rounds walked from the seed servers.
	MaxDepth int
	// BatchSize caps the frontier carried into the next round.
	BatchSize int
	// ProbeTimeout bounds the work done for a single server.
	ProbeTimeout time.Duration
}

// Indexer adds servers to the index. Implemented by the service layer so that
// cache invalidation happens on every addition.
type Indexer interface {
	HasServer(ctx context.Context, serverDomain string) (bool, error)
	AddServer(ctx context.Context, serverDomain string) (*domain.Server, error)
}

// PeerSource yields the peer domains referenced by a server.
type PeerSource interface {
	FetchPeers(ctx context.Context, serverDomain string) ([]string, error)
}

// Recorder counts discovery outcomes for observability. A nil Recorder
// disables counting.
type Recorder interface {
	ServerIndexed()
	DiscoveryError(kind string)
}

// Result summarizes a discovery run. Added counts newly inserted records only;
// peers that were already indexed or whose probe failed do not count.
type Result struct {
	RunID  string `json:"run_id"`
	Rounds int    `json:"rounds"`
	Probed int    `json:"probed"`
	Added  int    `json:"added"`
	Failed int    `json:"failed"`
}

// Engine runs breadth-first discovery over the federation graph.
type Engine struct {
	indexer  Indexer
	peers    PeerSource
	recorder Recorder
	log      logger.Interface
	cfg      Config
}

// NewEngine creates a discovery engine.
func NewEngine(indexer Indexer, peers PeerSource, recorder Recorder, log logger.Interface, cfg Config) *Engine {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	return &Engine{
		indexer:  indexer,
		peers:    peers,
		recorder: recorder,
		log:      log,
		cfg:      cfg,
	}
}

// Run walks the federation graph starting from the seed servers. Each round
// fetches the peers of the current frontier in parallel, then indexes every
// peer not yet seen in this run and carries it into the next frontier. Seeds
// are entered into the seen set up front so a peer reference back to a seed is
// never revisited. The next frontier is truncated to BatchSize so one highly
// connected server cannot blow up the walk.
func (e *Engine) Run(ctx context.Context, seeds []string) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	log := e.log.With("run_id", result.RunID)

	seen := make(map[string]struct{})
	frontier := make([]string, 0, len(seeds))
	for _, s := range seeds {
		d := domain.NormalizeDomain(s)
		if !domain.ValidDomain(d) {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		frontier = append(frontier, d)
	}
	if len(frontier) == 0 {
		return nil, domain.NewError(domain.ErrInvalidDomain, "no valid seed servers")
	}

	log.Info("starting discovery run", "seeds", len(frontier), "max_depth", e.cfg.MaxDepth)

	for depth := 0; depth < e.cfg.MaxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			log.Warn("discovery run cancelled", "depth", depth)
			return result, err
		}

		log.Info("probing discovery round", "depth", depth, "servers", len(frontier))
		peerSets := e.fetchRound(ctx, log, frontier, result)
		result.Rounds++

		next := []string{}
		for _, peers := range peerSets {
			for _, p := range peers {
				d := domain.NormalizeDomain(p)
				if !domain.ValidDomain(d) {
					continue
				}
				if _, ok := seen[d]; ok {
					continue
				}
				seen[d] = struct{}{}
				next = append(next, d)
				if e.addServerToIndex(ctx, log, d) {
					result.Added++
				}
			}
		}

		if e.cfg.BatchSize > 0 && len(next) > e.cfg.BatchSize {
			next = next[:e.cfg.BatchSize]
		}
		frontier = next
	}

	log.Info("discovery run finished",
		"rounds", result.Rounds,
		"probed", result.Probed,
		"added", result.Added,
		"failed", result.Failed,
	)

	return result, nil
}

// fetchRound fetches the peers of every server in the frontier, at most
// MaxConcurrent at a time. A failing server loses its peers but never fails
// the round.
func (e *Engine) fetchRound(ctx context.Context, log logger.Interface, frontier []string, result *Result) [][]string {
	sem := semaphore.NewWeighted(int64(e.cfg.MaxConcurrent))

	var wg sync.WaitGroup
	var mu sync.Mutex
	peerSets := make([][]string, 0, len(frontier))

	for _, serverDomain := range frontier {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(serverDomain string) {
			defer wg.Done()
			defer sem.Release(1)

			fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
			defer cancel()

			peers, err := e.peers.FetchPeers(fetchCtx, serverDomain)

			mu.Lock()
			defer mu.Unlock()
			result.Probed++
			if err != nil {
				result.Failed++
				log.Warn("failed to fetch peers", "domain", serverDomain, "error", err)
				return
			}
			peerSets = append(peerSets, peers)
		}(serverDomain)
	}

	wg.Wait()
	return peerSets
}

// addServerToIndex inserts a newly seen domain if the index does not have it
// yet. Returns true only for a fresh insert; already indexed domains, probe
// failures, and insert races all report false and never fail the run.
func (e *Engine) addServerToIndex(ctx context.Context, log logger.Interface, serverDomain string) bool {
	addCtx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	known, err := e.indexer.HasServer(addCtx, serverDomain)
	if err != nil {
		e.recordError(domain.KindOf(err))
		log.Warn("failed to check server", "domain", serverDomain, "error", err)
		return false
	}
	if known {
		return false
	}

	if _, err := e.indexer.AddServer(addCtx, serverDomain); err != nil {
		// Concurrent runs can race on the same domain; an exists error just
		// means someone else won.
		if domain.KindOf(err) != domain.ErrServerExists {
			e.recordError(domain.KindOf(err))
			log.Warn("failed to index server", "domain", serverDomain, "error", err)
		}
		return false
	}

	if e.recorder != nil {
		e.recorder.ServerIndexed()
	}
	log.Info("indexed server", "domain", serverDomain)
	return true
}

func (e *Engine) recordError(kind domain.ErrorKind) {
	if e.recorder != nil {
		e.recorder.DiscoveryError(string(kind))
	}
}
