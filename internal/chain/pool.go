package chain

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/metrics"
)

// Pool rotates requests across several RPC endpoints. Endpoints that fail are
// benched for a cooldown window and skipped by Next until it expires.
type Pool struct {
	nodes   []*node
	counter atomic.Uint64
	logger  *zap.Logger

	cooldown time.Duration
}

type node struct {
	client *Client
	url    string

	mu         sync.RWMutex
	benchedTil time.Time
}

var ErrNoHealthyEndpoint = errors.New("no healthy RPC endpoint available")

func NewPool(rpcURLs []string, commitment string, logger *zap.Logger, recorder metrics.Recorder) (*Pool, error) {
	if len(rpcURLs) == 0 {
		return nil, errors.New("rpc url list is empty")
	}
	p := &Pool{
		logger:   logger.Named("rpc-pool"),
		cooldown: 15 * time.Second,
	}
	for _, url := range rpcURLs {
		p.nodes = append(p.nodes, &node{
			client: NewClient(url, commitment, logger, recorder),
			url:    url,
		})
	}
	return p, nil
}

func (n *node) healthy() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return time.Now().After(n.benchedTil)
}

func (n *node) bench(d time.Duration) {
	n.mu.Lock()
	n.benchedTil = time.Now().Add(d)
	n.mu.Unlock()
}

// Next returns the next healthy client in round-robin order. Falls back to
// the first endpoint when everything is benched, so callers always get a
// client to try.
func (p *Pool) Next() *Client {
	start := p.counter.Add(1)
	for i := uint64(0); i < uint64(len(p.nodes)); i++ {
		n := p.nodes[(start+i)%uint64(len(p.nodes))]
		if n.healthy() {
			return n.client
		}
	}
	p.logger.Warn("all RPC endpoints benched, falling back to first")
	return p.nodes[0].client
}

// MarkFailed benches the endpoint owning the given client.
func (p *Pool) MarkFailed(c *Client) {
	for _, n := range p.nodes {
		if n.client == c {
			n.bench(p.cooldown)
			p.logger.Warn("RPC endpoint benched", zap.String("url", n.url))
			return
		}
	}
}

// Size returns the number of configured endpoints.
func (p *Pool) Size() int {
	return len(p.nodes)
}
