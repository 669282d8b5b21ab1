package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/adapt/pkg/future"
	"github.com/me/adapt/pkg/learner"
	"github.com/me/adapt/pkg/pool"
)

// Pool submits evaluations to one or more remote eval workers. It implements
// pool.Pool[float64, float64]; capacity is the sum of the workers reported by
// each endpoint at dial time.
//
// The function to evaluate is fixed by name when the pool is dialed, because
// evaluation happens on the worker. The fn argument to Submit is ignored.
type Pool struct {
	function   string
	endpoints  []string
	capacity   int
	httpClient *http.Client
	logger     *slog.Logger

	next   atomic.Uint64
	closed atomic.Bool
	wg     sync.WaitGroup
}

var (
	_ pool.Pool[float64, float64] = (*Pool)(nil)
	_ pool.Sized                  = (*Pool)(nil)
)

// Dial connects to each endpoint, verifies it serves the named function, and
// returns a Pool whose capacity is the endpoints' combined worker count.
func Dial(ctx context.Context, function string, endpoints []string, logger *slog.Logger) (*Pool, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("dial: no endpoints")
	}

	p := &Pool{
		function:  function,
		endpoints: endpoints,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.With("component", "remote-pool"),
	}

	for _, ep := range endpoints {
		info, err := p.fetchInfo(ctx, ep)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", ep, err)
		}
		if !serves(info, function) {
			return nil, fmt.Errorf("dial %s: function %q not served (available: %v)", ep, function, info.Functions)
		}
		p.capacity += info.Workers
	}

	p.logger.Info("dialed eval workers",
		"endpoints", len(endpoints), "capacity", p.capacity, "function", function)
	return p, nil
}

// Workers returns the combined capacity of all endpoints.
func (p *Pool) Workers() int {
	return p.capacity
}

// Submit sends x to the next endpoint round-robin. The fn argument is
// ignored; the pool's named function is evaluated on the worker.
func (p *Pool) Submit(ctx context.Context, _ learner.Func[float64, float64], x float64) *future.Future[float64] {
	fut := future.New[float64]()
	if p.closed.Load() {
		fut.Reject(pool.ErrPoolClosed)
		return fut
	}

	ep := p.endpoints[p.next.Add(1)%uint64(len(p.endpoints))]

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if !fut.MarkRunning() {
			return
		}
		y, err := p.eval(ctx, ep, x)
		if err != nil {
			fut.Reject(err)
			return
		}
		fut.Resolve(y)
	}()
	return fut
}

// Shutdown waits for in-flight evaluations and closes idle connections.
// It is idempotent.
func (p *Pool) Shutdown() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.wg.Wait()
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *Pool) eval(ctx context.Context, endpoint string, x float64) (float64, error) {
	body, err := json.Marshal(EvalRequest{Function: p.function, X: x})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		endpoint+"/api/v1/eval", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("eval: %w", err)
	}

	var result EvalResult
	if err := decodeResponseData(resp, &result); err != nil {
		return 0, fmt.Errorf("eval: %w", err)
	}
	return result.Y, nil
}

func (p *Pool) fetchInfo(ctx context.Context, endpoint string) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/api/v1/info", nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("info: %w", err)
	}

	var info Info
	if err := decodeResponseData(resp, &info); err != nil {
		return nil, fmt.Errorf("info: %w", err)
	}
	return &info, nil
}

func serves(info *Info, function string) bool {
	for _, name := range info.Functions {
		if name == function {
			return true
		}
	}
	return false
}

// decodeResponseData extracts the data field from the API response envelope.
func decodeResponseData(resp *http.Response, dest any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *APIError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}

	return json.Unmarshal(envelope.Data, dest)
}
