package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/pkg/logger"
)

// Config bounds the search
type Config struct {
	Timeout   time.Duration
	MaxNodes  int
	Tolerance float64 // simplex tolerance
}

// DefaultConfig returns default solver configuration
func DefaultConfig() Config {
	return Config{
		Timeout:   300 * time.Millisecond,
		MaxNodes:  5000,
		Tolerance: 1e-10,
	}
}

// lpFunc matches lp.Simplex
type lpFunc func(c []float64, A mat.Matrix, b []float64, tol float64, initialBasic []int) (float64, []float64, error)

var (
	errTimeout  = errors.New("solver time budget exceeded")
	errMaxNodes = errors.New("solver node budget exceeded")
)

// Solver solves Problem by branch and bound over LP relaxations
// ⭐ SSOT: 정수계획 풀이는 여기서만 (상태는 contracts.SolverStatus로 정규화)
type Solver struct {
	cfg     Config
	simplex lpFunc
	logger  *logger.Logger
}

// New creates a solver
func New(cfg Config, log *logger.Logger) *Solver {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = DefaultConfig().MaxNodes
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultConfig().Tolerance
	}
	return &Solver{cfg: cfg, simplex: lp.Simplex, logger: log.Component("solver")}
}

// Solve runs the search under the configured time budget. It never
// returns a Go error: failures are reported through Result.Status.
func (s *Solver) Solve(ctx context.Context, p Problem) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Result{Status: contracts.StatusError, Err: fmt.Errorf("solver panic: %v", r)}
			}
		}()
		done <- s.search(ctx, p)
	}()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = Result{Status: contracts.StatusTimeout, Err: errTimeout}
	}

	fields := map[string]interface{}{
		"status":   string(res.Status),
		"items":    len(p.Items),
		"nodes":    res.Nodes,
		"spent":    res.Spent,
		"budget":   p.Budget,
		"duration": time.Since(start),
	}
	if res.Err != nil {
		fields["error"] = res.Err.Error()
	}
	s.logger.WithFields(fields).Debug("Solver finished")

	return res
}

type node struct {
	lo []int
	hi []int
}

func (n node) clone() node {
	return node{lo: append([]int(nil), n.lo...), hi: append([]int(nil), n.hi...)}
}

func (s *Solver) search(ctx context.Context, p Problem) Result {
	if ctx.Err() != nil {
		return Result{Status: contracts.StatusTimeout, Err: errTimeout}
	}
	n := len(p.Items)
	if n == 0 {
		return Result{Status: contracts.StatusOptimal, Shares: []int{}}
	}

	root := node{lo: make([]int, n), hi: make([]int, n)}
	for i := range p.Items {
		if p.upperBuy(i) < -bandTol*p.scale() {
			return Result{Status: contracts.StatusInfeasible, Err: fmt.Errorf("%s already above its band", p.Items[i].Ticker)}
		}
		root.hi[i] = p.maxShares(i)
		if lo := p.lowerBuy(i); lo > 0 {
			root.lo[i] = int(math.Ceil(lo/p.Items[i].Price - 1e-9))
		}
		if root.lo[i] > root.hi[i] {
			return Result{Status: contracts.StatusInfeasible, Err: fmt.Errorf("%s band holds no whole share count", p.Items[i].Ticker)}
		}
	}

	var (
		incumbent []int
		incObj    = math.Inf(1)
		nodes     int
		lastErr   error
	)
	if x := greedy(p, root); x != nil {
		incumbent, incObj = x, p.objective(x)
	}

	stack := []node{root}
	for len(stack) > 0 {
		if ctx.Err() != nil {
			return Result{Status: contracts.StatusTimeout, Nodes: nodes, Err: errTimeout}
		}
		if nodes >= s.cfg.MaxNodes {
			return Result{Status: contracts.StatusTimeout, Nodes: nodes, Err: errMaxNodes}
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		obj, x, err := s.relax(p, nd)
		if errors.Is(err, lp.ErrInfeasible) {
			continue
		}
		if err != nil {
			if nodes == 1 {
				return Result{Status: contracts.StatusError, Nodes: nodes, Err: fmt.Errorf("root relaxation: %w", err)}
			}
			lastErr = err
			continue
		}
		if obj >= incObj-1e-9 {
			continue
		}

		j, frac := mostFractional(x[:n])
		if j < 0 {
			cand := make([]int, n)
			for i := range cand {
				cand[i] = int(math.Round(x[i]))
			}
			if p.Feasible(cand) {
				if o := p.objective(cand); o < incObj {
					incumbent, incObj = cand, o
				}
			}
			continue
		}

		down, up := nd.clone(), nd.clone()
		down.hi[j] = int(math.Floor(frac))
		up.lo[j] = int(math.Floor(frac)) + 1
		// up branch popped first: spending more is usually better
		if down.hi[j] >= down.lo[j] {
			stack = append(stack, down)
		}
		if up.lo[j] <= up.hi[j] {
			stack = append(stack, up)
		}
	}

	if incumbent == nil {
		if lastErr != nil {
			return Result{Status: contracts.StatusError, Nodes: nodes, Err: lastErr}
		}
		return Result{Status: contracts.StatusInfeasible, Nodes: nodes, Err: lp.ErrInfeasible}
	}
	return Result{
		Status: contracts.StatusOptimal,
		Shares: incumbent,
		Spent:  p.Spent(incumbent),
		Nodes:  nodes,
	}
}

// mostFractional returns the variable furthest from an integer
func mostFractional(x []float64) (int, float64) {
	best, bestDist := -1, 1e-6
	for i, v := range x {
		d := math.Abs(v - math.Round(v))
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, x[best]
}

type row struct {
	coef map[int]float64
	rhs  float64
	geq  bool
}

// relax solves the LP relaxation of node in standard form with one slack
// column per row
func (s *Solver) relax(p Problem, nd node) (float64, []float64, error) {
	n := len(p.Items)
	util, fair := p.weights()
	v := p.scale()

	nStruct := n
	if fair > 0 {
		nStruct = 2 * n // x then deviation e
	}

	cost := make([]float64, nStruct)
	var rows []row

	budget := row{coef: map[int]float64{}, rhs: p.Budget / v}
	for i, it := range p.Items {
		budget.coef[i] = it.Price / v
		cost[i] = -util * it.Price / v
	}
	rows = append(rows, budget)

	for i, it := range p.Items {
		rows = append(rows, row{coef: map[int]float64{i: it.Price / v}, rhs: p.upperBuy(i) / v})
		if lo := p.lowerBuy(i); lo > 0 {
			rows = append(rows, row{coef: map[int]float64{i: it.Price / v}, rhs: lo / v, geq: true})
		}
		if fair > 0 {
			e := n + i
			cost[e] = fair
			t := p.targetBuy(i) / v
			rows = append(rows,
				row{coef: map[int]float64{i: it.Price / v, e: -1}, rhs: t},
				row{coef: map[int]float64{i: -it.Price / v, e: -1}, rhs: -t},
			)
		}
		if nd.lo[i] > 0 {
			rows = append(rows, row{coef: map[int]float64{i: 1}, rhs: float64(nd.lo[i]), geq: true})
		}
		rows = append(rows, row{coef: map[int]float64{i: 1}, rhs: float64(nd.hi[i])})
	}

	m := len(rows)
	cols := nStruct + m
	A := mat.NewDense(m, cols, nil)
	b := make([]float64, m)
	c := make([]float64, cols)
	copy(c, cost)

	for r, rw := range rows {
		sign := 1.0
		if rw.rhs < 0 {
			sign = -1
		}
		for j, a := range rw.coef {
			A.Set(r, j, sign*a)
		}
		slack := 1.0
		if rw.geq {
			slack = -1
		}
		A.Set(r, nStruct+r, sign*slack)
		b[r] = sign * rw.rhs
	}

	obj, x, err := s.simplex(c, A, b, s.cfg.Tolerance, nil)
	if err != nil {
		return 0, nil, err
	}
	return obj, x, nil
}

// greedy builds a feasible starting point: band minimums, then the
// cheapest affordable share within its cap until nothing fits
func greedy(p Problem, root node) []int {
	x := append([]int(nil), root.lo...)
	if !p.Feasible(x) {
		return nil
	}

	order := make([]int, len(p.Items))
	for i := range order {
		order[i] = i
	}
	for a := 1; a < len(order); a++ {
		for b := a; b > 0 && p.Items[order[b]].Price < p.Items[order[b-1]].Price; b-- {
			order[b], order[b-1] = order[b-1], order[b]
		}
	}

	left := p.Budget - p.Spent(x)
	for {
		promoted := false
		for _, i := range order {
			if x[i] < root.hi[i] && p.Items[i].Price <= left+1e-9 {
				x[i]++
				left -= p.Items[i].Price
				promoted = true
				break
			}
		}
		if !promoted {
			break
		}
	}
	if !p.Feasible(x) {
		return nil
	}
	return x
}
