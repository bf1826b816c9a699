package mvc

import (
	"context"

	"github.com/dexlens/dexlens/domain"
)

// RouterUsecase plans single- and multi-hop swap routes between two tokens.
type RouterUsecase interface {
	// FindBestRoute searches direct, 2-hop and, when needed, 3-hop routes
	// and returns the best plan plus up to three alternatives.
	FindBestRoute(ctx context.Context, tokenIn, tokenOut string, amountIn float64) (*domain.RoutePlan, error)

	// GraphDOT renders the discovered pool topology between two tokens in
	// Graphviz DOT format.
	GraphDOT(ctx context.Context, tokenIn, tokenOut string) (string, error)
}
