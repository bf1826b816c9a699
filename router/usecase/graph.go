package usecase

import (
	"context"
	"fmt"

	"github.com/emicklei/dot"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dexlens/dexlens/domain"
)

// GraphDOT implements mvc.RouterUsecase. It renders the pool topology the
// router would search between two tokens: token nodes, pool edges labeled
// with protocol, fee and depth.
func (r *routerUsecase) GraphDOT(ctx context.Context, tokenIn, tokenOut string) (string, error) {
	if !common.IsHexAddress(tokenIn) {
		return "", domain.InvalidAddressError{Input: tokenIn}
	}
	if !common.IsHexAddress(tokenOut) {
		return "", domain.InvalidAddressError{Input: tokenOut}
	}

	inLower := domain.LowerAddress(common.HexToAddress(tokenIn))
	outLower := domain.LowerAddress(common.HexToAddress(tokenOut))

	analyses := r.analyzePair(ctx, inLower, outLower)
	if len(analyses) == 0 {
		return "", domain.NoRouteFoundError{TokenIn: inLower, TokenOut: outLower}
	}

	graph := dot.NewGraph(dot.Undirected)
	graph.Attr("label", fmt.Sprintf("routes %s -> %s", shortAddress(inLower), shortAddress(outLower)))

	nodes := make(map[string]dot.Node)
	nodeFor := func(token domain.TokenInfo) dot.Node {
		lower := domain.LowerHex(token.Address)
		if node, ok := nodes[lower]; ok {
			return node
		}
		node := graph.Node(lower).Label(token.Symbol)
		if lower == inLower || lower == outLower {
			node.Attr("shape", "doublecircle")
		}
		nodes[lower] = node
		return node
	}

	seenPools := make(map[string]struct{})
	for _, analysis := range analyses {
		for _, pool := range analysis.Pools {
			if pool.Liquidity.Status == domain.StatusRugged {
				continue
			}
			poolLower := domain.LowerHex(pool.Address)
			if _, ok := seenPools[poolLower]; ok {
				continue
			}
			seenPools[poolLower] = struct{}{}

			edge := graph.Edge(nodeFor(pool.Token0), nodeFor(pool.Token1))
			edge.Label(fmt.Sprintf("%s %.2f%%\n$%.0f", pool.Protocol, pool.FeePercent(), pool.Liquidity.TotalUSD))
			if pool.Liquidity.Status != domain.StatusActive {
				edge.Attr("style", "dashed")
			}
		}
	}

	return graph.String(), nil
}

func shortAddress(lower string) string {
	if len(lower) < 10 {
		return lower
	}
	return lower[:6] + ".." + lower[len(lower)-4:]
}
