package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dexlens/dexlens/chain"
	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/log"
)

const (
	v2ProtocolName = "PancakeSwap V2"
	v3ProtocolName = "PancakeSwap V3"
)

// discoverer enumerates candidate pools for a target token across the
// base-token set, one aggregated factory read per analysis.
type discoverer struct {
	batch     *chain.BatchCaller
	v2Factory common.Address
	v3Factory common.Address
	fastBases int
	logger    log.Logger
}

func newDiscoverer(batch *chain.BatchCaller, chainConfig *domain.ChainConfig, fastBases int, logger log.Logger) *discoverer {
	return &discoverer{
		batch:     batch,
		v2Factory: common.HexToAddress(chainConfig.V2FactoryAddress),
		v3Factory: common.HexToAddress(chainConfig.V3FactoryAddress),
		fastBases: fastBases,
		logger:    logger.Named("discovery"),
	}
}

// candidatePlan records what each positional sub-call was probing for.
type candidatePlan struct {
	kind       domain.ProtocolKind
	protocol   string
	otherToken string
	fee        uint32
}

// Discover probes getPair for every base and getPool for every (base, fee
// tier), decodes non-zero addresses as candidates, and deduplicates on
// (kind, lowercased address). Fast mode restricts the base set to the
// highest-liquidity bases.
func (d *discoverer) Discover(ctx context.Context, target common.Address, fast bool) ([]domain.PoolCandidate, error) {
	targetLower := domain.LowerAddress(target)

	bases := domain.BaseTokenAddresses
	if fast && d.fastBases > 0 && d.fastBases < len(bases) {
		bases = bases[:d.fastBases]
	}

	var (
		calls []chain.Call
		plan  []candidatePlan
	)
	for _, base := range bases {
		if base == targetLower {
			continue
		}
		baseAddr := common.HexToAddress(base)

		pairCall, err := chain.NewCall(d.v2Factory, chain.V2FactoryABI, "getPair", target, baseAddr)
		if err != nil {
			return nil, err
		}
		calls = append(calls, pairCall)
		plan = append(plan, candidatePlan{
			kind:       domain.ProtocolV2,
			protocol:   v2ProtocolName,
			otherToken: base,
			fee:        domain.V2DefaultFee,
		})

		for _, fee := range domain.V3FeeTiers {
			poolCall, err := chain.NewCall(d.v3Factory, chain.V3FactoryABI, "getPool", target, baseAddr, big.NewInt(int64(fee)))
			if err != nil {
				return nil, err
			}
			calls = append(calls, poolCall)
			plan = append(plan, candidatePlan{
				kind:       domain.ProtocolV3,
				protocol:   v3ProtocolName,
				otherToken: base,
				fee:        fee,
			})
		}
	}

	results, err := d.batch.Aggregate(ctx, calls)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(results))
	candidates := make([]domain.PoolCandidate, 0, len(results))
	for i, res := range results {
		address, ok := chain.UnpackAddress(res)
		if !ok || address == (common.Address{}) {
			continue
		}

		key := string(plan[i].kind) + "_" + domain.LowerAddress(address)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		candidates = append(candidates, domain.PoolCandidate{
			Address:    address,
			Kind:       plan[i].kind,
			Protocol:   plan[i].protocol,
			OtherToken: plan[i].otherToken,
			Fee:        plan[i].fee,
		})
	}

	d.logger.Debug("pool discovery complete",
		zap.String("target", targetLower),
		zap.Int("probes", len(calls)),
		zap.Int("candidates", len(candidates)))

	return candidates, nil
}
