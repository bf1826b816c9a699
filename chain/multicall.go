package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/dexlens/dexlens/domain"
)

// Call is one sub-call in an aggregated read.
type Call struct {
	Target common.Address
	// AllowFailure prevents a reverting sub-call from aborting the batch.
	// Callers should leave it true unless the batch is all-or-nothing.
	AllowFailure bool
	CallData     []byte
}

// Result is the positional outcome of one sub-call.
type Result struct {
	Success    bool
	ReturnData []byte
}

// multicallCall3 mirrors the Multicall3.Call3 tuple for ABI packing.
type multicallCall3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// multicallResult mirrors the Multicall3.Result tuple for ABI unpacking.
type multicallResult struct {
	Success    bool
	ReturnData []byte
}

// BatchCaller dispatches many encoded sub-calls through the chain's
// aggregation contract in a single eth_call, using the gateway for transport.
type BatchCaller struct {
	gateway   *Gateway
	multicall common.Address
}

// NewBatchCaller creates a batch caller bound to the aggregation contract.
func NewBatchCaller(gateway *Gateway, multicallAddress string) *BatchCaller {
	return &BatchCaller{
		gateway:   gateway,
		multicall: common.HexToAddress(multicallAddress),
	}
}

// NewCall packs a method call against target using the given ABI.
// Failure of the sub-call is allowed by default.
func NewCall(target common.Address, contractABI abi.ABI, method string, args ...interface{}) (Call, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return Call{}, fmt.Errorf("pack %s: %w", method, err)
	}
	return Call{Target: target, AllowFailure: true, CallData: data}, nil
}

// Aggregate executes all calls in one aggregate3 read. Results are positional:
// same length and order as the input. A failed sub-call yields
// Result{Success: false} without failing the batch.
func (b *BatchCaller) Aggregate(ctx context.Context, calls []Call) ([]Result, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	packed := make([]multicallCall3, len(calls))
	for i, call := range calls {
		packed[i] = multicallCall3{
			Target:       call.Target,
			AllowFailure: call.AllowFailure,
			CallData:     call.CallData,
		}
	}

	payload, err := MulticallABI.Pack("aggregate3", packed)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	var raw hexutil.Bytes
	err = b.gateway.Execute(ctx, func(callCtx context.Context, client *rpc.Client) error {
		return client.CallContext(callCtx, &raw, "eth_call",
			map[string]interface{}{
				"to":   b.multicall.Hex(),
				"data": hexutil.Bytes(payload),
			},
			"latest",
		)
	})
	if err != nil {
		return nil, err
	}

	var decoded []multicallResult
	if err := MulticallABI.UnpackIntoInterface(&decoded, "aggregate3", raw); err != nil {
		return nil, domain.BatchDecodeError{
			Target: b.multicall.Hex(),
			Method: "aggregate3",
			Err:    err,
		}
	}

	if len(decoded) != len(calls) {
		return nil, fmt.Errorf("aggregate3 returned %d results for %d calls", len(decoded), len(calls))
	}

	results := make([]Result, len(decoded))
	for i, r := range decoded {
		results[i] = Result{Success: r.Success, ReturnData: r.ReturnData}
	}
	return results, nil
}

// UnpackAddress decodes a single address return value.
func UnpackAddress(res Result) (common.Address, bool) {
	if !res.Success || len(res.ReturnData) < 32 {
		return common.Address{}, false
	}
	return common.BytesToAddress(res.ReturnData[12:32]), true
}
