// Package swap plans token swaps: wrap/unwrap fast paths handled locally,
// everything else routed through the Ref Finance smart router and wrapped
// into signable transaction payloads.
package swap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nearvault/treasury-api/internal/clients/reffinance"
	"github.com/nearvault/treasury-api/internal/modules/history"
	"github.com/nearvault/treasury-api/internal/nearrpc"
	registry "github.com/nearvault/treasury-api/internal/tokens"
)

const (
	refContract = "v2.ref-finance.near"
	wrapNear    = "wrap.near"

	swapGas    = "270000000000000"
	wrapGas    = "50000000000000"
	storageGas = "30000000000000"

	// storageDeposit covers FT storage registration (0.00125 NEAR).
	storageDeposit = "1250000000000000000000"
	oneYocto       = "1"
)

// FunctionCall is one contract call inside a transaction payload.
type FunctionCall struct {
	MethodName string         `json:"methodName"`
	Args       map[string]any `json:"args"`
	Gas        string         `json:"gas"`
	Deposit    string         `json:"deposit"`
}

// Transaction is a signable transaction the caller submits to a wallet.
type Transaction struct {
	ReceiverID    string         `json:"receiverId"`
	FunctionCalls []FunctionCall `json:"functionCalls"`
}

// Quote is the planned swap: the transactions to sign and the estimated
// output amount.
type Quote struct {
	Transactions []Transaction `json:"transactions"`
	OutEstimate  string        `json:"outEstimate"`
}

// Router plans swap routes.
type Router interface {
	FindPath(ctx context.Context, tokenIn, tokenOut, amountIn string, slippage float64) (reffinance.SwapPath, error)
}

// MetadataSource resolves token decimals and display metadata.
type MetadataSource interface {
	Metadata(ctx context.Context, tokenID string) (registry.Token, error)
}

// Service plans swaps.
type Service struct {
	gateway  history.Gateway
	router   Router
	metadata MetadataSource
	log      zerolog.Logger
}

// NewService creates the swap service.
func NewService(gateway history.Gateway, router Router, metadata MetadataSource, log zerolog.Logger) *Service {
	return &Service{
		gateway:  gateway,
		router:   router,
		metadata: metadata,
		log:      log.With().Str("service", "swap").Logger(),
	}
}

// CreateSwap plans a swap of amountIn (human units) of tokenIn into tokenOut
// for the account. slippage is a fraction, e.g. 0.005.
func (s *Service) CreateSwap(ctx context.Context, accountID, tokenIn, tokenOut, amountIn string, slippage float64) (Quote, error) {
	if tokenIn == tokenOut {
		return Quote{}, fmt.Errorf("tokenIn and tokenOut are the same")
	}

	// near <-> wrap.near never touches the router.
	if tokenIn == registry.NativeTokenID && tokenOut == wrapNear {
		return s.wrapQuote(ctx, accountID, amountIn)
	}
	if tokenIn == wrapNear && tokenOut == registry.NativeTokenID {
		return s.unwrapQuote(amountIn)
	}

	return s.routedQuote(ctx, accountID, tokenIn, tokenOut, amountIn, slippage)
}

func (s *Service) wrapQuote(ctx context.Context, accountID, amountIn string) (Quote, error) {
	raw, err := ToNonDivisibleNumber(amountIn, registry.NativeDecimals)
	if err != nil {
		return Quote{}, err
	}

	var txns []Transaction
	if !s.isRegistered(ctx, accountID, wrapNear) {
		txns = append(txns, storageDepositTxn(wrapNear, accountID))
	}
	txns = append(txns, Transaction{
		ReceiverID: wrapNear,
		FunctionCalls: []FunctionCall{{
			MethodName: "near_deposit",
			Args:       map[string]any{},
			Gas:        wrapGas,
			Deposit:    raw,
		}},
	})
	return Quote{
		Transactions: txns,
		OutEstimate:  FromNonDivisibleNumber(raw, registry.NativeDecimals),
	}, nil
}

func (s *Service) unwrapQuote(amountIn string) (Quote, error) {
	raw, err := ToNonDivisibleNumber(amountIn, registry.NativeDecimals)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Transactions: []Transaction{{
			ReceiverID: wrapNear,
			FunctionCalls: []FunctionCall{{
				MethodName: "near_withdraw",
				Args:       map[string]any{"amount": raw},
				Gas:        wrapGas,
				Deposit:    oneYocto,
			}},
		}},
		OutEstimate: FromNonDivisibleNumber(raw, registry.NativeDecimals),
	}, nil
}

func (s *Service) routedQuote(ctx context.Context, accountID, tokenIn, tokenOut, amountIn string, slippage float64) (Quote, error) {
	// The router only knows wrapped NEAR.
	inID, inIsNative := routerToken(tokenIn)
	outID, outIsNative := routerToken(tokenOut)

	inMeta, err := s.metadata.Metadata(ctx, inID)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to resolve %s: %w", inID, err)
	}
	outMeta, err := s.metadata.Metadata(ctx, outID)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to resolve %s: %w", outID, err)
	}

	rawIn, err := ToNonDivisibleNumber(amountIn, inMeta.Decimals)
	if err != nil {
		return Quote{}, err
	}

	path, err := s.router.FindPath(ctx, inID, outID, rawIn, slippage)
	if err != nil {
		return Quote{}, err
	}

	msg, err := swapMessage(path)
	if err != nil {
		return Quote{}, err
	}

	var txns []Transaction
	if !s.isRegistered(ctx, accountID, outID) {
		txns = append(txns, storageDepositTxn(outID, accountID))
	}
	if inIsNative {
		// Wrap first so the transfer below has something to move.
		txns = append(txns, Transaction{
			ReceiverID: wrapNear,
			FunctionCalls: []FunctionCall{{
				MethodName: "near_deposit",
				Args:       map[string]any{},
				Gas:        wrapGas,
				Deposit:    rawIn,
			}},
		})
	}
	txns = append(txns, Transaction{
		ReceiverID: inID,
		FunctionCalls: []FunctionCall{{
			MethodName: "ft_transfer_call",
			Args: map[string]any{
				"receiver_id": refContract,
				"amount":      rawIn,
				"msg":         msg,
			},
			Gas:     swapGas,
			Deposit: oneYocto,
		}},
	})
	if outIsNative {
		txns = append(txns, Transaction{
			ReceiverID: wrapNear,
			FunctionCalls: []FunctionCall{{
				MethodName: "near_withdraw",
				Args:       map[string]any{"amount": path.AmountOut},
				Gas:        wrapGas,
				Deposit:    oneYocto,
			}},
		})
	}

	return Quote{
		Transactions: txns,
		OutEstimate:  FromNonDivisibleNumber(path.AmountOut, outMeta.Decimals),
	}, nil
}

// isRegistered checks storage_balance_of on the token contract. Errors count
// as registered; a spurious storage_deposit costs the caller money, a missing
// one just fails the swap client-side.
func (s *Service) isRegistered(ctx context.Context, accountID, tokenID string) bool {
	req := nearrpc.CallFunctionFinal(tokenID, "storage_balance_of", map[string]any{"account_id": accountID})
	resp, err := s.gateway.Send(ctx, req, nearrpc.Options{})
	if err != nil {
		s.log.Debug().Err(err).Str("token", tokenID).Msg("storage_balance_of failed")
		return true
	}
	raw, err := resp.CallResult()
	if err != nil {
		return true
	}
	return string(raw) != "null"
}

func storageDepositTxn(tokenID, accountID string) Transaction {
	return Transaction{
		ReceiverID: tokenID,
		FunctionCalls: []FunctionCall{{
			MethodName: "storage_deposit",
			Args: map[string]any{
				"account_id":        accountID,
				"registration_only": true,
			},
			Gas:     storageGas,
			Deposit: storageDeposit,
		}},
	}
}

// swapMessage serializes the route plan into the ft_transfer_call msg the
// Ref contract executes.
func swapMessage(path reffinance.SwapPath) (string, error) {
	plan, err := json.Marshal(map[string]any{
		"force":  0,
		"routes": path.Routes,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode route plan: %w", err)
	}
	return string(plan), nil
}

func routerToken(tokenID string) (id string, isNative bool) {
	if tokenID == registry.NativeTokenID {
		return wrapNear, true
	}
	return tokenID, false
}
