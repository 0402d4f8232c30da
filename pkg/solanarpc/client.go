// Package solanarpc wraps gagliardetto/solana-go's JSON-RPC client with the
// gzip-transport and retry conventions the rest of the codebase uses for
// outbound Solana calls.
package solanarpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	soljsonrpc "github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/klauspost/compress/gzhttp"

	"github.com/gohnnyman/solindexer/internal/retry"
)

const (
	defaultMaxIdleConnsPerHost = 9
	defaultTimeout             = 5 * time.Minute
	defaultKeepAlive           = 180 * time.Second
)

// Fetcher is the subset of Solana RPC calls the ingestion pipeline needs.
// pkg/cursor uses GetSignaturesForAddress; pkg/fetcherpool uses
// GetTransaction; pkg/epochtracker uses GetEpochInfo, GetBlocks and GetBlock.
type Fetcher interface {
	GetSignaturesForAddress(ctx context.Context, account solana.PublicKey, before, until solana.Signature, limit int) ([]*solrpc.TransactionSignature, error)
	GetTransaction(ctx context.Context, sig solana.Signature) (*solrpc.GetTransactionResult, error)
	GetEpochInfo(ctx context.Context) (*solrpc.GetEpochInfoResult, error)
	GetBlockTime(ctx context.Context, slot uint64) (*solana.UnixTimeSeconds, error)
	GetBlocks(ctx context.Context, startSlot, endSlot uint64) ([]uint64, error)
	GetBlock(ctx context.Context, slot uint64) (*solrpc.GetBlockResult, error)
}

// Client is the retrying, gzip-transported Fetcher implementation used in
// production; every call is wrapped in internal/retry.Forever so transient
// RPC errors (rate limits, timeouts) never surface to callers directly.
type Client struct {
	rpc *solrpc.Client
	log *slog.Logger
}

func New(endpoint string, log *slog.Logger) *Client {
	httpClient := &http.Client{
		Timeout: defaultTimeout,
		Transport: gzhttp.Transport(&http.Transport{
			IdleConnTimeout:     defaultTimeout,
			MaxConnsPerHost:     defaultMaxIdleConnsPerHost,
			MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
			Proxy:               http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   defaultTimeout,
				KeepAlive: defaultKeepAlive,
			}).DialContext,
			ForceAttemptHTTP2:   true,
			TLSHandshakeTimeout: 10 * time.Second,
		}),
	}
	jsonrpcClient := soljsonrpc.NewClientWithOpts(endpoint, &soljsonrpc.RPCClientOpts{HTTPClient: httpClient})
	return &Client{rpc: solrpc.NewWithCustomRPCClient(jsonrpcClient), log: log}
}

// NewSimple constructs a Client around a plain endpoint using solana-go's
// default HTTP transport; used where the gzip transport's retained TCP
// connections are not wanted (short-lived CLI tools, tests).
func NewSimple(endpoint string, log *slog.Logger) *Client {
	return &Client{rpc: solrpc.New(endpoint), log: log}
}

func (c *Client) GetSignaturesForAddress(ctx context.Context, account solana.PublicKey, before, until solana.Signature, limit int) ([]*solrpc.TransactionSignature, error) {
	opts := &solrpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: solrpc.CommitmentFinalized,
	}
	if !before.IsZero() {
		opts.Before = before
	}
	if !until.IsZero() {
		opts.Until = until
	}
	return retry.Forever(ctx, c.log, "GetSignaturesForAddress", func() ([]*solrpc.TransactionSignature, error) {
		return c.rpc.GetSignaturesForAddressWithOpts(ctx, account, opts)
	})
}

// GetTransaction fetches in raw JSON-message form (not base64, not
// jsonParsed), since the parser (pkg/parser) requires the un-pre-parsed
// message shape to walk account keys and instruction data itself.
func (c *Client) GetTransaction(ctx context.Context, sig solana.Signature) (*solrpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	opts := &solrpc.GetTransactionOpts{
		Encoding:                       solana.EncodingJSON,
		Commitment:                     solrpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &maxVersion,
	}
	return retry.Forever(ctx, c.log, "GetTransaction", func() (*solrpc.GetTransactionResult, error) {
		tx, err := c.rpc.GetTransaction(ctx, sig, opts)
		if err != nil {
			return nil, err
		}
		if tx == nil || tx.Meta == nil {
			return nil, fmt.Errorf("transaction %s missing metadata", sig)
		}
		return tx, nil
	})
}

func (c *Client) GetEpochInfo(ctx context.Context) (*solrpc.GetEpochInfoResult, error) {
	return retry.Forever(ctx, c.log, "GetEpochInfo", func() (*solrpc.GetEpochInfoResult, error) {
		return c.rpc.GetEpochInfo(ctx, solrpc.CommitmentFinalized)
	})
}

func (c *Client) GetBlockTime(ctx context.Context, slot uint64) (*solana.UnixTimeSeconds, error) {
	return retry.Forever(ctx, c.log, "GetBlockTime", func() (*solana.UnixTimeSeconds, error) {
		return c.rpc.GetBlockTime(ctx, slot)
	})
}

func (c *Client) GetBlocks(ctx context.Context, startSlot, endSlot uint64) ([]uint64, error) {
	return retry.Forever(ctx, c.log, "GetBlocks", func() ([]uint64, error) {
		return c.rpc.GetBlocksWithLimit(ctx, startSlot, endSlot-startSlot+1, solrpc.CommitmentFinalized)
	})
}

func (c *Client) GetBlock(ctx context.Context, slot uint64) (*solrpc.GetBlockResult, error) {
	maxVersion := uint64(0)
	encoding := solrpc.EncodingJSON
	txDetails := solrpc.TransactionDetailsFull
	rewards := true
	commitment := solrpc.CommitmentFinalized
	opts := &solrpc.GetBlockOpts{
		Encoding:                       encoding,
		TransactionDetails:             txDetails,
		Rewards:                        &rewards,
		Commitment:                     commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	}
	return retry.Forever(ctx, c.log, "GetBlock", func() (*solrpc.GetBlockResult, error) {
		return c.rpc.GetBlockWithOpts(ctx, slot, opts)
	})
}
