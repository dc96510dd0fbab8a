package out

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	settlementrpc "mentorpay/internal/modules/settlement/adapter/out/rpc"
	"mentorpay/internal/modules/settlement/domain"
	settlementout "mentorpay/internal/modules/settlement/port/out"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

// GRPCHost starts the settlement plugin for each call and talks to it over
// go-plugin gRPC.
type GRPCHost struct {
	logOutput io.Writer
	logLevel  hclog.Level
}

// NewGRPCHost forwards plugin logs to logOutput. A nil writer discards them.
func NewGRPCHost(logOutput io.Writer, level string) settlementout.Host {
	if logOutput == nil {
		return &GRPCHost{logOutput: io.Discard, logLevel: hclog.NoLevel}
	}
	return &GRPCHost{logOutput: logOutput, logLevel: hclog.LevelFromString(level)}
}

func (h *GRPCHost) CheckLifecycle(ctx context.Context, manifest domain.Manifest) error {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return err
	}
	defer closeFn()

	callCtx, cancel := h.callContext(ctx)
	defer cancel()
	if _, err := client.GetMetadata(callCtx); err != nil {
		return fmt.Errorf("get metadata: %w", err)
	}
	return nil
}

func (h *GRPCHost) Release(ctx context.Context, manifest domain.Manifest, request domain.ReleaseRequest) (string, error) {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return "", err
	}
	defer closeFn()

	callCtx, cancel := h.callContext(ctx)
	defer cancel()
	response, err := client.Release(callCtx, &settlementrpc.ReleaseRequest{
		SessionID:  request.SessionID,
		Payee:      request.Payee,
		Symbol:     request.Symbol,
		Network:    request.Network,
		Cumulative: request.Cumulative.String(),
	})
	if err != nil {
		return "", transportError(callCtx, "release", err)
	}
	if failure := domain.FailureFromCode(response.Failure, response.Detail); failure != nil {
		return "", failure
	}
	if response.TxReference == "" {
		return "", domain.NewFailure(domain.ErrContractReverted, "plugin returned no tx reference")
	}
	return response.TxReference, nil
}

func (h *GRPCHost) Refund(ctx context.Context, manifest domain.Manifest, request domain.RefundRequest) (string, error) {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return "", err
	}
	defer closeFn()

	callCtx, cancel := h.callContext(ctx)
	defer cancel()
	response, err := client.Refund(callCtx, &settlementrpc.RefundRequest{
		SessionID: request.SessionID,
		Payer:     request.Payer,
		Symbol:    request.Symbol,
		Network:   request.Network,
		Reason:    request.Reason,
	})
	if err != nil {
		return "", transportError(callCtx, "refund", err)
	}
	if failure := domain.FailureFromCode(response.Failure, response.Detail); failure != nil {
		return "", failure
	}
	return response.TxReference, nil
}

func (h *GRPCHost) connect(manifest domain.Manifest) (settlementrpc.SettlementClient, func(), error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  settlementrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          settlementrpc.PluginMap(nil),
		Cmd:              exec.Command(manifest.Binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:   "settlement-plugin",
			Output: h.logOutput,
			Level:  h.logLevel,
		}),
	})
	closeFn := func() { client.Kill() }

	rpcClient, err := client.Client()
	if err != nil {
		closeFn()
		return nil, nil, domain.NewFailure(domain.ErrNetwork, "start settlement plugin: %v", err)
	}
	raw, err := rpcClient.Dispense(settlementrpc.PluginMapKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("dispense settlement plugin: %w", err)
	}
	typed, ok := raw.(settlementrpc.SettlementClient)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("settlement rpc client type mismatch")
	}
	return typed, closeFn, nil
}

func (h *GRPCHost) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, defaultCallTimeout)
}

func transportError(callCtx context.Context, op string, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return domain.NewFailure(domain.ErrPluginTimeout, "%s", op)
	}
	return domain.NewFailure(domain.ErrNetwork, "%s: %v", op, err)
}
