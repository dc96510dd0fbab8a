package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey      = "settlement"
	serviceName       = "mentorpay.settlement.v1.Settlement"
	jsonCodecName     = "json"
	methodGetMetadata = "/" + serviceName + "/GetMetadata"
	methodRelease     = "/" + serviceName + "/Release"
	methodRefund      = "/" + serviceName + "/Refund"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "MENTORPAY_PLUGIN",
	MagicCookieValue: "settlement",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Metadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Network string `json:"network,omitempty"`
}

type ReleaseRequest struct {
	SessionID  string `json:"session_id"`
	Payee      string `json:"payee"`
	Symbol     string `json:"symbol"`
	Network    string `json:"network"`
	Cumulative string `json:"cumulative"`
}

// ReleaseResponse carries either a tx reference or a failure code.
type ReleaseResponse struct {
	TxReference string `json:"tx_reference,omitempty"`
	Failure     string `json:"failure,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

type RefundRequest struct {
	SessionID string `json:"session_id"`
	Payer     string `json:"payer"`
	Symbol    string `json:"symbol"`
	Network   string `json:"network"`
	Reason    string `json:"reason"`
}

type RefundResponse struct {
	TxReference string `json:"tx_reference,omitempty"`
	Failure     string `json:"failure,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

type SettlementServer interface {
	GetMetadata(ctx context.Context, in *Empty) (*Metadata, error)
	Release(ctx context.Context, in *ReleaseRequest) (*ReleaseResponse, error)
	Refund(ctx context.Context, in *RefundRequest) (*RefundResponse, error)
}

type SettlementClient interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	Release(ctx context.Context, in *ReleaseRequest) (*ReleaseResponse, error)
	Refund(ctx context.Context, in *RefundRequest) (*RefundResponse, error)
}

type settlementClient struct {
	conn *grpc.ClientConn
}

func NewSettlementClient(conn *grpc.ClientConn) SettlementClient {
	return &settlementClient{conn: conn}
}

func (c *settlementClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	out := &Metadata{}
	if err := c.conn.Invoke(ctx, methodGetMetadata, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *settlementClient) Release(ctx context.Context, in *ReleaseRequest) (*ReleaseResponse, error) {
	out := &ReleaseResponse{}
	if err := c.conn.Invoke(ctx, methodRelease, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *settlementClient) Refund(ctx context.Context, in *RefundRequest) (*RefundResponse, error) {
	out := &RefundResponse{}
	if err := c.conn.Invoke(ctx, methodRefund, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// unary adapts a typed handler to a grpc.MethodDesc.
func unary[Req any, Resp any](name string, call func(context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + serviceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				typed, ok := req.(*Req)
				if !ok {
					return nil, fmt.Errorf("invalid request type")
				}
				return call(ctx, typed)
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func RegisterSettlementServer(server grpc.ServiceRegistrar, impl SettlementServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*SettlementServer)(nil),
		Methods: []grpc.MethodDesc{
			unary("GetMetadata", impl.GetMetadata),
			unary("Release", impl.Release),
			unary("Refund", impl.Refund),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "settlement-rpc-v1",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl SettlementServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterSettlementServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewSettlementClient(conn), nil
}

func PluginMap(impl SettlementServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
