package gameserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "combat.v1.CombatService"

// Method names of CombatService. Every request and response is a
// google.protobuf.Struct.
const (
	MethodJoin       = "Join"
	MethodLeave      = "Leave"
	MethodDamage     = "Damage"
	MethodHeal       = "Heal"
	MethodChangeSlot = "ChangeSlot"
	MethodKill       = "Kill"
	MethodRespawn    = "Respawn"
	MethodInvoke     = "Invoke"
	MethodAddStatus  = "AddStatus"
	MethodAddBuff    = "AddBuff"
	MethodProfile    = "Profile"
)

// CombatServiceServer is the server API for CombatService.
type CombatServiceServer interface {
	Join(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Leave(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Damage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Heal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangeSlot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Kill(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Respawn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Invoke(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddBuff(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Profile(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(CombatServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(CombatServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// CombatServiceDesc describes CombatService for grpc.Server registration.
var CombatServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CombatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodJoin, CombatServiceServer.Join),
		unary(MethodLeave, CombatServiceServer.Leave),
		unary(MethodDamage, CombatServiceServer.Damage),
		unary(MethodHeal, CombatServiceServer.Heal),
		unary(MethodChangeSlot, CombatServiceServer.ChangeSlot),
		unary(MethodKill, CombatServiceServer.Kill),
		unary(MethodRespawn, CombatServiceServer.Respawn),
		unary(MethodInvoke, CombatServiceServer.Invoke),
		unary(MethodAddStatus, CombatServiceServer.AddStatus),
		unary(MethodAddBuff, CombatServiceServer.AddBuff),
		unary(MethodProfile, CombatServiceServer.Profile),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "combat/v1/combat.proto",
}

// RegisterCombatServiceServer registers srv on s.
func RegisterCombatServiceServer(s grpc.ServiceRegistrar, srv CombatServiceServer) {
	s.RegisterService(&CombatServiceDesc, srv)
}

// Client calls CombatService over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Call invokes method with req, a plain map encoded as a Struct.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
