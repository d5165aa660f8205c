// Package availabilityv1 declares the AvailabilityService gRPC contract.
// Messages travel as google.protobuf.Struct with the same camelCase keys as
// the HTTP API, so no generated code is needed.
package availabilityv1

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName             = "slotbook.availability.v1.AvailabilityService"
	GetAvailableSlotsMethod = "/" + ServiceName + "/GetAvailableSlots"
)

type SlotsRequest struct {
	BusinessID     string
	ProfessionalID string
	ServiceID      string
	Date           string
}

type SlotsResponse struct {
	AvailableSlots []string
}

type AvailabilityServer interface {
	GetAvailableSlots(ctx context.Context, req SlotsRequest) (SlotsResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAvailableSlots", Handler: getAvailableSlotsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "slotbook/availability/v1/availability.proto",
}

func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getAvailableSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		r, err := RequestFromStruct(req.(*structpb.Struct))
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		resp, err := srv.(AvailabilityServer).GetAvailableSlots(ctx, r)
		if err != nil {
			return nil, err
		}
		return resp.Struct()
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetAvailableSlotsMethod}
	return interceptor(ctx, in, info, call)
}

// Client calls AvailabilityService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetAvailableSlots(ctx context.Context, req SlotsRequest, opts ...grpc.CallOption) (SlotsResponse, error) {
	in, err := req.Struct()
	if err != nil {
		return SlotsResponse{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetAvailableSlotsMethod, in, out, opts...); err != nil {
		return SlotsResponse{}, err
	}
	return ResponseFromStruct(out)
}

func (r SlotsRequest) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"businessId":     r.BusinessID,
		"professionalId": r.ProfessionalID,
		"serviceId":      r.ServiceID,
		"date":           r.Date,
	})
}

// RequestFromStruct rejects non-string values. Missing keys are left empty
// for the service to validate.
func RequestFromStruct(s *structpb.Struct) (SlotsRequest, error) {
	var r SlotsRequest
	fields := map[string]*string{
		"businessId":     &r.BusinessID,
		"professionalId": &r.ProfessionalID,
		"serviceId":      &r.ServiceID,
		"date":           &r.Date,
	}
	for key, dst := range fields {
		v, ok := s.GetFields()[key]
		if !ok {
			continue
		}
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return SlotsRequest{}, fmt.Errorf("%s must be a string", key)
		}
		*dst = sv.StringValue
	}
	return r, nil
}

func (r SlotsResponse) Struct() (*structpb.Struct, error) {
	slots := make([]any, 0, len(r.AvailableSlots))
	for _, s := range r.AvailableSlots {
		slots = append(slots, s)
	}
	return structpb.NewStruct(map[string]any{"availableSlots": slots})
}

func ResponseFromStruct(s *structpb.Struct) (SlotsResponse, error) {
	v, ok := s.GetFields()["availableSlots"]
	if !ok {
		return SlotsResponse{}, errors.New("availableSlots missing from response")
	}
	list := v.GetListValue()
	if list == nil {
		return SlotsResponse{}, errors.New("availableSlots is not a list")
	}
	out := SlotsResponse{AvailableSlots: make([]string, 0, len(list.GetValues()))}
	for _, item := range list.GetValues() {
		out.AvailableSlots = append(out.AvailableSlots, item.GetStringValue())
	}
	return out, nil
}
