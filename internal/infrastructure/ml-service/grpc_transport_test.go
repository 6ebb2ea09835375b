package ml_service

import (
	"context"
	"net"
	"testing"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// startEncoderServer поднимает in-memory gRPC сервер энкодера, который возвращает
// вектор [len(png), 0.5] и эхом отдаёт устройство из metadata в поле model.
func startEncoderServer(t *testing.T) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	srv.RegisterService(&grpc.ServiceDesc{
		ServiceName: "ml.v1.ImageEncoderService",
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "EncodeImage",
				Handler: func(_ any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					in := &wrapperspb.BytesValue{}
					if err := dec(in); err != nil {
						return nil, err
					}
					device := ""
					if md, ok := metadata.FromIncomingContext(ctx); ok && len(md.Get(deviceHeader)) > 0 {
						device = md.Get(deviceHeader)[0]
					}
					return structpb.NewStruct(map[string]any{
						"vector": []any{float64(len(in.GetValue())), 0.5},
						"model":  "clip-" + device,
					})
				},
			},
			{
				MethodName: "Describe",
				Handler: func(_ any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					if err := dec(&emptypb.Empty{}); err != nil {
						return nil, err
					}
					return structpb.NewStruct(map[string]any{
						"devices":   []any{"cpu", "cuda"},
						"model":     "clip-ViT-B-32",
						"dimension": 512,
					})
				},
			},
		},
	}, struct{}{})

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestGRPCTransport_Encode(t *testing.T) {
	tr := NewGRPCTransport(startEncoderServer(t))

	vector, model, err := tr.Encode(context.Background(), []byte("abc"), domain.DeviceCUDA)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(vector) != 2 || vector[0] != 3 || vector[1] != 0.5 {
		t.Errorf("vector: got %v", vector)
	}
	if model != "clip-cuda" {
		t.Errorf("model: got %q", model)
	}
}

func TestGRPCTransport_Describe(t *testing.T) {
	tr := NewGRPCTransport(startEncoderServer(t))

	desc, err := tr.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if desc.Dimension != 512 || desc.Model != "clip-ViT-B-32" {
		t.Errorf("got %+v", desc)
	}
	if domain.SelectDevice(domain.DeviceAuto, desc.Devices) != domain.DeviceCUDA {
		t.Errorf("devices: got %v", desc.Devices)
	}
}
