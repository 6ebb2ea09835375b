package ml_service

import (
	"context"
	"fmt"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Методы сервиса энкодера. Сообщения — стандартные well-known типы protobuf:
// EncodeImage(BytesValue) -> Struct{vector, model}, Describe(Empty) -> Struct{devices, model, dimension}.
const (
	MethodEncodeImage = "/ml.v1.ImageEncoderService/EncodeImage"
	MethodDescribe    = "/ml.v1.ImageEncoderService/Describe"
)

// GRPCTransport вызывает энкодер по gRPC.
type GRPCTransport struct {
	conn grpc.ClientConnInterface
}

func NewGRPCTransport(conn grpc.ClientConnInterface) *GRPCTransport {
	return &GRPCTransport{conn: conn}
}

func (t *GRPCTransport) Encode(ctx context.Context, png []byte, device domain.Device) ([]float32, string, error) {
	const op = "GRPCTransport.Encode"

	if device != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, deviceHeader, string(device))
	}

	out := &structpb.Struct{}
	if err := t.conn.Invoke(ctx, MethodEncodeImage, wrapperspb.Bytes(png), out); err != nil {
		return nil, "", e.Wrap(op, err)
	}

	values := out.GetFields()["vector"].GetListValue().GetValues()
	vector := make([]float32, 0, len(values))
	for i, v := range values {
		if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
			return nil, "", e.Wrap(fmt.Sprintf("%s: vector[%d] is not a number", op, i), e.ErrVectorEmbeddingEmpty)
		}
		vector = append(vector, float32(v.GetNumberValue()))
	}

	return vector, out.GetFields()["model"].GetStringValue(), nil
}

func (t *GRPCTransport) Describe(ctx context.Context) (*Description, error) {
	const op = "GRPCTransport.Describe"

	out := &structpb.Struct{}
	if err := t.conn.Invoke(ctx, MethodDescribe, &emptypb.Empty{}, out); err != nil {
		return nil, e.Wrap(op, err)
	}

	fields := out.GetFields()

	var raw []string
	for _, v := range fields["devices"].GetListValue().GetValues() {
		raw = append(raw, v.GetStringValue())
	}
	if d := fields["device"].GetStringValue(); d != "" {
		raw = append(raw, d)
	}

	return &Description{
		Devices:   parseDevices(raw),
		Model:     fields["model"].GetStringValue(),
		Dimension: int(fields["dimension"].GetNumberValue()),
	}, nil
}
