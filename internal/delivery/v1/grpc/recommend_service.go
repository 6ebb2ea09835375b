package grpc

import (
	"context"
	"strconv"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Внутренний API рекомендаций. Сообщения — well-known типы protobuf:
//
//	RecommendByURL(Struct{imageUrl, topN}) -> Struct{similarIds}
//	SearchByImage(BytesValue) -> Struct{results}, k передаётся в metadata x-top-k
//	Health(Empty) -> Struct{status, device, index_size}
const (
	ServiceName          = "recommend.v1.RecommendService"
	MethodRecommendByURL = "/" + ServiceName + "/RecommendByURL"
	MethodSearchByImage  = "/" + ServiceName + "/SearchByImage"
	MethodHealth         = "/" + ServiceName + "/Health"

	topKHeader = "x-top-k"
)

// RecommendServer — серверная часть RecommendService.
type RecommendServer interface {
	RecommendByURL(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SearchByImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
	Health(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

type RecommendService struct {
	recUC  usecase.RecommendUC
	logger logger.Logger
}

func NewRecommendService(recUC usecase.RecommendUC, logger logger.Logger) *RecommendService {
	return &RecommendService{recUC: recUC, logger: logger}
}

func (g *RecommendService) RecommendByURL(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	const op = "grpc.RecommendByURL"

	fields := req.GetFields()
	imageURL := fields["imageUrl"].GetStringValue()

	topN := 0
	if v, ok := fields["topN"]; ok {
		topN = int(v.GetNumberValue())
		if topN <= 0 {
			return nil, GRPCErrorResponse(e.Wrap(op, e.ErrInvalidTopK))
		}
	}

	res, err := g.recUC.SearchByURL(ctx, usecase.NewSearchByURLReq(imageURL, topN, domain.ModeIDs))
	if err != nil {
		g.logError(op, err)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	ids := make([]any, 0, len(res.Items))
	for _, it := range res.Items {
		ids = append(ids, float64(it.Entry.ExternalID()))
	}

	return structpb.NewStruct(map[string]any{"similarIds": ids})
}

func (g *RecommendService) SearchByImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	const op = "grpc.SearchByImage"

	if len(req.GetValue()) == 0 {
		return nil, GRPCErrorResponse(e.Wrap(op, e.ErrNoImage))
	}

	topK, err := topKFromMetadata(ctx)
	if err != nil {
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	res, err := g.recUC.SearchByImage(ctx, usecase.NewSearchByImageReq(req.GetValue(), "grpc", topK, domain.ModeResults))
	if err != nil {
		g.logError(op, err)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	return structpb.NewStruct(map[string]any{"results": toResults(res.Items)})
}

func (g *RecommendService) Health(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	h := g.recUC.Health(ctx)

	return structpb.NewStruct(map[string]any{
		"status":     h.Status,
		"device":     string(h.Device),
		"index_size": h.IndexSize,
	})
}

func (g *RecommendService) logError(op string, err error) {
	if status.Code(GRPCErrorResponse(err)) == codes.Internal {
		g.logger.Errorf(err, "%s failed", op)
		return
	}
	g.logger.Warnf("%s: %v", op, err)
}

func topKFromMetadata(ctx context.Context) (int, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok || len(md.Get(topKHeader)) == 0 {
		return 0, nil
	}

	raw := md.Get(topKHeader)[0]
	k, err := strconv.Atoi(raw)
	if err != nil || k <= 0 {
		return 0, e.Wrap(topKHeader+"="+raw, e.ErrInvalidTopK)
	}

	return k, nil
}

func toResults(items []usecase.Recommendation) []any {
	res := make([]any, len(items))
	for i, it := range items {
		res[i] = map[string]any{
			"product_id": float64(it.Entry.ExternalID()),
			"brand":      it.Entry.BrandName,
			"name":       it.Entry.ProductName,
			"image":      it.Entry.ImageURL,
			"link":       it.Entry.Link,
			"score":      float64(it.Score),
		}
	}

	return res
}

// RecommendServiceDesc описывает сервис без сгенерированного кода: сообщения — well-known типы.
var RecommendServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecommendServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RecommendByURL", Handler: recommendByURLHandler},
		{MethodName: "SearchByImage", Handler: searchByImageHandler},
		{MethodName: "Health", Handler: healthHandler},
	},
}

func recommendByURLHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &structpb.Struct{}
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecommendServer).RecommendByURL(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodRecommendByURL}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(RecommendServer).RecommendByURL(ctx, req.(*structpb.Struct))
	})
}

func searchByImageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &wrapperspb.BytesValue{}
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecommendServer).SearchByImage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodSearchByImage}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(RecommendServer).SearchByImage(ctx, req.(*wrapperspb.BytesValue))
	})
}

func healthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &emptypb.Empty{}
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecommendServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodHealth}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(RecommendServer).Health(ctx, req.(*emptypb.Empty))
	})
}
