package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeRecommendUC struct {
	err      error
	lastK    int
	lastURL  string
	lastMode domain.ResponseMode
}

func (f *fakeRecommendUC) result(mode domain.ResponseMode, k int) (*usecase.SearchRes, error) {
	if f.err != nil {
		return nil, f.err
	}
	postID := int64(77)
	items := []usecase.Recommendation{
		usecase.NewRecommendation(domain.CatalogEntry{Index: 0, BrandName: "Nike", ProductName: "Jacket"}, 0.5),
		usecase.NewRecommendation(domain.CatalogEntry{Index: 1, BrandName: "Puma", PostID: &postID}, 1.5),
	}
	return usecase.NewSearchRes(mode, k, items), nil
}

func (f *fakeRecommendUC) SearchByImage(_ context.Context, req *usecase.SearchByImageReq) (*usecase.SearchRes, error) {
	f.lastK, f.lastMode = req.TopK, req.Mode
	return f.result(req.Mode, req.TopK)
}

func (f *fakeRecommendUC) SearchByURL(_ context.Context, req *usecase.SearchByURLReq) (*usecase.SearchRes, error) {
	f.lastK, f.lastMode, f.lastURL = req.TopN, req.Mode, req.ImageURL
	if req.ImageURL == "" {
		return nil, e.ErrImageURLRequired
	}
	return f.result(req.Mode, req.TopN)
}

func (f *fakeRecommendUC) Health(context.Context) *usecase.HealthRes {
	return &usecase.HealthRes{Status: usecase.HealthStatusOK, Device: domain.DeviceCPU, IndexSize: 2}
}

type panickingRecommendUC struct {
	fakeRecommendUC
}

func (panickingRecommendUC) SearchByImage(context.Context, *usecase.SearchByImageReq) (*usecase.SearchRes, error) {
	panic("boom")
}

func startServer(t *testing.T, uc usecase.RecommendUC) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(&cfg.GRPCConfig{NetworkMode: "tcp"}, logger.NewNopLogger())
	srv.RegisterServices(uc)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})

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

func TestRecommendByURL(t *testing.T) {
	uc := &fakeRecommendUC{}
	conn := startServer(t, uc)

	req, _ := structpb.NewStruct(map[string]any{"imageUrl": "http://x/a.png", "topN": 2})
	out := &structpb.Struct{}
	if err := conn.Invoke(context.Background(), MethodRecommendByURL, req, out); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	ids := out.GetFields()["similarIds"].GetListValue().GetValues()
	if len(ids) != 2 || ids[0].GetNumberValue() != 0 || ids[1].GetNumberValue() != 77 {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if uc.lastK != 2 || uc.lastMode != domain.ModeIDs || uc.lastURL != "http://x/a.png" {
		t.Fatalf("unexpected request: k=%d mode=%s url=%s", uc.lastK, uc.lastMode, uc.lastURL)
	}
}

func TestSearchByImage(t *testing.T) {
	uc := &fakeRecommendUC{}
	conn := startServer(t, uc)

	ctx := metadata.AppendToOutgoingContext(context.Background(), topKHeader, "4")
	out := &structpb.Struct{}
	if err := conn.Invoke(ctx, MethodSearchByImage, wrapperspb.Bytes([]byte("img")), out); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	results := out.GetFields()["results"].GetListValue().GetValues()
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	first := results[0].GetStructValue().GetFields()
	if first["name"].GetStringValue() != "Jacket" || first["score"].GetNumberValue() != 0.5 {
		t.Fatalf("unexpected first result: %v", first)
	}
	if uc.lastK != 4 || uc.lastMode != domain.ModeResults {
		t.Fatalf("unexpected request: k=%d mode=%s", uc.lastK, uc.lastMode)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		uc     *fakeRecommendUC
		method string
		req    any
		ctx    context.Context
		code   codes.Code
	}{
		{
			name:   "missing url",
			uc:     &fakeRecommendUC{},
			method: MethodRecommendByURL,
			req:    &structpb.Struct{},
			code:   codes.InvalidArgument,
		},
		{
			name:   "empty image",
			uc:     &fakeRecommendUC{},
			method: MethodSearchByImage,
			req:    wrapperspb.Bytes(nil),
			code:   codes.InvalidArgument,
		},
		{
			name:   "invalid k",
			uc:     &fakeRecommendUC{},
			method: MethodSearchByImage,
			req:    wrapperspb.Bytes([]byte("img")),
			ctx:    metadata.AppendToOutgoingContext(context.Background(), topKHeader, "zero"),
			code:   codes.InvalidArgument,
		},
		{
			name:   "not ready",
			uc:     &fakeRecommendUC{err: e.ErrServiceUnavailable},
			method: MethodSearchByImage,
			req:    wrapperspb.Bytes([]byte("img")),
			code:   codes.Unavailable,
		},
		{
			name:   "invalid url is a fetch failure",
			uc:     &fakeRecommendUC{err: e.Wrap("HTTPFetcher.Fetch", e.ErrInvalidImageURL)},
			method: MethodRecommendByURL,
			req:    mustStruct(t, map[string]any{"imageUrl": "ftp://x/a.png"}),
			code:   codes.Internal,
		},
		{
			name:   "processing failure",
			uc:     &fakeRecommendUC{err: e.ErrImageDecode},
			method: MethodSearchByImage,
			req:    wrapperspb.Bytes([]byte("img")),
			code:   codes.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := startServer(t, tt.uc)
			ctx := tt.ctx
			if ctx == nil {
				ctx = context.Background()
			}

			err := conn.Invoke(ctx, tt.method, tt.req, &structpb.Struct{})
			if status.Code(err) != tt.code {
				t.Fatalf("got %v, want %s", err, tt.code)
			}
		})
	}
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()

	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("structpb.NewStruct: %v", err)
	}
	return s
}

func TestRecoveryInterceptor(t *testing.T) {
	conn := startServer(t, &panickingRecommendUC{})

	err := conn.Invoke(context.Background(), MethodSearchByImage, wrapperspb.Bytes([]byte("img")), &structpb.Struct{})
	if status.Code(err) != codes.Internal {
		t.Fatalf("got %v, want Internal", err)
	}

	out := &structpb.Struct{}
	if err := conn.Invoke(context.Background(), MethodHealth, &emptypb.Empty{}, out); err != nil {
		t.Fatalf("server must keep serving after a panic: %v", err)
	}
	if out.GetFields()["status"].GetStringValue() != "ok" {
		t.Fatalf("unexpected health: %v", out.GetFields())
	}
}

func TestHealth(t *testing.T) {
	conn := startServer(t, &fakeRecommendUC{})

	out := &structpb.Struct{}
	if err := conn.Invoke(context.Background(), MethodHealth, &emptypb.Empty{}, out); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	f := out.GetFields()
	if f["status"].GetStringValue() != "ok" || f["device"].GetStringValue() != "cpu" || f["index_size"].GetNumberValue() != 2 {
		t.Fatalf("unexpected health: %v", f)
	}
}
