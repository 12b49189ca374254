package grpcx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/types/known/emptypb"
)

type echoRequest struct {
	Text string `json:"text"`
}

type echoResponse struct {
	Text string `json:"text"`
}

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)
	assert.Equal(t, CodecName, c.Name())
}

func TestCodecPlainStructs(t *testing.T) {
	c := jsonCodec{}
	data, err := c.Marshal(&echoRequest{Text: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, string(data))

	var out echoRequest
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, "hi", out.Text)
}

func TestCodecProtoMessages(t *testing.T) {
	c := jsonCodec{}
	data, err := c.Marshal(&emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
	require.NoError(t, c.Unmarshal([]byte("{}"), &emptypb.Empty{}))
}

func echo(_ context.Context, req *echoRequest) (*echoResponse, error) {
	if req.Text == "" {
		return nil, errors.New("empty")
	}
	return &echoResponse{Text: req.Text}, nil
}

func decoderFor(text string) func(any) error {
	return func(v any) error {
		v.(*echoRequest).Text = text
		return nil
	}
}

func TestUnaryWithoutInterceptor(t *testing.T) {
	h := Unary(echo, "/test.Echo/Say")

	resp, err := h(nil, context.Background(), decoderFor("hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.(*echoResponse).Text)
}

func TestUnaryRunsInterceptor(t *testing.T) {
	desc := Method("test.Echo", "Say", echo)
	var seen string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		return handler(ctx, req)
	}

	resp, err := desc.Handler(nil, context.Background(), decoderFor("hello"), interceptor)
	require.NoError(t, err)
	assert.Equal(t, "/test.Echo/Say", seen)
	assert.Equal(t, "hello", resp.(*echoResponse).Text)

	_, err = desc.Handler(nil, context.Background(), decoderFor(""), interceptor)
	require.Error(t, err)
}

func TestServiceDescAcceptsAnyImplementation(t *testing.T) {
	s := grpc.NewServer()
	defer s.Stop()

	assert.NotPanics(t, func() {
		s.RegisterService(ServiceDesc("test.Echo", Method("test.Echo", "Say", echo)), struct{}{})
	})
	info := s.GetServiceInfo()
	require.Contains(t, info, "test.Echo")
	assert.Equal(t, "Say", info["test.Echo"].Methods[0].Name)
}
