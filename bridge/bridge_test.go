package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"imageresizer/shared/metrics"
)

type invocation struct {
	service string
	action  Action
	args    []any
}

type MockInvoker struct {
	mu       sync.Mutex
	calls    []invocation
	response Response
	err      error
	panicMsg string
	release  chan struct{}
}

func (m *MockInvoker) Invoke(_ context.Context, service string, action Action, args []any) (Response, error) {
	if m.release != nil {
		<-m.release
	}

	m.mu.Lock()
	m.calls = append(m.calls, invocation{service: service, action: action, args: args})
	m.mu.Unlock()

	if m.panicMsg != "" {
		panic(m.panicMsg)
	}

	return m.response, m.err
}

func (m *MockInvoker) last(t *testing.T) invocation {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.calls)
	return m.calls[len(m.calls)-1]
}

type outcome struct {
	resp    Response
	failure string
	ok      bool
}

// collect returns callbacks that report into a channel, counting every call.
func collect() (SuccessFunc, FailFunc, chan outcome) {
	ch := make(chan outcome, 2)
	return func(r Response) { ch <- outcome{resp: r, ok: true} },
		func(s string) { ch <- outcome{failure: s} },
		ch
}

func waitOutcome(t *testing.T, ch chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		select {
		case extra := <-ch:
			t.Fatalf("second callback invoked: %+v", extra)
		case <-time.After(20 * time.Millisecond):
		}
		return o
	case <-time.After(time.Second):
		t.Fatal("no callback invoked")
	}
	return outcome{}
}

func TestResizeImageDispatch(t *testing.T) {
	mi := &MockInvoker{response: Response{"imageData": "xyz", "width": 200.0, "height": 200.0}}
	b := New(mi, zap.NewNop())
	success, fail, ch := collect()

	b.ResizeImage(testContext(t), success, fail, "data:...base64", 100, 200,
		&ResizeOptions{Format: FormatPNG, Quality: 90})

	got := waitOutcome(t, ch)
	require.True(t, got.ok)
	assert.Equal(t, "xyz", got.resp["imageData"])

	call := mi.last(t)
	assert.Equal(t, ServiceName, call.service)
	assert.Equal(t, ActionResizeImage, call.action)
	require.Len(t, call.args, 1)
	assert.Equal(t, NewResizeRequest("data:...base64", 100, 200, &ResizeOptions{Format: FormatPNG, Quality: 90}),
		call.args[0])
}

func TestGetImageSizeDispatch(t *testing.T) {
	mi := &MockInvoker{response: Response{"width": 4.0, "height": 3.0}}
	b := New(mi, zap.NewNop())
	success, fail, ch := collect()

	b.GetImageSize(testContext(t), success, fail, "abc", nil)

	got := waitOutcome(t, ch)
	require.True(t, got.ok)

	call := mi.last(t)
	assert.Equal(t, ActionImageSize, call.action)
	require.Len(t, call.args, 1)
	assert.Equal(t, SizeRequest{Data: "abc", ImageDataType: ImageDataBase64}, call.args[0])
}

func TestStoreImageDispatch(t *testing.T) {
	mi := &MockInvoker{response: Response{"url": "file:///tmp/pics/out.png"}}
	b := New(mi, zap.NewNop())
	success, fail, ch := collect()

	b.StoreImage(testContext(t), success, fail, "http://x/img.jpg",
		&StoreOptions{ImageType: ImageDataURL, Filename: Ptr("out.png"), Directory: Ptr("pics")})

	got := waitOutcome(t, ch)
	require.True(t, got.ok)
	assert.Equal(t, "file:///tmp/pics/out.png", got.resp["url"])

	call := mi.last(t)
	assert.Equal(t, ActionStoreImage, call.action)
	require.Len(t, call.args, 1)
	req, ok := call.args[0].(StoreRequest)
	require.True(t, ok)
	assert.Equal(t, 100, req.Quality)
	assert.Equal(t, Flag(1), req.PhotoAlbum)
}

func TestFailurePassedVerbatim(t *testing.T) {
	mi := &MockInvoker{err: &ExecutorFailure{Message: "The image file could not be opened."}}
	b := New(mi, zap.NewNop())
	success, fail, ch := collect()

	b.StoreImage(testContext(t), success, fail, "abc", nil)

	got := waitOutcome(t, ch)
	assert.False(t, got.ok)
	assert.Equal(t, "The image file could not be opened.", got.failure)
}

func TestInvokerPanicBecomesFailure(t *testing.T) {
	mi := &MockInvoker{panicMsg: "boom"}
	b := New(mi, zap.NewNop())
	success, fail, ch := collect()

	b.GetImageSize(testContext(t), success, fail, "abc", nil)

	got := waitOutcome(t, ch)
	assert.False(t, got.ok)
	assert.Equal(t, "imageSize: executor panicked: boom", got.failure)
}

func TestCallsDoNotBlock(t *testing.T) {
	mi := &MockInvoker{release: make(chan struct{}), response: Response{}}
	b := New(mi, zap.NewNop())
	success, fail, ch := collect()

	returned := make(chan struct{})
	go func() {
		b.ResizeImage(testContext(t), success, fail, "abc", 1, 1, nil)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("ResizeImage blocked on the invoker")
	}

	select {
	case <-ch:
		t.Fatal("callback invoked before the invoker completed")
	default:
	}

	close(mi.release)
	assert.True(t, waitOutcome(t, ch).ok)
}

func TestNilCallbacksAreTolerated(t *testing.T) {
	mi := &MockInvoker{err: errors.New("nope")}
	b := New(mi, zap.NewNop())

	p := b.Store(testContext(t), "abc", nil)
	b.StoreImage(testContext(t), nil, nil, "abc", nil)

	_, err := p.Wait(testContext(t))
	assert.EqualError(t, err, "nope")
}

func TestPendingWait(t *testing.T) {
	mi := &MockInvoker{response: Response{"width": 10.0, "height": 20.0}}
	b := New(mi, zap.NewNop())

	resp, err := b.Size(testContext(t), "abc", nil).Wait(testContext(t))
	require.NoError(t, err)

	size, err := DecodeSize(resp)
	require.NoError(t, err)
	assert.Equal(t, &SizeResult{Width: 10, Height: 20}, size)
}

func TestPendingWaitContextDone(t *testing.T) {
	mi := &MockInvoker{release: make(chan struct{})}
	defer close(mi.release)
	b := New(mi, zap.NewNop())

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	_, err := b.Size(testContext(t), "abc", nil).Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithLiteralWidth(t *testing.T) {
	b := New(&MockInvoker{}, zap.NewNop(), WithLiteralWidth())

	req := b.ResizeRequest("abc", 100, 200, nil)
	assert.Equal(t, 100.0, req.Width)

	req = New(&MockInvoker{}, zap.NewNop()).ResizeRequest("abc", 100, 200, nil)
	assert.Equal(t, 200.0, req.Width)
}

func TestBridgeMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	b := New(&MockInvoker{err: errors.New("nope")}, zap.NewNop(), WithMetrics(m))

	_, _ = b.Size(testContext(t), "abc", nil).Wait(testContext(t))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BridgeCalls.WithLabelValues("imageSize", metrics.OutcomeFailure)))
}

func TestMakeActionFromString(t *testing.T) {
	for _, a := range []Action{ActionResizeImage, ActionImageSize, ActionStoreImage} {
		got, err := MakeActionFromString(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := MakeActionFromString("rotate")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
