package exec_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/pier-build/pier/exec"
)

// MockExecutor is a hand-written stand-in for what `mockgen -source=exec.go`
// would generate for the Executor interface; kept here instead of a
// generated file since the toolchain isn't invoked as part of this build.
type MockExecutor struct {
	ctrl     *gomock.Controller
	recorder *MockExecutorRecorder
}

type MockExecutorRecorder struct {
	mock *MockExecutor
}

func NewMockExecutor(ctrl *gomock.Controller) *MockExecutor {
	m := &MockExecutor{ctrl: ctrl}
	m.recorder = &MockExecutorRecorder{m}
	return m
}

func (m *MockExecutor) EXPECT() *MockExecutorRecorder { return m.recorder }

func (m *MockExecutor) Execute(ctx context.Context, opts exec.Opts) (exec.Result, error) {
	ret := m.ctrl.Call(m, "Execute", ctx, opts)
	result, _ := ret[0].(exec.Result)
	err, _ := ret[1].(error)
	return result, err
}

func (r *MockExecutorRecorder) Execute(ctx, opts interface{}) *gomock.Call {
	return r.mock.ctrl.RecordCallWithMethodType(r.mock, "Execute",
		reflect.TypeOf((*MockExecutor)(nil).Execute), ctx, opts)
}

func TestMockExecutorSatisfiesExecutorInterface(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := NewMockExecutor(ctrl)
	want := exec.Opts{Program: "gcc", Args: []string{"-c", "a.c"}, Dir: "/tmp/sandbox"}
	m.EXPECT().Execute(gomock.Any(), want).Return(exec.Result{Stdout: []byte("ok")}, nil)

	var e exec.Executor = m
	result, err := e.Execute(context.Background(), want)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Stdout) != "ok" {
		t.Fatalf("got %q, want %q", result.Stdout, "ok")
	}
}
