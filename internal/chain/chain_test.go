package chain

import (
	"context"
	"errors"
	"testing"
)

// fakeProvider 模拟一个按名字决定成败的提供商。
type fakeProvider struct {
	name string
	err  error
}

func (p fakeProvider) Name() string { return p.name }

func TestRun_FirstSuccessWins(t *testing.T) {
	providers := []fakeProvider{
		{name: "primary"},
		{name: "secondary"},
	}
	calls := 0
	result, winner, err := Run(context.Background(), providers, "search", func(ctx context.Context, p fakeProvider) (string, error) {
		calls++
		return "from " + p.name, nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if winner != "primary" || result != "from primary" {
		t.Errorf("winner = %s, result = %s", winner, result)
	}
	if calls != 1 {
		t.Errorf("later providers must not be called after a success, calls = %d", calls)
	}
}

func TestRun_FallsThroughFailures(t *testing.T) {
	providers := []fakeProvider{
		{name: "broken", err: errors.New("boom")},
		{name: "also-broken", err: errors.New("boom2")},
		{name: "working"},
	}
	result, winner, err := Run(context.Background(), providers, "extract", func(ctx context.Context, p fakeProvider) (int, error) {
		if p.err != nil {
			return 0, p.err
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if winner != "working" || result != 42 {
		t.Errorf("winner = %s, result = %d", winner, result)
	}
}

func TestRun_Exhaustion(t *testing.T) {
	providers := []fakeProvider{
		{name: "a", err: errors.New("first")},
		{name: "b", err: errors.New("last")},
	}
	_, winner, err := Run(context.Background(), providers, "generation", func(ctx context.Context, p fakeProvider) (string, error) {
		return "", p.err
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if winner != "" {
		t.Errorf("winner = %q, want empty on exhaustion", winner)
	}
}

func TestRun_NoProviders(t *testing.T) {
	_, _, err := Run(context.Background(), nil, "search", func(ctx context.Context, p fakeProvider) (string, error) {
		t.Fatal("call must not run with no providers")
		return "", nil
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}
