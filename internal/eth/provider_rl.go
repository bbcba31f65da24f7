package eth

import "context"

// RLProvider wraps a Provider with a Limiter.
type RLProvider struct {
	p Provider
	l Limiter
}

func WrapWithLimiter(p Provider, l Limiter) Provider { return RLProvider{p: p, l: l} }

func (r RLProvider) BlockNumber(ctx context.Context) (uint64, error) {
	if err := r.l.Wait(ctx); err != nil {
		return 0, err
	}
	return r.p.BlockNumber(ctx)
}

func (r RLProvider) GetLogs(ctx context.Context, address string, from, to uint64, topics [][]string) ([]Log, error) {
	if err := r.l.Wait(ctx); err != nil {
		return nil, err
	}
	return r.p.GetLogs(ctx, address, from, to, topics)
}

func (r RLProvider) CodeAt(ctx context.Context, address string) (string, error) {
	if err := r.l.Wait(ctx); err != nil {
		return "", err
	}
	return r.p.CodeAt(ctx, address)
}

func (r RLProvider) Call(ctx context.Context, to string, data []byte) ([]byte, error) {
	if err := r.l.Wait(ctx); err != nil {
		return nil, err
	}
	return r.p.Call(ctx, to, data)
}
