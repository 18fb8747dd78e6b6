package ocr

import "context"

// Pool serializes access to a fixed set of engine instances.  An engine
// is exclusively held for the duration of one recognition and returned
// afterwards whether the recognition succeeded or not, so two
// recognitions never overlap on one instance.
type Pool struct {
	engines chan Engine
}

// NewPool builds a pool over the given engine instances.  At least one
// engine is required.
func NewPool(engines ...Engine) *Pool {
	if len(engines) == 0 {
		panic("ocr: NewPool requires at least one engine")
	}
	ch := make(chan Engine, len(engines))
	for _, e := range engines {
		ch <- e
	}
	return &Pool{engines: ch}
}

// RecognizeText acquires an engine, runs the recognition and releases
// the engine again.  Acquisition blocks until an engine is free or the
// context is cancelled.
func (p *Pool) RecognizeText(ctx context.Context, image []byte, whitelist string) (string, error) {
	var e Engine
	select {
	case e = <-p.engines:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { p.engines <- e }()
	return e.RecognizeText(ctx, image, whitelist)
}
